package types

import "time"

// Config is a struct to hold the configuration data
type Config struct {
	Logging struct {
		OutputLevel  string `yaml:"outputLevel" envconfig:"LOGGING_OUTPUT_LEVEL"`
		OutputStderr bool   `yaml:"outputStderr" envconfig:"LOGGING_OUTPUT_STDERR"`

		FilePath  string `yaml:"filePath" envconfig:"LOGGING_FILE_PATH"`
		FileLevel string `yaml:"fileLevel" envconfig:"LOGGING_FILE_LEVEL"`
	} `yaml:"logging"`

	Rpc struct {
		Timeout       time.Duration     `yaml:"timeout" envconfig:"RPC_TIMEOUT"`
		MaxRetries    int               `yaml:"maxRetries" envconfig:"RPC_MAX_RETRIES"`
		BaseDelay     time.Duration     `yaml:"baseDelay" envconfig:"RPC_BASE_DELAY"`
		MaxDelay      time.Duration     `yaml:"maxDelay" envconfig:"RPC_MAX_DELAY"`
		Jitter        time.Duration     `yaml:"jitter" envconfig:"RPC_JITTER"`
		MaxRetryAfter time.Duration     `yaml:"maxRetryAfter" envconfig:"RPC_MAX_RETRY_AFTER"`
		MaxFallbacks  int               `yaml:"maxFallbacks" envconfig:"RPC_MAX_FALLBACKS"`
		RateLimit     float64           `yaml:"rateLimit" envconfig:"RPC_RATE_LIMIT"`
		RateBurst     int               `yaml:"rateBurst" envconfig:"RPC_RATE_BURST"`
		Headers       map[string]string `yaml:"headers" envconfig:"RPC_HEADERS"`
	} `yaml:"rpc"`

	Fetcher struct {
		Workers            int           `yaml:"workers" envconfig:"FETCHER_WORKERS"`
		MaxNetworkFailures int           `yaml:"maxNetworkFailures" envconfig:"FETCHER_MAX_NETWORK_FAILURES"`
		NetworkTimeout     time.Duration `yaml:"networkTimeout" envconfig:"FETCHER_NETWORK_TIMEOUT"`
		BatchSymbols       bool          `yaml:"batchSymbols" envconfig:"FETCHER_BATCH_SYMBOLS"`
		CheckChainID       bool          `yaml:"checkChainId" envconfig:"FETCHER_CHECK_CHAIN_ID"`
		Multicall          bool          `yaml:"multicall" envconfig:"FETCHER_MULTICALL"`
		OutputPath         string        `yaml:"outputPath" envconfig:"FETCHER_OUTPUT_PATH"`
		Validate           bool          `yaml:"validate" envconfig:"FETCHER_VALIDATE"`
		KnownValuesPath    string        `yaml:"knownValuesPath" envconfig:"FETCHER_KNOWN_VALUES_PATH"`
		MaxDataAge         time.Duration `yaml:"maxDataAge" envconfig:"FETCHER_MAX_DATA_AGE"`
	} `yaml:"fetcher"`

	Cache struct {
		LocalSize       int           `yaml:"localSize" envconfig:"CACHE_LOCAL_SIZE"`
		RedisAddr       string        `yaml:"redisAddr" envconfig:"CACHE_REDIS_ADDR"`
		RedisPrefix     string        `yaml:"redisPrefix" envconfig:"CACHE_REDIS_PREFIX"`
		PebblePath      string        `yaml:"pebblePath" envconfig:"CACHE_PEBBLE_PATH"`
		PebbleCacheSize int           `yaml:"pebbleCacheSize" envconfig:"CACHE_PEBBLE_CACHE_SIZE"`
		SymbolTTL       time.Duration `yaml:"symbolTtl" envconfig:"CACHE_SYMBOL_TTL"`
		ReserveListTTL  time.Duration `yaml:"reserveListTtl" envconfig:"CACHE_RESERVE_LIST_TTL"`
		NetworkTTL      time.Duration `yaml:"networkTtl" envconfig:"CACHE_NETWORK_TTL"`
		ContractTTL     time.Duration `yaml:"contractTtl" envconfig:"CACHE_CONTRACT_TTL"`
	} `yaml:"cache"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" envconfig:"METRICS_ENABLED"`
		Host    string `yaml:"host" envconfig:"METRICS_HOST"`
		Port    string `yaml:"port" envconfig:"METRICS_PORT"`
	} `yaml:"metrics"`

	NetworksPath string                    `yaml:"networksPath" envconfig:"NETWORKS_PATH"`
	Networks     map[string]*NetworkConfig `yaml:"networks"`
}

// NetworkConfig describes one Aave V3 deployment.
type NetworkConfig struct {
	Name             string   `yaml:"name" json:"name"`
	ChainID          uint64   `yaml:"chainId" json:"chain_id"`
	Rpc              string   `yaml:"rpc" json:"rpc"`
	RpcFallback      []string `yaml:"rpcFallback" json:"rpc_fallback"`
	Pool             string   `yaml:"pool" json:"pool"`
	PoolDataProvider string   `yaml:"poolDataProvider" json:"pool_data_provider"`
	Layout           string   `yaml:"layout" json:"layout,omitempty"`
	Multicall        string   `yaml:"multicall" json:"multicall,omitempty"` // Multicall3 address, empty for the default, "none" to disable
	Active           *bool    `yaml:"active" json:"active"`
}

func (n *NetworkConfig) IsActive() bool {
	return n.Active != nil && *n.Active
}

// KnownAsset holds reference risk parameters for one asset.
type KnownAsset struct {
	LoanToValue          *float64 `yaml:"loanToValue"`
	LiquidationThreshold *float64 `yaml:"liquidationThreshold"`
	LiquidationBonus     *float64 `yaml:"liquidationBonus"`
	ReserveFactor        *float64 `yaml:"reserveFactor"`
	Decimals             *float64 `yaml:"decimals"`
}

// KnownValues maps network key and symbol to reference parameters.
type KnownValues map[string]map[string]*KnownAsset
