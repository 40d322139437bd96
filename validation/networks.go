package validation

import (
	"fmt"
	"regexp"

	"github.com/ethpandaops/lendingscope/ethabi"
	"github.com/ethpandaops/lendingscope/types"
	"github.com/ethpandaops/lendingscope/utils"
)

var rpcUrlPattern = regexp.MustCompile(`(?i)^https?://` +
	`(?:(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)*[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.?` +
	`|localhost` +
	`|\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
	`(?::\d+)?` +
	`(?:/\S*)?$`)

func IsValidRpcUrl(url string) bool {
	return rpcUrlPattern.MatchString(url)
}

// ValidateNetworkConfig returns the problems found in one network entry.
func ValidateNetworkConfig(cfg *types.NetworkConfig) []string {
	problems := []string{}
	if cfg == nil {
		return append(problems, "missing network config")
	}

	if cfg.Name == "" {
		problems = append(problems, "missing required field: name")
	}
	if cfg.ChainID == 0 {
		problems = append(problems, "missing required field: chainId")
	}
	if cfg.Active == nil {
		problems = append(problems, "missing required field: active")
	}
	if !IsValidRpcUrl(cfg.Rpc) {
		problems = append(problems, fmt.Sprintf("invalid rpc url format: %v", utils.GetRedactedUrl(cfg.Rpc)))
	}
	for _, fallback := range cfg.RpcFallback {
		if !IsValidRpcUrl(fallback) {
			problems = append(problems, fmt.Sprintf("invalid fallback rpc url format: %v", utils.GetRedactedUrl(fallback)))
		}
	}
	if !isHexAddress(cfg.Pool) {
		problems = append(problems, fmt.Sprintf("invalid pool address format: %v", cfg.Pool))
	}
	if !isHexAddress(cfg.PoolDataProvider) {
		problems = append(problems, fmt.Sprintf("invalid poolDataProvider address format: %v", cfg.PoolDataProvider))
	}
	if _, err := ethabi.ParseReserveLayout(cfg.Layout); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.Multicall != "" && cfg.Multicall != "none" && !isHexAddress(cfg.Multicall) {
		problems = append(problems, fmt.Sprintf("invalid multicall address format: %v", cfg.Multicall))
	}
	return problems
}

// ValidateNetworks checks every configured network and returns the problems
// keyed by network. An empty map means all networks are valid.
func ValidateNetworks(networks map[string]*types.NetworkConfig) map[string][]string {
	invalid := map[string][]string{}
	for _, key := range utils.NetworkKeys(networks, false) {
		if problems := ValidateNetworkConfig(networks[key]); len(problems) > 0 {
			invalid[key] = problems
		}
	}
	return invalid
}
