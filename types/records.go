package types

import "time"

// ReserveRecord is the normalized parameter set of one reserve.
type ReserveRecord struct {
	Network      string `json:"network"`
	AssetAddress string `json:"asset_address"`
	Symbol       string `json:"symbol"`
	SymbolSource string `json:"symbol_source"`
	Layout       string `json:"layout"`

	LoanToValue            float64 `json:"loan_to_value"`
	LiquidationThreshold   float64 `json:"liquidation_threshold"`
	LiquidationBonus       float64 `json:"liquidation_bonus"`
	ReserveFactor          float64 `json:"reserve_factor"`
	LiquidationProtocolFee float64 `json:"liquidation_protocol_fee"`
	Decimals               uint64  `json:"decimals"`

	Active                 bool `json:"active"`
	Frozen                 bool `json:"frozen"`
	BorrowingEnabled       bool `json:"borrowing_enabled"`
	StableBorrowingEnabled bool `json:"stable_borrowing_enabled"`
	Paused                 bool `json:"paused"`
	BorrowableInIsolation  bool `json:"borrowable_in_isolation"`
	SiloedBorrowing        bool `json:"siloed_borrowing"`
	FlashLoanEnabled       bool `json:"flash_loan_enabled"`
	UsageAsCollateral      bool `json:"usage_as_collateral_enabled"`

	BorrowCap       uint64 `json:"borrow_cap"`
	SupplyCap       uint64 `json:"supply_cap"`
	DebtCeiling     uint64 `json:"debt_ceiling"`
	UnbackedMintCap uint64 `json:"unbacked_mint_cap"`
	EModeCategory   uint8  `json:"emode_category"`

	LiquidityIndex      float64 `json:"liquidity_index"`
	VariableBorrowIndex float64 `json:"variable_borrow_index"`
	LiquidityRate       float64 `json:"current_liquidity_rate"`
	VariableBorrowRate  float64 `json:"current_variable_borrow_rate"`
	StableBorrowRate    float64 `json:"current_stable_borrow_rate"`
	LastUpdateTimestamp uint64  `json:"last_update_timestamp"`

	ATokenAddress               string `json:"a_token_address,omitempty"`
	StableDebtTokenAddress      string `json:"stable_debt_token_address,omitempty"`
	VariableDebtTokenAddress    string `json:"variable_debt_token_address,omitempty"`
	InterestRateStrategyAddress string `json:"interest_rate_strategy_address,omitempty"`
	AccruedToTreasury           string `json:"accrued_to_treasury,omitempty"`
	Unbacked                    string `json:"unbacked,omitempty"`
	IsolationModeTotalDebt      string `json:"isolation_mode_total_debt,omitempty"`
}

type NetworkStatus string

const (
	NetworkSucceeded NetworkStatus = "succeeded"
	NetworkFailed    NetworkStatus = "failed"
	NetworkSkipped   NetworkStatus = "skipped"
)

// NetworkReport summarizes the fetch of one network.
type NetworkReport struct {
	Network       string           `json:"network"`
	Name          string           `json:"name"`
	ChainID       uint64           `json:"chain_id"`
	Status        NetworkStatus    `json:"status"`
	Error         string           `json:"error,omitempty"`
	AssetsTotal   int              `json:"assets_total"`
	AssetsFetched int              `json:"assets_fetched"`
	AssetsFailed  int              `json:"assets_failed"`
	DurationMs    int64            `json:"duration_ms"`
	Reserves      []*ReserveRecord `json:"reserves"`
}

// FetchReport is the result of a multi network run.
type FetchReport struct {
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt time.Time                 `json:"finished_at"`
	Succeeded  []string                  `json:"succeeded"`
	Failed     []string                  `json:"failed"`
	Skipped    []string                  `json:"skipped"`
	Networks   map[string]*NetworkReport `json:"networks"`
}
