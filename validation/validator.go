package validation

import (
	"math"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/lendingscope/types"
	"github.com/ethpandaops/lendingscope/utils"
)

const (
	toleranceRelative = 0.15
	toleranceAbsolute = 0.05

	stablecoinRange = 0.1
	majorAssetRange = 0.15

	maxDecimals = 30
)

// networks where native and bridged USDC both report "USDC"
var ambiguousUSDC = map[string]bool{
	"optimism": true,
	"polygon":  true,
	"arbitrum": true,
}

var stablecoins = map[string]bool{"USDC": true, "USDC.e": true, "USDT": true, "DAI": true}
var majorAssets = map[string]bool{"WETH": true, "WBTC": true}

type fieldRange struct {
	name     string
	value    func(r *types.ReserveRecord) float64
	min, max float64
}

var fieldRanges = []fieldRange{
	{"liquidation_threshold", func(r *types.ReserveRecord) float64 { return r.LiquidationThreshold }, 0, 1},
	{"loan_to_value", func(r *types.ReserveRecord) float64 { return r.LoanToValue }, 0, 1},
	{"liquidation_bonus", func(r *types.ReserveRecord) float64 { return r.LiquidationBonus }, 0, 2},
	{"reserve_factor", func(r *types.ReserveRecord) float64 { return r.ReserveFactor }, 0, 1},
	{"liquidity_index", func(r *types.ReserveRecord) float64 { return r.LiquidityIndex }, 0.5, 10},
	{"variable_borrow_index", func(r *types.ReserveRecord) float64 { return r.VariableBorrowIndex }, 0.5, 10},
}

// Validator checks fetched reserves for decode errors and implausible
// parameter sets.
type Validator struct {
	known      types.KnownValues
	networks   map[string]*types.NetworkConfig
	logger     logrus.FieldLogger
	maxDataAge time.Duration
	now        func() time.Time
}

func NewValidator(known types.KnownValues, networks map[string]*types.NetworkConfig, logger logrus.FieldLogger) *Validator {
	return &Validator{
		known:    known,
		networks: networks,
		logger:   logger.WithField("module", "validation"),
		now:      time.Now,
	}
}

// WithMaxDataAge enables the freshness check: a network whose newest reserve
// update is older than age gets a warning. Zero disables the check.
func (v *Validator) WithMaxDataAge(age time.Duration) *Validator {
	v.maxDataAge = age
	return v
}

func sortedKeys(data map[string][]*types.ReserveRecord) []string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Validate runs all checks over the reserves of every network.
func (v *Validator) Validate(data map[string][]*types.ReserveRecord) *Result {
	result := NewResult()
	if len(data) == 0 {
		result.addError("no network data found")
		return result
	}
	result.pass()
	result.addInfo("found data for %v networks", len(data))

	keys := sortedKeys(data)
	for _, network := range keys {
		v.validateNetwork(network, data[network], result)
	}
	v.validateCrossNetwork(keys, data, result)
	for _, network := range keys {
		v.validateKnownValues(network, data[network], result)
	}

	v.logger.Infof("validation finished: %v", result.Summary())
	return result
}

func (v *Validator) validateNetwork(network string, reserves []*types.ReserveRecord, result *Result) {
	if len(reserves) == 0 {
		result.addWarning("network %v has no assets", network)
		return
	}
	result.pass()

	if v.networks != nil {
		config, ok := v.networks[network]
		if !ok {
			result.addWarning("unknown network: %v", network)
			return
		}
		if !config.IsActive() {
			result.addWarning("network %v is configured as inactive but has data", network)
		}
	}

	for _, reserve := range reserves {
		validateReserve(network, reserve, result)
	}
	v.validateFreshness(network, reserves, result)
}

func (v *Validator) validateFreshness(network string, reserves []*types.ReserveRecord, result *Result) {
	if v.maxDataAge <= 0 {
		return
	}
	newest := uint64(0)
	for _, reserve := range reserves {
		if reserve.LastUpdateTimestamp > newest {
			newest = reserve.LastUpdateTimestamp
		}
	}
	if newest == 0 {
		result.addWarning("network %v has no reserve update timestamps", network)
		return
	}
	age := v.now().Sub(time.Unix(int64(newest), 0))
	if age > v.maxDataAge {
		result.addWarning("network %v has stale data: newest reserve update %v ago", network, age.Truncate(time.Second))
		return
	}
	result.pass()
}

func validateReserve(network string, r *types.ReserveRecord, result *Result) {
	if !isHexAddress(r.AssetAddress) {
		result.addError("%v %v: invalid address format: %v", network, r.Symbol, r.AssetAddress)
	} else {
		result.pass()
	}

	for _, field := range fieldRanges {
		value := field.value(r)
		if math.IsNaN(value) || value < field.min || value > field.max {
			result.addError("%v %v: %v (%v) outside valid range [%v, %v]", network, r.Symbol, field.name, utils.FormatFloat(value, 4), field.min, field.max)
		} else {
			result.pass()
		}
	}

	lt, ltv := r.LiquidationThreshold, r.LoanToValue
	if ltv > lt {
		result.addError("%v %v: LTV (%v) > LT (%v)", network, r.Symbol, utils.FormatPercent(ltv), utils.FormatPercent(lt))
	} else {
		result.pass()
	}

	if r.Active {
		switch {
		case lt == 0 && ltv > 0:
			result.addError("%v %v: active asset with zero liquidation threshold but non-zero LTV", network, r.Symbol)
		case ltv == 0 && lt > 0:
			result.addInfo("%v %v: zero LTV with non-zero LT (phased out or risk-adjusted asset)", network, r.Symbol)
			result.pass()
		default:
			result.pass()
		}
	}

	if r.Frozen && r.BorrowingEnabled {
		result.addInfo("%v %v: frozen asset with borrowing flag (legacy state)", network, r.Symbol)
		result.pass()
	}

	if r.Paused && r.Active {
		result.addError("%v %v: paused asset is marked as active", network, r.Symbol)
	} else {
		result.pass()
	}

	if r.Decimals > maxDecimals {
		result.addError("%v %v: invalid decimals value: %v", network, r.Symbol, r.Decimals)
	} else {
		result.pass()
	}
}

func isHexAddress(address string) bool {
	return len(address) == 42 && address[:2] == "0x" && common.IsHexAddress(address)
}

func (v *Validator) validateKnownValues(network string, reserves []*types.ReserveRecord, result *Result) {
	networkKnown := v.known[network]
	if networkKnown == nil {
		return
	}

	for _, r := range reserves {
		expected := networkKnown[r.Symbol]
		if expected == nil {
			continue
		}
		if r.Symbol == "USDC" && ambiguousUSDC[network] {
			result.addInfo("%v %v: skipping known value check due to multiple USDC variants", network, r.Symbol)
			result.pass()
			continue
		}

		compare := func(param string, expectedValue *float64, actual float64, scaled bool) {
			if expectedValue == nil {
				return
			}
			tolerance := toleranceAbsolute
			if scaled && *expectedValue > 0 {
				tolerance = math.Max(*expectedValue*toleranceRelative, toleranceAbsolute)
			}
			diff := math.Abs(actual - *expectedValue)
			if diff > tolerance {
				result.addWarning("%v %v %v: expected ~%v, got %v (diff: %v)", network, r.Symbol, param,
					utils.FormatFloat(*expectedValue, 4), utils.FormatFloat(actual, 4), utils.FormatFloat(diff, 4))
			} else {
				result.pass()
			}
		}
		compare("loan_to_value", expected.LoanToValue, r.LoanToValue, true)
		compare("liquidation_threshold", expected.LiquidationThreshold, r.LiquidationThreshold, true)
		compare("liquidation_bonus", expected.LiquidationBonus, r.LiquidationBonus, true)
		compare("reserve_factor", expected.ReserveFactor, r.ReserveFactor, true)
		compare("decimals", expected.Decimals, float64(r.Decimals), false)
	}
}

func (v *Validator) validateCrossNetwork(keys []string, data map[string][]*types.ReserveRecord, result *Result) {
	bySymbol := map[string][]*types.ReserveRecord{}
	symbols := []string{}
	for _, network := range keys {
		for _, r := range data[network] {
			if _, ok := bySymbol[r.Symbol]; !ok {
				symbols = append(symbols, r.Symbol)
			}
			bySymbol[r.Symbol] = append(bySymbol[r.Symbol], r)
		}
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		reserves := bySymbol[symbol]
		if len(reserves) < 2 {
			continue
		}
		if stablecoins[symbol] {
			checkSpread(result, "stablecoin", symbol, "LT", reserves, func(r *types.ReserveRecord) float64 { return r.LiquidationThreshold }, stablecoinRange)
			checkSpread(result, "stablecoin", symbol, "LTV", reserves, func(r *types.ReserveRecord) float64 { return r.LoanToValue }, stablecoinRange)
		}
		if majorAssets[symbol] {
			checkSpread(result, "major asset", symbol, "LT", reserves, func(r *types.ReserveRecord) float64 { return r.LiquidationThreshold }, majorAssetRange)
		}
	}
}

// checkSpread warns when the non-zero values of a parameter differ across
// networks by more than maxRange.
func checkSpread(result *Result, kind, symbol, param string, reserves []*types.ReserveRecord, value func(*types.ReserveRecord) float64, maxRange float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	count := 0
	for _, r := range reserves {
		v := value(r)
		if v <= 0 {
			continue
		}
		count++
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if count < 2 {
		return
	}
	if spread := hi - lo; spread > maxRange {
		result.addWarning("%v %v %v varies significantly across networks: range %v (%v - %v)", kind, symbol, param,
			utils.FormatFloat(spread, 3), utils.FormatFloat(lo, 3), utils.FormatFloat(hi, 3))
	} else {
		result.pass()
	}
}
