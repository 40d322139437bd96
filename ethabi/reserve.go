package ethabi

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ReserveLayout selects which contract and return layout serves reserve data.
type ReserveLayout uint8

const (
	// LayoutPool reads Pool.getReserveData, the 15 word ReserveData struct.
	LayoutPool ReserveLayout = iota
	// LayoutDataProvider reads the AaveProtocolDataProvider getters.
	LayoutDataProvider
)

func (l ReserveLayout) String() string {
	switch l {
	case LayoutPool:
		return "pool"
	case LayoutDataProvider:
		return "data_provider"
	}
	return fmt.Sprintf("ReserveLayout(%d)", uint8(l))
}

// ParseReserveLayout parses a layout name from configuration. Empty means pool.
func ParseReserveLayout(name string) (ReserveLayout, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "pool":
		return LayoutPool, nil
	case "data_provider", "dataprovider", "provider":
		return LayoutDataProvider, nil
	}
	return LayoutPool, fmt.Errorf("unknown reserve layout %q", name)
}

const reserveDataWords = 15

var ray = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(27), nil))

// RayToFloat scales a ray (1e27) fixed point word down to a float.
func RayToFloat(w []byte) float64 {
	v := new(big.Float).SetInt(new(big.Int).SetBytes(w))
	f, _ := v.Quo(v, ray).Float64()
	return f
}

// ReserveData is the decoded Pool.getReserveData struct.
type ReserveData struct {
	Configuration               ReserveConfiguration
	ConfigurationBitmap         *uint256.Int
	LiquidityIndex              float64
	CurrentLiquidityRate        float64
	VariableBorrowIndex         float64
	CurrentVariableBorrowRate   float64
	CurrentStableBorrowRate     float64
	LastUpdateTimestamp         uint64
	ID                          uint16
	ATokenAddress               common.Address
	StableDebtTokenAddress      common.Address
	VariableDebtTokenAddress    common.Address
	InterestRateStrategyAddress common.Address
	AccruedToTreasury           *big.Int
	Unbacked                    *big.Int
	IsolationModeTotalDebt      *big.Int
}

// DecodeReserveData decodes the pool's ReserveData struct. Extra trailing words
// from newer pool revisions are ignored.
func DecodeReserveData(payload string) (*ReserveData, error) {
	data, err := DecodeHex(payload)
	if err != nil {
		return nil, err
	}
	if wordCount(data) < reserveDataWords {
		return nil, fmt.Errorf("%w: reserve data has %d words, want %d", ErrMalformed, wordCount(data), reserveDataWords)
	}

	bitmap := new(uint256.Int).SetBytes(wordAt(data, 0))
	timestamp, _ := wordUint64(wordAt(data, 6))
	id, _ := wordUint64(wordAt(data, 7))

	return &ReserveData{
		Configuration:               ConfigurationFromInt(bitmap),
		ConfigurationBitmap:         bitmap,
		LiquidityIndex:              RayToFloat(wordAt(data, 1)),
		CurrentLiquidityRate:        RayToFloat(wordAt(data, 2)),
		VariableBorrowIndex:         RayToFloat(wordAt(data, 3)),
		CurrentVariableBorrowRate:   RayToFloat(wordAt(data, 4)),
		CurrentStableBorrowRate:     RayToFloat(wordAt(data, 5)),
		LastUpdateTimestamp:         timestamp,
		ID:                          uint16(id),
		ATokenAddress:               common.BytesToAddress(wordAt(data, 8)[12:]),
		StableDebtTokenAddress:      common.BytesToAddress(wordAt(data, 9)[12:]),
		VariableDebtTokenAddress:    common.BytesToAddress(wordAt(data, 10)[12:]),
		InterestRateStrategyAddress: common.BytesToAddress(wordAt(data, 11)[12:]),
		AccruedToTreasury:           new(big.Int).SetBytes(wordAt(data, 12)),
		Unbacked:                    new(big.Int).SetBytes(wordAt(data, 13)),
		IsolationModeTotalDebt:      new(big.Int).SetBytes(wordAt(data, 14)),
	}, nil
}
