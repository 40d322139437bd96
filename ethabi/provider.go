package ethabi

import (
	"fmt"
	"math/big"
)

const (
	providerReserveDataWords   = 12
	providerConfigurationWords = 10
)

// ProviderReserveData is the AaveProtocolDataProvider.getReserveData tuple.
type ProviderReserveData struct {
	Unbacked                *big.Int
	AccruedToTreasuryScaled *big.Int
	TotalAToken             *big.Int
	TotalStableDebt         *big.Int
	TotalVariableDebt       *big.Int
	LiquidityRate           float64
	VariableBorrowRate      float64
	StableBorrowRate        float64
	AverageStableBorrowRate float64
	LiquidityIndex          float64
	VariableBorrowIndex     float64
	LastUpdateTimestamp     uint64
}

// DecodeProviderReserveData decodes the data provider's 12 word reserve tuple.
func DecodeProviderReserveData(payload string) (*ProviderReserveData, error) {
	data, err := DecodeHex(payload)
	if err != nil {
		return nil, err
	}
	if wordCount(data) < providerReserveDataWords {
		return nil, fmt.Errorf("%w: provider reserve data has %d words, want %d", ErrMalformed, wordCount(data), providerReserveDataWords)
	}

	timestamp, _ := wordUint64(wordAt(data, 11))
	return &ProviderReserveData{
		Unbacked:                new(big.Int).SetBytes(wordAt(data, 0)),
		AccruedToTreasuryScaled: new(big.Int).SetBytes(wordAt(data, 1)),
		TotalAToken:             new(big.Int).SetBytes(wordAt(data, 2)),
		TotalStableDebt:         new(big.Int).SetBytes(wordAt(data, 3)),
		TotalVariableDebt:       new(big.Int).SetBytes(wordAt(data, 4)),
		LiquidityRate:           RayToFloat(wordAt(data, 5)),
		VariableBorrowRate:      RayToFloat(wordAt(data, 6)),
		StableBorrowRate:        RayToFloat(wordAt(data, 7)),
		AverageStableBorrowRate: RayToFloat(wordAt(data, 8)),
		LiquidityIndex:          RayToFloat(wordAt(data, 9)),
		VariableBorrowIndex:     RayToFloat(wordAt(data, 10)),
		LastUpdateTimestamp:     timestamp,
	}, nil
}

// ProviderConfiguration is the data provider's getReserveConfigurationData tuple.
type ProviderConfiguration struct {
	Decimals                 uint64
	LoanToValue              float64
	LiquidationThreshold     float64
	LiquidationBonus         float64
	ReserveFactor            float64
	UsageAsCollateralEnabled bool
	BorrowingEnabled         bool
	StableBorrowRateEnabled  bool
	Active                   bool
	Frozen                   bool
}

// DecodeProviderConfiguration decodes the data provider's 10 word configuration tuple.
func DecodeProviderConfiguration(payload string) (*ProviderConfiguration, error) {
	data, err := DecodeHex(payload)
	if err != nil {
		return nil, err
	}
	if wordCount(data) < providerConfigurationWords {
		return nil, fmt.Errorf("%w: provider configuration has %d words, want %d", ErrMalformed, wordCount(data), providerConfigurationWords)
	}

	uintAt := func(i int) (uint64, error) {
		v, ok := wordUint64(wordAt(data, i))
		if !ok {
			return 0, fmt.Errorf("%w: configuration word %d out of range", ErrMalformed, i)
		}
		return v, nil
	}
	values := make([]uint64, providerConfigurationWords)
	for i := range values {
		v, err := uintAt(i)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	return &ProviderConfiguration{
		Decimals:                 values[0],
		LoanToValue:              float64(values[1]) / basisPoints,
		LiquidationThreshold:     float64(values[2]) / basisPoints,
		LiquidationBonus:         float64(values[3]) / basisPoints,
		ReserveFactor:            float64(values[4]) / basisPoints,
		UsageAsCollateralEnabled: values[5] != 0,
		BorrowingEnabled:         values[6] != 0,
		StableBorrowRateEnabled:  values[7] != 0,
		Active:                   values[8] != 0,
		Frozen:                   values[9] != 0,
	}, nil
}
