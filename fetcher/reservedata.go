package fetcher

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ethpandaops/lendingscope/clients/execution/rpc"
	"github.com/ethpandaops/lendingscope/ethabi"
	"github.com/ethpandaops/lendingscope/types"
)

// GetReserveData fetches the parameters of one reserve. With LayoutPool the
// contract is the pool, with LayoutDataProvider it is the pool data provider.
// The symbol fields of the returned record are left empty.
func (f *Fetcher) GetReserveData(ctx context.Context, asset common.Address, contract common.Address, endpoints rpc.EndpointSet, layout ethabi.ReserveLayout) (*types.ReserveRecord, error) {
	switch layout {
	case ethabi.LayoutPool:
		return f.getPoolReserveData(ctx, asset, contract, endpoints)
	case ethabi.LayoutDataProvider:
		return f.getProviderReserveData(ctx, asset, contract, endpoints)
	}
	return nil, fmt.Errorf("unsupported reserve layout %v", layout)
}

func (f *Fetcher) callReserve(ctx context.Context, asset common.Address, contract common.Address, endpoints rpc.EndpointSet, signature string) (string, error) {
	result, err := f.coord.EthCall(ctx, endpoints, contract, ethabi.EncodeCall(signature, asset))
	if err != nil {
		return "", fmt.Errorf("%v for %v failed: %w", signature, asset.Hex(), err)
	}
	if ethabi.IsEmptyResult(result) {
		return "", fmt.Errorf("%v for %v: %w", signature, asset.Hex(), ErrEmptyResponse)
	}
	return result, nil
}

// reserveSignatures lists the calls, in order, that make up the reserve data
// of a layout.
func reserveSignatures(layout ethabi.ReserveLayout) []string {
	if layout == ethabi.LayoutDataProvider {
		return []string{ethabi.SigGetReserveConfigurationData, ethabi.SigGetReserveData}
	}
	return []string{ethabi.SigGetReserveData}
}

func (f *Fetcher) getPoolReserveData(ctx context.Context, asset common.Address, pool common.Address, endpoints rpc.EndpointSet) (*types.ReserveRecord, error) {
	result, err := f.callReserve(ctx, asset, pool, endpoints, ethabi.SigGetReserveData)
	if err != nil {
		return nil, err
	}
	return f.poolRecord(asset, result)
}

func (f *Fetcher) poolRecord(asset common.Address, result string) (*types.ReserveRecord, error) {
	data, err := ethabi.DecodeReserveData(result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode reserve data of %v: %w", asset.Hex(), err)
	}

	cfg := data.Configuration
	return &types.ReserveRecord{
		Network:                f.network,
		AssetAddress:           asset.Hex(),
		Layout:                 ethabi.LayoutPool.String(),
		LoanToValue:            cfg.LoanToValue,
		LiquidationThreshold:   cfg.LiquidationThreshold,
		LiquidationBonus:       normalizeBonus(cfg.LiquidationBonus),
		ReserveFactor:          cfg.ReserveFactor,
		LiquidationProtocolFee: cfg.LiquidationProtocolFee,
		Decimals:               uint64(cfg.Decimals),
		Active:                 cfg.Active,
		Frozen:                 cfg.Frozen,
		BorrowingEnabled:       cfg.BorrowingEnabled,
		StableBorrowingEnabled: cfg.StableBorrowingEnabled,
		Paused:                 cfg.Paused,
		BorrowableInIsolation:  cfg.BorrowableInIsolation,
		SiloedBorrowing:        cfg.SiloedBorrowing,
		FlashLoanEnabled:       cfg.FlashLoanEnabled,
		UsageAsCollateral:      cfg.LiquidationThreshold > 0,
		BorrowCap:              cfg.BorrowCap,
		SupplyCap:              cfg.SupplyCap,
		DebtCeiling:            cfg.DebtCeiling,
		UnbackedMintCap:        cfg.UnbackedMintCap,
		EModeCategory:          cfg.EModeCategory,

		LiquidityIndex:      data.LiquidityIndex,
		VariableBorrowIndex: data.VariableBorrowIndex,
		LiquidityRate:       data.CurrentLiquidityRate,
		VariableBorrowRate:  data.CurrentVariableBorrowRate,
		StableBorrowRate:    data.CurrentStableBorrowRate,
		LastUpdateTimestamp: data.LastUpdateTimestamp,

		ATokenAddress:               data.ATokenAddress.Hex(),
		StableDebtTokenAddress:      data.StableDebtTokenAddress.Hex(),
		VariableDebtTokenAddress:    data.VariableDebtTokenAddress.Hex(),
		InterestRateStrategyAddress: data.InterestRateStrategyAddress.Hex(),
		AccruedToTreasury:           bigString(data.AccruedToTreasury),
		Unbacked:                    bigString(data.Unbacked),
		IsolationModeTotalDebt:      bigString(data.IsolationModeTotalDebt),
	}, nil
}

func (f *Fetcher) getProviderReserveData(ctx context.Context, asset common.Address, provider common.Address, endpoints rpc.EndpointSet) (*types.ReserveRecord, error) {
	configResult, err := f.callReserve(ctx, asset, provider, endpoints, ethabi.SigGetReserveConfigurationData)
	if err != nil {
		return nil, err
	}
	if _, err := ethabi.DecodeProviderConfiguration(configResult); err != nil {
		return nil, fmt.Errorf("failed to decode reserve configuration of %v: %w", asset.Hex(), err)
	}

	dataResult, err := f.callReserve(ctx, asset, provider, endpoints, ethabi.SigGetReserveData)
	if err != nil {
		return nil, err
	}
	return f.providerRecord(asset, configResult, dataResult)
}

func (f *Fetcher) providerRecord(asset common.Address, configResult string, dataResult string) (*types.ReserveRecord, error) {
	cfg, err := ethabi.DecodeProviderConfiguration(configResult)
	if err != nil {
		return nil, fmt.Errorf("failed to decode reserve configuration of %v: %w", asset.Hex(), err)
	}
	data, err := ethabi.DecodeProviderReserveData(dataResult)
	if err != nil {
		return nil, fmt.Errorf("failed to decode reserve data of %v: %w", asset.Hex(), err)
	}

	return &types.ReserveRecord{
		Network:                f.network,
		AssetAddress:           asset.Hex(),
		Layout:                 ethabi.LayoutDataProvider.String(),
		LoanToValue:            cfg.LoanToValue,
		LiquidationThreshold:   cfg.LiquidationThreshold,
		LiquidationBonus:       normalizeBonus(cfg.LiquidationBonus),
		ReserveFactor:          cfg.ReserveFactor,
		Decimals:               cfg.Decimals,
		Active:                 cfg.Active,
		Frozen:                 cfg.Frozen,
		BorrowingEnabled:       cfg.BorrowingEnabled,
		StableBorrowingEnabled: cfg.StableBorrowRateEnabled,
		UsageAsCollateral:      cfg.UsageAsCollateralEnabled,

		LiquidityIndex:      data.LiquidityIndex,
		VariableBorrowIndex: data.VariableBorrowIndex,
		LiquidityRate:       data.LiquidityRate,
		VariableBorrowRate:  data.VariableBorrowRate,
		StableBorrowRate:    data.StableBorrowRate,
		LastUpdateTimestamp: data.LastUpdateTimestamp,

		AccruedToTreasury: bigString(data.AccruedToTreasuryScaled),
		Unbacked:          bigString(data.Unbacked),
	}, nil
}

// normalizeBonus converts a bonus stored as 1 + bonus (10500 basis points)
// into the bonus alone.
func normalizeBonus(bonus float64) float64 {
	if bonus > 1 {
		return bonus - 1
	}
	return bonus
}

func bigString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}
