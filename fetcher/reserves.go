package fetcher

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ethpandaops/lendingscope/cache"
	"github.com/ethpandaops/lendingscope/clients/execution/rpc"
	"github.com/ethpandaops/lendingscope/ethabi"
)

// GetReserves returns the reserve assets listed by a pool.
func (f *Fetcher) GetReserves(ctx context.Context, pool common.Address, endpoints rpc.EndpointSet) ([]common.Address, error) {
	cacheKey := f.cacheKey(endpoints, pool.Hex())
	var cached []common.Address
	if f.getCached(cache.CategoryReserveList, cacheKey, &cached) {
		return cached, nil
	}

	result, err := f.coord.EthCall(ctx, endpoints, pool, ethabi.MethodID(ethabi.SigGetReservesList))
	if err != nil {
		return nil, fmt.Errorf("failed to get reserves from %v: %w", pool.Hex(), err)
	}
	if ethabi.IsEmptyResult(result) {
		return nil, fmt.Errorf("failed to get reserves from %v: %w", pool.Hex(), ErrEmptyResponse)
	}

	reserves, err := ethabi.DecodeAddressArray(result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode reserves of %v: %w", pool.Hex(), err)
	}

	f.logger.Debugf("pool %v lists %v reserves", pool.Hex(), len(reserves))
	f.setCached(cache.CategoryReserveList, cacheKey, reserves)
	return reserves, nil
}
