package fetcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/lendingscope/cache"
	"github.com/ethpandaops/lendingscope/clients/execution/rpc"
	"github.com/ethpandaops/lendingscope/utils"
)

// ErrEmptyResponse is returned when a contract call answers with "0x", which
// means the function is not implemented or the call reverted.
var ErrEmptyResponse = errors.New("empty contract response")

// ErrNoContract is returned when an address that must hold a contract has no code.
var ErrNoContract = errors.New("no contract code at address")

// ResponseCache is the advisory cache consulted by the fetcher. A nil cache
// disables caching.
type ResponseCache interface {
	GetEntry(category cache.Category, key string, returnValue interface{}) (interface{}, error)
	SetEntry(category cache.Category, key string, value interface{}) error
}

type Fetcher struct {
	coord   *rpc.Coordinator
	cache   ResponseCache
	logger  logrus.FieldLogger
	network string
}

func NewFetcher(coord *rpc.Coordinator, cache ResponseCache, logger logrus.FieldLogger) *Fetcher {
	return &Fetcher{
		coord:  coord,
		cache:  cache,
		logger: logger.WithField("module", "fetcher"),
	}
}

// WithNetwork returns a fetcher whose records, logs and cache keys are scoped
// to a network.
func (f *Fetcher) WithNetwork(network string) *Fetcher {
	return &Fetcher{
		coord:   f.coord,
		cache:   f.cache,
		logger:  f.logger.WithField("network", network),
		network: network,
	}
}

func (f *Fetcher) Network() string {
	return f.network
}

func (f *Fetcher) cacheKey(endpoints rpc.EndpointSet, key string) string {
	scope := f.network
	if scope == "" {
		scope = utils.GetUrlHost(endpoints.Primary)
	}
	return scope + ":" + key
}

func (f *Fetcher) getCached(category cache.Category, key string, value interface{}) bool {
	if f.cache == nil {
		return false
	}
	_, err := f.cache.GetEntry(category, key, value)
	return err == nil
}

func (f *Fetcher) setCached(category cache.Category, key string, value interface{}) {
	if f.cache == nil {
		return
	}
	if err := f.cache.SetEntry(category, key, value); err != nil {
		f.logger.Debugf("could not cache %v entry %v: %v", category, key, err)
	}
}

// CheckConnectivity verifies that the endpoint set serves the expected chain.
// The served chain id is cached per network and primary endpoint.
func (f *Fetcher) CheckConnectivity(ctx context.Context, endpoints rpc.EndpointSet, chainID uint64) error {
	cacheKey := f.cacheKey(endpoints, "chainid:"+utils.GetUrlHost(endpoints.Primary))
	var served uint64
	if !f.getCached(cache.CategoryNetworkConfig, cacheKey, &served) {
		res, err := f.coord.CallWithRetry(ctx, endpoints, "eth_chainId", []any{})
		if err != nil {
			return fmt.Errorf("eth_chainId failed: %w", err)
		}

		var chainHex hexutil.Uint64
		if err := chainHex.UnmarshalJSON(res); err != nil {
			return fmt.Errorf("invalid eth_chainId result %s: %w", string(res), err)
		}
		served = uint64(chainHex)
		f.setCached(cache.CategoryNetworkConfig, cacheKey, served)
	}

	if chainID != 0 && served != chainID {
		return fmt.Errorf("chain id mismatch: endpoint serves %v, expected %v", served, chainID)
	}
	return nil
}

// HasCode reports whether a contract is deployed at the address. Answers are
// cached as contract address entries.
func (f *Fetcher) HasCode(ctx context.Context, address common.Address, endpoints rpc.EndpointSet) (bool, error) {
	cacheKey := f.cacheKey(endpoints, "code:"+address.Hex())
	var deployed bool
	if f.getCached(cache.CategoryContractAddress, cacheKey, &deployed) {
		return deployed, nil
	}

	res, err := f.coord.CallWithRetry(ctx, endpoints, "eth_getCode", []any{address.Hex(), "latest"})
	if err != nil {
		return false, fmt.Errorf("eth_getCode for %v failed: %w", address.Hex(), err)
	}
	var code hexutil.Bytes
	if err := code.UnmarshalJSON(res); err != nil {
		return false, fmt.Errorf("invalid eth_getCode result for %v: %w", address.Hex(), err)
	}

	deployed = len(code) > 0
	f.setCached(cache.CategoryContractAddress, cacheKey, deployed)
	return deployed, nil
}
