package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/lendingscope/cache"
	"github.com/ethpandaops/lendingscope/clients/execution/rpc"
	"github.com/ethpandaops/lendingscope/fetcher"
	"github.com/ethpandaops/lendingscope/metrics"
	"github.com/ethpandaops/lendingscope/types"
)

func newCoordinator(cfg *types.Config, logger logrus.FieldLogger) *rpc.Coordinator {
	transport := rpc.NewHTTPTransport(rpc.HTTPTransportConfig{
		Timeout:   cfg.Rpc.Timeout,
		Headers:   cfg.Rpc.Headers,
		RateLimit: cfg.Rpc.RateLimit,
		RateBurst: cfg.Rpc.RateBurst,
	})

	policy := rpc.DefaultRetryPolicy()
	if cfg.Rpc.MaxRetries > 0 {
		policy.MaxRetries = cfg.Rpc.MaxRetries
	}
	if cfg.Rpc.BaseDelay > 0 {
		policy.BaseDelay = cfg.Rpc.BaseDelay
	}
	if cfg.Rpc.MaxDelay > 0 {
		policy.MaxDelay = cfg.Rpc.MaxDelay
	}
	if cfg.Rpc.MaxRetryAfter > 0 {
		policy.MaxRetryAfter = cfg.Rpc.MaxRetryAfter
	}
	policy.Jitter = cfg.Rpc.Jitter
	policy.MaxFallbacks = cfg.Rpc.MaxFallbacks

	return rpc.NewCoordinator(transport, policy, logger.WithField("module", "rpc"))
}

// newCache builds the response cache. A cache that fails to open is logged
// and skipped, the fetcher works without it.
func newCache(cfg *types.Config, logger logrus.FieldLogger) *cache.TieredCache {
	tieredCache, err := cache.NewTieredCache(cache.TieredCacheConfig{
		LocalSize:       cfg.Cache.LocalSize,
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPrefix:     cfg.Cache.RedisPrefix,
		PebblePath:      cfg.Cache.PebblePath,
		PebbleCacheSize: cfg.Cache.PebbleCacheSize,
		TTLs: cache.TTLPolicy{
			cache.CategorySymbol:          cfg.Cache.SymbolTTL,
			cache.CategoryReserveList:     cfg.Cache.ReserveListTTL,
			cache.CategoryNetworkConfig:   cfg.Cache.NetworkTTL,
			cache.CategoryContractAddress: cfg.Cache.ContractTTL,
		},
	}, logger.WithField("module", "cache"))
	if err != nil {
		logger.WithError(err).Warn("response cache disabled")
		return nil
	}

	metrics.AddPreCollectFn(func() {
		metrics.SetCacheStats(tieredCache.LocalStats())
	})
	return tieredCache
}

func newFetcher(cfg *types.Config, responseCache *cache.TieredCache, logger logrus.FieldLogger) *fetcher.Fetcher {
	// a typed nil pointer must not end up in the interface
	var fetcherCache fetcher.ResponseCache
	if responseCache != nil {
		fetcherCache = responseCache
	}
	return fetcher.NewFetcher(newCoordinator(cfg, logger), fetcherCache, logger)
}

func lookupNetwork(cfg *types.Config, key string) (*types.NetworkConfig, error) {
	network := cfg.Networks[key]
	if network == nil {
		return nil, fmt.Errorf("unknown network %q", key)
	}
	return network, nil
}

func endpointsOf(network *types.NetworkConfig) rpc.EndpointSet {
	return rpc.EndpointSet{
		Primary:   network.Rpc,
		Fallbacks: network.RpcFallback,
	}
}
