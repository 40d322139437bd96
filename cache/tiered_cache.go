package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coocood/freecache"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/lendingscope/utils"
)

// Tiered cache is a cache implementation combining a local cache with optional
// redis and pebble backed tiers. Every tier is advisory: a failing tier is
// logged and skipped.
type TieredCache struct {
	localGoCache *freecache.Cache
	remoteCaches []RemoteCache
	ttls         TTLPolicy
	logger       logrus.FieldLogger
}

type cachedValue struct {
	Version uint64      `json:"i"`
	Timeout uint64      `json:"t"`
	Value   interface{} `json:"v"`
}

var CacheMissError error = errors.New("cache miss")

// RemoteCache is a byte level cache tier behind the local cache.
type RemoteCache interface {
	SetBytes(ctx context.Context, key string, value []byte, expiration time.Duration) error
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

type TieredCacheConfig struct {
	LocalSize       int // MB
	RedisAddr       string
	RedisPrefix     string
	PebblePath      string
	PebbleCacheSize int // MB
	TTLs            TTLPolicy
}

func NewTieredCache(config TieredCacheConfig, logger logrus.FieldLogger) (*TieredCache, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	cacheSize := config.LocalSize
	if cacheSize <= 0 {
		cacheSize = 16
	}

	cache := &TieredCache{
		localGoCache: freecache.NewCache(cacheSize * 1024 * 1024),
		ttls:         DefaultTTLPolicy().Merge(config.TTLs),
		logger:       logger,
	}

	if config.RedisAddr != "" {
		redisCache, err := InitRedisCache(ctx, config.RedisAddr, config.RedisPrefix)
		if err != nil {
			logger.WithError(err).Errorf("error initializing remote redis cache. address: %v", config.RedisAddr)
			return nil, err
		}
		cache.remoteCaches = append(cache.remoteCaches, redisCache)
	}

	if config.PebblePath != "" {
		pebbleCache, err := InitPebbleCache(config.PebblePath, config.PebbleCacheSize)
		if err != nil {
			cache.Close()
			return nil, fmt.Errorf("error opening pebble cache at %v: %w", config.PebblePath, err)
		}
		cache.remoteCaches = append(cache.remoteCaches, pebbleCache)
	}

	return cache, nil
}

func (cache *TieredCache) Close() error {
	var firstErr error
	for _, remote := range cache.remoteCaches {
		if err := remote.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	cache.remoteCaches = nil
	return firstErr
}

func expireSeconds(expiration time.Duration) int {
	if expiration <= 0 {
		return 0
	}
	secs := int(expiration.Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (cache *TieredCache) Set(key string, value interface{}, expiration time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()
	cacheValue := cachedValue{
		Version: 1,
		Value:   value,
	}
	if expiration > 0 {
		cacheValue.Timeout = uint64(time.Now().Add(expiration).Unix())
	}

	valueMarshal, err := json.Marshal(cacheValue)
	if err != nil {
		return err
	}
	if err := cache.localGoCache.Set([]byte(key), valueMarshal, expireSeconds(expiration)); err != nil {
		cache.logger.Debugf("value for %v not stored in local cache: %v", key, err)
	}
	for _, remote := range cache.remoteCaches {
		if err := remote.SetBytes(ctx, key, valueMarshal, expiration); err != nil {
			cache.logger.WithError(err).Warnf("error storing %v in remote cache", key)
		}
	}
	return nil
}

func (cache *TieredCache) Get(key string, returnValue interface{}) (interface{}, error) {
	cacheValue := &cachedValue{
		Value: returnValue,
	}

	// try to retrieve the key from the local cache
	wanted, err := cache.localGoCache.Get([]byte(key))
	if err == nil {
		err = json.Unmarshal(wanted, cacheValue)
		if err != nil {
			utils.LogError(err, "error unmarshalling data for key", 0, map[string]interface{}{"key": key})
			cache.localGoCache.Del([]byte(key))
			return nil, err
		}

		return returnValue, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	now := uint64(time.Now().Unix())
	for _, remote := range cache.remoteCaches {
		data, err := remote.GetBytes(ctx, key)
		if err != nil {
			if !errors.Is(err, CacheMissError) {
				cache.logger.WithError(err).Debugf("error reading %v from remote cache", key)
			}
			continue
		}
		if err := json.Unmarshal(data, cacheValue); err != nil {
			remote.Delete(ctx, key)
			continue
		}
		if cacheValue.Timeout != 0 && cacheValue.Timeout <= now {
			continue
		}

		// refill the local cache with the remaining lifetime
		if cacheValue.Timeout == 0 || cacheValue.Timeout > now+2 {
			var timeout uint64
			if cacheValue.Timeout != 0 {
				timeout = cacheValue.Timeout - now
			}
			cache.localGoCache.Set([]byte(key), data, int(timeout))
		}
		return returnValue, nil
	}

	return nil, CacheMissError
}

func (cache *TieredCache) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	cache.localGoCache.Del([]byte(key))
	for _, remote := range cache.remoteCaches {
		remote.Delete(ctx, key)
	}
}

// GetEntry reads a value stored under a category key.
func (cache *TieredCache) GetEntry(category Category, key string, returnValue interface{}) (interface{}, error) {
	return cache.Get(category.Key(key), returnValue)
}

// SetEntry stores a value with the ttl configured for its category.
func (cache *TieredCache) SetEntry(category Category, key string, value interface{}) error {
	return cache.Set(category.Key(key), value, cache.ttls.TTL(category))
}

// TTL returns the configured lifetime for a category.
func (cache *TieredCache) TTL(category Category) time.Duration {
	return cache.ttls.TTL(category)
}

// LocalStats reports the entry count and hit rate of the local tier.
func (cache *TieredCache) LocalStats() (int64, float64) {
	return cache.localGoCache.EntryCount(), cache.localGoCache.HitRate()
}
