package cache

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/cockroachdb/pebble"
)

// Value format: [expires at, unix nanos, 0 = never (8 bytes)] [data]
const pebbleValueHeaderSize = 8

// PebbleCache persists cache entries on disk so repeated runs can reuse
// symbols and contract metadata.
type PebbleCache struct {
	db *pebble.DB
}

func InitPebbleCache(path string, cacheSizeMB int) (*PebbleCache, error) {
	if cacheSizeMB <= 0 {
		cacheSizeMB = 16
	}
	blockCache := pebble.NewCache(int64(cacheSizeMB * 1024 * 1024))
	defer blockCache.Unref()

	db, err := pebble.Open(path, &pebble.Options{
		Cache: blockCache,
	})
	if err != nil {
		return nil, err
	}

	return &PebbleCache{
		db: db,
	}, nil
}

func (cache *PebbleCache) SetBytes(_ context.Context, key string, value []byte, expiration time.Duration) error {
	entry := make([]byte, pebbleValueHeaderSize+len(value))
	if expiration > 0 {
		binary.BigEndian.PutUint64(entry[:pebbleValueHeaderSize], uint64(time.Now().Add(expiration).UnixNano()))
	}
	copy(entry[pebbleValueHeaderSize:], value)

	return cache.db.Set([]byte(key), entry, pebble.NoSync)
}

func (cache *PebbleCache) GetBytes(_ context.Context, key string) ([]byte, error) {
	res, closer, err := cache.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return nil, CacheMissError
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	if len(res) < pebbleValueHeaderSize {
		return nil, CacheMissError
	}

	expiresAt := binary.BigEndian.Uint64(res[:pebbleValueHeaderSize])
	if expiresAt != 0 && expiresAt <= uint64(time.Now().UnixNano()) {
		cache.db.Delete([]byte(key), pebble.NoSync)
		return nil, CacheMissError
	}

	data := make([]byte, len(res)-pebbleValueHeaderSize)
	copy(data, res[pebbleValueHeaderSize:])
	return data, nil
}

func (cache *PebbleCache) Delete(_ context.Context, key string) error {
	return cache.db.Delete([]byte(key), pebble.NoSync)
}

func (cache *PebbleCache) Close() error {
	return cache.db.Close()
}
