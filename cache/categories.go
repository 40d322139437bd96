package cache

import (
	"strings"
	"time"
)

// Category groups cache entries that share a time to live.
type Category uint8

const (
	CategorySymbol Category = iota + 1
	CategoryReserveList
	CategoryNetworkConfig
	CategoryContractAddress
)

func (c Category) String() string {
	switch c {
	case CategorySymbol:
		return "symbol"
	case CategoryReserveList:
		return "reserves"
	case CategoryNetworkConfig:
		return "network"
	case CategoryContractAddress:
		return "contract"
	}
	return "other"
}

// Key namespaces a key by category. Keys are lower cased so checksummed and
// plain addresses hit the same entry.
func (c Category) Key(key string) string {
	return c.String() + ":" + strings.ToLower(key)
}

// TTLPolicy maps categories to their time to live.
type TTLPolicy map[Category]time.Duration

func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		CategorySymbol:          24 * time.Hour,
		CategoryReserveList:     5 * time.Minute,
		CategoryNetworkConfig:   1 * time.Hour,
		CategoryContractAddress: 2 * time.Hour,
	}
}

// Merge returns a copy of the policy with all positive overrides applied.
func (p TTLPolicy) Merge(overrides TTLPolicy) TTLPolicy {
	merged := TTLPolicy{}
	for category, ttl := range p {
		merged[category] = ttl
	}
	for category, ttl := range overrides {
		if ttl > 0 {
			merged[category] = ttl
		}
	}
	return merged
}

func (p TTLPolicy) TTL(category Category) time.Duration {
	if ttl, ok := p[category]; ok {
		return ttl
	}
	return 5 * time.Minute
}
