package cache

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type symbolEntry struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

func TestTieredCacheLocal(t *testing.T) {
	cache, err := NewTieredCache(TieredCacheConfig{LocalSize: 1}, testLogger())
	if err != nil {
		t.Fatalf("NewTieredCache() error = %v", err)
	}
	defer cache.Close()

	if err := cache.SetEntry(CategorySymbol, "ethereum:0xA0b8", &symbolEntry{Symbol: "USDC", Reason: "ok"}); err != nil {
		t.Fatalf("SetEntry() error = %v", err)
	}

	got := &symbolEntry{}
	if _, err := cache.GetEntry(CategorySymbol, "ETHEREUM:0xa0b8", got); err != nil {
		t.Fatalf("GetEntry() error = %v", err)
	}
	if got.Symbol != "USDC" || got.Reason != "ok" {
		t.Errorf("GetEntry() = %+v, want USDC/ok", got)
	}
	if entries, hitRate := cache.LocalStats(); entries != 1 || hitRate != 1 {
		t.Errorf("LocalStats() = %v/%v, want 1/1", entries, hitRate)
	}

	if _, err := cache.GetEntry(CategoryReserveList, "ethereum:0xa0b8", &[]string{}); !errors.Is(err, CacheMissError) {
		t.Errorf("GetEntry(other category) error = %v, want CacheMissError", err)
	}

	cache.Delete(CategorySymbol.Key("ethereum:0xa0b8"))
	if _, err := cache.GetEntry(CategorySymbol, "ethereum:0xa0b8", &symbolEntry{}); !errors.Is(err, CacheMissError) {
		t.Errorf("GetEntry() after Delete error = %v, want CacheMissError", err)
	}
}

func TestTieredCachePebbleTier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache")
	first, err := NewTieredCache(TieredCacheConfig{LocalSize: 1, PebblePath: path}, testLogger())
	if err != nil {
		t.Fatalf("NewTieredCache() error = %v", err)
	}
	if err := first.SetEntry(CategoryContractAddress, "ethereum:pool", []string{"0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2"}); err != nil {
		t.Fatalf("SetEntry() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// a fresh local tier must be refilled from disk
	second, err := NewTieredCache(TieredCacheConfig{LocalSize: 1, PebblePath: path}, testLogger())
	if err != nil {
		t.Fatalf("NewTieredCache() reopen error = %v", err)
	}
	defer second.Close()

	got := []string{}
	if _, err := second.GetEntry(CategoryContractAddress, "ethereum:pool", &got); err != nil {
		t.Fatalf("GetEntry() error = %v", err)
	}
	if len(got) != 1 || got[0] != "0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2" {
		t.Errorf("GetEntry() = %v", got)
	}
}

func TestPebbleCacheExpiry(t *testing.T) {
	pc, err := InitPebbleCache(filepath.Join(t.TempDir(), "db"), 1)
	if err != nil {
		t.Fatalf("InitPebbleCache() error = %v", err)
	}
	defer pc.Close()

	ctx := context.Background()
	if err := pc.SetBytes(ctx, "short", []byte("x"), time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := pc.SetBytes(ctx, "forever", []byte("y"), 0); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := pc.GetBytes(ctx, "short"); !errors.Is(err, CacheMissError) {
		t.Errorf("GetBytes(expired) error = %v, want CacheMissError", err)
	}
	data, err := pc.GetBytes(ctx, "forever")
	if err != nil || string(data) != "y" {
		t.Errorf("GetBytes(forever) = %q, %v", data, err)
	}
	if _, err := pc.GetBytes(ctx, "missing"); !errors.Is(err, CacheMissError) {
		t.Errorf("GetBytes(missing) error = %v, want CacheMissError", err)
	}
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("LENDINGSCOPE_TEST_REDIS")
	if addr == "" {
		t.Skip("LENDINGSCOPE_TEST_REDIS not set")
	}

	ctx := context.Background()
	rc, err := InitRedisCache(ctx, addr, "lendingscope-test:")
	if err != nil {
		t.Fatalf("InitRedisCache() error = %v", err)
	}
	defer rc.Close()

	if err := rc.SetBytes(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	data, err := rc.GetBytes(ctx, "k")
	if err != nil || string(data) != "v" {
		t.Errorf("GetBytes() = %q, %v", data, err)
	}
	rc.Delete(ctx, "k")
	if _, err := rc.GetBytes(ctx, "k"); !errors.Is(err, CacheMissError) {
		t.Errorf("GetBytes() after Delete error = %v, want CacheMissError", err)
	}
}

func TestTTLPolicy(t *testing.T) {
	policy := DefaultTTLPolicy().Merge(TTLPolicy{CategorySymbol: time.Hour, CategoryReserveList: 0})
	if policy.TTL(CategorySymbol) != time.Hour {
		t.Errorf("TTL(symbol) = %v, want 1h", policy.TTL(CategorySymbol))
	}
	if policy.TTL(CategoryReserveList) != 5*time.Minute {
		t.Errorf("TTL(reserves) = %v, want 5m", policy.TTL(CategoryReserveList))
	}
	if policy.TTL(CategoryNetworkConfig) != time.Hour || policy.TTL(CategoryContractAddress) != 2*time.Hour {
		t.Errorf("TTL(network/contract) = %v/%v, want 1h/2h", policy.TTL(CategoryNetworkConfig), policy.TTL(CategoryContractAddress))
	}
}
