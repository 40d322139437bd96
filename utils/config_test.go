package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethpandaops/lendingscope/types"
)

func TestReadConfigDefaults(t *testing.T) {
	cfg := &types.Config{}
	if err := ReadConfig(cfg, ""); err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	if cfg.Rpc.MaxRetries != 3 {
		t.Errorf("Rpc.MaxRetries = %d, want 3", cfg.Rpc.MaxRetries)
	}
	if cfg.Rpc.MaxRetryAfter != 60*time.Second {
		t.Errorf("Rpc.MaxRetryAfter = %v, want 60s", cfg.Rpc.MaxRetryAfter)
	}
	if cfg.Cache.SymbolTTL != 24*time.Hour || cfg.Cache.ReserveListTTL != 5*time.Minute {
		t.Errorf("cache ttls = %v/%v, want 24h/5m", cfg.Cache.SymbolTTL, cfg.Cache.ReserveListTTL)
	}

	eth := cfg.Networks["ethereum"]
	if eth == nil {
		t.Fatal("ethereum network missing from defaults")
	}
	if eth.Pool != "0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2" || eth.ChainID != 1 || !eth.IsActive() {
		t.Errorf("ethereum network = %+v", eth)
	}
	if bnb := cfg.Networks["bnb"]; bnb == nil || bnb.Layout != "data_provider" {
		t.Errorf("bnb network = %+v, want data_provider layout", bnb)
	}
	if mantle := cfg.Networks["mantle"]; mantle == nil || mantle.IsActive() {
		t.Errorf("mantle network = %+v, want inactive", mantle)
	}
}

func TestReadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `
rpc:
  maxRetries: 4
networks:
  ethereum:
    rpc: "https://rpc.example.org"
    active: false
  devnet:
    name: "Devnet"
    chainId: 1337
    rpc: "http://localhost:8545"
    pool: "0x0000000000000000000000000000000000000001"
    poolDataProvider: "0x0000000000000000000000000000000000000002"
    active: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FETCHER_WORKERS", "7")

	cfg := &types.Config{}
	if err := ReadConfig(cfg, path); err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	if cfg.Rpc.MaxRetries != 4 {
		t.Errorf("Rpc.MaxRetries = %d, want 4", cfg.Rpc.MaxRetries)
	}
	if cfg.Rpc.BaseDelay != time.Second {
		t.Errorf("Rpc.BaseDelay = %v, want default 1s", cfg.Rpc.BaseDelay)
	}
	if cfg.Fetcher.Workers != 7 {
		t.Errorf("Fetcher.Workers = %d, want 7 from env", cfg.Fetcher.Workers)
	}

	eth := cfg.Networks["ethereum"]
	if eth.Rpc != "https://rpc.example.org" {
		t.Errorf("ethereum rpc = %q, want override", eth.Rpc)
	}
	if eth.Pool != "0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2" {
		t.Errorf("ethereum pool = %q, want value from network table", eth.Pool)
	}
	if eth.IsActive() {
		t.Error("ethereum still active after override")
	}
	if len(eth.RpcFallback) == 0 {
		t.Error("ethereum fallbacks lost during merge")
	}

	key, devnet := NetworkByChainID(cfg.Networks, 1337)
	if key != "devnet" || devnet == nil || devnet.Name != "Devnet" {
		t.Errorf("NetworkByChainID(1337) = %q, %+v", key, devnet)
	}
}

func TestNetworkKeys(t *testing.T) {
	yes, no := true, false
	networks := map[string]*types.NetworkConfig{
		"b": {Active: &yes},
		"a": {Active: &yes},
		"c": {Active: &no},
		"d": {},
	}
	all := NetworkKeys(networks, false)
	if len(all) != 4 || all[0] != "a" || all[3] != "d" {
		t.Errorf("NetworkKeys(false) = %v", all)
	}
	active := NetworkKeys(networks, true)
	if len(active) != 2 || active[0] != "a" || active[1] != "b" {
		t.Errorf("NetworkKeys(true) = %v, want [a b]", active)
	}
}
