package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethpandaops/lendingscope/types"
)

func TestSelectNetworks(t *testing.T) {
	active := true
	cfg := &types.Config{
		Networks: map[string]*types.NetworkConfig{
			"ethereum": {Name: "Ethereum", Active: &active},
			"base":     {Name: "Base", Active: &active},
		},
	}

	all, err := selectNetworks(cfg, nil)
	if err != nil || len(all) != 2 {
		t.Fatalf("selectNetworks(nil) = %v, %v", all, err)
	}

	one, err := selectNetworks(cfg, []string{"base"})
	if err != nil || len(one) != 1 || one["base"] == nil {
		t.Fatalf("selectNetworks(base) = %v, %v", one, err)
	}

	if _, err := selectNetworks(cfg, []string{"solana"}); err == nil {
		t.Error("expected an error for an unknown network")
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	records := map[string][]*types.ReserveRecord{
		"ethereum": {{Network: "ethereum", Symbol: "USDC", LoanToValue: 0.75}},
	}
	if err := writeJSON(path, records); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	decoded := map[string][]map[string]interface{}{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}
	if decoded["ethereum"][0]["symbol"] != "USDC" || decoded["ethereum"][0]["loan_to_value"] != 0.75 {
		t.Errorf("unexpected output: %s", data)
	}
}

func TestReserveFlags(t *testing.T) {
	tests := []struct {
		record *types.ReserveRecord
		want   string
	}{
		{&types.ReserveRecord{Active: true}, "-"},
		{&types.ReserveRecord{Active: true, BorrowingEnabled: true, UsageAsCollateral: true}, "borrow,collateral"},
		{&types.ReserveRecord{Frozen: true, Paused: true}, "inactive,frozen,paused"},
	}
	for _, test := range tests {
		if got := reserveFlags(test.record); got != test.want {
			t.Errorf("reserveFlags(%+v) = %q, want %q", test.record, got, test.want)
		}
	}
}
