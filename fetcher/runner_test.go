package fetcher

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/lendingscope/ethabi"
	"github.com/ethpandaops/lendingscope/types"
)

func boolPtr(b bool) *bool {
	return &b
}

func healthyChain(t *testing.T) *fakeChain {
	chain := newFakeChain(t, 1)
	chain.set(testPool, ethabi.MethodID(ethabi.SigGetReservesList), ethabi.EncodeAddressArray([]common.Address{testUSDC, testWETH}))
	chain.set(testUSDC, ethabi.MethodID(ethabi.SigSymbol), ethabi.EncodeString("USDC"))
	chain.set(testWETH, ethabi.MethodID(ethabi.SigSymbol), ethabi.EncodeString("WETH"))
	chain.set(testPool, ethabi.EncodeCall(ethabi.SigGetReserveData, testUSDC), poolReservePayload(usdcConfiguration(), 0))
	chain.set(testPool, ethabi.EncodeCall(ethabi.SigGetReserveData, testWETH), poolReservePayload(usdcConfiguration(), 1))
	return chain
}

func network(chain *fakeChain, active bool) *types.NetworkConfig {
	return &types.NetworkConfig{
		Name:    "Test",
		ChainID: chain.chainID,
		Rpc:     chain.server.URL,
		Pool:    testPool.Hex(),
		Active:  boolPtr(active),
	}
}

func TestAssetFailureLimit(t *testing.T) {
	tests := []struct {
		assets, want int
	}{
		{0, 5},
		{8, 5},
		{20, 5},
		{24, 6},
		{60, 15},
	}
	for _, test := range tests {
		if got := assetFailureLimit(test.assets); got != test.want {
			t.Errorf("assetFailureLimit(%d) = %d, want %d", test.assets, got, test.want)
		}
	}
}

func TestFetchAll(t *testing.T) {
	healthy := healthyChain(t)
	broken := newFakeChain(t, 1)

	networks := map[string]*types.NetworkConfig{
		"alpha": network(healthy, true),
		"beta":  network(broken, true),
		"gamma": network(healthy, false),
	}

	for _, batch := range []bool{false, true} {
		runner := NewRunner(newTestFetcher(nil), RunnerConfig{
			Workers:            2,
			MaxNetworkFailures: 5,
			NetworkTimeout:     10 * time.Second,
			BatchSymbols:       batch,
			CheckChainID:       true,
		}, testLogger())
		report := runner.FetchAll(context.Background(), networks)

		if len(report.Succeeded) != 1 || report.Succeeded[0] != "alpha" {
			t.Errorf("batch=%v: succeeded = %v", batch, report.Succeeded)
		}
		if len(report.Failed) != 1 || report.Failed[0] != "beta" {
			t.Errorf("batch=%v: failed = %v", batch, report.Failed)
		}
		if len(report.Skipped) != 1 || report.Skipped[0] != "gamma" {
			t.Errorf("batch=%v: skipped = %v", batch, report.Skipped)
		}

		alpha := report.Networks["alpha"]
		if alpha.AssetsTotal != 2 || alpha.AssetsFetched != 2 || alpha.AssetsFailed != 0 {
			t.Errorf("batch=%v: alpha counts = %d/%d/%d", batch, alpha.AssetsTotal, alpha.AssetsFetched, alpha.AssetsFailed)
		}
		symbols := []string{}
		for _, record := range alpha.Reserves {
			symbols = append(symbols, record.Symbol)
			if record.Network != "alpha" || record.SymbolSource != "ok" {
				t.Errorf("batch=%v: record identity = %v/%v", batch, record.Network, record.SymbolSource)
			}
		}
		sort.Strings(symbols)
		if len(symbols) != 2 || symbols[0] != "USDC" || symbols[1] != "WETH" {
			t.Errorf("batch=%v: symbols = %v", batch, symbols)
		}
		if report.Networks["beta"].Error == "" {
			t.Errorf("batch=%v: expected an error for beta", batch)
		}
	}
}

func TestFetchNetworkAssetFailures(t *testing.T) {
	chain := newFakeChain(t, 1)
	assets := make([]common.Address, 8)
	for idx := range assets {
		assets[idx] = common.BigToAddress(common.Big1)
		assets[idx][0] = byte(idx + 1)
	}
	chain.set(testPool, ethabi.MethodID(ethabi.SigGetReservesList), ethabi.EncodeAddressArray(assets))
	// only the first reserve answers, the rest revert
	chain.set(testPool, ethabi.EncodeCall(ethabi.SigGetReserveData, assets[0]), poolReservePayload(usdcConfiguration(), 0))

	runner := NewRunner(newTestFetcher(nil), RunnerConfig{Workers: 1}, testLogger())
	report := runner.FetchNetwork(context.Background(), "alpha", network(chain, true))

	if report.Status != types.NetworkFailed {
		t.Fatalf("status = %v, want failed", report.Status)
	}
	if report.AssetsFetched != 1 || report.AssetsFailed != 5 {
		t.Errorf("fetched/failed = %d/%d, want 1/5", report.AssetsFetched, report.AssetsFailed)
	}
	if report.Reserves[0].Symbol == "" {
		t.Error("fetched reserve is missing its fallback symbol")
	}
}

func TestFetchNetworkPartialFailure(t *testing.T) {
	chain := healthyChain(t)
	chain.set(testPool, ethabi.EncodeCall(ethabi.SigGetReserveData, testWETH), "0x")

	runner := NewRunner(newTestFetcher(nil), RunnerConfig{Workers: 1}, testLogger())
	report := runner.FetchNetwork(context.Background(), "alpha", network(chain, true))

	if report.Status != types.NetworkSucceeded {
		t.Fatalf("status = %v (%v), want succeeded", report.Status, report.Error)
	}
	if report.AssetsFetched != 1 || report.AssetsFailed != 1 {
		t.Errorf("fetched/failed = %d/%d, want 1/1", report.AssetsFetched, report.AssetsFailed)
	}
}

func TestFetchAllStopsAfterNetworkFailures(t *testing.T) {
	broken := newFakeChain(t, 1)
	networks := map[string]*types.NetworkConfig{
		"a": network(broken, true),
		"b": network(broken, true),
		"c": network(broken, true),
	}

	runner := NewRunner(newTestFetcher(nil), RunnerConfig{Workers: 1, MaxNetworkFailures: 2}, testLogger())
	report := runner.FetchAll(context.Background(), networks)

	if len(report.Failed) != 2 {
		t.Errorf("failed = %v, want 2 networks", report.Failed)
	}
	if len(report.Skipped) != 1 || report.Skipped[0] != "c" {
		t.Errorf("skipped = %v, want [c]", report.Skipped)
	}
}

func TestFetchNetworkDataProviderLayout(t *testing.T) {
	config, data := providerPayloads()
	chain := newFakeChain(t, 56)
	chain.set(testPool, ethabi.MethodID(ethabi.SigGetReservesList), ethabi.EncodeAddressArray([]common.Address{testWETH}))
	chain.set(testWETH, ethabi.MethodID(ethabi.SigSymbol), ethabi.EncodeString("WETH"))
	chain.set(testProvider, ethabi.EncodeCall(ethabi.SigGetReserveConfigurationData, testWETH), config)
	chain.set(testProvider, ethabi.EncodeCall(ethabi.SigGetReserveData, testWETH), data)

	cfg := network(chain, true)
	cfg.Layout = "data_provider"
	cfg.PoolDataProvider = testProvider.Hex()

	runner := NewRunner(newTestFetcher(nil), RunnerConfig{Workers: 1, CheckChainID: true}, testLogger())
	report := runner.FetchNetwork(context.Background(), "bnb", cfg)

	if report.Status != types.NetworkSucceeded || len(report.Reserves) != 1 {
		t.Fatalf("status = %v (%v), reserves = %d", report.Status, report.Error, len(report.Reserves))
	}
	if report.Reserves[0].Layout != "data_provider" || report.Reserves[0].Symbol != "WETH" {
		t.Errorf("record = %+v", report.Reserves[0])
	}
}

func TestFetchAllReportsPanickingNetwork(t *testing.T) {
	chain := healthyChain(t)
	networks := map[string]*types.NetworkConfig{
		"alpha": network(chain, true),
		"beta":  network(chain, false),
	}

	// a runner without fetcher panics once the network fetch starts
	runner := NewRunner(nil, RunnerConfig{Workers: 1}, testLogger())
	report := runner.FetchAll(context.Background(), networks)

	require.Equal(t, []string{"alpha"}, report.Failed)
	assert.Equal(t, []string{"beta"}, report.Skipped)
	assert.Empty(t, report.Succeeded)

	alpha := report.Networks["alpha"]
	require.NotNil(t, alpha)
	assert.Equal(t, types.NetworkFailed, alpha.Status)
	assert.Contains(t, alpha.Error, "panic")
	assert.Equal(t, "Test", alpha.Name)
}
