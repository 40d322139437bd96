package fetcher

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/lendingscope/ethabi"
	"github.com/ethpandaops/lendingscope/types"
)

func TestMulticallAddress(t *testing.T) {
	zkMulticall := common.HexToAddress("0xF9cda624FBC7e059355ce98a31693d299FACd963")
	tests := []struct {
		name      string
		multicall string
		want      common.Address
		enabled   bool
	}{
		{"default", "", ethabi.DefaultMulticall3Address, true},
		{"disabled", "none", common.Address{}, false},
		{"override", zkMulticall.Hex(), zkMulticall, true},
		{"invalid", "multicall3", common.Address{}, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, enabled := MulticallAddress(&types.NetworkConfig{Multicall: test.multicall})
			assert.Equal(t, test.enabled, enabled)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestGetAssetsMulticallPool(t *testing.T) {
	chain := healthyChain(t)
	chain.deployMulticall(ethabi.DefaultMulticall3Address)
	f := newTestFetcher(nil).WithNetwork("ethereum")

	assets, err := f.GetAssetsMulticall(context.Background(), ethabi.DefaultMulticall3Address, []common.Address{testUSDC, testWETH}, testPool, chain.endpoints(), ethabi.LayoutPool)
	require.NoError(t, err)
	require.Len(t, assets, 2)

	assert.Equal(t, "USDC", assets[0].Symbol.Symbol)
	assert.Equal(t, "WETH", assets[1].Symbol.Symbol)
	for _, asset := range assets {
		require.NoError(t, asset.Err)
		require.NotNil(t, asset.Record)
		assert.Equal(t, asset.Asset.Hex(), asset.Record.AssetAddress)
		assert.Equal(t, "ethereum", asset.Record.Network)
		assert.InDelta(t, 0.045, asset.Record.LiquidationBonus, 1e-9)
	}

	assert.Equal(t, 1, chain.methodCount("eth_call"), "everything must come from the aggregate")
	assert.Equal(t, 0, chain.callCount(testUSDC, ethabi.MethodID(ethabi.SigSymbol)))
}

func TestGetAssetsMulticallFailedEntries(t *testing.T) {
	chain := healthyChain(t)
	chain.deployMulticall(ethabi.DefaultMulticall3Address)
	// the symbol of MKR only answers on SYMBOL(), its reserve data reverts
	chain.set(testMKR, ethabi.MethodID(ethabi.SigSymbolUpper), ethabi.EncodeBytes32String("MKR"))
	f := newTestFetcher(nil)

	assets, err := f.GetAssetsMulticall(context.Background(), ethabi.DefaultMulticall3Address, []common.Address{testUSDC, testMKR}, testPool, chain.endpoints(), ethabi.LayoutPool)
	require.NoError(t, err)
	require.Len(t, assets, 2)

	assert.NotNil(t, assets[0].Record)
	assert.Nil(t, assets[1].Record)
	assert.Error(t, assets[1].Err)
	assert.Equal(t, SymbolResult{Symbol: "MKR", Reason: SymbolOK}, assets[1].Symbol)
	assert.Equal(t, 1, chain.callCount(testMKR, ethabi.MethodID(ethabi.SigSymbol)), "failed symbol is looked up again on its own")
}

func TestGetAssetsMulticallNotDeployed(t *testing.T) {
	chain := healthyChain(t)
	f := newTestFetcher(newTestCache(t)).WithNetwork("ethereum")

	for i := 0; i < 2; i++ {
		_, err := f.GetAssetsMulticall(context.Background(), ethabi.DefaultMulticall3Address, []common.Address{testUSDC}, testPool, chain.endpoints(), ethabi.LayoutPool)
		assert.ErrorIs(t, err, ErrNoContract)
	}
	assert.Equal(t, 1, chain.methodCount("eth_getCode"), "code lookups are cached")
	assert.Equal(t, 0, chain.methodCount("eth_call"))
}

func TestGetAssetsMulticallDataProvider(t *testing.T) {
	config, data := providerPayloads()
	chain := newFakeChain(t, 56)
	chain.deployMulticall(ethabi.DefaultMulticall3Address)
	chain.set(testWETH, ethabi.MethodID(ethabi.SigSymbol), ethabi.EncodeString("WETH"))
	chain.set(testProvider, ethabi.EncodeCall(ethabi.SigGetReserveConfigurationData, testWETH), config)
	chain.set(testProvider, ethabi.EncodeCall(ethabi.SigGetReserveData, testWETH), data)

	assets, err := newTestFetcher(nil).GetAssetsMulticall(context.Background(), ethabi.DefaultMulticall3Address, []common.Address{testWETH}, testProvider, chain.endpoints(), ethabi.LayoutDataProvider)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	require.NotNil(t, assets[0].Record)
	assert.Equal(t, "data_provider", assets[0].Record.Layout)
	assert.Equal(t, "WETH", assets[0].Symbol.Symbol)
}

func TestFetchNetworkMulticall(t *testing.T) {
	withMulticall := healthyChain(t)
	withMulticall.deployMulticall(ethabi.DefaultMulticall3Address)
	without := healthyChain(t)

	runner := NewRunner(newTestFetcher(nil), RunnerConfig{Workers: 1, Multicall: true}, testLogger())

	report := runner.FetchNetwork(context.Background(), "alpha", network(withMulticall, true))
	require.Equal(t, types.NetworkSucceeded, report.Status, report.Error)
	assert.Equal(t, 2, report.AssetsFetched)
	assert.Equal(t, 2, withMulticall.methodCount("eth_call"), "reserve list plus one aggregate")

	report = runner.FetchNetwork(context.Background(), "beta", network(without, true))
	require.Equal(t, types.NetworkSucceeded, report.Status, report.Error)
	assert.Equal(t, 2, report.AssetsFetched)
	assert.Equal(t, 1, without.callCount(testUSDC, ethabi.MethodID(ethabi.SigSymbol)), "falls back to single calls")

	disabled := network(withMulticall, true)
	disabled.Multicall = "none"
	report = runner.FetchNetwork(context.Background(), "gamma", disabled)
	require.Equal(t, types.NetworkSucceeded, report.Status, report.Error)
	assert.Equal(t, 1, withMulticall.callCount(testUSDC, ethabi.MethodID(ethabi.SigSymbol)))
}

func TestFetchNetworkMulticallRefetchesFailedReserves(t *testing.T) {
	chain := healthyChain(t)
	chain.deployMulticall(ethabi.DefaultMulticall3Address)
	chain.set(testPool, ethabi.EncodeCall(ethabi.SigGetReserveData, testWETH), "0x")

	runner := NewRunner(newTestFetcher(nil), RunnerConfig{Workers: 1, Multicall: true}, testLogger())
	report := runner.FetchNetwork(context.Background(), "alpha", network(chain, true))

	require.Equal(t, types.NetworkSucceeded, report.Status, report.Error)
	assert.Equal(t, 1, report.AssetsFetched)
	assert.Equal(t, 1, report.AssetsFailed)
	assert.Equal(t, 1, chain.callCount(testPool, ethabi.EncodeCall(ethabi.SigGetReserveData, testWETH)))
}

func TestFetchNetworkMulticallFallbackLogged(t *testing.T) {
	chain := healthyChain(t)
	logger, hook := test.NewNullLogger()

	runner := NewRunner(newTestFetcher(nil), RunnerConfig{Workers: 1, Multicall: true}, logger)
	report := runner.FetchNetwork(context.Background(), "alpha", network(chain, true))
	require.Equal(t, types.NetworkSucceeded, report.Status, report.Error)

	var fallback *logrus.Entry
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			fallback = entry
		}
	}
	require.NotNil(t, fallback, "missing fallback warning")
	assert.Contains(t, fallback.Message, "falling back to single calls")
	assert.Equal(t, "alpha", fallback.Data["network"])
}
