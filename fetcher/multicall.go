package fetcher

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/ethpandaops/lendingscope/cache"
	"github.com/ethpandaops/lendingscope/clients/execution/rpc"
	"github.com/ethpandaops/lendingscope/ethabi"
	"github.com/ethpandaops/lendingscope/types"
)

// AssetResult is the symbol and reserve data of one asset from an aggregated
// fetch. Record is nil when the reserve calls failed inside the aggregate, Err
// then holds the reason and the reserve has to be fetched on its own.
type AssetResult struct {
	Asset  common.Address
	Symbol SymbolResult
	Record *types.ReserveRecord
	Err    error
}

// MulticallAddress returns the Multicall3 contract configured for a network.
// The second return is false when aggregated fetching is disabled.
func MulticallAddress(network *types.NetworkConfig) (common.Address, bool) {
	switch network.Multicall {
	case "":
		return ethabi.DefaultMulticall3Address, true
	case "none":
		return common.Address{}, false
	}
	if !common.IsHexAddress(network.Multicall) {
		return common.Address{}, false
	}
	return common.HexToAddress(network.Multicall), true
}

// GetAssetsMulticall reads symbol and reserve data of all assets with a single
// Multicall3 aggregate3 eth_call. Symbols the aggregate could not resolve are
// looked up one by one. An error means the aggregate itself was unusable.
func (f *Fetcher) GetAssetsMulticall(ctx context.Context, multicall common.Address, assets []common.Address, contract common.Address, endpoints rpc.EndpointSet, layout ethabi.ReserveLayout) ([]AssetResult, error) {
	if len(assets) == 0 {
		return []AssetResult{}, nil
	}

	deployed, err := f.HasCode(ctx, multicall, endpoints)
	if err != nil {
		return nil, err
	}
	if !deployed {
		return nil, fmt.Errorf("multicall3 %v: %w", multicall.Hex(), ErrNoContract)
	}

	signatures := reserveSignatures(layout)
	stride := 1 + len(signatures)
	symbolData := hexutil.MustDecode(ethabi.MethodID(ethabi.SigSymbol))

	calls := make([]ethabi.Call3, 0, len(assets)*stride)
	for _, asset := range assets {
		calls = append(calls, ethabi.Call3{Target: asset, AllowFailure: true, CallData: symbolData})
		for _, signature := range signatures {
			calls = append(calls, ethabi.Call3{
				Target:       contract,
				AllowFailure: true,
				CallData:     hexutil.MustDecode(ethabi.EncodeCall(signature, asset)),
			})
		}
	}

	result, err := f.coord.EthCall(ctx, endpoints, multicall, ethabi.EncodeAggregate3(calls))
	if err != nil {
		return nil, fmt.Errorf("aggregate3 with %v calls failed: %w", len(calls), err)
	}
	if ethabi.IsEmptyResult(result) {
		return nil, fmt.Errorf("aggregate3: %w", ErrEmptyResponse)
	}
	decoded, err := ethabi.DecodeAggregate3Result(result, len(calls))
	if err != nil {
		return nil, fmt.Errorf("failed to decode aggregate3 result: %w", err)
	}

	results := make([]AssetResult, len(assets))
	for idx, asset := range assets {
		entry := decoded[idx*stride : (idx+1)*stride]
		record, err := f.multicallRecord(asset, layout, signatures, entry[1:])
		results[idx] = AssetResult{
			Asset:  asset,
			Symbol: f.multicallSymbol(ctx, asset, endpoints, entry[0]),
			Record: record,
			Err:    err,
		}
	}
	return results, nil
}

func (f *Fetcher) multicallSymbol(ctx context.Context, asset common.Address, endpoints rpc.EndpointSet, entry ethabi.Call3Result) SymbolResult {
	if entry.Success {
		symbol, reason, _ := decodeSymbol(entry.ReturnHex())
		if reason == SymbolOK {
			symbol = correctSymbol(asset, symbol)
			f.setCached(cache.CategorySymbol, f.cacheKey(endpoints, asset.Hex()), symbol)
			return SymbolResult{Symbol: symbol, Reason: SymbolOK}
		}
	}
	return f.GetAssetSymbol(ctx, asset, endpoints)
}

func (f *Fetcher) multicallRecord(asset common.Address, layout ethabi.ReserveLayout, signatures []string, entries []ethabi.Call3Result) (*types.ReserveRecord, error) {
	payloads := make([]string, len(entries))
	for i, entry := range entries {
		if !entry.Success {
			return nil, fmt.Errorf("%v for %v reverted in aggregate", signatures[i], asset.Hex())
		}
		if len(entry.ReturnData) == 0 {
			return nil, fmt.Errorf("%v for %v: %w", signatures[i], asset.Hex(), ErrEmptyResponse)
		}
		payloads[i] = entry.ReturnHex()
	}

	if layout == ethabi.LayoutDataProvider {
		return f.providerRecord(asset, payloads[0], payloads[1])
	}
	return f.poolRecord(asset, payloads[0])
}
