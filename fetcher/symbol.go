package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ethpandaops/lendingscope/cache"
	"github.com/ethpandaops/lendingscope/clients/execution/rpc"
	"github.com/ethpandaops/lendingscope/ethabi"
	"github.com/ethpandaops/lendingscope/metrics"
)

// SymbolReason tells how a symbol lookup ended.
type SymbolReason uint8

const (
	SymbolOK SymbolReason = iota
	SymbolEmpty
	SymbolDecodeError
	SymbolRPCError
)

func (r SymbolReason) String() string {
	switch r {
	case SymbolOK:
		return "ok"
	case SymbolEmpty:
		return "empty"
	case SymbolDecodeError:
		return "decode_error"
	case SymbolRPCError:
		return "rpc_error"
	}
	return fmt.Sprintf("SymbolReason(%d)", uint8(r))
}

// SymbolResult is the outcome of a best-effort symbol lookup. Symbol always
// holds a usable value: the decoded symbol or the address derived fallback.
type SymbolResult struct {
	Symbol string
	Reason SymbolReason
	Err    error
}

func (r SymbolResult) OK() bool {
	return r.Reason == SymbolOK
}

const maxSymbolLength = 30

// FallbackSymbol derives a placeholder symbol from the last 8 hex characters
// of the asset address.
func FallbackSymbol(asset common.Address) string {
	hex := asset.Hex()
	return "TOKEN_" + strings.ToUpper(hex[len(hex)-8:])
}

func fallbackResult(asset common.Address, reason SymbolReason, err error) SymbolResult {
	metrics.ObserveSymbolFallback(reason.String())
	return SymbolResult{
		Symbol: FallbackSymbol(asset),
		Reason: reason,
		Err:    err,
	}
}

// tether variants that carry a currency glyph in their symbol
var glyphSymbols = map[string]string{
	"USD₮0": "USDT",
	"USDt₮": "USDT",
	"USD₮":  "USDT",
}

// what is left of the glyph variants when their bytes are not valid UTF-8
// and the non-ASCII remainder is stripped
var strippedSymbols = map[string]string{
	"USD0": "USDT",
	"USDt": "USDT",
	"USD":  "USDT",
}

var bridgedUSDC = map[common.Address]string{
	common.HexToAddress("0x2791bca1f2de4661ed88a30c99a7a9449aa84174"): "USDC.e", // polygon
	common.HexToAddress("0xff970a61a04b1ca14834a43f5de4533ebddb5cc8"): "USDC.e", // arbitrum
	common.HexToAddress("0x7f5c764cbc14f9669b88837ca1490cca17c31607"): "USDC.e", // optimism
}

func validSymbol(symbol string) bool {
	if symbol == "" || len(symbol) > maxSymbolLength {
		return false
	}
	for _, r := range symbol {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case '.', '_', '-', ' ':
			continue
		}
		return false
	}
	return true
}

// decodeSymbol turns a symbol() return value into a normalized symbol.
func decodeSymbol(payload string) (string, SymbolReason, error) {
	raw, enc, err := ethabi.DecodeStringRaw(payload)
	if err != nil {
		return "", SymbolDecodeError, err
	}
	if enc == ethabi.StringEmpty {
		return "", SymbolEmpty, nil
	}

	trimmed := strings.TrimSpace(strings.ReplaceAll(string(raw), "\x00", ""))
	if symbol, ok := glyphSymbols[trimmed]; ok {
		return symbol, SymbolOK, nil
	}

	symbol := ethabi.SanitizeString(raw)
	if !utf8.Valid(raw) {
		if corrected, ok := strippedSymbols[symbol]; ok {
			symbol = corrected
		} else if strings.HasPrefix(symbol, "USDt(") && strings.HasSuffix(symbol, ")") {
			symbol = "USDT"
		}
	}
	if !validSymbol(symbol) {
		return "", SymbolDecodeError, fmt.Errorf("%w: unusable symbol %q", ethabi.ErrMalformed, symbol)
	}
	return symbol, SymbolOK, nil
}

func correctSymbol(asset common.Address, symbol string) string {
	if symbol != "USDC" {
		return symbol
	}
	if corrected, ok := bridgedUSDC[asset]; ok {
		return corrected
	}
	return symbol
}

// GetAssetSymbol looks up the ERC20 symbol of an asset. It never fails: on
// any error the result carries the fallback symbol and the reason.
func (f *Fetcher) GetAssetSymbol(ctx context.Context, asset common.Address, endpoints rpc.EndpointSet) SymbolResult {
	cacheKey := f.cacheKey(endpoints, asset.Hex())
	var cached string
	if f.getCached(cache.CategorySymbol, cacheKey, &cached) && cached != "" {
		return SymbolResult{Symbol: cached, Reason: SymbolOK}
	}

	result, err := f.coord.EthCall(ctx, endpoints, asset, ethabi.MethodID(ethabi.SigSymbol))
	if err != nil {
		f.logger.Warnf("failed to get symbol for %v: %v", asset.Hex(), err)
		return fallbackResult(asset, SymbolRPCError, err)
	}

	symbol, reason, err := decodeSymbol(result)
	if reason != SymbolOK {
		symbol, reason, err = f.retryUpperSymbol(ctx, asset, endpoints, reason, err)
	}
	if reason != SymbolOK {
		f.logger.Warnf("symbol decoding failed for %v (%v), using fallback", asset.Hex(), reason)
		return fallbackResult(asset, reason, err)
	}

	symbol = correctSymbol(asset, symbol)
	f.setCached(cache.CategorySymbol, cacheKey, symbol)
	return SymbolResult{Symbol: symbol, Reason: SymbolOK}
}

// retryUpperSymbol tries SYMBOL(), used by a few older tokens, after symbol()
// gave nothing usable. The first failure is kept if SYMBOL() fails as well.
func (f *Fetcher) retryUpperSymbol(ctx context.Context, asset common.Address, endpoints rpc.EndpointSet, reason SymbolReason, cause error) (string, SymbolReason, error) {
	result, err := f.coord.EthCall(ctx, endpoints, asset, ethabi.MethodID(ethabi.SigSymbolUpper))
	if err != nil {
		return "", reason, cause
	}
	symbol, upperReason, upperErr := decodeSymbol(result)
	if upperReason != SymbolOK {
		return "", reason, cause
	}
	return symbol, upperReason, upperErr
}

// GetAssetSymbols looks up the symbols of many assets with one batch request.
// Results are in the order of the assets. Entries the batch could not resolve
// are looked up one by one.
func (f *Fetcher) GetAssetSymbols(ctx context.Context, assets []common.Address, endpoints rpc.EndpointSet) []SymbolResult {
	results := make([]SymbolResult, len(assets))
	pending := make([]int, 0, len(assets))
	for idx, asset := range assets {
		var cached string
		if f.getCached(cache.CategorySymbol, f.cacheKey(endpoints, asset.Hex()), &cached) && cached != "" {
			results[idx] = SymbolResult{Symbol: cached, Reason: SymbolOK}
			continue
		}
		pending = append(pending, idx)
	}
	if len(pending) == 0 {
		return results
	}

	requests := make([]rpc.BatchRequest, len(pending))
	for i, idx := range pending {
		requests[i] = rpc.BatchRequest{
			Method: "eth_call",
			Params: rpc.EthCallParams(assets[idx], ethabi.MethodID(ethabi.SigSymbol)),
		}
	}

	batch, err := f.coord.BatchCallWithRetry(ctx, endpoints, requests)
	if err != nil {
		f.logger.Warnf("batch symbol lookup failed, falling back to single calls: %v", err)
		batch = nil
	}

	for i, idx := range pending {
		asset := assets[idx]
		if batch == nil || batch[i].Err != nil {
			results[idx] = f.GetAssetSymbol(ctx, asset, endpoints)
			continue
		}

		var payload string
		if err := json.Unmarshal(batch[i].Result, &payload); err != nil {
			results[idx] = f.GetAssetSymbol(ctx, asset, endpoints)
			continue
		}
		symbol, reason, err := decodeSymbol(payload)
		if reason != SymbolOK {
			symbol, reason, err = f.retryUpperSymbol(ctx, asset, endpoints, reason, err)
		}
		if reason != SymbolOK {
			results[idx] = fallbackResult(asset, reason, err)
			continue
		}

		symbol = correctSymbol(asset, symbol)
		f.setCached(cache.CategorySymbol, f.cacheKey(endpoints, asset.Hex()), symbol)
		results[idx] = SymbolResult{Symbol: symbol, Reason: SymbolOK}
	}
	return results
}
