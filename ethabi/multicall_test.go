package ethabi

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate3Selector(t *testing.T) {
	assert.Equal(t, "0x82ad56cb", MethodID(SigAggregate3))
}

func TestEncodeAggregate3SingleCall(t *testing.T) {
	calldata := EncodeAggregate3([]Call3{{
		Target:       DefaultMulticall3Address,
		AllowFailure: true,
		CallData:     hexutil.MustDecode("0x42cbb15c"),
	}})

	want := "0x82ad56cb" +
		"0000000000000000000000000000000000000000000000000000000000000020" +
		"0000000000000000000000000000000000000000000000000000000000000001" +
		"0000000000000000000000000000000000000000000000000000000000000020" +
		"000000000000000000000000ca11bde05977b3631167028862be2a173976ca11" +
		"0000000000000000000000000000000000000000000000000000000000000001" +
		"0000000000000000000000000000000000000000000000000000000000000060" +
		"0000000000000000000000000000000000000000000000000000000000000004" +
		"42cbb15c00000000000000000000000000000000000000000000000000000000"
	assert.Equal(t, want, calldata)
}

func TestAggregate3CallRoundTrip(t *testing.T) {
	usdc := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	pool := common.HexToAddress("0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2")
	calls := []Call3{
		{Target: usdc, AllowFailure: true, CallData: hexutil.MustDecode(MethodID(SigSymbol))},
		{Target: pool, AllowFailure: true, CallData: hexutil.MustDecode(EncodeCall(SigGetReserveData, usdc))},
		{Target: pool, AllowFailure: false, CallData: nil},
	}

	got, err := DecodeAggregate3Call(EncodeAggregate3(calls))
	require.NoError(t, err)
	require.Len(t, got, len(calls))
	for i, call := range calls {
		assert.Equal(t, call.Target, got[i].Target, "call %d target", i)
		assert.Equal(t, call.AllowFailure, got[i].AllowFailure, "call %d allowFailure", i)
		assert.Equal(t, hexutil.Encode(call.CallData), hexutil.Encode(got[i].CallData), "call %d data", i)
	}

	_, err = DecodeAggregate3Call(EncodeCall(SigGetReserveData, usdc))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeAggregate3Result(t *testing.T) {
	symbol := hexutil.MustDecode(EncodeString("USDC"))
	reserve := hexutil.MustDecode(EncodeWords(strings.Repeat("11", 32), strings.Repeat("22", 32)))
	results := []Call3Result{
		{Success: true, ReturnData: symbol},
		{Success: false, ReturnData: []byte{}},
		{Success: true, ReturnData: reserve},
	}

	got, err := DecodeAggregate3Result(EncodeAggregate3Result(results), len(results))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.True(t, got[0].Success)
	assert.Equal(t, EncodeString("USDC"), got[0].ReturnHex())
	assert.False(t, got[1].Success)
	assert.Equal(t, "0x", got[1].ReturnHex())
	assert.True(t, got[2].Success)
	assert.Len(t, got[2].ReturnData, 64)

	decoded, enc, err := DecodeString(got[0].ReturnHex())
	require.NoError(t, err)
	assert.Equal(t, StringDynamic, enc)
	assert.Equal(t, "USDC", decoded)
}

func TestDecodeAggregate3ResultMalformed(t *testing.T) {
	full := EncodeAggregate3Result([]Call3Result{
		{Success: true, ReturnData: hexutil.MustDecode(EncodeString("WETH"))},
		{Success: true, ReturnData: hexutil.MustDecode(EncodeString("WBTC"))},
	})

	tests := []struct {
		name     string
		payload  string
		expected int
	}{
		{"empty", "0x", 2},
		{"count mismatch", full, 3},
		{"truncated", full[:len(full)-128], 2},
		{"bad hex", "0xzz", 1},
		{"offset beyond payload", EncodeWords(EncodeUintWord(big.NewInt(4096)), EncodeUintWord(big.NewInt(1))), 1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := DecodeAggregate3Result(test.payload, test.expected)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}
