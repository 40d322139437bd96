package ethabi

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
)

// SigAggregate3 is Multicall3's aggregate3((address target, bool allowFailure, bytes callData)[]).
const SigAggregate3 = "aggregate3((address,bool,bytes)[])"

// DefaultMulticall3Address is the deterministic Multicall3 deployment shared by most EVM chains.
var DefaultMulticall3Address = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

// Call3 is one call inside an aggregate3 request.
type Call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// Call3Result is the (bool success, bytes returnData) tuple aggregate3 returns per call.
type Call3Result struct {
	Success    bool
	ReturnData []byte
}

// ReturnHex returns the call's return data as a 0x prefixed hex string, the
// same shape eth_call answers with.
func (r Call3Result) ReturnHex() string {
	return hexutil.Encode(r.ReturnData)
}

func uintBytes(v uint64) []byte {
	return math.U256Bytes(new(big.Int).SetUint64(v))
}

func boolBytes(b bool) []byte {
	if b {
		return uintBytes(1)
	}
	return uintBytes(0)
}

func paddedLen(size int) int {
	return (size + WordSize - 1) / WordSize * WordSize
}

// EncodeAggregate3 builds the eth_call data of an aggregate3 request.
func EncodeAggregate3(calls []Call3) string {
	sel := Selector(SigAggregate3)

	heads := make([]byte, 0, len(calls)*WordSize)
	tails := []byte{}
	for _, call := range calls {
		heads = append(heads, uintBytes(uint64(len(calls)*WordSize+len(tails)))...)

		tails = append(tails, common.LeftPadBytes(call.Target.Bytes(), WordSize)...)
		tails = append(tails, boolBytes(call.AllowFailure)...)
		tails = append(tails, uintBytes(3*WordSize)...)
		tails = append(tails, uintBytes(uint64(len(call.CallData)))...)
		tails = append(tails, common.RightPadBytes(call.CallData, paddedLen(len(call.CallData)))...)
	}

	data := make([]byte, 0, 4+2*WordSize+len(heads)+len(tails))
	data = append(data, sel[:]...)
	data = append(data, uintBytes(WordSize)...)
	data = append(data, uintBytes(uint64(len(calls)))...)
	data = append(data, heads...)
	data = append(data, tails...)
	return hexutil.Encode(data)
}

// tupleArray locates the element heads of a dynamic tuple array whose offset
// is stored in the first word of data. It returns the base that element
// offsets are relative to and the element count.
func tupleArray(data []byte) (uint64, uint64, error) {
	if len(data) < 2*WordSize {
		return 0, 0, fmt.Errorf("%w: tuple array too short (%d bytes)", ErrMalformed, len(data))
	}
	offset, ok := wordUint64(wordAt(data, 0))
	if !ok {
		return 0, 0, fmt.Errorf("%w: tuple array offset out of range", ErrMalformed)
	}
	lengthWord, ok := sliceAt(data, offset, WordSize)
	if !ok {
		return 0, 0, fmt.Errorf("%w: tuple array offset %d beyond payload", ErrMalformed, offset)
	}
	count, ok := wordUint64(lengthWord)
	if !ok || count > uint64(len(data))/WordSize {
		return 0, 0, fmt.Errorf("%w: tuple array length out of range", ErrMalformed)
	}
	base := offset + WordSize
	if _, ok := sliceAt(data, base, count*WordSize); !ok {
		return 0, 0, fmt.Errorf("%w: tuple array heads truncated", ErrMalformed)
	}
	return base, count, nil
}

// tupleAt returns the absolute position of element idx.
func tupleAt(data []byte, base uint64, idx uint64) (uint64, error) {
	head, _ := sliceAt(data, base+idx*WordSize, WordSize)
	rel, ok := wordUint64(head)
	if !ok {
		return 0, fmt.Errorf("%w: element %d offset out of range", ErrMalformed, idx)
	}
	return base + rel, nil
}

// bytesAt reads a dynamic bytes value whose offset, relative to tuple, is
// stored in the word at tuple+field*WordSize.
func bytesAt(data []byte, tuple uint64, field uint64) ([]byte, bool) {
	offsetWord, ok := sliceAt(data, tuple+field*WordSize, WordSize)
	if !ok {
		return nil, false
	}
	rel, ok := wordUint64(offsetWord)
	if !ok {
		return nil, false
	}
	lengthWord, ok := sliceAt(data, tuple+rel, WordSize)
	if !ok {
		return nil, false
	}
	size, ok := wordUint64(lengthWord)
	if !ok {
		return nil, false
	}
	return sliceAt(data, tuple+rel+WordSize, size)
}

// DecodeAggregate3Result decodes the (bool,bytes)[] returned by aggregate3.
// The number of results must match the number of calls sent.
func DecodeAggregate3Result(payload string, expected int) ([]Call3Result, error) {
	data, err := DecodeHex(payload)
	if err != nil {
		return nil, err
	}
	base, count, err := tupleArray(data)
	if err != nil {
		return nil, err
	}
	if count != uint64(expected) {
		return nil, fmt.Errorf("%w: aggregate3 returned %d results for %d calls", ErrMalformed, count, expected)
	}

	results := make([]Call3Result, count)
	for i := uint64(0); i < count; i++ {
		tuple, err := tupleAt(data, base, i)
		if err != nil {
			return nil, err
		}
		successWord, ok := sliceAt(data, tuple, WordSize)
		if !ok {
			return nil, fmt.Errorf("%w: result %d beyond payload", ErrMalformed, i)
		}
		returnData, ok := bytesAt(data, tuple, 1)
		if !ok {
			return nil, fmt.Errorf("%w: result %d return data truncated", ErrMalformed, i)
		}
		flag, _ := wordUint64(successWord)
		results[i] = Call3Result{
			Success:    flag == 1,
			ReturnData: returnData,
		}
	}
	return results, nil
}

// DecodeAggregate3Call decodes aggregate3 call data back into its calls.
func DecodeAggregate3Call(calldata string) ([]Call3, error) {
	data, err := DecodeHex(calldata)
	if err != nil {
		return nil, err
	}
	sel := Selector(SigAggregate3)
	if len(data) < 4 || [4]byte(data[:4]) != sel {
		return nil, fmt.Errorf("%w: not an aggregate3 call", ErrMalformed)
	}
	data = data[4:]

	base, count, err := tupleArray(data)
	if err != nil {
		return nil, err
	}
	calls := make([]Call3, count)
	for i := uint64(0); i < count; i++ {
		tuple, err := tupleAt(data, base, i)
		if err != nil {
			return nil, err
		}
		head, ok := sliceAt(data, tuple, 2*WordSize)
		if !ok {
			return nil, fmt.Errorf("%w: call %d beyond payload", ErrMalformed, i)
		}
		callData, ok := bytesAt(data, tuple, 2)
		if !ok {
			return nil, fmt.Errorf("%w: call %d data truncated", ErrMalformed, i)
		}
		flag, _ := wordUint64(head[WordSize:])
		calls[i] = Call3{
			Target:       common.BytesToAddress(head[12:WordSize]),
			AllowFailure: flag == 1,
			CallData:     callData,
		}
	}
	return calls, nil
}

// EncodeAggregate3Result encodes aggregate3 return data.
func EncodeAggregate3Result(results []Call3Result) string {
	heads := make([]byte, 0, len(results)*WordSize)
	tails := []byte{}
	for _, result := range results {
		heads = append(heads, uintBytes(uint64(len(results)*WordSize+len(tails)))...)

		tails = append(tails, boolBytes(result.Success)...)
		tails = append(tails, uintBytes(2*WordSize)...)
		tails = append(tails, uintBytes(uint64(len(result.ReturnData)))...)
		tails = append(tails, common.RightPadBytes(result.ReturnData, paddedLen(len(result.ReturnData)))...)
	}

	data := make([]byte, 0, 2*WordSize+len(heads)+len(tails))
	data = append(data, uintBytes(WordSize)...)
	data = append(data, uintBytes(uint64(len(results)))...)
	data = append(data, heads...)
	data = append(data, tails...)
	return hexutil.Encode(data)
}
