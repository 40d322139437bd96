package ethabi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// WordSize is the size of a single ABI word in bytes.
const WordSize = 32

// ErrMalformed is returned when a payload does not match the expected ABI shape.
var ErrMalformed = errors.New("malformed abi payload")

// IsEmptyResult reports whether an eth_call result is the bare "0x" returned
// by reverted or unimplemented functions.
func IsEmptyResult(payload string) bool {
	return trimHexPrefix(strings.TrimSpace(payload)) == ""
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// DecodeHex converts a hex payload with or without 0x prefix into bytes.
func DecodeHex(payload string) ([]byte, error) {
	data, err := hexutil.Decode("0x" + trimHexPrefix(strings.TrimSpace(payload)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return data, nil
}

func wordCount(data []byte) int {
	return len(data) / WordSize
}

func wordAt(data []byte, idx int) []byte {
	return data[idx*WordSize : (idx+1)*WordSize]
}

// wordUint64 reads a word as an unsigned integer, failing if it does not fit.
func wordUint64(w []byte) (uint64, bool) {
	v := new(uint256.Int).SetBytes(w)
	if !v.IsUint64() {
		return 0, false
	}
	return v.Uint64(), true
}

// sliceAt returns data[offset:offset+size] if it lies inside the payload.
func sliceAt(data []byte, offset, size uint64) ([]byte, bool) {
	end := offset + size
	if end < offset || end > uint64(len(data)) {
		return nil, false
	}
	return data[offset:end], true
}
