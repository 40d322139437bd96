package ethabi

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

// EncodeAddressWord left pads an address to a 64 character hex word (no prefix).
func EncodeAddressWord(addr common.Address) string {
	return hex.EncodeToString(common.LeftPadBytes(addr.Bytes(), WordSize))
}

// EncodeUintWord encodes an unsigned integer as a 64 character hex word (no prefix).
func EncodeUintWord(v *big.Int) string {
	return hex.EncodeToString(math.U256Bytes(new(big.Int).Set(v)))
}

// EncodeCall builds eth_call data for a signature taking only address arguments.
func EncodeCall(signature string, args ...common.Address) string {
	var sb strings.Builder
	sel := Selector(signature)
	sb.WriteString("0x")
	sb.WriteString(hex.EncodeToString(sel[:]))
	for _, arg := range args {
		sb.WriteString(EncodeAddressWord(arg))
	}
	return sb.String()
}

// EncodeAddressArray encodes an address[] return value.
func EncodeAddressArray(addrs []common.Address) string {
	var sb strings.Builder
	sb.WriteString("0x")
	sb.WriteString(EncodeUintWord(big.NewInt(WordSize)))
	sb.WriteString(EncodeUintWord(big.NewInt(int64(len(addrs)))))
	for _, addr := range addrs {
		sb.WriteString(EncodeAddressWord(addr))
	}
	return sb.String()
}

// EncodeString encodes a dynamic string return value.
func EncodeString(s string) string {
	padded := common.RightPadBytes([]byte(s), (len(s)+WordSize-1)/WordSize*WordSize)

	var sb strings.Builder
	sb.WriteString("0x")
	sb.WriteString(EncodeUintWord(big.NewInt(WordSize)))
	sb.WriteString(EncodeUintWord(big.NewInt(int64(len(s)))))
	sb.WriteString(hex.EncodeToString(padded))
	return sb.String()
}

// EncodeBytes32String encodes a string as a right padded bytes32 value.
func EncodeBytes32String(s string) string {
	return "0x" + hex.EncodeToString(common.RightPadBytes([]byte(s), WordSize)[:WordSize])
}

// EncodeWords concatenates hex words into a 0x prefixed payload.
func EncodeWords(words ...string) string {
	return "0x" + strings.Join(words, "")
}
