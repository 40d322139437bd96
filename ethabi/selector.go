package ethabi

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/sha3"
)

// Function signatures used by the reserve fetchers.
const (
	SigGetReservesList             = "getReservesList()"
	SigGetReserveData              = "getReserveData(address)"
	SigGetReserveConfigurationData = "getReserveConfigurationData(address)"
	SigSymbol                      = "symbol()"
	SigSymbolUpper                 = "SYMBOL()"
	SigName                        = "name()"
	SigDecimals                    = "decimals()"
	SigTotalSupply                 = "totalSupply()"
	SigBalanceOf                   = "balanceOf(address)"
)

// knownSelectors holds precomputed selectors for the signatures we call most.
var knownSelectors = map[string]string{
	SigGetReservesList: "0xd1946dbc",
	SigSymbol:          "0x95d89b41",
	SigGetReserveData:  "0x35ea6a75",
	SigDecimals:        "0x313ce567",
	SigBalanceOf:       "0x70a08231",
	SigName:            "0x06fdde03",
	SigTotalSupply:     "0x18160ddd",
}

// MethodID returns the 0x-prefixed 4-byte selector of a function signature.
func MethodID(signature string) string {
	if id, ok := knownSelectors[signature]; ok {
		return id
	}
	sel := Keccak256Selector(signature)
	return hexutil.Encode(sel[:])
}

// Selector returns the raw 4-byte selector of a function signature.
func Selector(signature string) [4]byte {
	var sel [4]byte
	if id, ok := knownSelectors[signature]; ok {
		copy(sel[:], hexutil.MustDecode(id))
		return sel
	}
	return Keccak256Selector(signature)
}

// Keccak256Selector always hashes the signature, bypassing the lookup table.
// This is the legacy Keccak padding used by the EVM, not NIST SHA3-256.
func Keccak256Selector(signature string) [4]byte {
	var sel [4]byte
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(signature))
	copy(sel[:], hasher.Sum(nil)[:4])
	return sel
}
