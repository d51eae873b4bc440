package helpers

import (
	"fmt"
	"math/big"
)

var attoPerVid = big.NewInt(0).Exp(big.NewInt(10), big.NewInt(18), nil)

// VidToAtto converts whole VID into atto-VID, the ledger's base unit
func VidToAtto(vid *big.Int) *big.Int {
	return big.NewInt(0).Mul(vid, attoPerVid)
}

// StringToBigInt parses a base-10 amount, panicking on malformed input.
// Only for values already validated, such as a verified genesis document.
func StringToBigInt(s string) *big.Int {
	if s == "" {
		panic("empty string is not an amount")
	}

	b, ok := big.NewInt(0).SetString(s, 10)
	if !ok {
		panic(fmt.Sprintf("cannot parse %q as big.Int", s))
	}

	return b
}

// IsValidBigInt reports whether s is a parseable non-negative base-10 amount
func IsValidBigInt(s string) bool {
	if s == "" {
		return false
	}

	b, ok := big.NewInt(0).SetString(s, 10)

	return ok && b.Sign() != -1
}
