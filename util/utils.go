package util

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// RandomBigInt returns a random non negative integer lower than max. It
// panics if the system randomness source fails.
func RandomBigInt(max *big.Int) *big.Int {
	num, err := rand.Int(rand.Reader, max)
	if err != nil {
		panic(err)
	}
	return num
}

// TrimHex trims the 0x prefix from a hex string.
func TrimHex(s string) string {
	if s, ok := strings.CutPrefix(s, "0x"); ok {
		return s
	}
	return strings.TrimPrefix(s, "0X")
}
