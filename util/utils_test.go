package util

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestTrimHex(t *testing.T) {
	c := qt.New(t)
	c.Assert(TrimHex("0xabcd"), qt.Equals, "abcd")
	c.Assert(TrimHex("0Xabcd"), qt.Equals, "abcd")
	c.Assert(TrimHex("abcd"), qt.Equals, "abcd")
	c.Assert(TrimHex("0"), qt.Equals, "0")
}

func TestRandomBigInt(t *testing.T) {
	c := qt.New(t)
	for range 100 {
		b := RandomBigInt(big.NewInt(5))
		c.Assert(b.Sign() >= 0 && b.Cmp(big.NewInt(5)) < 0, qt.IsTrue)
	}
}
