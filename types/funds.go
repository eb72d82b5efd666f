package types

import (
	"fmt"
	"math/big"
	"strings"
)

// Wei per ether, the unit every campaign balance is stored in.
var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// ParseEther converts a decimal ether amount ("0.001") into wei. Amounts
// with more than 18 decimals or negative amounts are rejected.
func ParseEther(s string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, fmt.Errorf("invalid ether amount %q", s)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("negative ether amount %q", s)
	}
	r.Mul(r, new(big.Rat).SetInt(weiPerEther))
	if !r.IsInt() {
		return nil, fmt.Errorf("ether amount %q has more than 18 decimals", s)
	}
	return new(big.Int).Set(r.Num()), nil
}

// FormatEther renders a wei amount as ether with 18 decimals and no trailing
// zeros.
func FormatEther(wei *big.Int) string {
	f := new(big.Rat).SetFrac(wei, weiPerEther)
	s := f.FloatString(18)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// FormatFunds renders a wei amount the way balances are shown to users,
// rounded to four decimals, e.g. "0.0010 ETH".
func FormatFunds(wei *big.Int) string {
	return new(big.Rat).SetFrac(wei, weiPerEther).FloatString(4) + " ETH"
}

// EtherFloat returns the wei amount in ether as a float, for metrics.
func EtherFloat(wei *big.Int) float64 {
	eth, _ := new(big.Rat).SetFrac(wei, weiPerEther).Float64()
	return eth
}
