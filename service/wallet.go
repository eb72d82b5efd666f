package service

import (
	"context"
	"math/big"

	"github.com/vocdoni/aadhaar-relief/ledger"
)

// VaultWallet exposes the in-memory vault as a WalletBalance, so the funds
// monitor also runs when claims are paid from the vault.
type VaultWallet struct {
	Vault *ledger.Vault
}

// Balance returns the vault balance.
func (w VaultWallet) Balance(ctx context.Context) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return w.Vault.Balance(), nil
}
