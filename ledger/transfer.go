package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Transferer pays native currency to an address. It must report the outcome
// synchronously and must not call back into the Ledger.
type Transferer interface {
	Transfer(ctx context.Context, to common.Address, amount *big.Int) (receipt string, err error)
}

// Depositor is implemented by transferers that hold the pooled funds
// themselves. The ledger credits them with the value attached to every
// registration and donation.
type Depositor interface {
	Deposit(from common.Address, amount *big.Int)
}

// DepositVerifier checks a donation was paid on chain: the deposit
// transaction must be mined successfully, sent by the donor to the wallet
// paying the claims and carry exactly the donated amount.
type DepositVerifier interface {
	VerifyDeposit(ctx context.Context, from common.Address, txHash common.Hash, amount *big.Int) error
}

// Vault is an in-memory Transferer holding the pooled funds. It is used by
// tests and development deployments.
type Vault struct {
	mu       sync.Mutex
	balance  *big.Int
	paid     map[common.Address]*big.Int
	rejected map[common.Address]bool
}

// NewVault returns an empty vault.
func NewVault() *Vault {
	return &Vault{
		balance:  new(big.Int),
		paid:     make(map[common.Address]*big.Int),
		rejected: make(map[common.Address]bool),
	}
}

// Deposit implements Depositor.
func (v *Vault) Deposit(_ common.Address, amount *big.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balance.Add(v.balance, amount)
}

// Reject makes every transfer to the address fail, like a recipient that
// refuses payments.
func (v *Vault) Reject(to common.Address) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rejected[to] = true
}

// Transfer implements Transferer.
func (v *Vault) Transfer(ctx context.Context, to common.Address, amount *big.Int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if amount == nil || amount.Sign() <= 0 {
		return "", fmt.Errorf("invalid transfer amount")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.rejected[to] {
		return "", fmt.Errorf("recipient %s rejected the transfer", to.Hex())
	}
	if v.balance.Cmp(amount) < 0 {
		return "", fmt.Errorf("vault balance %s is lower than %s", v.balance, amount)
	}
	v.balance.Sub(v.balance, amount)
	if _, ok := v.paid[to]; !ok {
		v.paid[to] = new(big.Int)
	}
	v.paid[to].Add(v.paid[to], amount)
	return uuid.NewString(), nil
}

// Balance returns the funds held by the vault.
func (v *Vault) Balance() *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return new(big.Int).Set(v.balance)
}

// Paid returns the total amount transferred to the address.
func (v *Vault) Paid(to common.Address) *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if p, ok := v.paid[to]; ok {
		return new(big.Int).Set(p)
	}
	return new(big.Int)
}
