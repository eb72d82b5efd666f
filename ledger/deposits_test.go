package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/aadhaar-relief/aadhaar"
	"github.com/vocdoni/aadhaar-relief/event"
	"github.com/vocdoni/aadhaar-relief/storage"
	"go.vocdoni.io/dvote/db/metadb"
)

type testDeposit struct {
	from   common.Address
	amount *big.Int
}

// depositBook is a DepositVerifier backed by a fixed set of mined deposits.
type depositBook struct {
	mu       sync.Mutex
	deposits map[common.Hash]testDeposit
	calls    int
}

func (b *depositBook) add(hash common.Hash, from common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deposits[hash] = testDeposit{from: from, amount: amount}
}

func (b *depositBook) VerifyDeposit(_ context.Context, from common.Address, hash common.Hash, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	d, ok := b.deposits[hash]
	switch {
	case !ok:
		return fmt.Errorf("transaction %s not found", hash.Hex())
	case d.from != from:
		return fmt.Errorf("sent by %s", d.from.Hex())
	case d.amount.Cmp(amount) != 0:
		return fmt.Errorf("carries %s", d.amount)
	}
	return nil
}

func newDepositTestEnv(t *testing.T) (*testEnv, *depositBook) {
	t.Helper()
	book := &depositBook{deposits: make(map[common.Hash]testDeposit)}
	env := &testEnv{
		stg:      storage.New(metadb.NewTest(t)),
		vault:    NewVault(),
		verifier: aadhaar.NewMockVerifier(true),
		bus:      event.NewEventBus(nil),
	}
	t.Cleanup(env.bus.Stop)
	l, err := New(env.stg, env.verifier, env.vault, Config{
		Operator: testOperator,
		Deposits: book,
		Events:   env.bus,
		Now:      func() time.Time { return testNow },
	})
	qt.Assert(t, err, qt.IsNil)
	env.Ledger = l
	return env, book
}

func TestAddFundsWithDeposit(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	env, book := newDepositTestEnv(t)
	env.register(t, 400001, 10)
	vaultBalance := env.vault.Balance()

	hash := common.HexToHash("0x01")
	book.add(hash, testDonor, ether(5))
	_, ch := env.bus.Subscribe(event.FundsAddedEventType)

	campaign, err := env.AddFundsWithDeposit(ctx, testDonor, 1, ether(5), hash)
	c.Assert(err, qt.IsNil)
	c.Assert(campaign.TotalFunds.MathBigInt().Cmp(ether(15)), qt.Equals, 0)

	record, err := env.stg.Deposit(hash)
	c.Assert(err, qt.IsNil)
	c.Assert(record.Donor, qt.Equals, testDonor)
	c.Assert(record.CampaignID, qt.Equals, campaign.ID)
	c.Assert(record.CreditedAt.Equal(testNow), qt.IsTrue)

	select {
	case e := <-ch:
		data := e.Data.(*event.FundsAddedEvent)
		c.Assert(data.Donor, qt.Equals, testDonor)
		c.Assert(data.Amount.MathBigInt().Cmp(ether(5)), qt.Equals, 0)
	case <-time.After(time.Second):
		c.Fatal("funds added event not received")
	}

	// the deposit sits in the hot wallet, the vault is not credited
	c.Assert(env.vault.Balance().Cmp(vaultBalance), qt.Equals, 0)

	// a deposit backs a single donation, on any campaign
	env.register(t, 400001, 10)
	_, err = env.AddFundsWithDeposit(ctx, testDonor, 2, ether(5), hash)
	c.Assert(err, qt.ErrorIs, ErrDepositAlreadyUsed)
	stored, err := env.Campaign(2)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.TotalFunds.MathBigInt().Cmp(ether(10)), qt.Equals, 0)
}

func TestAddFundsWithDepositRejected(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	env, book := newDepositTestEnv(t)
	env.register(t, 400001, 10)
	book.add(common.HexToHash("0x02"), testDonor, ether(5))

	// a declared value with no matching deposit is never credited
	_, err := env.AddFundsWithDeposit(ctx, testDonor, 1, ether(1_000_000_000), common.HexToHash("0x02"))
	c.Assert(err, qt.ErrorIs, ErrInvalidDeposit)
	_, err = env.AddFundsWithDeposit(ctx, testClaimant, 1, ether(5), common.HexToHash("0x02"))
	c.Assert(err, qt.ErrorIs, ErrInvalidDeposit)
	_, err = env.AddFundsWithDeposit(ctx, testDonor, 1, ether(5), common.HexToHash("0x03"))
	c.Assert(err, qt.ErrorIs, ErrInvalidDeposit)

	_, err = env.AddFundsWithDeposit(ctx, testDonor, 1, big.NewInt(0), common.HexToHash("0x02"))
	c.Assert(err, qt.ErrorIs, ErrZeroValue)
	_, err = env.AddFundsWithDeposit(ctx, testDonor, 7, ether(5), common.HexToHash("0x02"))
	c.Assert(err, qt.ErrorIs, ErrCampaignNotFound)

	stored, err := env.Campaign(1)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.TotalFunds.MathBigInt().Cmp(ether(10)), qt.Equals, 0)
	_, err = env.stg.Deposit(common.HexToHash("0x02"))
	c.Assert(err, qt.Equals, storage.ErrNotFound)
	c.Assert(ErrorLabel(fmt.Errorf("x: %w", ErrInvalidDeposit)), qt.Equals, "invalid_deposit")
}

func TestAddFundsWithDepositDisabled(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)
	env.register(t, 400001, 10)

	_, err := env.AddFundsWithDeposit(context.Background(), testDonor, 1, ether(5), common.HexToHash("0x01"))
	c.Assert(err, qt.ErrorIs, ErrDepositsDisabled)
	env.checkConservation(t)
}
