package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/aadhaar-relief/event"
	"github.com/vocdoni/aadhaar-relief/log"
	"github.com/vocdoni/aadhaar-relief/storage"
	"github.com/vocdoni/aadhaar-relief/types"
)

// RegisterCampaign creates a new active campaign funded with initialFunds.
// The value attached by the caller must match the declared initial funds.
// Checks are done in order: operator, pincode, attached value.
func (l *Ledger) RegisterCampaign(caller common.Address, name, description string,
	requiredPincode int64, initialFunds, attachedValue *big.Int,
) (c *types.Campaign, err error) {
	defer func() { l.observe("register", err) }()
	if caller != l.operator {
		return nil, ErrNotOwner
	}
	if requiredPincode <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPincode, requiredPincode)
	}
	initial, attached := valueOrZero(initialFunds), valueOrZero(attachedValue)
	if initial.Sign() < 0 || initial.Cmp(attached) != 0 {
		return nil, fmt.Errorf("%w: declared %s, attached %s", ErrValueMismatch, initial, attached)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	id, err := l.stg.NextCampaignID()
	if err != nil {
		return nil, fmt.Errorf("could not get next campaign id: %w", err)
	}
	if id == math.MaxUint64 {
		return nil, ErrCampaignIDOverflow
	}
	c = &types.Campaign{
		ID:              id,
		Name:            name,
		Description:     description,
		RequiredPincode: uint64(requiredPincode),
		TotalFunds:      types.NewBigInt(initial),
		ClaimedFunds:    types.NewInt(0),
		Active:          true,
		CreatedAt:       l.now(),
	}
	batch := l.stg.NewBatch()
	if err := batchWrite(batch,
		func() error { return batch.SetCampaign(c) },
		func() error { return batch.IndexPincode(c.RequiredPincode, id) },
		func() error { return batch.SetNextCampaignID(id + 1) },
	); err != nil {
		return nil, fmt.Errorf("could not register campaign: %w", err)
	}
	l.deposit(caller, initial)

	log.Infow("campaign registered",
		"id", id.String(),
		"name", name,
		"pincode", c.RequiredPincode,
		"funds", types.FormatFunds(initial))
	if l.metrics != nil {
		l.metrics.campaigns.Inc()
	}
	l.updatePoolMetrics(c)
	l.publish(event.CampaignRegisteredEventType, &event.CampaignRegisteredEvent{
		CampaignID:      id,
		Name:            name,
		RequiredPincode: c.RequiredPincode,
		InitialFunds:    types.NewBigInt(initial),
	})
	return c.Copy(), nil
}

// AddFunds adds the attached value to the campaign pool. Donations are
// accepted by active and inactive campaigns.
func (l *Ledger) AddFunds(caller common.Address, id types.CampaignID, attachedValue *big.Int) (c *types.Campaign, err error) {
	defer func() { l.observe("donate", err) }()
	l.mu.Lock()
	defer l.mu.Unlock()
	c, err = l.campaign(id)
	if err != nil {
		return nil, err
	}
	if attachedValue == nil || attachedValue.Sign() <= 0 {
		return nil, ErrZeroValue
	}
	if err := l.creditFunds(c, caller, attachedValue); err != nil {
		return nil, err
	}
	l.deposit(caller, attachedValue)
	return c.Copy(), nil
}

// AddFundsWithDeposit adds a donation paid on chain to the campaign pool.
// The deposit transaction is checked with the configured DepositVerifier
// and can back a single donation. The funds stay in the wallet that
// received the deposit.
func (l *Ledger) AddFundsWithDeposit(ctx context.Context, donor common.Address, id types.CampaignID,
	amount *big.Int, txHash common.Hash,
) (c *types.Campaign, err error) {
	defer func() { l.observe("donate", err) }()
	if l.deposits == nil {
		return nil, ErrDepositsDisabled
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroValue
	}
	l.mu.RLock()
	err = l.checkDeposit(id, txHash)
	l.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	// the chain is queried without holding the lock
	if err := l.deposits.VerifyDeposit(ctx, donor, txHash, amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDeposit, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkDeposit(id, txHash); err != nil {
		return nil, err
	}
	c, err = l.campaign(id)
	if err != nil {
		return nil, err
	}
	record := &types.DepositRecord{
		TxHash:     txHash,
		CampaignID: id,
		Donor:      donor,
		Amount:     types.NewBigInt(amount),
		CreditedAt: l.now(),
	}
	if err := l.creditFunds(c, donor, amount, func(b *storage.Batch) error {
		return b.SetDeposit(record)
	}); err != nil {
		return nil, err
	}
	log.Debugw("deposit credited", "id", id.String(), "tx", txHash.Hex())
	return c.Copy(), nil
}

// checkDeposit fails if the campaign does not exist or the deposit has
// already been credited. The caller must hold the lock.
func (l *Ledger) checkDeposit(id types.CampaignID, txHash common.Hash) error {
	if _, err := l.campaign(id); err != nil {
		return err
	}
	_, err := l.stg.Deposit(txHash)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrDepositAlreadyUsed, txHash.Hex())
	case !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("could not read deposit: %w", err)
	}
	return nil
}

// creditFunds adds amount to the campaign pool and stores it together with
// the extra writes in a single batch. The caller must hold the lock.
func (l *Ledger) creditFunds(c *types.Campaign, donor common.Address, amount *big.Int,
	extra ...func(*storage.Batch) error,
) error {
	c.TotalFunds = types.NewBigInt(new(big.Int).Add(c.TotalFunds.MathBigInt(), amount))
	batch := l.stg.NewBatch()
	writes := []func() error{func() error { return batch.SetCampaign(c) }}
	for _, w := range extra {
		writes = append(writes, func() error { return w(batch) })
	}
	if err := batchWrite(batch, writes...); err != nil {
		return fmt.Errorf("could not add funds: %w", err)
	}

	log.Infow("funds added",
		"id", c.ID.String(),
		"donor", donor.Hex(),
		"amount", types.FormatFunds(amount),
		"total", types.FormatFunds(c.TotalFunds.MathBigInt()))
	l.updatePoolMetrics(c)
	l.publish(event.FundsAddedEventType, &event.FundsAddedEvent{
		CampaignID: c.ID,
		Donor:      donor,
		Amount:     types.NewBigInt(amount),
		TotalFunds: c.TotalFunds.Clone(),
	})
	return nil
}

// SetCampaignStatus opens or closes the campaign to new claims. Past claims
// and the pooled funds are not affected.
func (l *Ledger) SetCampaignStatus(caller common.Address, id types.CampaignID, active bool) (c *types.Campaign, err error) {
	defer func() { l.observe("status", err) }()
	if caller != l.operator {
		return nil, ErrNotOwner
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	c, err = l.campaign(id)
	if err != nil {
		return nil, err
	}
	c.Active = active
	batch := l.stg.NewBatch()
	if err := batchWrite(batch, func() error { return batch.SetCampaign(c) }); err != nil {
		return nil, fmt.Errorf("could not set campaign status: %w", err)
	}

	log.Infow("campaign status changed", "id", id.String(), "active", active)
	l.publish(event.CampaignStatusChangedEventType, &event.CampaignStatusChangedEvent{
		CampaignID: id,
		Active:     active,
	})
	return c.Copy(), nil
}

// deposit credits the attached value to the transferer when it holds the
// pool funds.
func (l *Ledger) deposit(from common.Address, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	if d, ok := l.transferer.(Depositor); ok {
		d.Deposit(from, amount)
	}
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
