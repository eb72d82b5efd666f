package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/aadhaar-relief/aadhaar"
	"github.com/vocdoni/aadhaar-relief/event"
	"github.com/vocdoni/aadhaar-relief/log"
	"github.com/vocdoni/aadhaar-relief/storage"
	"github.com/vocdoni/aadhaar-relief/types"
)

// ClaimFunds pays the fixed claim amount of the campaign to the caller if
// the assertion proves an eligible, fresh and unused identity bound to the
// caller address. The checks run in this order, stopping at the first
// failure: campaign exists, campaign active, pool balance, proof freshness,
// signal, proof validity, pincode, nullifier unused.
//
// The claim record and the claimed funds are committed before the transfer.
// If the transfer fails both are restored and ErrTransferFailed is returned.
// The context bounds the proof verification and the transfer.
func (l *Ledger) ClaimFunds(ctx context.Context, caller common.Address, id types.CampaignID,
	assertion *aadhaar.ProofAssertion,
) (record *types.ClaimRecord, err error) {
	defer func() { l.observe("claim", err) }()
	if assertion == nil {
		return nil, fmt.Errorf("%w: missing proof", ErrProofVerificationFailed)
	}

	// The proof verification runs outside the writer lock. The state checks
	// that precede it run once before it and again under the lock.
	l.mu.RLock()
	_, err = l.checkClaim(caller, id, assertion)
	l.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	verifyErr := l.verifier.Verify(ctx, assertion)

	l.mu.Lock()
	defer l.mu.Unlock()
	campaign, err := l.checkClaim(caller, id, assertion)
	if err != nil {
		return nil, err
	}
	if verifyErr != nil {
		log.Debugw("claim proof rejected", "id", id.String(), "error", verifyErr.Error())
		return nil, fmt.Errorf("%w: %v", ErrProofVerificationFailed, verifyErr)
	}
	if pincode, ok := assertion.Pincode(); !ok || pincode != campaign.RequiredPincode {
		return nil, fmt.Errorf("%w: campaign requires %d", ErrPincodeMismatch, campaign.RequiredPincode)
	}
	nullifier := assertion.NullifierKey()
	if _, err := l.stg.ClaimRecord(id, nullifier); err == nil {
		return nil, ErrAlreadyClaimed
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("could not read claim record: %w", err)
	}

	// effects
	updated := campaign.Copy()
	updated.ClaimedFunds = types.NewBigInt(new(big.Int).Add(campaign.ClaimedFunds.MathBigInt(), l.claimAmount))
	updated.ClaimCount++
	record = &types.ClaimRecord{
		CampaignID: id,
		Nullifier:  assertion.Nullifier.Clone(),
		Recipient:  caller,
		Amount:     types.NewBigInt(l.claimAmount),
		ClaimedAt:  l.now(),
	}
	batch := l.stg.NewBatch()
	if err := batchWrite(batch,
		func() error { return batch.SetClaim(record) },
		func() error { return batch.SetCampaign(updated) },
	); err != nil {
		return nil, fmt.Errorf("could not commit claim: %w", err)
	}

	// interaction
	receipt, transferErr := l.transferer.Transfer(ctx, caller, l.claimAmount)
	if transferErr != nil {
		l.rollbackClaim(campaign, nullifier)
		log.Warnw("claim transfer failed",
			"id", id.String(),
			"recipient", caller.Hex(),
			"error", transferErr.Error())
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, transferErr)
	}
	record.Receipt = receipt
	batch = l.stg.NewBatch()
	if err := batchWrite(batch, func() error { return batch.SetClaim(record) }); err != nil {
		// the claim is consumed and paid, only the receipt is lost
		log.Warnw("could not store claim receipt", "id", id.String(), "receipt", receipt, "error", err.Error())
	}

	log.Infow("claim processed",
		"id", id.String(),
		"nullifier", record.Nullifier.String(),
		"recipient", caller.Hex(),
		"amount", types.FormatFunds(l.claimAmount),
		"receipt", receipt)
	l.updatePoolMetrics(updated)
	l.publish(event.ClaimProcessedEventType, &event.ClaimProcessedEvent{
		CampaignID: id,
		Nullifier:  record.Nullifier.Clone(),
		Recipient:  caller,
		Amount:     record.Amount.Clone(),
		Receipt:    receipt,
		ClaimedAt:  record.ClaimedAt,
	})
	return record, nil
}

// checkClaim runs the claim checks that precede the proof verification and
// returns the campaign.
func (l *Ledger) checkClaim(caller common.Address, id types.CampaignID,
	assertion *aadhaar.ProofAssertion,
) (*types.Campaign, error) {
	campaign, err := l.campaign(id)
	if err != nil {
		return nil, err
	}
	if !campaign.Active {
		return nil, ErrCampaignInactive
	}
	if campaign.Available().Cmp(l.claimAmount) < 0 {
		return nil, fmt.Errorf("%w: %s left", ErrInsufficientPool, types.FormatFunds(campaign.Available()))
	}
	if err := l.checkFreshness(assertion.Time()); err != nil {
		return nil, err
	}
	if assertion.Signal != caller {
		return nil, ErrSignalMismatch
	}
	return campaign, nil
}

// checkFreshness fails if the proof timestamp is older than the freshness
// window or further in the future than the allowed clock skew.
func (l *Ledger) checkFreshness(ts time.Time) error {
	if ts.IsZero() {
		return fmt.Errorf("%w: invalid timestamp", ErrStaleProof)
	}
	now := l.now()
	if now.Sub(ts) > l.maxProofAge {
		return fmt.Errorf("%w: proof generated at %s", ErrStaleProof, ts.UTC().Format(time.RFC3339))
	}
	if ts.Sub(now) > l.clockSkew {
		return fmt.Errorf("%w: proof timestamp %s is in the future", ErrStaleProof, ts.UTC().Format(time.RFC3339))
	}
	return nil
}

// rollbackClaim restores the campaign and removes the claim record. It is
// called with the writer lock held.
func (l *Ledger) rollbackClaim(previous *types.Campaign, nullifier []byte) {
	batch := l.stg.NewBatch()
	if err := batchWrite(batch,
		func() error { return batch.DeleteClaim(previous.ID, nullifier) },
		func() error { return batch.SetCampaign(previous) },
	); err != nil {
		// The pool keeps the claimed amount reserved: funds are never paid
		// twice, but the nullifier stays consumed.
		log.Errorw(err, fmt.Sprintf("could not roll back claim on campaign %s", previous.ID))
	}
}

// batchWrite applies the writes to the batch and commits it, discarding
// the batch if any write fails.
func batchWrite(batch *storage.Batch, writes ...func() error) error {
	for _, w := range writes {
		if err := w(); err != nil {
			batch.Discard()
			return err
		}
	}
	return batch.Commit()
}
