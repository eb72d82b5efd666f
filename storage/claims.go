package storage

import (
	"fmt"

	"github.com/vocdoni/aadhaar-relief/types"
)

// NullifierLen is the size of the nullifier part of a claim key.
const NullifierLen = 32

// ClaimRecord retrieves the claim of the nullifier for the campaign. It
// returns nil and ErrNotFound if the nullifier has not claimed.
func (s *Storage) ClaimRecord(id types.CampaignID, nullifier []byte) (*types.ClaimRecord, error) {
	key, err := claimKey(id, nullifier)
	if err != nil {
		return nil, err
	}
	r := &types.ClaimRecord{}
	if err := s.getArtifact(claimPrefix, key, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Claims returns the claim records of the campaign ordered by nullifier.
func (s *Storage) Claims(id types.CampaignID) ([]*types.ClaimRecord, error) {
	records := []*types.ClaimRecord{}
	var decodeErr error
	if err := s.iterateArtifacts(claimPrefix, id.Marshal(), func(_, v []byte) bool {
		r := &types.ClaimRecord{}
		if decodeErr = decodeArtifact(v, r); decodeErr != nil {
			return false
		}
		records = append(records, r)
		return true
	}); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode claim: %w", decodeErr)
	}
	return records, nil
}

// SetClaim adds the claim record to the batch.
func (b *Batch) SetClaim(r *types.ClaimRecord) error {
	if r == nil || r.Nullifier == nil {
		return fmt.Errorf("invalid claim record")
	}
	key, err := claimKey(r.CampaignID, r.Nullifier.Bytes())
	if err != nil {
		return err
	}
	return b.set(claimPrefix, key, r)
}

// DeleteClaim removes the claim record. It is only used to roll back a claim
// whose payout could not be delivered.
func (b *Batch) DeleteClaim(id types.CampaignID, nullifier []byte) error {
	key, err := claimKey(id, nullifier)
	if err != nil {
		return err
	}
	return b.delete(claimPrefix, key)
}

// claimKey builds the campaign id + left padded nullifier key.
func claimKey(id types.CampaignID, nullifier []byte) ([]byte, error) {
	if len(nullifier) > NullifierLen {
		return nil, fmt.Errorf("nullifier too long: %d bytes", len(nullifier))
	}
	key := make([]byte, types.CampaignIDLen+NullifierLen)
	copy(key, id.Marshal())
	copy(key[len(key)-len(nullifier):], nullifier)
	return key, nil
}
