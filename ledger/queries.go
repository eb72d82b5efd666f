package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/aadhaar-relief/storage"
	"github.com/vocdoni/aadhaar-relief/types"
)

// CampaignCount returns the number of registered campaigns.
func (l *Ledger) CampaignCount() (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	next, err := l.stg.NextCampaignID()
	if err != nil {
		return 0, err
	}
	return uint64(next) - 1, nil
}

// Campaign returns the details of the campaign.
func (l *Ledger) Campaign(id types.CampaignID) (*types.Campaign, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.campaign(id)
}

// Campaigns returns every campaign, ordered by id.
func (l *Ledger) Campaigns() ([]*types.Campaign, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stg.Campaigns()
}

// PooledFunds returns the claimable balance of every campaign added up.
func (l *Ledger) PooledFunds() (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	campaigns, err := l.stg.Campaigns()
	if err != nil {
		return nil, err
	}
	total := new(big.Int)
	for _, c := range campaigns {
		total.Add(total, c.Available())
	}
	return total, nil
}

// CampaignIDsByPincode returns the ids of the campaigns registered for the
// pincode.
func (l *Ledger) CampaignIDsByPincode(pincode uint64) ([]types.CampaignID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stg.CampaignIDsByPincode(pincode)
}

// IsClaimed reports whether the nullifier already claimed from the campaign.
func (l *Ledger) IsClaimed(id types.CampaignID, nullifier *big.Int) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.isClaimed(id, nullifier)
}

func (l *Ledger) isClaimed(id types.CampaignID, nullifier *big.Int) (bool, error) {
	if nullifier == nil || nullifier.Sign() < 0 {
		return false, fmt.Errorf("invalid nullifier")
	}
	_, err := l.stg.ClaimRecord(id, common.LeftPadBytes(nullifier.Bytes(), storage.NullifierLen))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Claims returns the claim history of the campaign.
func (l *Ledger) Claims(id types.CampaignID) ([]*types.ClaimRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, err := l.campaign(id); err != nil {
		return nil, err
	}
	return l.stg.Claims(id)
}

// EligibleCampaigns returns the active campaigns annotated with whether the
// pincode is eligible and whether the nullifier already claimed. It is a
// convenience for clients: claims are validated again regardless of it.
func (l *Ledger) EligibleCampaigns(pincode uint64, nullifier *big.Int) ([]*types.EligibleCampaign, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	campaigns, err := l.stg.Campaigns()
	if err != nil {
		return nil, err
	}
	eligible := []*types.EligibleCampaign{}
	for _, c := range campaigns {
		if !c.Active {
			continue
		}
		claimed, err := l.isClaimed(c.ID, nullifier)
		if err != nil {
			return nil, err
		}
		eligible = append(eligible, &types.EligibleCampaign{
			Campaign:   c,
			Eligible:   c.RequiredPincode == pincode,
			HasClaimed: claimed,
		})
	}
	return eligible, nil
}
