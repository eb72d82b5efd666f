package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vocdoni/aadhaar-relief/types"
)

// Campaign retrieves the campaign from the storage. It returns nil and
// ErrNotFound if the campaign does not exist.
func (s *Storage) Campaign(id types.CampaignID) (*types.Campaign, error) {
	c := &types.Campaign{}
	if err := s.getArtifact(campaignPrefix, id.Marshal(), c); err != nil {
		return nil, err
	}
	return c, nil
}

// Campaigns returns every stored campaign sorted by identifier.
func (s *Storage) Campaigns() ([]*types.Campaign, error) {
	campaigns := []*types.Campaign{}
	var decodeErr error
	if err := s.iterateArtifacts(campaignPrefix, nil, func(_, v []byte) bool {
		c := &types.Campaign{}
		if decodeErr = decodeArtifact(v, c); decodeErr != nil {
			return false
		}
		campaigns = append(campaigns, c)
		return true
	}); err != nil {
		return nil, fmt.Errorf("iterate campaigns: %w", err)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode campaign: %w", decodeErr)
	}
	return campaigns, nil
}

// CampaignIDsByPincode returns the identifiers of the campaigns registered
// for the pincode, in ascending order.
func (s *Storage) CampaignIDsByPincode(pincode uint64) ([]types.CampaignID, error) {
	ids := []types.CampaignID{}
	var parseErr error
	if err := s.iterateArtifacts(pincodePrefix, pincodeKey(pincode), func(k, _ []byte) bool {
		var id types.CampaignID
		if parseErr = id.Unmarshal(k); parseErr != nil {
			return false
		}
		ids = append(ids, id)
		return true
	}); err != nil {
		return nil, fmt.Errorf("iterate pincode index: %w", err)
	}
	if parseErr != nil {
		return nil, fmt.Errorf("invalid pincode index entry: %w", parseErr)
	}
	return ids, nil
}

// NextCampaignID returns the identifier the next registered campaign will
// get. Identifiers start at 1.
func (s *Storage) NextCampaignID() (types.CampaignID, error) {
	var next uint64
	err := s.getArtifact(metadataPrefix, nextCampaignIDKey, &next)
	if errors.Is(err, ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return types.CampaignID(next), nil
}

// SetCampaign adds the campaign to the batch.
func (b *Batch) SetCampaign(c *types.Campaign) error {
	if c == nil {
		return fmt.Errorf("nil campaign")
	}
	return b.set(campaignPrefix, c.ID.Marshal(), c)
}

// IndexPincode adds the campaign to the index of its pincode.
func (b *Batch) IndexPincode(pincode uint64, id types.CampaignID) error {
	return b.tx.Set(prefixedKey(pincodePrefix, append(pincodeKey(pincode), id.Marshal()...)), []byte{1})
}

// SetNextCampaignID stores the identifier the next campaign will get.
func (b *Batch) SetNextCampaignID(next types.CampaignID) error {
	return b.set(metadataPrefix, nextCampaignIDKey, uint64(next))
}

func pincodeKey(pincode uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, pincode)
	return k
}
