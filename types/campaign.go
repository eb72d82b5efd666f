package types

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Campaign is a registered relief fund. TotalFunds and ClaimedFunds are
// denominated in the smallest currency unit (wei).
type Campaign struct {
	ID              CampaignID `json:"id"              cbor:"0,keyasint,omitempty"`
	Name            string     `json:"name"            cbor:"1,keyasint,omitempty"`
	Description     string     `json:"description"     cbor:"2,keyasint,omitempty"`
	RequiredPincode uint64     `json:"requiredPincode" cbor:"3,keyasint,omitempty"`
	TotalFunds      *BigInt    `json:"totalFunds"      cbor:"4,keyasint,omitempty"`
	ClaimedFunds    *BigInt    `json:"claimedFunds"    cbor:"5,keyasint,omitempty"`
	Active          bool       `json:"active"          cbor:"6,keyasint,omitempty"`
	ClaimCount      uint64     `json:"claimCount"      cbor:"7,keyasint,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"       cbor:"8,keyasint,omitempty"`
}

// Available returns the pooled balance that can still be claimed.
func (c *Campaign) Available() *big.Int {
	return new(big.Int).Sub(c.TotalFunds.MathBigInt(), c.ClaimedFunds.MathBigInt())
}

// Copy returns a deep copy of the campaign, so callers can not alter the
// stored balances through shared big integers.
func (c *Campaign) Copy() *Campaign {
	cp := *c
	cp.TotalFunds = c.TotalFunds.Clone()
	cp.ClaimedFunds = c.ClaimedFunds.Clone()
	return &cp
}

func (c *Campaign) String() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(data)
}

// ClaimRecord marks a (campaign, nullifier) pair as consumed. It is written
// once, when the claim succeeds, and never deleted.
type ClaimRecord struct {
	CampaignID CampaignID     `json:"campaignId" cbor:"0,keyasint,omitempty"`
	Nullifier  *BigInt        `json:"nullifier"  cbor:"1,keyasint,omitempty"`
	Recipient  common.Address `json:"recipient"  cbor:"2,keyasint,omitempty"`
	Amount     *BigInt        `json:"amount"     cbor:"3,keyasint,omitempty"`
	Receipt    string         `json:"receipt"    cbor:"4,keyasint,omitempty"`
	ClaimedAt  time.Time      `json:"claimedAt"  cbor:"5,keyasint,omitempty"`
}

// EligibleCampaign annotates an active campaign with the eligibility of a
// given pincode and whether the given nullifier already claimed from it.
type EligibleCampaign struct {
	*Campaign
	Eligible   bool `json:"eligible"`
	HasClaimed bool `json:"hasClaimed"`
}

// DepositRecord marks an on-chain deposit as credited to a campaign. A
// deposit transaction backs a single donation.
type DepositRecord struct {
	TxHash     common.Hash    `json:"txHash"     cbor:"0,keyasint,omitempty"`
	CampaignID CampaignID     `json:"campaignId" cbor:"1,keyasint,omitempty"`
	Donor      common.Address `json:"donor"      cbor:"2,keyasint,omitempty"`
	Amount     *BigInt        `json:"amount"     cbor:"3,keyasint,omitempty"`
	CreditedAt time.Time      `json:"creditedAt" cbor:"4,keyasint,omitempty"`
}
