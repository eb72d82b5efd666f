package api

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/aadhaar-relief/aadhaar"
	"github.com/vocdoni/aadhaar-relief/event"
	"github.com/vocdoni/aadhaar-relief/types"
)

// RegisterCampaignRequest creates a campaign. Value is the amount the
// operator attaches, it must match InitialFunds.
type RegisterCampaignRequest struct {
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	RequiredPincode int64         `json:"requiredPincode"`
	InitialFunds    *types.BigInt `json:"initialFunds"`
	Value           *types.BigInt `json:"value"`
	RequestAuth
}

// DonationRequest adds Value to the campaign pool. DepositTx is the hash of
// the on-chain transfer of Value from the signer to the hot wallet. Only the
// operator can donate without a deposit.
type DonationRequest struct {
	CampaignID types.CampaignID `json:"campaignId"`
	Value      *types.BigInt    `json:"value"`
	DepositTx  *common.Hash     `json:"depositTx,omitempty"`
	RequestAuth
}

// StatusRequest activates or deactivates a campaign.
type StatusRequest struct {
	CampaignID types.CampaignID `json:"campaignId"`
	Active     bool             `json:"active"`
	RequestAuth
}

// ClaimRequest claims the relief amount of a campaign. The signer must be the
// address bound to the proof signal.
type ClaimRequest struct {
	CampaignID types.CampaignID        `json:"campaignId"`
	Proof      *aadhaar.ProofAssertion `json:"proof"`
	RequestAuth
}

// OperatorResponse describes the ledger parameters.
type OperatorResponse struct {
	Operator      common.Address `json:"operator"`
	ClaimAmount   *types.BigInt  `json:"claimAmount"`
	ClaimFunds    string         `json:"claimFunds"`
	MaxProofAge   string         `json:"maxProofAge"`
	CampaignCount uint64         `json:"campaignCount"`
}

// CampaignsResponse lists every campaign.
type CampaignsResponse struct {
	Count     uint64            `json:"count"`
	Campaigns []*types.Campaign `json:"campaigns"`
}

// CampaignIDsResponse lists the campaigns that require a pincode.
type CampaignIDsResponse struct {
	Pincode     uint64             `json:"pincode"`
	CampaignIDs []types.CampaignID `json:"campaignIds"`
}

// EligibleCampaignsResponse lists the active campaigns with their
// eligibility for a pincode and nullifier.
type EligibleCampaignsResponse struct {
	Campaigns []*types.EligibleCampaign `json:"campaigns"`
}

// ClaimsResponse is the claim history of a campaign.
type ClaimsResponse struct {
	CampaignID types.CampaignID     `json:"campaignId"`
	Claims     []*types.ClaimRecord `json:"claims"`
}

// ClaimStatusResponse tells whether a nullifier claimed from a campaign.
type ClaimStatusResponse struct {
	CampaignID types.CampaignID `json:"campaignId"`
	Nullifier  *types.BigInt    `json:"nullifier"`
	Claimed    bool             `json:"claimed"`
}

// ActivityResponse holds the most recent ledger events, newest first.
type ActivityResponse struct {
	Events []event.Event `json:"events"`
}
