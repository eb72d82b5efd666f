package event

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/aadhaar-relief/types"
)

const (
	// CampaignRegisteredEventType is published when the operator registers a
	// new campaign.
	CampaignRegisteredEventType = EventType("campaign.registered")
	// FundsAddedEventType is published for every accepted donation.
	FundsAddedEventType = EventType("campaign.funds_added")
	// CampaignStatusChangedEventType is published when the operator toggles
	// the status of a campaign.
	CampaignStatusChangedEventType = EventType("campaign.status_changed")
	// ClaimProcessedEventType is published once the relief amount of a claim
	// has been delivered.
	ClaimProcessedEventType = EventType("claim.processed")
)

// LedgerEventTypes lists every event type the ledger publishes.
var LedgerEventTypes = []EventType{
	CampaignRegisteredEventType,
	FundsAddedEventType,
	CampaignStatusChangedEventType,
	ClaimProcessedEventType,
}

type CampaignRegisteredEvent struct {
	CampaignID      types.CampaignID `json:"campaignId"`
	Name            string           `json:"name"`
	RequiredPincode uint64           `json:"requiredPincode"`
	InitialFunds    *types.BigInt    `json:"initialFunds"`
}

type FundsAddedEvent struct {
	CampaignID types.CampaignID `json:"campaignId"`
	Donor      common.Address   `json:"donor"`
	Amount     *types.BigInt    `json:"amount"`
	TotalFunds *types.BigInt    `json:"totalFunds"`
}

type CampaignStatusChangedEvent struct {
	CampaignID types.CampaignID `json:"campaignId"`
	Active     bool             `json:"active"`
}

// ClaimProcessedEvent carries the nullifier, never the claimant identity
// beyond the payout address.
type ClaimProcessedEvent struct {
	CampaignID types.CampaignID `json:"campaignId"`
	Nullifier  *types.BigInt    `json:"nullifier"`
	Recipient  common.Address   `json:"recipient"`
	Amount     *types.BigInt    `json:"amount"`
	Receipt    string           `json:"receipt"`
	ClaimedAt  time.Time        `json:"claimedAt"`
}
