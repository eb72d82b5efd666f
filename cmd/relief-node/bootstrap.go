package main

import (
	"fmt"

	"github.com/vocdoni/aadhaar-relief/ledger"
	"github.com/vocdoni/aadhaar-relief/log"
	"github.com/vocdoni/aadhaar-relief/types"
)

const (
	testCampaignName        = "Test Flood Relief"
	testCampaignDescription = "Emergency relief for flood affected families"
	testCampaignPincode     = 400001
	testCampaignFunds       = "0.01"
)

// bootstrapTestCampaign registers a funded test campaign on behalf of the
// operator when the ledger has no campaigns yet.
func bootstrapTestCampaign(l *ledger.Ledger) error {
	count, err := l.CampaignCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	funds, err := types.ParseEther(testCampaignFunds)
	if err != nil {
		return err
	}
	c, err := l.RegisterCampaign(l.Operator(), testCampaignName, testCampaignDescription,
		testCampaignPincode, funds, funds)
	if err != nil {
		return fmt.Errorf("could not register test campaign: %w", err)
	}
	log.Infow("test campaign registered", "id", c.ID.String(), "pincode", c.RequiredPincode,
		"funds", types.FormatFunds(c.TotalFunds.MathBigInt()))
	return nil
}
