package api

import "strings"

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// MetricsEndpoint exposes the prometheus metrics
	MetricsEndpoint = "/metrics"
	// OperatorEndpoint returns the operator address and the claim parameters
	OperatorEndpoint = "/operator"
	// ActivityEndpoint returns the most recent ledger events
	ActivityEndpoint = "/activity"

	// CampaignsEndpoint lists campaigns (GET) and registers new ones (POST)
	CampaignsEndpoint = "/campaigns"
	// CampaignEndpoint returns the campaign details
	CampaignURLParam = "campaignId"
	CampaignEndpoint = "/campaigns/{" + CampaignURLParam + "}"
	// CampaignsByPincodeEndpoint lists the campaign ids of a pincode
	PincodeURLParam            = "pincode"
	CampaignsByPincodeEndpoint = "/campaigns/pincode/{" + PincodeURLParam + "}"
	// EligibleCampaignsEndpoint lists active campaigns annotated with the
	// eligibility of the pincode and nullifier query parameters
	EligibleCampaignsEndpoint = "/campaigns/eligible"
	// CampaignFundsEndpoint accepts donations
	CampaignFundsEndpoint = "/campaigns/{" + CampaignURLParam + "}/funds"
	// CampaignStatusEndpoint toggles the campaign status
	CampaignStatusEndpoint = "/campaigns/{" + CampaignURLParam + "}/status"
	// CampaignClaimsEndpoint lists the claims (GET) and accepts new ones (POST)
	CampaignClaimsEndpoint = "/campaigns/{" + CampaignURLParam + "}/claims"
	// ClaimStatusEndpoint tells whether a nullifier claimed from the campaign
	NullifierURLParam   = "nullifier"
	ClaimStatusEndpoint = "/campaigns/{" + CampaignURLParam + "}/claims/{" + NullifierURLParam + "}"

	// PincodeQueryParam and NullifierQueryParam are the query parameters of
	// EligibleCampaignsEndpoint
	PincodeQueryParam   = "pincode"
	NullifierQueryParam = "nullifier"
	// LimitQueryParam bounds the number of activity entries returned
	LimitQueryParam = "limit"
)

// EndpointWithParam replaces the URL parameter of the endpoint with value.
func EndpointWithParam(endpoint, param, value string) string {
	return strings.Replace(endpoint, "{"+param+"}", value, 1)
}
