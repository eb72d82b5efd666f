package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/aadhaar-relief/log"
	"github.com/vocdoni/aadhaar-relief/types"
)

// campaigns lists every campaign
// GET /campaigns
func (a *API) campaigns(w http.ResponseWriter, r *http.Request) {
	count, err := a.ledger.CampaignCount()
	if err != nil {
		writeError(w, err)
		return
	}
	campaigns, err := a.ledger.Campaigns()
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, &CampaignsResponse{Count: count, Campaigns: campaigns})
}

// campaign returns the campaign details
// GET /campaigns/{campaignId}
func (a *API) campaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := a.ledger.Campaign(id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, c)
}

// campaignsByPincode lists the ids of the campaigns requiring the pincode
// GET /campaigns/pincode/{pincode}
func (a *API) campaignsByPincode(w http.ResponseWriter, r *http.Request) {
	pincode, err := parsePincode(chi.URLParam(r, PincodeURLParam))
	if err != nil {
		writeError(w, err)
		return
	}
	ids, err := a.ledger.CampaignIDsByPincode(pincode)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, &CampaignIDsResponse{Pincode: pincode, CampaignIDs: ids})
}

// eligibleCampaigns lists the active campaigns annotated with the
// eligibility of the pincode and nullifier
// GET /campaigns/eligible?pincode=&nullifier=
func (a *API) eligibleCampaigns(w http.ResponseWriter, r *http.Request) {
	pincode, err := parsePincode(r.URL.Query().Get(PincodeQueryParam))
	if err != nil {
		writeError(w, err)
		return
	}
	nullifier, err := parseNullifier(r.URL.Query().Get(NullifierQueryParam))
	if err != nil {
		writeError(w, err)
		return
	}
	campaigns, err := a.ledger.EligibleCampaigns(pincode, nullifier)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, &EligibleCampaignsResponse{Campaigns: campaigns})
}

// registerCampaign creates a new campaign, signed by the operator
// POST /campaigns
func (a *API) registerCampaign(w http.ResponseWriter, r *http.Request) {
	req := &RegisterCampaignRequest{}
	if err := decodeBody(w, r, req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		ErrMissingCampaignName.Write(w)
		return
	}
	caller, err := a.authenticate(req)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := a.ledger.RegisterCampaign(caller, req.Name, req.Description, req.RequiredPincode,
		req.InitialFunds.MathBigInt(), req.Value.MathBigInt())
	if err != nil {
		writeError(w, err)
		return
	}
	log.Debugw("campaign registered through the API", "id", c.ID.String(), "caller", caller.Hex())
	httpWriteJSON(w, c)
}

// addFunds adds the donated value to the campaign pool. Donations must be
// backed by an on-chain deposit, except the ones signed by the operator.
// POST /campaigns/{campaignId}/funds
func (a *API) addFunds(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req := &DonationRequest{}
	if err := decodeBody(w, r, req); err != nil {
		writeError(w, err)
		return
	}
	if req.CampaignID != id {
		ErrCampaignIDMismatch.Withf("body %s, URL %s", req.CampaignID, id).Write(w)
		return
	}
	caller, err := a.authenticate(req)
	if err != nil {
		writeError(w, err)
		return
	}
	var c *types.Campaign
	switch {
	case req.DepositTx != nil:
		c, err = a.ledger.AddFundsWithDeposit(r.Context(), caller, id, req.Value.MathBigInt(), *req.DepositTx)
	case caller == a.ledger.Operator():
		c, err = a.ledger.AddFunds(caller, id, req.Value.MathBigInt())
	default:
		ErrDepositRequired.Withf("donor %s", caller.Hex()).Write(w)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, c)
}

// setCampaignStatus activates or deactivates the campaign, signed by the
// operator
// POST /campaigns/{campaignId}/status
func (a *API) setCampaignStatus(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req := &StatusRequest{}
	if err := decodeBody(w, r, req); err != nil {
		writeError(w, err)
		return
	}
	if req.CampaignID != id {
		ErrCampaignIDMismatch.Withf("body %s, URL %s", req.CampaignID, id).Write(w)
		return
	}
	caller, err := a.authenticate(req)
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := a.ledger.SetCampaignStatus(caller, id, req.Active)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, c)
}
