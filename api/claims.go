package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/aadhaar-relief/log"
	"github.com/vocdoni/aadhaar-relief/types"
)

// claims returns the claim history of the campaign
// GET /campaigns/{campaignId}/claims
func (a *API) claims(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	claims, err := a.ledger.Claims(id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, &ClaimsResponse{CampaignID: id, Claims: claims})
}

// claimStatus tells whether the nullifier claimed from the campaign
// GET /campaigns/{campaignId}/claims/{nullifier}
func (a *API) claimStatus(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	nullifier, err := parseNullifier(chi.URLParam(r, NullifierURLParam))
	if err != nil {
		writeError(w, err)
		return
	}
	claimed, err := a.ledger.IsClaimed(id, nullifier)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, &ClaimStatusResponse{
		CampaignID: id,
		Nullifier:  types.NewBigInt(nullifier),
		Claimed:    claimed,
	})
}

// claimFunds pays the relief amount to the signer of the request, if the
// proof attached is valid for the campaign
// POST /campaigns/{campaignId}/claims
func (a *API) claimFunds(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req := &ClaimRequest{}
	if err := decodeBody(w, r, req); err != nil {
		writeError(w, err)
		return
	}
	if req.CampaignID != id {
		ErrCampaignIDMismatch.Withf("body %s, URL %s", req.CampaignID, id).Write(w)
		return
	}
	if req.Proof == nil {
		ErrMissingProof.Write(w)
		return
	}
	caller, err := a.authenticate(req)
	if err != nil {
		writeError(w, err)
		return
	}
	record, err := a.ledger.ClaimFunds(r.Context(), caller, id, req.Proof)
	if err != nil {
		log.Debugw("claim rejected", "id", id.String(), "caller", caller.Hex(), "error", err.Error())
		writeError(w, err)
		return
	}
	httpWriteJSON(w, record)
}
