package api

import (
	"net/http"
	"strconv"

	"github.com/vocdoni/aadhaar-relief/event"
	"github.com/vocdoni/aadhaar-relief/types"
)

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 200
)

// operator returns the operator address and the claim parameters
// GET /operator
func (a *API) operator(w http.ResponseWriter, r *http.Request) {
	count, err := a.ledger.CampaignCount()
	if err != nil {
		writeError(w, err)
		return
	}
	amount := a.ledger.ClaimAmount()
	httpWriteJSON(w, &OperatorResponse{
		Operator:      a.ledger.Operator(),
		ClaimAmount:   types.NewBigInt(amount),
		ClaimFunds:    types.FormatFunds(amount),
		MaxProofAge:   a.ledger.MaxProofAge().String(),
		CampaignCount: count,
	})
}

// recentActivity returns the most recent ledger events
// GET /activity?limit=
func (a *API) recentActivity(w http.ResponseWriter, r *http.Request) {
	if a.activity == nil {
		ErrActivityNotAvailable.Write(w)
		return
	}
	limit := defaultActivityLimit
	if s := r.URL.Query().Get(LimitQueryParam); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			ErrMalformedQueryParam.Withf("invalid limit %q", s).Write(w)
			return
		}
		limit = min(n, maxActivityLimit)
	}
	events := a.activity.Recent(limit)
	if events == nil {
		events = []event.Event{}
	}
	httpWriteJSON(w, &ActivityResponse{Events: events})
}
