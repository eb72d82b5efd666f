//nolint:lll
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vocdoni/aadhaar-relief/ledger"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 403, 404 or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500, 502 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX
// If you notice there's a gap (say, error code 40006 and 40007 are missing) DON'T fill in the gap,
// that code was used in the past for some error (not anymore) and shouldn't be reused.
// There's no correlation between Code and HTTP Status.
var (
	ErrResourceNotFound     = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody        = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrInvalidSignature     = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid signature")}
	ErrMalformedCampaignID  = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed campaign ID")}
	ErrMalformedPincode     = Error{Code: 40009, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed pincode")}
	ErrMalformedNullifier   = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed nullifier")}
	ErrExpiredRequest       = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("request timestamp outside the accepted window")}
	ErrReplayedRequest      = Error{Code: 40012, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("request already processed")}
	ErrMissingCampaignName  = Error{Code: 40013, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("missing campaign name")}
	ErrCampaignIDMismatch   = Error{Code: 40014, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("campaign ID does not match the URL")}
	ErrMissingProof         = Error{Code: 40015, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("missing proof")}
	ErrMalformedQueryParam  = Error{Code: 40016, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed query parameter")}
	ErrNotOwner             = Error{Code: 40020, HTTPstatus: http.StatusForbidden, Err: ledger.ErrNotOwner}
	ErrValueMismatch        = Error{Code: 40021, HTTPstatus: http.StatusBadRequest, Err: ledger.ErrValueMismatch}
	ErrInvalidPincode       = Error{Code: 40022, HTTPstatus: http.StatusBadRequest, Err: ledger.ErrInvalidPincode}
	ErrZeroValue            = Error{Code: 40023, HTTPstatus: http.StatusBadRequest, Err: ledger.ErrZeroValue}
	ErrCampaignNotFound     = Error{Code: 40024, HTTPstatus: http.StatusNotFound, Err: ledger.ErrCampaignNotFound}
	ErrCampaignInactive     = Error{Code: 40025, HTTPstatus: http.StatusConflict, Err: ledger.ErrCampaignInactive}
	ErrInsufficientPool     = Error{Code: 40026, HTTPstatus: http.StatusConflict, Err: ledger.ErrInsufficientPool}
	ErrStaleProof           = Error{Code: 40027, HTTPstatus: http.StatusBadRequest, Err: ledger.ErrStaleProof}
	ErrSignalMismatch       = Error{Code: 40028, HTTPstatus: http.StatusForbidden, Err: ledger.ErrSignalMismatch}
	ErrProofVerification    = Error{Code: 40029, HTTPstatus: http.StatusBadRequest, Err: ledger.ErrProofVerificationFailed}
	ErrPincodeMismatch      = Error{Code: 40030, HTTPstatus: http.StatusForbidden, Err: ledger.ErrPincodeMismatch}
	ErrAlreadyClaimed       = Error{Code: 40031, HTTPstatus: http.StatusConflict, Err: ledger.ErrAlreadyClaimed}
	ErrActivityNotAvailable = Error{Code: 40032, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("activity feed not available")}
	ErrDepositRequired      = Error{Code: 40033, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("donations require an on-chain deposit")}
	ErrDepositsDisabled     = Error{Code: 40034, HTTPstatus: http.StatusBadRequest, Err: ledger.ErrDepositsDisabled}
	ErrInvalidDeposit       = Error{Code: 40035, HTTPstatus: http.StatusBadRequest, Err: ledger.ErrInvalidDeposit}
	ErrDepositAlreadyUsed   = Error{Code: 40036, HTTPstatus: http.StatusConflict, Err: ledger.ErrDepositAlreadyUsed}
	ErrBodyTooLarge         = Error{Code: 40037, HTTPstatus: http.StatusRequestEntityTooLarge, Err: fmt.Errorf("request body too large")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrCampaignIDOverflow         = Error{Code: 50003, HTTPstatus: http.StatusServiceUnavailable, Err: ledger.ErrCampaignIDOverflow}
	ErrTransferFailed             = Error{Code: 50004, HTTPstatus: http.StatusBadGateway, Err: ledger.ErrTransferFailed}
)

// ledgerErrors are the API errors returned for each ledger error.
var ledgerErrors = []Error{
	ErrNotOwner,
	ErrValueMismatch,
	ErrInvalidPincode,
	ErrZeroValue,
	ErrCampaignNotFound,
	ErrCampaignInactive,
	ErrInsufficientPool,
	ErrStaleProof,
	ErrSignalMismatch,
	ErrProofVerification,
	ErrPincodeMismatch,
	ErrAlreadyClaimed,
	ErrCampaignIDOverflow,
	ErrTransferFailed,
	ErrDepositsDisabled,
	ErrInvalidDeposit,
	ErrDepositAlreadyUsed,
}

// ledgerError translates an error returned by the ledger into the API error
// of its kind, keeping the ledger message.
func ledgerError(err error) Error {
	for _, e := range ledgerErrors {
		if errors.Is(err, e.Err) {
			return Error{Err: err, Code: e.Code, HTTPstatus: e.HTTPstatus}
		}
	}
	return ErrGenericInternalServerError.WithErr(err)
}
