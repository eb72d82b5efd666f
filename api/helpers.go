package api

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/aadhaar-relief/log"
	"github.com/vocdoni/aadhaar-relief/types"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data interface{}) {
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
	log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// writeError writes err as an API error. Errors that are not API errors are
// translated with ledgerError.
func writeError(w http.ResponseWriter, err error) {
	var apiErr Error
	if errors.As(err, &apiErr) {
		apiErr.Write(w)
		return
	}
	ledgerError(err).Write(w)
}

// decodeBody decodes the JSON body of the request into v. Bodies larger than
// MaxRequestBodySize are rejected.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrBodyTooLarge.Withf("limit is %d bytes", tooLarge.Limit)
		}
		return ErrMalformedBody.Withf("could not decode request body: %v", err)
	}
	return nil
}

// campaignIDParam parses the campaign id URL parameter.
func campaignIDParam(r *http.Request) (types.CampaignID, error) {
	id, err := types.ParseCampaignID(chi.URLParam(r, CampaignURLParam))
	if err != nil {
		return 0, ErrMalformedCampaignID.WithErr(err)
	}
	return id, nil
}

// parsePincode parses a decimal pincode.
func parsePincode(s string) (uint64, error) {
	pincode, err := strconv.ParseUint(s, 10, 64)
	if err != nil || pincode == 0 {
		return 0, ErrMalformedPincode.Withf("%q", s)
	}
	return pincode, nil
}

// parseNullifier parses a decimal or 0x prefixed hexadecimal nullifier. A
// nullifier is an element of the BN254 scalar field.
func parseNullifier(s string) (*big.Int, error) {
	n := new(types.BigInt)
	if s == "" {
		return nil, ErrMalformedNullifier.With("missing nullifier")
	}
	if err := n.UnmarshalText([]byte(s)); err != nil || n.Sign() < 0 {
		return nil, ErrMalformedNullifier.Withf("%q", s)
	}
	if n.MathBigInt().Cmp(fr.Modulus()) >= 0 {
		return nil, ErrMalformedNullifier.With("out of the scalar field")
	}
	return n.MathBigInt(), nil
}
