package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vocdoni/aadhaar-relief/log"
)

// Error is the error answered by the relief API: a message, a stable code
// from the table in errors_definition.go and the HTTP status it is sent
// with.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// MarshalJSON encodes the message and the code, the HTTP status travels as
// the response status.
//
// Example output: {"error":"campaign not found: 7","code":40024}
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(
		struct {
			Err  string `json:"error"`
			Code int    `json:"code"`
		}{
			Err:  e.Err.Error(),
			Code: e.Code,
		})
}

// UnmarshalJSON decodes the error sent by the server. The HTTP status is not
// part of the body and stays zero.
func (e *Error) UnmarshalJSON(data []byte) error {
	var body struct {
		Err  string `json:"error"`
		Code int    `json:"code"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	e.Err = fmt.Errorf("%s", body.Err)
	e.Code = body.Code
	return nil
}

// Error returns the error message.
func (e Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error, so callers can match ledger errors.
func (e Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an Error with the same code, so a decoded
// client error matches the definitions of this package with errors.Is.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	return ok && t.Code != 0 && t.Code == e.Code
}

// Write sends the error as a JSON body with its HTTP status.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warnw("could not marshal API error", "error", err.Error())
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	log.Debugw("API error response", "error", e.Error(), "code", e.Code, "httpStatus", e.HTTPstatus)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(e.HTTPstatus)
	if _, err := w.Write(append(msg, '\n')); err != nil {
		log.Debugw("could not write API error", "error", err.Error())
	}
}

// Withf returns a copy of the error with the formatted detail appended.
func (e Error) Withf(format string, args ...any) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, fmt.Sprintf(format, args...)),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// With returns a copy of the error with the detail appended.
func (e Error) With(s string) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, s),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// WithErr returns a copy of the error with the message of err appended.
func (e Error) WithErr(err error) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, err.Error()),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}
