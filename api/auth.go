package api

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/aadhaar-relief/crypto/ethereum"
	"github.com/vocdoni/aadhaar-relief/types"
)

// DefaultSignatureWindow is how far the timestamp of a signed request may
// drift from the server clock.
const DefaultSignatureWindow = 5 * time.Minute

// RequestAuth is embedded by every request that changes the ledger. The
// signature is an Ethereum personal signature over the JSON encoding of the
// request with the signature field left out.
type RequestAuth struct {
	Timestamp int64          `json:"timestamp"`
	Signature types.HexBytes `json:"signature,omitempty"`
}

// Auth returns the authentication fields of the request.
func (a *RequestAuth) Auth() *RequestAuth {
	return a
}

// Signable is a request carrying a RequestAuth.
type Signable interface {
	Auth() *RequestAuth
}

// SignedMessage returns the bytes covered by the signature of the request.
func SignedMessage(req Signable) ([]byte, error) {
	auth := req.Auth()
	sig := auth.Signature
	auth.Signature = nil
	defer func() { auth.Signature = sig }()
	msg, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("could not encode request: %w", err)
	}
	return msg, nil
}

// SignRequest stamps the request with the current time and signs it.
func SignRequest(req Signable, signer *ethereum.SignKeys) error {
	req.Auth().Timestamp = time.Now().Unix()
	msg, err := SignedMessage(req)
	if err != nil {
		return err
	}
	sig, err := signer.SignEthereum(msg)
	if err != nil {
		return fmt.Errorf("could not sign request: %w", err)
	}
	req.Auth().Signature = sig
	return nil
}

// replayGuard remembers the requests accepted within the signature window.
// Entries are keyed by signer and message hash, so a request can not be
// replayed by altering the encoding of its signature.
type replayGuard struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

func newReplayGuard(window time.Duration) *replayGuard {
	if window <= 0 {
		window = DefaultSignatureWindow
	}
	return &replayGuard{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// check accepts the request once, if its timestamp is within the window.
func (g *replayGuard) check(signer common.Address, msg []byte, timestamp int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	ts := time.Unix(timestamp, 0)
	if ts.Before(now.Add(-g.window)) || ts.After(now.Add(g.window)) {
		return ErrExpiredRequest.Withf("timestamp %d", timestamp)
	}
	for k, t := range g.seen {
		if t.Before(now.Add(-g.window)) {
			delete(g.seen, k)
		}
	}
	key := signer.Hex() + string(ethereum.HashRaw(msg))
	if _, ok := g.seen[key]; ok {
		return ErrReplayedRequest
	}
	g.seen[key] = ts
	return nil
}

// authenticate recovers the signer of the request and registers it with the
// replay guard.
func (a *API) authenticate(req Signable) (common.Address, error) {
	auth := req.Auth()
	if len(auth.Signature) == 0 {
		return common.Address{}, ErrInvalidSignature.With("missing signature")
	}
	msg, err := SignedMessage(req)
	if err != nil {
		return common.Address{}, ErrMalformedBody.WithErr(err)
	}
	signer, err := ethereum.AddrFromSignature(msg, auth.Signature)
	if err != nil {
		return common.Address{}, ErrInvalidSignature.WithErr(err)
	}
	if err := a.replay.check(signer, msg, auth.Timestamp); err != nil {
		return common.Address{}, err
	}
	return signer, nil
}
