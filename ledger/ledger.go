// Package ledger implements the relief pool ledger: campaign registration,
// donations, the operator status toggle and anonymous claims backed by an
// Anon Aadhaar proof. The Ledger is the only writer of the campaign and
// claim records; every mutation runs under a single writer lock and its
// storage writes are committed atomically.
package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vocdoni/aadhaar-relief/aadhaar"
	"github.com/vocdoni/aadhaar-relief/event"
	"github.com/vocdoni/aadhaar-relief/log"
	"github.com/vocdoni/aadhaar-relief/storage"
	"github.com/vocdoni/aadhaar-relief/types"
)

const (
	// DefaultMaxProofAge is the freshness window of a proof timestamp.
	DefaultMaxProofAge = 3 * time.Hour
	// DefaultClockSkew is how far in the future a proof timestamp may be.
	DefaultClockSkew = 5 * time.Minute
)

// DefaultClaimAmount is the fixed relief amount paid per claim: 0.001 ETH.
var DefaultClaimAmount = big.NewInt(1_000_000_000_000_000)

// Config holds the ledger parameters. Zero values take the defaults.
type Config struct {
	// Operator is the only address allowed to register campaigns and toggle
	// their status. It is stored on the first start and can not change.
	Operator    common.Address
	ClaimAmount *big.Int
	MaxProofAge time.Duration
	ClockSkew   time.Duration
	// Deposits checks the on-chain payment backing a donation. Without it
	// only the operator can add funds.
	Deposits DepositVerifier
	// Events receives the ledger events, if not nil.
	Events *event.EventBus
	// PromRegistry receives the ledger metrics, if not nil.
	PromRegistry prometheus.Registerer
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Ledger is the sole mutator of the campaign store and the claim ledger.
type Ledger struct {
	stg        *storage.Storage
	verifier   aadhaar.Verifier
	transferer Transferer
	deposits   DepositVerifier

	operator    common.Address
	claimAmount *big.Int
	maxProofAge time.Duration
	clockSkew   time.Duration
	now         func() time.Time

	events  *event.EventBus
	metrics *ledgerMetrics

	// mu is the single writer boundary: mutations hold the write side,
	// queries the read side.
	mu sync.RWMutex
}

// New creates a Ledger over the storage provided. The operator address of
// the configuration is persisted on the first start; later starts must
// either configure the same operator or none.
func New(stg *storage.Storage, verifier aadhaar.Verifier, transferer Transferer, conf Config) (*Ledger, error) {
	if stg == nil || verifier == nil || transferer == nil {
		return nil, fmt.Errorf("storage, verifier and transferer are required")
	}
	l := &Ledger{
		stg:         stg,
		verifier:    verifier,
		transferer:  transferer,
		claimAmount: DefaultClaimAmount,
		maxProofAge: DefaultMaxProofAge,
		clockSkew:   DefaultClockSkew,
		now:         time.Now,
		deposits:    conf.Deposits,
		events:      conf.Events,
	}
	if conf.ClaimAmount != nil {
		if conf.ClaimAmount.Sign() <= 0 {
			return nil, fmt.Errorf("claim amount must be positive")
		}
		l.claimAmount = new(big.Int).Set(conf.ClaimAmount)
	}
	if conf.MaxProofAge > 0 {
		l.maxProofAge = conf.MaxProofAge
	}
	if conf.ClockSkew > 0 {
		l.clockSkew = conf.ClockSkew
	}
	if conf.Now != nil {
		l.now = conf.Now
	}

	stored, err := stg.Operator()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if conf.Operator == (common.Address{}) {
			return nil, fmt.Errorf("operator address is required")
		}
		if err := stg.SetOperator(conf.Operator); err != nil {
			return nil, fmt.Errorf("could not store operator: %w", err)
		}
		l.operator = conf.Operator
	case err != nil:
		return nil, fmt.Errorf("could not read operator: %w", err)
	case conf.Operator != (common.Address{}) && conf.Operator != stored:
		return nil, fmt.Errorf("configured operator %s does not match the stored one %s",
			conf.Operator.Hex(), stored.Hex())
	default:
		l.operator = stored
	}

	if conf.PromRegistry != nil {
		l.initMetrics(conf.PromRegistry)
		if campaigns, err := stg.Campaigns(); err == nil {
			l.metrics.campaigns.Set(float64(len(campaigns)))
			for _, c := range campaigns {
				l.updatePoolMetrics(c)
			}
		}
	}
	log.Infow("ledger ready",
		"operator", l.operator.Hex(),
		"claimAmount", types.FormatFunds(l.claimAmount),
		"maxProofAge", l.maxProofAge.String())
	return l, nil
}

// Operator returns the operator address.
func (l *Ledger) Operator() common.Address {
	return l.operator
}

// ClaimAmount returns the fixed amount paid per claim.
func (l *Ledger) ClaimAmount() *big.Int {
	return new(big.Int).Set(l.claimAmount)
}

// MaxProofAge returns the freshness window of the proofs.
func (l *Ledger) MaxProofAge() time.Duration {
	return l.maxProofAge
}

func (l *Ledger) publish(eventType event.EventType, data any) {
	if l.events == nil {
		return
	}
	l.events.Publish(event.NewEvent(eventType, data))
}

// campaign loads the campaign, translating storage.ErrNotFound.
func (l *Ledger) campaign(id types.CampaignID) (*types.Campaign, error) {
	c, err := l.stg.Campaign(id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCampaignNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("could not load campaign %s: %w", id, err)
	}
	return c, nil
}
