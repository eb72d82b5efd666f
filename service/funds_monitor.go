package service

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vocdoni/aadhaar-relief/log"
	"github.com/vocdoni/aadhaar-relief/types"
	"golang.org/x/sync/errgroup"
)

// DefaultFundsCheckInterval is the period of the hot wallet balance check.
const DefaultFundsCheckInterval = time.Minute

// WalletBalance returns the balance of the wallet paying the claims.
type WalletBalance interface {
	Balance(ctx context.Context) (*big.Int, error)
}

// PoolSource lists the campaigns whose pools the wallet must cover.
type PoolSource interface {
	Campaigns() ([]*types.Campaign, error)
}

// FundsStatus compares the hot wallet balance with the claimable balance of
// every campaign.
type FundsStatus struct {
	Balance     *big.Int
	Outstanding *big.Int
}

// Covered reports whether the wallet holds enough to pay every pool.
func (s *FundsStatus) Covered() bool {
	return s.Balance.Cmp(s.Outstanding) >= 0
}

type fundsMetrics struct {
	balance     prometheus.Gauge
	outstanding prometheus.Gauge
	covered     prometheus.Gauge
}

// FundsMonitor periodically checks that the hot wallet can pay every pool.
// Donations are credited to the pools by the ledger, so an uncovered wallet
// means the operator has to top it up.
type FundsMonitor struct {
	wallet   WalletBalance
	pools    PoolSource
	interval time.Duration
	metrics  *fundsMetrics
	mu       sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewFundsMonitor creates a FundsMonitor. If promRegistry is not nil the
// monitor registers its metrics there.
func NewFundsMonitor(wallet WalletBalance, pools PoolSource, interval time.Duration,
	promRegistry prometheus.Registerer,
) *FundsMonitor {
	if interval <= 0 {
		interval = DefaultFundsCheckInterval
	}
	fm := &FundsMonitor{
		wallet:   wallet,
		pools:    pools,
		interval: interval,
	}
	if promRegistry != nil {
		promautoFactory := promauto.With(promRegistry)
		fm.metrics = &fundsMetrics{
			balance: promautoFactory.NewGauge(prometheus.GaugeOpts{
				Name: "relief_hot_wallet_balance_eth",
				Help: "balance of the wallet paying the claims in ETH",
			}),
			outstanding: promautoFactory.NewGauge(prometheus.GaugeOpts{
				Name: "relief_outstanding_pools_eth",
				Help: "claimable balance of all the campaign pools in ETH",
			}),
			covered: promautoFactory.NewGauge(prometheus.GaugeOpts{
				Name: "relief_hot_wallet_covered",
				Help: "1 if the wallet balance covers every pool, 0 otherwise",
			}),
		}
	}
	return fm
}

// Start begins the periodic check. It returns an error if the service is
// already running.
func (fm *FundsMonitor) Start(ctx context.Context) error {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if fm.cancel != nil {
		return fmt.Errorf("service already running")
	}
	ctx, fm.cancel = context.WithCancel(ctx)
	fm.wg.Add(1)
	go fm.monitorFunds(ctx)
	return nil
}

// Stop halts the monitoring service and waits for the running check.
func (fm *FundsMonitor) Stop() {
	fm.mu.Lock()
	if fm.cancel != nil {
		fm.cancel()
		fm.cancel = nil
	}
	fm.mu.Unlock()
	fm.wg.Wait()
}

func (fm *FundsMonitor) monitorFunds(ctx context.Context) {
	defer fm.wg.Done()
	ticker := time.NewTicker(fm.interval)
	defer ticker.Stop()
	for {
		if _, err := fm.Check(ctx); err != nil && ctx.Err() == nil {
			log.Warnw("funds check failed", "error", err.Error())
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Check compares the wallet balance with the outstanding pools, updating the
// metrics and logging a warning when the wallet falls short.
func (fm *FundsMonitor) Check(ctx context.Context) (*FundsStatus, error) {
	var (
		balance   *big.Int
		campaigns []*types.Campaign
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		balance, err = fm.wallet.Balance(gctx)
		return err
	})
	g.Go(func() (err error) {
		if campaigns, err = fm.pools.Campaigns(); err != nil {
			return fmt.Errorf("could not list campaigns: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	status := &FundsStatus{Balance: balance, Outstanding: new(big.Int)}
	for _, c := range campaigns {
		status.Outstanding.Add(status.Outstanding, c.Available())
	}
	if fm.metrics != nil {
		fm.metrics.balance.Set(types.EtherFloat(status.Balance))
		fm.metrics.outstanding.Set(types.EtherFloat(status.Outstanding))
		covered := 0.0
		if status.Covered() {
			covered = 1
		}
		fm.metrics.covered.Set(covered)
	}
	if !status.Covered() {
		log.Warnw("hot wallet does not cover the campaign pools",
			"balance", types.FormatFunds(status.Balance),
			"outstanding", types.FormatFunds(status.Outstanding))
	}
	return status, nil
}
