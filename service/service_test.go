package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/vocdoni/aadhaar-relief/aadhaar"
	"github.com/vocdoni/aadhaar-relief/api"
	"github.com/vocdoni/aadhaar-relief/event"
	"github.com/vocdoni/aadhaar-relief/ledger"
	"github.com/vocdoni/aadhaar-relief/storage"
	"github.com/vocdoni/aadhaar-relief/types"
	"go.vocdoni.io/dvote/db/metadb"
)

var testOperator = common.HexToAddress("0x00000000000000000000000000000000000000a1")

func newTestLedger(t *testing.T, bus *event.EventBus) (*ledger.Ledger, *ledger.Vault) {
	t.Helper()
	vault := ledger.NewVault()
	l, err := ledger.New(storage.New(metadb.NewTest(t)), aadhaar.NewMockVerifier(true), vault,
		ledger.Config{Operator: testOperator, Events: bus})
	qt.Assert(t, err, qt.IsNil)
	return l, vault
}

func TestAPIService(t *testing.T) {
	c := qt.New(t)
	l, _ := newTestLedger(t, nil)

	// Port 0 lets the OS choose an available port
	apiService := NewAPI(&api.APIConfig{Host: "127.0.0.1", Port: 0, Ledger: l})
	ctx := context.Background()

	err := apiService.Start(ctx)
	c.Assert(err, qt.IsNil)
	defer apiService.Stop()

	host, port := apiService.HostPort()
	c.Assert(host, qt.Equals, "127.0.0.1")
	c.Assert(port, qt.Not(qt.Equals), 0)
	resp, err := http.Get(fmt.Sprintf("http://%s:%d%s", host, port, api.PingEndpoint))
	c.Assert(err, qt.IsNil)
	resp.Body.Close()
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

	// Test stopping and restarting
	apiService.Stop()
	_, port = apiService.HostPort()
	c.Assert(port, qt.Equals, 0)
	err = apiService.Start(ctx)
	c.Assert(err, qt.IsNil)

	// Test starting an already running service
	err = apiService.Start(ctx)
	c.Assert(err, qt.ErrorMatches, "service already running")
}

func TestActivityMonitor(t *testing.T) {
	c := qt.New(t)
	bus := event.NewEventBus(nil)
	defer bus.Stop()
	l, _ := newTestLedger(t, bus)

	monitor := NewActivityMonitor(bus, 3)
	c.Assert(monitor.Recent(10), qt.HasLen, 0)
	c.Assert(monitor.Start(context.Background()), qt.IsNil)
	c.Assert(monitor.Start(context.Background()), qt.ErrorMatches, "service already running")

	funds := big.NewInt(1_000_000_000_000_000)
	campaign, err := l.RegisterCampaign(testOperator, "Test Flood Relief", "", 400001, funds, funds)
	c.Assert(err, qt.IsNil)
	_, err = l.AddFunds(testOperator, campaign.ID, funds)
	c.Assert(err, qt.IsNil)

	// delivery is synchronous, events are there once the ledger returns
	recent := monitor.Recent(10)
	c.Assert(recent, qt.HasLen, 2)
	c.Assert(recent[0].Type, qt.Equals, event.FundsAddedEventType)
	c.Assert(recent[1].Type, qt.Equals, event.CampaignRegisteredEventType)

	// the ring keeps the newest events only
	for i := 0; i < 3; i++ {
		_, err = l.SetCampaignStatus(testOperator, campaign.ID, i%2 == 1)
		c.Assert(err, qt.IsNil)
	}
	recent = monitor.Recent(10)
	c.Assert(recent, qt.HasLen, 3)
	for _, evt := range recent {
		c.Assert(evt.Type, qt.Equals, event.CampaignStatusChangedEventType)
	}
	c.Assert(monitor.Recent(1), qt.HasLen, 1)

	// no events are recorded after stopping, the old ones are kept
	monitor.Stop()
	_, err = l.AddFunds(testOperator, campaign.ID, funds)
	c.Assert(err, qt.IsNil)
	recent = monitor.Recent(10)
	c.Assert(recent, qt.HasLen, 3)
	c.Assert(recent[0].Type, qt.Equals, event.CampaignStatusChangedEventType)
}

type fakeWallet struct {
	balance *big.Int
	err     error
}

func (w *fakeWallet) Balance(ctx context.Context) (*big.Int, error) {
	return w.balance, w.err
}

func TestFundsMonitor(t *testing.T) {
	c := qt.New(t)
	l, vault := newTestLedger(t, nil)
	funds := big.NewInt(5_000_000_000_000_000)
	_, err := l.RegisterCampaign(testOperator, "Test Flood Relief", "", 400001, funds, funds)
	c.Assert(err, qt.IsNil)

	// the vault always covers the pools
	reg := prometheus.NewRegistry()
	monitor := NewFundsMonitor(VaultWallet{Vault: vault}, l, time.Hour, reg)
	status, err := monitor.Check(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(status.Covered(), qt.IsTrue)
	c.Assert(status.Outstanding.Cmp(funds), qt.Equals, 0)
	c.Assert(testutil.ToFloat64(monitor.metrics.covered), qt.Equals, 1.0)
	c.Assert(testutil.ToFloat64(monitor.metrics.outstanding), qt.Equals, types.EtherFloat(funds))

	// a wallet short of funds
	wallet := &fakeWallet{balance: big.NewInt(1)}
	monitor = NewFundsMonitor(wallet, l, time.Hour, prometheus.NewRegistry())
	status, err = monitor.Check(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(status.Covered(), qt.IsFalse)
	c.Assert(testutil.ToFloat64(monitor.metrics.covered), qt.Equals, 0.0)

	wallet.err = errors.New("rpc down")
	_, err = monitor.Check(context.Background())
	c.Assert(err, qt.ErrorMatches, "rpc down")

	// the periodic loop
	c.Assert(monitor.Start(context.Background()), qt.IsNil)
	c.Assert(monitor.Start(context.Background()), qt.ErrorMatches, "service already running")
	monitor.Stop()
	monitor.Stop()
}
