package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/aadhaar-relief/aadhaar"
	"github.com/vocdoni/aadhaar-relief/config"
	"github.com/vocdoni/aadhaar-relief/ledger"
	"github.com/vocdoni/aadhaar-relief/storage"
	"go.vocdoni.io/dvote/db/metadb"
)

func TestKeygen(t *testing.T) {
	c := qt.New(t)
	cmd := keygenCommand()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetArgs([]string{})
	c.Assert(cmd.Execute(), qt.IsNil)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	c.Assert(lines, qt.HasLen, 2)
	addr := strings.TrimPrefix(lines[0], "address: ")
	c.Assert(common.IsHexAddress(addr), qt.IsTrue)
	c.Assert(strings.TrimPrefix(lines[1], "private key: "), qt.HasLen, 64)
}

func TestSignalHashCommand(t *testing.T) {
	c := qt.New(t)
	addr := "0x1000000000000000000000000000000000000001"
	cmd := signalHashCommand()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{addr})
	c.Assert(cmd.Execute(), qt.IsNil)
	c.Assert(strings.TrimSpace(out.String()), qt.Equals, aadhaar.SignalHash(common.HexToAddress(addr)).String())

	cmd.SetArgs([]string{"not-an-address"})
	c.Assert(cmd.Execute(), qt.ErrorMatches, "invalid address.*")
}

func TestBootstrapTestCampaign(t *testing.T) {
	c := qt.New(t)
	vault := ledger.NewVault()
	l, err := ledger.New(storage.New(metadb.NewTest(t)), aadhaar.NewMockVerifier(true), vault,
		ledger.Config{Operator: common.HexToAddress("0x1000000000000000000000000000000000000001")})
	c.Assert(err, qt.IsNil)

	c.Assert(bootstrapTestCampaign(l), qt.IsNil)
	// a second run leaves the ledger untouched
	c.Assert(bootstrapTestCampaign(l), qt.IsNil)

	campaigns, err := l.Campaigns()
	c.Assert(err, qt.IsNil)
	c.Assert(campaigns, qt.HasLen, 1)
	c.Assert(campaigns[0].Name, qt.Equals, testCampaignName)
	c.Assert(campaigns[0].RequiredPincode, qt.Equals, uint64(testCampaignPincode))
	c.Assert(campaigns[0].TotalFunds.String(), qt.Equals, "10000000000000000")
	c.Assert(vault.Balance().String(), qt.Equals, "10000000000000000")
}

func TestOpenMemoryDatabase(t *testing.T) {
	c := qt.New(t)
	cfg := config.Default()
	cfg.DBType = config.DBTypeMemory
	database, err := openDatabase(cfg)
	c.Assert(err, qt.IsNil)
	stg := storage.New(database)
	defer stg.Close()
	_, err = stg.Operator()
	c.Assert(err, qt.ErrorIs, storage.ErrNotFound)
}

func TestSeedVaultOnRestart(t *testing.T) {
	c := qt.New(t)
	stg := storage.New(metadb.NewTest(t))
	operator := common.HexToAddress("0x1000000000000000000000000000000000000001")
	claimant := common.HexToAddress("0x71C7656EC7ab88b098defB751B7401B5f6d8976F")

	// first run: a campaign is funded and one claim is paid
	l, err := ledger.New(stg, aadhaar.NewMockVerifier(true), ledger.NewVault(), ledger.Config{Operator: operator})
	c.Assert(err, qt.IsNil)
	c.Assert(bootstrapTestCampaign(l), qt.IsNil)
	_, err = l.ClaimFunds(context.Background(), claimant, 1, aadhaar.MockAssertion(claimant, testCampaignPincode, time.Now()))
	c.Assert(err, qt.IsNil)

	// restart over the same storage with an empty vault
	vault := ledger.NewVault()
	l, err = ledger.New(stg, aadhaar.NewMockVerifier(true), vault, ledger.Config{})
	c.Assert(err, qt.IsNil)
	c.Assert(seedVault(vault, l), qt.IsNil)
	c.Assert(vault.Balance().String(), qt.Equals, "9000000000000000")

	// the restarted node keeps paying claims
	other := common.HexToAddress("0x00000000000000000000000000000000000000c2")
	_, err = l.ClaimFunds(context.Background(), other, 1, aadhaar.MockAssertion(other, testCampaignPincode, time.Now()))
	c.Assert(err, qt.IsNil)
	c.Assert(vault.Paid(other).Cmp(ledger.DefaultClaimAmount), qt.Equals, 0)

	// an empty ledger leaves the vault untouched
	empty, err := ledger.New(storage.New(metadb.NewTest(t)), aadhaar.NewMockVerifier(true), ledger.NewVault(),
		ledger.Config{Operator: operator})
	c.Assert(err, qt.IsNil)
	fresh := ledger.NewVault()
	c.Assert(seedVault(fresh, empty), qt.IsNil)
	c.Assert(fresh.Balance().Sign(), qt.Equals, 0)
}
