package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/aadhaar-relief/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

func testCampaign(id types.CampaignID, pincode uint64) *types.Campaign {
	return &types.Campaign{
		ID:              id,
		Name:            "Test Flood Relief",
		Description:     "Emergency relief fund for flood victims",
		RequiredPincode: pincode,
		TotalFunds:      types.NewInt(10_000_000_000_000_000),
		ClaimedFunds:    types.NewInt(0),
		Active:          true,
		CreatedAt:       time.Unix(1700000000, 123456789),
	}
}

func TestCampaigns(t *testing.T) {
	c := qt.New(t)
	tempDir := t.TempDir()

	database, err := metadb.New(db.TypePebble, filepath.Join(tempDir, "db"))
	c.Assert(err, qt.IsNil)
	st := New(database)
	defer st.Close()

	// Test 1: Get non-existent campaign
	campaign, err := st.Campaign(1)
	c.Assert(err, qt.Equals, ErrNotFound)
	c.Assert(campaign, qt.IsNil)

	next, err := st.NextCampaignID()
	c.Assert(err, qt.IsNil)
	c.Assert(next, qt.Equals, types.CampaignID(1))

	// Test 2: Store two campaigns atomically with their index entries
	b := st.NewBatch()
	for _, camp := range []*types.Campaign{testCampaign(1, 400001), testCampaign(2, 110001)} {
		c.Assert(b.SetCampaign(camp), qt.IsNil)
		c.Assert(b.IndexPincode(camp.RequiredPincode, camp.ID), qt.IsNil)
	}
	c.Assert(b.SetNextCampaignID(3), qt.IsNil)
	c.Assert(b.Commit(), qt.IsNil)

	campaign, err = st.Campaign(1)
	c.Assert(err, qt.IsNil)
	want := testCampaign(1, 400001)
	c.Assert(campaign.Name, qt.Equals, want.Name)
	c.Assert(campaign.RequiredPincode, qt.Equals, want.RequiredPincode)
	c.Assert(campaign.TotalFunds.Equal(want.TotalFunds), qt.IsTrue)
	c.Assert(campaign.ClaimedFunds.Sign(), qt.Equals, 0)
	c.Assert(campaign.Active, qt.IsTrue)
	c.Assert(campaign.CreatedAt.Equal(want.CreatedAt), qt.IsTrue)

	next, err = st.NextCampaignID()
	c.Assert(err, qt.IsNil)
	c.Assert(next, qt.Equals, types.CampaignID(3))

	// Test 3: List campaigns in id order
	campaigns, err := st.Campaigns()
	c.Assert(err, qt.IsNil)
	c.Assert(campaigns, qt.HasLen, 2)
	c.Assert(campaigns[0].ID, qt.Equals, types.CampaignID(1))
	c.Assert(campaigns[1].ID, qt.Equals, types.CampaignID(2))

	// Test 4: Pincode index
	ids, err := st.CampaignIDsByPincode(400001)
	c.Assert(err, qt.IsNil)
	c.Assert(ids, qt.DeepEquals, []types.CampaignID{1})
	ids, err = st.CampaignIDsByPincode(999999)
	c.Assert(err, qt.IsNil)
	c.Assert(ids, qt.HasLen, 0)
}

func TestBatchDiscard(t *testing.T) {
	c := qt.New(t)
	st := New(metadb.NewTest(t))

	b := st.NewBatch()
	c.Assert(b.SetCampaign(testCampaign(1, 400001)), qt.IsNil)
	c.Assert(b.SetNextCampaignID(2), qt.IsNil)
	b.Discard()

	_, err := st.Campaign(1)
	c.Assert(err, qt.Equals, ErrNotFound)
	next, err := st.NextCampaignID()
	c.Assert(err, qt.IsNil)
	c.Assert(next, qt.Equals, types.CampaignID(1))
}

func TestClaims(t *testing.T) {
	c := qt.New(t)
	st := New(metadb.NewTest(t))

	nullifier := types.NewInt(0xdeadbeef)
	_, err := st.ClaimRecord(1, nullifier.Bytes())
	c.Assert(err, qt.Equals, ErrNotFound)

	record := &types.ClaimRecord{
		CampaignID: 1,
		Nullifier:  nullifier,
		Recipient:  common.HexToAddress("0x71C7656EC7ab88b098defB751B7401B5f6d8976F"),
		Amount:     types.NewInt(1_000_000_000_000_000),
		Receipt:    "0xabc",
		ClaimedAt:  time.Unix(1700000100, 0),
	}
	b := st.NewBatch()
	c.Assert(b.SetClaim(record), qt.IsNil)
	c.Assert(b.SetClaim(&types.ClaimRecord{CampaignID: 2, Nullifier: nullifier, Amount: types.NewInt(1)}), qt.IsNil)
	c.Assert(b.Commit(), qt.IsNil)

	// the nullifier lookup does not depend on the byte length of the number
	got, err := st.ClaimRecord(1, common.LeftPadBytes(nullifier.Bytes(), NullifierLen))
	c.Assert(err, qt.IsNil)
	c.Assert(got.Recipient, qt.Equals, record.Recipient)
	c.Assert(got.Amount.Equal(record.Amount), qt.IsTrue)
	c.Assert(got.Nullifier.Equal(nullifier), qt.IsTrue)
	c.Assert(got.Receipt, qt.Equals, "0xabc")

	// claims are scoped by campaign
	claims, err := st.Claims(1)
	c.Assert(err, qt.IsNil)
	c.Assert(claims, qt.HasLen, 1)
	claims, err = st.Claims(2)
	c.Assert(err, qt.IsNil)
	c.Assert(claims, qt.HasLen, 1)
	claims, err = st.Claims(3)
	c.Assert(err, qt.IsNil)
	c.Assert(claims, qt.HasLen, 0)

	// rollback path
	b = st.NewBatch()
	c.Assert(b.DeleteClaim(1, nullifier.Bytes()), qt.IsNil)
	c.Assert(b.Commit(), qt.IsNil)
	_, err = st.ClaimRecord(1, nullifier.Bytes())
	c.Assert(err, qt.Equals, ErrNotFound)

	_, err = st.ClaimRecord(1, make([]byte, NullifierLen+1))
	c.Assert(err, qt.ErrorMatches, "nullifier too long.*")
}

func TestOperator(t *testing.T) {
	c := qt.New(t)
	st := New(metadb.NewTest(t))

	_, err := st.Operator()
	c.Assert(err, qt.Equals, ErrNotFound)

	op := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	c.Assert(st.SetOperator(op), qt.IsNil)
	got, err := st.Operator()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, op)
}

func TestDeposits(t *testing.T) {
	c := qt.New(t)
	st := New(metadb.NewTest(t))

	hash := common.HexToHash("0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060")
	_, err := st.Deposit(hash)
	c.Assert(err, qt.Equals, ErrNotFound)

	record := &types.DepositRecord{
		TxHash:     hash,
		CampaignID: 1,
		Donor:      common.HexToAddress("0x71C7656EC7ab88b098defB751B7401B5f6d8976F"),
		Amount:     types.NewInt(5_000_000_000_000_000),
		CreditedAt: time.Unix(1700000200, 0),
	}
	b := st.NewBatch()
	c.Assert(b.SetDeposit(record), qt.IsNil)
	c.Assert(b.Commit(), qt.IsNil)

	got, err := st.Deposit(hash)
	c.Assert(err, qt.IsNil)
	c.Assert(got.CampaignID, qt.Equals, types.CampaignID(1))
	c.Assert(got.Donor, qt.Equals, record.Donor)
	c.Assert(got.Amount.Equal(record.Amount), qt.IsTrue)

	b = st.NewBatch()
	c.Assert(b.SetDeposit(&types.DepositRecord{CampaignID: 1}), qt.ErrorMatches, "invalid deposit record")
	b.Discard()
}
