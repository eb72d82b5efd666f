package types

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestParseEther(t *testing.T) {
	c := qt.New(t)

	wei, err := ParseEther("0.001")
	c.Assert(err, qt.IsNil)
	c.Assert(wei.String(), qt.Equals, "1000000000000000")

	wei, err = ParseEther("2")
	c.Assert(err, qt.IsNil)
	c.Assert(wei.String(), qt.Equals, "2000000000000000000")

	_, err = ParseEther("-1")
	c.Assert(err, qt.ErrorMatches, "negative ether amount.*")
	_, err = ParseEther("0.0000000000000000001")
	c.Assert(err, qt.ErrorMatches, ".*more than 18 decimals")
	_, err = ParseEther("one")
	c.Assert(err, qt.ErrorMatches, "invalid ether amount.*")
}

func TestFormatFunds(t *testing.T) {
	c := qt.New(t)

	thirty, _ := new(big.Int).SetString("30000000000000000", 10)
	c.Assert(FormatFunds(thirty), qt.Equals, "0.0300 ETH")
	c.Assert(FormatEther(thirty), qt.Equals, "0.03")
	c.Assert(FormatEther(big.NewInt(0)), qt.Equals, "0")
	c.Assert(FormatFunds(big.NewInt(0)), qt.Equals, "0.0000 ETH")
	c.Assert(EtherFloat(thirty), qt.Equals, 0.03)
}

func TestCampaignID(t *testing.T) {
	c := qt.New(t)

	id := CampaignID(258)
	c.Assert(id.Marshal(), qt.DeepEquals, []byte{0, 0, 0, 0, 0, 0, 1, 2})

	var decoded CampaignID
	c.Assert(decoded.Unmarshal(id.Marshal()), qt.IsNil)
	c.Assert(decoded, qt.Equals, id)
	c.Assert(decoded.Unmarshal([]byte{1}), qt.ErrorMatches, "invalid CampaignID length: 1")

	parsed, err := ParseCampaignID("42")
	c.Assert(err, qt.IsNil)
	c.Assert(parsed, qt.Equals, CampaignID(42))
	_, err = ParseCampaignID("0")
	c.Assert(err, qt.ErrorMatches, ".*must be positive")
}

func TestCampaignAvailableAndCopy(t *testing.T) {
	c := qt.New(t)

	cmp := &Campaign{
		ID:           1,
		TotalFunds:   NewInt(30),
		ClaimedFunds: NewInt(1),
	}
	c.Assert(cmp.Available().String(), qt.Equals, "29")

	cp := cmp.Copy()
	cp.ClaimedFunds.SetUint64(30)
	c.Assert(cmp.ClaimedFunds.String(), qt.Equals, "1")
}
