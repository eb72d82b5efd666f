package aadhaar

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/aadhaar-relief/types"
)

// testdata/vkey.json is a nine input Groth16 key over BN254 built from a
// known setup, and testdata/claim.json carries a proof for it together with
// the issuer key hash it was produced for.
type claimFixture struct {
	PubKeyHash *types.BigInt   `json:"pubKeyHash"`
	Assertion  *ProofAssertion `json:"assertion"`
}

func loadVerifierFixture(c *qt.C) (*Groth16Verifier, *claimFixture) {
	var fixture claimFixture
	data, err := os.ReadFile("testdata/claim.json")
	c.Assert(err, qt.IsNil)
	c.Assert(json.Unmarshal(data, &fixture), qt.IsNil)

	v, err := NewGroth16VerifierFromFile("testdata/vkey.json", fixture.PubKeyHash.MathBigInt())
	c.Assert(err, qt.IsNil)
	return v, &fixture
}

func TestGroth16VerifierValidProof(t *testing.T) {
	c := qt.New(t)
	v, fixture := loadVerifierFixture(c)
	c.Assert(v.Verify(context.Background(), fixture.Assertion), qt.IsNil)

	pincode, ok := fixture.Assertion.Pincode()
	c.Assert(ok, qt.IsTrue)
	c.Assert(pincode, qt.Equals, uint64(400001))
	c.Assert(fixture.Assertion.Signal, qt.Equals, testSignal)
}

func TestGroth16VerifierTamperedSignals(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		tamper func(a *ProofAssertion)
	}{
		{"pincode", func(a *ProofAssertion) { a.RevealedPincode = types.NewInt(110001) }},
		{"signal", func(a *ProofAssertion) { a.Signal = common.HexToAddress("0x0000000000000000000000000000000000000001") }},
		{"nullifier", func(a *ProofAssertion) {
			a.Nullifier = (*types.BigInt)(new(big.Int).Add(a.Nullifier.MathBigInt(), big.NewInt(1)))
		}},
		{"timestamp", func(a *ProofAssertion) {
			a.Timestamp = (*types.BigInt)(new(big.Int).Add(a.Timestamp.MathBigInt(), big.NewInt(60)))
		}},
		{"ageAbove18", func(a *ProofAssertion) { a.RevealedAgeAbove18 = types.NewInt(0) }},
	}
	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			v, fixture := loadVerifierFixture(c)
			tt.tamper(fixture.Assertion)
			err := v.Verify(ctx, fixture.Assertion)
			c.Assert(errors.Is(err, ErrInvalidProof), qt.IsTrue, qt.Commentf("got %v", err))
		})
	}

	c.Run("issuer key", func(c *qt.C) {
		_, fixture := loadVerifierFixture(c)
		other := new(big.Int).Add(fixture.PubKeyHash.MathBigInt(), big.NewInt(1))
		v, err := NewGroth16VerifierFromFile("testdata/vkey.json", other)
		c.Assert(err, qt.IsNil)
		err = v.Verify(ctx, fixture.Assertion)
		c.Assert(errors.Is(err, ErrInvalidProof), qt.IsTrue, qt.Commentf("got %v", err))
	})
}

func TestGroth16VerifierMalformedProof(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("off curve", func(c *qt.C) {
		v, fixture := loadVerifierFixture(c)
		ax := fixture.Assertion.Proof[0].MathBigInt()
		fixture.Assertion.Proof[0] = (*types.BigInt)(new(big.Int).Add(ax, big.NewInt(1)))
		err := v.Verify(ctx, fixture.Assertion)
		c.Assert(errors.Is(err, ErrMalformedAssertion), qt.IsTrue, qt.Commentf("got %v", err))
	})

	c.Run("missing element", func(c *qt.C) {
		v, fixture := loadVerifierFixture(c)
		fixture.Assertion.Proof[4] = nil
		err := v.Verify(ctx, fixture.Assertion)
		c.Assert(errors.Is(err, ErrMalformedAssertion), qt.IsTrue, qt.Commentf("got %v", err))
	})

	c.Run("state out of field", func(c *qt.C) {
		v, fixture := loadVerifierFixture(c)
		fixture.Assertion.RevealedState = (*types.BigInt)(new(big.Int).Lsh(big.NewInt(1), 255))
		err := v.Verify(ctx, fixture.Assertion)
		c.Assert(errors.Is(err, ErrMalformedAssertion), qt.IsTrue, qt.Commentf("got %v", err))
	})
}
