// Package aadhaar models the Anon Aadhaar identity proofs a claimant hands to
// the ledger and the capability that verifies them. The ledger never looks at
// the cryptography: it asks a Verifier for a pass/fail answer and reads the
// revealed public fields from the assertion.
package aadhaar

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/aadhaar-relief/types"
)

const (
	// PackedProofLen is the number of field elements of a packed Groth16 proof.
	PackedProofLen = 8
	// NPublicSignals is the number of public inputs of the Anon Aadhaar
	// circuit.
	NPublicSignals = 9
)

// PackedGroth16Proof is a Groth16 proof in the packed layout used by the
// Anon Aadhaar SDK and the on-chain verifier:
// [a0, a1, b01, b00, b11, b10, c0, c1].
type PackedGroth16Proof [PackedProofLen]*types.BigInt

// ProofAssertion is the artifact produced by the external proving flow. It
// is consumed by a single claim and never persisted.
type ProofAssertion struct {
	NullifierSeed      *types.BigInt      `json:"nullifierSeed"`
	Nullifier          *types.BigInt      `json:"nullifier"`
	Timestamp          *types.BigInt      `json:"timestamp"`
	Signal             common.Address     `json:"signal"`
	RevealedAgeAbove18 *types.BigInt      `json:"ageAbove18"`
	RevealedGender     *types.BigInt      `json:"gender"`
	RevealedPincode    *types.BigInt      `json:"pincode"`
	RevealedState      *types.BigInt      `json:"state"`
	Proof              PackedGroth16Proof `json:"groth16Proof"`
}

// Time returns the proof timestamp as a time.Time.
func (a *ProofAssertion) Time() time.Time {
	ts := a.Timestamp.MathBigInt()
	if !ts.IsInt64() {
		return time.Time{}
	}
	return time.Unix(ts.Int64(), 0)
}

// Pincode returns the revealed pincode. The second value is false when the
// revealed field does not fit a pincode.
func (a *ProofAssertion) Pincode() (uint64, bool) {
	p := a.RevealedPincode.MathBigInt()
	if p.Sign() <= 0 || !p.IsUint64() {
		return 0, false
	}
	return p.Uint64(), true
}

// NullifierKey returns the nullifier as 32 big endian bytes, the form used
// to key claim records.
func (a *ProofAssertion) NullifierKey() []byte {
	return common.LeftPadBytes(a.Nullifier.Bytes(), 32)
}

// Validate checks the assertion is structurally sound: every field is
// present, every public signal is an element of the BN254 scalar field and
// every proof coordinate is an element of the BN254 base field.
func (a *ProofAssertion) Validate() error {
	signals := map[string]*types.BigInt{
		"nullifierSeed": a.NullifierSeed,
		"nullifier":     a.Nullifier,
		"timestamp":     a.Timestamp,
		"ageAbove18":    a.RevealedAgeAbove18,
		"gender":        a.RevealedGender,
		"pincode":       a.RevealedPincode,
		"state":         a.RevealedState,
	}
	for name, v := range signals {
		if v == nil {
			return fmt.Errorf("missing %s", name)
		}
		if !inScalarField(v.MathBigInt()) {
			return fmt.Errorf("%s out of the scalar field", name)
		}
	}
	for i, v := range a.Proof {
		if v == nil {
			return fmt.Errorf("missing proof element %d", i)
		}
		if v.Sign() < 0 || v.MathBigInt().Cmp(fp.Modulus()) >= 0 {
			return fmt.Errorf("proof element %d out of the base field", i)
		}
	}
	return nil
}

// PublicSignals returns the public inputs of the circuit in the order the
// verification key expects them: pubKeyHash, nullifier, timestamp,
// ageAbove18, gender, pincode, state, nullifierSeed, signalHash.
func (a *ProofAssertion) PublicSignals(pubKeyHash *big.Int) []*big.Int {
	return []*big.Int{
		pubKeyHash,
		a.Nullifier.MathBigInt(),
		a.Timestamp.MathBigInt(),
		a.RevealedAgeAbove18.MathBigInt(),
		a.RevealedGender.MathBigInt(),
		a.RevealedPincode.MathBigInt(),
		a.RevealedState.MathBigInt(),
		a.NullifierSeed.MathBigInt(),
		SignalHash(a.Signal),
	}
}

// CircomJSON returns the proof in the snarkjs JSON format.
func (p PackedGroth16Proof) CircomJSON() ([]byte, error) {
	for i, v := range p {
		if v == nil {
			return nil, fmt.Errorf("missing proof element %d", i)
		}
	}
	return json.Marshal(map[string]any{
		"pi_a": []string{p[0].String(), p[1].String(), "1"},
		"pi_b": [][]string{
			{p[3].String(), p[2].String()},
			{p[5].String(), p[4].String()},
			{"1", "0"},
		},
		"pi_c":     []string{p[6].String(), p[7].String(), "1"},
		"protocol": "groth16",
		"curve":    "bn128",
	})
}

// SignalHash computes the hash the circuit binds the signal to:
// keccak256(uint256(signal)) >> 3, which always fits the scalar field.
func SignalHash(signal common.Address) *big.Int {
	h := ethcrypto.Keccak256(common.LeftPadBytes(signal.Bytes(), 32))
	return new(big.Int).Rsh(new(big.Int).SetBytes(h), 3)
}

func inScalarField(v *big.Int) bool {
	return v.Sign() >= 0 && v.Cmp(fr.Modulus()) < 0
}
