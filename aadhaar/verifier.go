package aadhaar

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/vocdoni/aadhaar-relief/log"
	"github.com/vocdoni/circom2gnark/parser"
)

var (
	// ErrMalformedAssertion is returned when the assertion can not be decoded
	// into circuit inputs.
	ErrMalformedAssertion = errors.New("malformed proof assertion")
	// ErrInvalidProof is returned when the proof does not verify.
	ErrInvalidProof = errors.New("invalid proof")
)

// Verifier is the proof verification capability used by the ledger. Verify
// returns nil only if the proof is valid for the public fields carried by
// the assertion.
type Verifier interface {
	Verify(ctx context.Context, assertion *ProofAssertion) error
}

// Groth16Verifier verifies Anon Aadhaar Groth16 proofs over BN254 against a
// snarkjs verification key, converting them to gnark with circom2gnark.
type Groth16Verifier struct {
	vkey       []byte
	pubKeyHash *big.Int
}

// NewGroth16Verifier creates a verifier for the verification key provided
// (snarkjs JSON). The pubKeyHash is the hash of the issuer public key the
// circuit commits to; proofs signed by any other key are rejected.
func NewGroth16Verifier(vkey []byte, pubKeyHash *big.Int) (*Groth16Verifier, error) {
	if len(vkey) == 0 {
		return nil, fmt.Errorf("empty verification key")
	}
	if pubKeyHash == nil || !inScalarField(pubKeyHash) {
		return nil, fmt.Errorf("invalid issuer public key hash")
	}
	if _, err := parser.UnmarshalCircomVerificationKeyJSON(vkey); err != nil {
		return nil, fmt.Errorf("could not parse verification key: %w", err)
	}
	return &Groth16Verifier{
		vkey:       vkey,
		pubKeyHash: new(big.Int).Set(pubKeyHash),
	}, nil
}

// NewGroth16VerifierFromFile reads the verification key from path.
func NewGroth16VerifierFromFile(path string, pubKeyHash *big.Int) (*Groth16Verifier, error) {
	vkey, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read verification key: %w", err)
	}
	return NewGroth16Verifier(vkey, pubKeyHash)
}

// NewGroth16VerifierFromArtifact fetches the verification key artifact,
// using dir as the cache, and creates the verifier with it.
func NewGroth16VerifierFromArtifact(ctx context.Context, vkey *Artifact, dir string,
	pubKeyHash *big.Int,
) (*Groth16Verifier, error) {
	if err := vkey.Fetch(ctx, dir); err != nil {
		return nil, fmt.Errorf("could not fetch verification key: %w", err)
	}
	return NewGroth16Verifier(vkey.Content, pubKeyHash)
}

// Verify implements Verifier.
func (v *Groth16Verifier) Verify(ctx context.Context, a *ProofAssertion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("%w: nil assertion", ErrMalformedAssertion)
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedAssertion, err)
	}
	proofJSON, err := a.Proof.CircomJSON()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedAssertion, err)
	}
	circomProof, err := parser.UnmarshalCircomProofJSON(proofJSON)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedAssertion, err)
	}
	signals := a.PublicSignals(v.pubKeyHash)
	pubSignals := make([]string, len(signals))
	for i, s := range signals {
		pubSignals[i] = s.String()
	}
	vkData, err := parser.UnmarshalCircomVerificationKeyJSON(v.vkey)
	if err != nil {
		return fmt.Errorf("could not parse verification key: %w", err)
	}
	gnarkProof, err := parser.ConvertCircomToGnark(circomProof, vkData, pubSignals)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedAssertion, err)
	}
	ok, err := parser.VerifyProof(gnarkProof)
	if err != nil {
		log.Debugw("groth16 verification error", "nullifier", a.Nullifier.String(), "error", err.Error())
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if !ok {
		return ErrInvalidProof
	}
	return nil
}
