package aadhaar

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/aadhaar-relief/types"
	"github.com/vocdoni/aadhaar-relief/util"
)

// MockVerifier is a Verifier with deterministic answers, meant for tests and
// development deployments. It accepts every structurally valid assertion
// unless configured to reject all of them or a specific nullifier.
type MockVerifier struct {
	mu       sync.Mutex
	accept   bool
	rejected map[string]struct{}
	calls    int
}

// NewMockVerifier returns a MockVerifier that accepts (or rejects) every
// assertion.
func NewMockVerifier(accept bool) *MockVerifier {
	return &MockVerifier{
		accept:   accept,
		rejected: make(map[string]struct{}),
	}
}

// Reject makes the verifier fail every assertion carrying the nullifier.
func (m *MockVerifier) Reject(nullifier *types.BigInt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[nullifier.String()] = struct{}{}
}

// Calls returns how many times Verify was called.
func (m *MockVerifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Verify implements Verifier.
func (m *MockVerifier) Verify(ctx context.Context, a *ProofAssertion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := ctx.Err(); err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("%w: nil assertion", ErrMalformedAssertion)
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedAssertion, err)
	}
	if !m.accept {
		return ErrInvalidProof
	}
	if _, ok := m.rejected[a.Nullifier.String()]; ok {
		return ErrInvalidProof
	}
	return nil
}

// MockAssertion builds a well formed assertion with a random nullifier and
// a dummy proof, bound to the signal, pincode and timestamp provided.
func MockAssertion(signal common.Address, pincode uint64, ts time.Time) *ProofAssertion {
	proof := PackedGroth16Proof{}
	for i := range proof {
		proof[i] = types.NewInt(int64(i + 1))
	}
	return &ProofAssertion{
		NullifierSeed:      types.NewInt(1234),
		Nullifier:          types.NewBigInt(util.RandomBigInt(fr.Modulus())),
		Timestamp:          types.NewBigInt(big.NewInt(ts.Unix())),
		Signal:             signal,
		RevealedAgeAbove18: types.NewInt(1),
		RevealedGender:     types.NewInt(77),
		RevealedPincode:    new(types.BigInt).SetUint64(pincode),
		RevealedState:      types.NewInt(1),
		Proof:              proof,
	}
}
