package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/aadhaar-relief/types"
)

// Deposit retrieves the record of the deposit transaction. It returns nil
// and ErrNotFound if the deposit has not been credited.
func (s *Storage) Deposit(txHash common.Hash) (*types.DepositRecord, error) {
	r := &types.DepositRecord{}
	if err := s.getArtifact(depositPrefix, txHash.Bytes(), r); err != nil {
		return nil, err
	}
	return r, nil
}

// SetDeposit adds the deposit record to the batch.
func (b *Batch) SetDeposit(r *types.DepositRecord) error {
	if r == nil || r.TxHash == (common.Hash{}) {
		return fmt.Errorf("invalid deposit record")
	}
	return b.set(depositPrefix, r.TxHash.Bytes(), r)
}
