package storage

import (
	"github.com/ethereum/go-ethereum/common"
)

// Operator returns the operator address stored on the first start of the
// ledger. It returns ErrNotFound if none was stored yet.
func (s *Storage) Operator() (common.Address, error) {
	var addr []byte
	if err := s.getArtifact(metadataPrefix, operatorKey, &addr); err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(addr), nil
}

// SetOperator stores the operator address.
func (s *Storage) SetOperator(addr common.Address) error {
	return s.setArtifact(metadataPrefix, operatorKey, addr.Bytes())
}
