// storage package persists the relief ledger state in a prefixed key-value
// store. The following prefixes are used:
//   - 'm/' for ledger metadata (next campaign id, operator)
//   - 'c/' for campaigns, keyed by their 8 bytes identifier
//   - 'pc/' for the pincode index (pincode + campaign id)
//   - 'cl/' for claim records (campaign id + 32 bytes nullifier)
//   - 'dp/' for the on-chain deposits credited to campaigns (tx hash)
//
// Every record is CBOR encoded. Mutations of a single ledger operation are
// grouped in a Batch and committed atomically.
package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vocdoni/aadhaar-relief/log"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	// Prefixes for the keys in the database.
	metadataPrefix = []byte("m/")
	campaignPrefix = []byte("c/")
	pincodePrefix  = []byte("pc/")
	claimPrefix    = []byte("cl/")
	depositPrefix  = []byte("dp/")

	nextCampaignIDKey = []byte("nextCampaignId")
	operatorKey       = []byte("operator")
)

// ErrNotFound is returned when the requested artifact does not exist.
var ErrNotFound = errors.New("not found")

// Storage wraps the database and exposes typed accessors for the ledger
// artifacts.
type Storage struct {
	db db.Database
	// closeOnce guards the database close, so the storage can be shared by
	// several services.
	closeOnce sync.Once
}

// New creates a new Storage instance.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the storage.
func (s *Storage) Close() {
	s.closeOnce.Do(func() {
		if err := s.db.Close(); err != nil {
			log.Warnw("error closing database", "error", err.Error())
		}
	})
}

// getArtifact reads and decodes the artifact stored under prefix+key into
// out. It returns ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	pr := prefixeddb.NewPrefixedReader(s.db, prefix)
	data, err := pr.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get artifact: %w", err)
	}
	if err := decodeArtifact(data, out); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	return nil
}

// setArtifact encodes and stores a single artifact in its own transaction.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, data); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// iterateArtifacts calls fn for every artifact under prefix+subPrefix. The
// key passed to fn has both prefixes removed and, like the value, is a copy
// that the callback may retain. Iteration stops when fn returns false.
func (s *Storage) iterateArtifacts(prefix, subPrefix []byte, fn func(k, v []byte) bool) error {
	pr := prefixeddb.NewPrefixedReader(s.db, prefix)
	return pr.Iterate(subPrefix, func(k, v []byte) bool {
		return fn(append([]byte(nil), k...), append([]byte(nil), v...))
	})
}

// Batch groups writes across prefixes so they are committed atomically.
type Batch struct {
	tx db.WriteTx
}

// NewBatch opens a new write batch. The caller must call Commit or Discard.
func (s *Storage) NewBatch() *Batch {
	return &Batch{tx: s.db.WriteTx()}
}

func (b *Batch) set(prefix, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	return b.tx.Set(prefixedKey(prefix, key), data)
}

func (b *Batch) delete(prefix, key []byte) error {
	return b.tx.Delete(prefixedKey(prefix, key))
}

// Commit writes all the batched changes atomically.
func (b *Batch) Commit() error {
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Discard drops all the batched changes.
func (b *Batch) Discard() {
	b.tx.Discard()
}
