// Package storage persists the wallet's recoverable state: note records, the
// ordered leaf sequence of the tree mirror, and the scan cursor. It is a
// prefixed key-value layout over the dvote database abstraction. The
// following prefixes are used:
//   - 'n/' for note records, keyed by note commitment
//   - 'l/' for tree leaves, keyed by big-endian leaf index
//   - 'c/' for cursors (scan height)
//
// The in-memory structures remain the source of truth at runtime; this
// package only makes them durable across restarts.
package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	notePrefix   = []byte("n/")
	leafPrefix   = []byte("l/")
	cursorPrefix = []byte("c/")

	lastBlockKey = []byte("lastBlock")
)

// ErrNotFound is returned when the requested artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// Storage wraps the database with the wallet's artifact spaces.
type Storage struct {
	db db.Database
}

// New creates a new Storage instance over the given database.
func New(database db.Database) *Storage {
	return &Storage{db: database}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		panic(err)
	}
}

func encodeArtifact(a any) ([]byte, error) {
	encOpts := cbor.CoreDetEncOptions()
	em, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return em.Marshal(a)
}

func decodeArtifact(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}

func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, data); err != nil {
		return err
	}
	return wTx.Commit()
}

func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	rTx := prefixeddb.NewPrefixedReader(s.db, prefix)
	data, err := rTx.Get(key)
	if err != nil {
		return ErrNotFound
	}
	return decodeArtifact(data, out)
}

func uint32Key(i uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, i)
	return key
}
