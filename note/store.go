package note

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Store is the in-memory note set, partitioned by token address and indexed
// by nullifier for O(1) lookups on spend-side events. A single writer
// mutates it; readers operate on snapshots.
type Store struct {
	mtx         sync.RWMutex
	byToken     map[common.Address][]*Note
	byNullifier map[string]*Note
}

// NewStore creates an empty note store.
func NewStore() *Store {
	return &Store{
		byToken:     make(map[common.Address][]*Note),
		byNullifier: make(map[string]*Note),
	}
}

// Save adds a note to the store. Finalized notes are also indexed by their
// nullifier. Notes are never removed; spent notes are retained for audit and
// recovery.
func (s *Store) Save(n *Note) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.byToken[n.Token] = append(s.byToken[n.Token], n)
	if n.LeafIndex >= 0 {
		nf, err := n.Nullifier()
		if err != nil {
			return err
		}
		s.byNullifier[nf.String()] = n
	}
	return nil
}

// All returns a snapshot of every note for the given token.
func (s *Store) All(token common.Address) []*Note {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	notes := make([]*Note, len(s.byToken[token]))
	copy(notes, s.byToken[token])
	return notes
}

// Unspent returns a snapshot of the finalized, unspent notes for the token.
func (s *Store) Unspent(token common.Address) []*Note {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	var notes []*Note
	for _, n := range s.byToken[token] {
		if !n.Spent && n.LeafIndex >= 0 {
			notes = append(notes, n)
		}
	}
	return notes
}

// Balance sums the unspent amounts of the token.
func (s *Store) Balance(token common.Address) *big.Int {
	total := new(big.Int)
	for _, n := range s.Unspent(token) {
		total.Add(total, n.Amount)
	}
	return total
}

// MarkSpent flags the note matching the nullifier as spent. It reports
// whether a note was found. The engine invokes it when the nullifier is
// observed on-chain, and also optimistically at local submission, where a
// chain rejection is undone with Unspend.
func (s *Store) MarkSpent(nullifier *big.Int) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	n, ok := s.byNullifier[nullifier.String()]
	if !ok {
		return false
	}
	n.Spent = true
	return true
}

// Unspend clears the spent flag of the note matching the nullifier, used when
// an optimistic local spend is rejected by the chain. It reports whether a
// note was found.
func (s *Store) Unspend(nullifier *big.Int) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	n, ok := s.byNullifier[nullifier.String()]
	if !ok {
		return false
	}
	n.Spent = false
	return true
}

// ByNullifier returns the note matching the nullifier, if any.
func (s *Store) ByNullifier(nullifier *big.Int) (*Note, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	n, ok := s.byNullifier[nullifier.String()]
	return n, ok
}
