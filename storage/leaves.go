package storage

import (
	"fmt"
	"math/big"

	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/zktoken/zktoken-core/merkle"
)

// SaveLeaf persists one tree leaf at its index.
func (s *Storage) SaveLeaf(index uint32, leaf *big.Int) error {
	return s.setArtifact(leafPrefix, uint32Key(index), leaf.Bytes())
}

// Leaves loads the full ordered leaf sequence. A gap in the sequence is an
// error: the mirror can only be rebuilt from a contiguous prefix.
func (s *Storage) Leaves() ([]*big.Int, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, leafPrefix)
	byIndex := map[uint32]*big.Int{}
	var max uint32
	var count uint32
	var iterErr error
	if err := rTx.Iterate(nil, func(k, v []byte) bool {
		if len(k) != 4 {
			iterErr = fmt.Errorf("malformed leaf key")
			return false
		}
		var raw []byte
		if err := decodeArtifact(v, &raw); err != nil {
			iterErr = err
			return false
		}
		idx := uint32(k[0])<<24 | uint32(k[1])<<16 | uint32(k[2])<<8 | uint32(k[3])
		byIndex[idx] = new(big.Int).SetBytes(raw)
		if idx >= max {
			max = idx
		}
		count++
		return true
	}); err != nil {
		return nil, err
	}
	if iterErr != nil {
		return nil, iterErr
	}
	if count == 0 {
		return nil, nil
	}
	if count != max+1 {
		return nil, fmt.Errorf("leaf sequence has gaps: %d leaves, max index %d", count, max)
	}
	leaves := make([]*big.Int, count)
	for i := range leaves {
		leaves[i] = byIndex[uint32(i)]
	}
	return leaves, nil
}

// RebuildTree replays the persisted leaf sequence into a fresh tree mirror.
func (s *Storage) RebuildTree() (*merkle.Tree, error) {
	leaves, err := s.Leaves()
	if err != nil {
		return nil, err
	}
	tree, err := merkle.NewTree()
	if err != nil {
		return nil, err
	}
	for _, leaf := range leaves {
		if _, _, err := tree.Insert(leaf); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

// SetLastBlock persists the scan cursor.
func (s *Storage) SetLastBlock(block uint64) error {
	return s.setArtifact(cursorPrefix, lastBlockKey, block)
}

// LastBlock loads the scan cursor. A missing cursor means zero.
func (s *Storage) LastBlock() (uint64, error) {
	var block uint64
	if err := s.getArtifact(cursorPrefix, lastBlockKey, &block); err != nil {
		if err == ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	return block, nil
}
