// Package merkle mirrors the on-chain incremental note commitment tree. It is
// an append-only, fixed-depth binary tree hashed with the two-input Poseidon,
// reproducing the contract's filled-subtrees insertion algorithm so that both
// sides compute identical roots for identical leaf sequences.
package merkle

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/zktoken/zktoken-core/crypto/hash/poseidon"
	"github.com/zktoken/zktoken-core/types"
)

// Depth is the fixed height of the tree.
const Depth = types.TreeDepth

var (
	// ErrTreeFull is returned when inserting into a tree with 2^Depth leaves.
	ErrTreeFull = errors.New("merkle tree is full")
	// ErrPathInvalid is returned when a path does not fold to the given root.
	ErrPathInvalid = errors.New("merkle path does not match root")
	// ErrIndexOutOfRange is returned when extracting a path for an index that
	// has not been inserted.
	ErrIndexOutOfRange = errors.New("leaf index out of range")
)

// Path is an inclusion proof: the siblings bottom-up and the LSB-first bit
// decomposition of the leaf index.
type Path struct {
	Root      *big.Int
	Elements  [Depth]*big.Int
	Indices   [Depth]uint8
	LeafIndex uint32
}

// Tree holds the client-side mirror state. Mutations are serialized; readers
// take the read lock.
type Tree struct {
	mtx sync.RWMutex
	// zeros[i] is the hash of an empty subtree of height i.
	zeros [Depth + 1]*big.Int
	// filled[i] is the rightmost filled subtree hash at level i, as in the
	// on-chain contract.
	filled [Depth]*big.Int
	// levels[0] are the leaves; levels[i+1] the parents of levels[i]. Kept so
	// path extraction is a plain sibling lookup.
	levels [Depth + 1][]*big.Int
	// roots is a ring of the most recent roots, mirroring the window the
	// verifier accepts.
	roots     [types.RootHistorySize]*big.Int
	rootIdx   int
	nextIndex uint32
}

// NewTree builds an empty tree, precomputing the zero-subtree table
// zero[i] = Poseidon2(zero[i-1], zero[i-1]) from zero[0] = 0.
func NewTree() (*Tree, error) {
	t := &Tree{}
	t.zeros[0] = big.NewInt(0)
	for i := 1; i <= Depth; i++ {
		h, err := poseidon.Hash2(t.zeros[i-1], t.zeros[i-1])
		if err != nil {
			return nil, err
		}
		t.zeros[i] = h
	}
	for i := 0; i < Depth; i++ {
		t.filled[i] = t.zeros[i]
	}
	t.roots[0] = t.zeros[Depth]
	return t, nil
}

// Insert appends a leaf and returns its assigned index and the new root.
// It walks Depth levels: at an even position the current hash becomes the
// stored left sibling and pairs with the level's zero value; at an odd
// position it pairs with the stored left sibling. O(Depth) hashes, no path
// material stored beyond the level cache.
func (t *Tree) Insert(leaf *big.Int) (uint32, *big.Int, error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.nextIndex >= types.TreeCapacity {
		return 0, nil, ErrTreeFull
	}
	index := t.nextIndex
	current := new(big.Int).Set(leaf)
	idx := index
	t.setNode(0, index, current)
	for lvl := 0; lvl < Depth; lvl++ {
		var left, right *big.Int
		if idx%2 == 0 {
			t.filled[lvl] = current
			left, right = current, t.zeros[lvl]
		} else {
			left, right = t.filled[lvl], current
		}
		parent, err := poseidon.Hash2(left, right)
		if err != nil {
			return 0, nil, err
		}
		idx /= 2
		current = parent
		t.setNode(lvl+1, idx, current)
	}
	t.nextIndex++
	t.rootIdx = (t.rootIdx + 1) % types.RootHistorySize
	t.roots[t.rootIdx] = current
	return index, new(big.Int).Set(current), nil
}

func (t *Tree) setNode(lvl int, idx uint32, v *big.Int) {
	nodes := t.levels[lvl]
	for uint32(len(nodes)) <= idx {
		nodes = append(nodes, nil)
	}
	nodes[idx] = v
	t.levels[lvl] = nodes
}

// Root returns the current root.
func (t *Tree) Root() *big.Int {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return new(big.Int).Set(t.roots[t.rootIdx])
}

// KnownRoot reports whether root is within the accepted recent-root window.
func (t *Tree) KnownRoot(root *big.Int) bool {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	for _, r := range t.roots {
		if r != nil && r.Cmp(root) == 0 {
			return true
		}
	}
	return false
}

// Size returns the number of inserted leaves.
func (t *Tree) Size() uint32 {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return t.nextIndex
}

// Leaf returns the leaf value at index.
func (t *Tree) Leaf(index uint32) (*big.Int, error) {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	if index >= t.nextIndex {
		return nil, ErrIndexOutOfRange
	}
	return new(big.Int).Set(t.levels[0][index]), nil
}

// Path extracts the inclusion path of the leaf at index against the current
// root. The sibling at each level is the cached node when it exists and the
// level's zero value otherwise; the indices are the bit decomposition of the
// index, least significant bit first.
func (t *Tree) Path(index uint32) (*Path, error) {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	if index >= t.nextIndex {
		return nil, ErrIndexOutOfRange
	}
	p := &Path{
		Root:      new(big.Int).Set(t.roots[t.rootIdx]),
		LeafIndex: index,
	}
	idx := index
	for lvl := 0; lvl < Depth; lvl++ {
		sib := idx ^ 1
		if uint32(len(t.levels[lvl])) > sib && t.levels[lvl][sib] != nil {
			p.Elements[lvl] = new(big.Int).Set(t.levels[lvl][sib])
		} else {
			p.Elements[lvl] = new(big.Int).Set(t.zeros[lvl])
		}
		p.Indices[lvl] = uint8(idx & 1)
		idx >>= 1
	}
	return p, nil
}

// Verify folds leaf up through the path and compares against root. A nil
// root means the tree's current root.
func (t *Tree) Verify(leaf *big.Int, path *Path, root *big.Int) error {
	if root == nil {
		root = t.Root()
	}
	folded, err := FoldPath(leaf, path)
	if err != nil {
		return err
	}
	if folded.Cmp(root) != 0 {
		return ErrPathInvalid
	}
	return nil
}

// FoldPath recomputes the root implied by leaf and path.
func FoldPath(leaf *big.Int, path *Path) (*big.Int, error) {
	current := new(big.Int).Set(leaf)
	for lvl := 0; lvl < Depth; lvl++ {
		var err error
		switch path.Indices[lvl] {
		case 0:
			current, err = poseidon.Hash2(current, path.Elements[lvl])
		case 1:
			current, err = poseidon.Hash2(path.Elements[lvl], current)
		default:
			return nil, fmt.Errorf("path index at level %d is not a bit", lvl)
		}
		if err != nil {
			return nil, err
		}
	}
	return current, nil
}
