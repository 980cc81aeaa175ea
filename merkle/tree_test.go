package merkle

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/zktoken/zktoken-core/crypto/hash/poseidon"
	"github.com/zktoken/zktoken-core/types"
	"github.com/zktoken/zktoken-core/util"
)

func randomLeaf() *big.Int {
	return util.BigToFF(new(big.Int).SetBytes(util.RandomBytes(31)))
}

func TestEmptyTreeRoot(t *testing.T) {
	c := qt.New(t)
	tree, err := NewTree()
	c.Assert(err, qt.IsNil)

	// the empty root is the depth-fold of the zero table
	expected := big.NewInt(0)
	for i := 0; i < Depth; i++ {
		expected, err = poseidon.Hash2(expected, expected)
		c.Assert(err, qt.IsNil)
	}
	c.Assert(tree.Root().Cmp(expected), qt.Equals, 0)
	c.Assert(tree.KnownRoot(expected), qt.IsTrue)
	c.Assert(tree.Size(), qt.Equals, uint32(0))
}

func TestMirrorsAgree(t *testing.T) {
	c := qt.New(t)
	t1, err := NewTree()
	c.Assert(err, qt.IsNil)
	t2, err := NewTree()
	c.Assert(err, qt.IsNil)

	leaves := make([]*big.Int, 8)
	for i := range leaves {
		leaves[i] = randomLeaf()
	}
	for _, leaf := range leaves {
		_, _, err = t1.Insert(leaf)
		c.Assert(err, qt.IsNil)
	}
	for _, leaf := range leaves {
		_, _, err = t2.Insert(leaf)
		c.Assert(err, qt.IsNil)
	}
	c.Assert(t1.Root().Cmp(t2.Root()), qt.Equals, 0)

	// reversed insertion order yields a different root
	t3, err := NewTree()
	c.Assert(err, qt.IsNil)
	for i := len(leaves) - 1; i >= 0; i-- {
		_, _, err = t3.Insert(leaves[i])
		c.Assert(err, qt.IsNil)
	}
	c.Assert(t1.Root().Cmp(t3.Root()), qt.Not(qt.Equals), 0)
}

func TestPathsVerify(t *testing.T) {
	c := qt.New(t)
	tree, err := NewTree()
	c.Assert(err, qt.IsNil)

	leaves := make([]*big.Int, 5)
	for i := range leaves {
		leaves[i] = randomLeaf()
		index, _, err := tree.Insert(leaves[i])
		c.Assert(err, qt.IsNil)
		c.Assert(index, qt.Equals, uint32(i))
	}

	for i, leaf := range leaves {
		path, err := tree.Path(uint32(i))
		c.Assert(err, qt.IsNil)
		c.Assert(path.LeafIndex, qt.Equals, uint32(i))
		c.Assert(tree.Verify(leaf, path, nil), qt.IsNil)
		c.Assert(tree.Verify(leaf, path, tree.Root()), qt.IsNil)

		// indices are the LSB-first bits of the index
		for lvl := 0; lvl < Depth; lvl++ {
			c.Assert(path.Indices[lvl], qt.Equals, uint8((i>>lvl)&1))
		}
	}

	// a wrong leaf fails
	path, err := tree.Path(0)
	c.Assert(err, qt.IsNil)
	c.Assert(tree.Verify(randomLeaf(), path, nil), qt.ErrorIs, ErrPathInvalid)

	_, err = tree.Path(uint32(len(leaves)))
	c.Assert(err, qt.ErrorIs, ErrIndexOutOfRange)
}

func TestPathStaleness(t *testing.T) {
	c := qt.New(t)
	tree, err := NewTree()
	c.Assert(err, qt.IsNil)

	l0, l1 := randomLeaf(), randomLeaf()
	_, rootAfterL0, err := tree.Insert(l0)
	c.Assert(err, qt.IsNil)
	_, _, err = tree.Insert(l1)
	c.Assert(err, qt.IsNil)

	// a freshly-extracted path references the new root; it must not verify
	// against the older one even though that root is still in the window
	path, err := tree.Path(0)
	c.Assert(err, qt.IsNil)
	c.Assert(tree.Verify(l0, path, nil), qt.IsNil)
	c.Assert(tree.KnownRoot(rootAfterL0), qt.IsTrue)
	c.Assert(tree.Verify(l0, path, rootAfterL0), qt.ErrorIs, ErrPathInvalid)
}

func TestRootHistoryWindow(t *testing.T) {
	c := qt.New(t)
	tree, err := NewTree()
	c.Assert(err, qt.IsNil)

	var roots []*big.Int
	for i := 0; i < types.RootHistorySize+5; i++ {
		_, root, err := tree.Insert(randomLeaf())
		c.Assert(err, qt.IsNil)
		roots = append(roots, root)
	}

	// the last RootHistorySize roots are known, older ones are evicted
	for i, root := range roots {
		known := tree.KnownRoot(root)
		if i < len(roots)-types.RootHistorySize {
			c.Assert(known, qt.IsFalse, qt.Commentf("root %d should be evicted", i))
		} else {
			c.Assert(known, qt.IsTrue, qt.Commentf("root %d should be known", i))
		}
	}
}

func TestLeafAccess(t *testing.T) {
	c := qt.New(t)
	tree, err := NewTree()
	c.Assert(err, qt.IsNil)

	leaf := randomLeaf()
	_, _, err = tree.Insert(leaf)
	c.Assert(err, qt.IsNil)

	got, err := tree.Leaf(0)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Cmp(leaf), qt.Equals, 0)

	_, err = tree.Leaf(1)
	c.Assert(err, qt.ErrorIs, ErrIndexOutOfRange)
}
