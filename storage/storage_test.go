package storage

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/zktoken/zktoken-core/crypto/keys"
	"github.com/zktoken/zktoken-core/note"
	"github.com/zktoken/zktoken-core/util"
)

var testToken = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func TestNotePersistence(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	owner, err := keys.Generate()
	c.Assert(err, qt.IsNil)
	n, err := note.New(big.NewInt(42_000), owner.Public(), testToken)
	c.Assert(err, qt.IsNil)
	finalized, err := n.Finalize(3)
	c.Assert(err, qt.IsNil)
	finalized.Spent = true

	c.Assert(stg.SaveNote(finalized), qt.IsNil)

	loaded, err := stg.Notes()
	c.Assert(err, qt.IsNil)
	c.Assert(loaded, qt.HasLen, 1)
	got := loaded[0]
	c.Assert(got.Amount.Cmp(finalized.Amount), qt.Equals, 0)
	c.Assert(got.Blinding.Cmp(finalized.Blinding), qt.Equals, 0)
	c.Assert(got.Secret.Cmp(finalized.Secret), qt.Equals, 0)
	c.Assert(got.LeafIndex, qt.Equals, int64(3))
	c.Assert(got.Spent, qt.IsTrue)
	c.Assert(got.Token, qt.Equals, testToken)

	// the reconstructed note commits identically
	cmOriginal, err := finalized.Commitment()
	c.Assert(err, qt.IsNil)
	cmLoaded, err := got.Commitment()
	c.Assert(err, qt.IsNil)
	c.Assert(cmLoaded.Cmp(cmOriginal), qt.Equals, 0)

	// saving again overwrites, not duplicates
	c.Assert(stg.SaveNote(finalized), qt.IsNil)
	loaded, err = stg.Notes()
	c.Assert(err, qt.IsNil)
	c.Assert(loaded, qt.HasLen, 1)
}

func TestLeafPersistenceAndRebuild(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	leaves := make([]*big.Int, 6)
	for i := range leaves {
		leaves[i] = util.BigToFF(new(big.Int).SetBytes(util.RandomBytes(31)))
		c.Assert(stg.SaveLeaf(uint32(i), leaves[i]), qt.IsNil)
	}

	loaded, err := stg.Leaves()
	c.Assert(err, qt.IsNil)
	c.Assert(loaded, qt.HasLen, len(leaves))
	for i := range leaves {
		c.Assert(loaded[i].Cmp(leaves[i]), qt.Equals, 0)
	}

	tree, err := stg.RebuildTree()
	c.Assert(err, qt.IsNil)
	c.Assert(tree.Size(), qt.Equals, uint32(len(leaves)))
}

func TestLeafGapDetection(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	c.Assert(stg.SaveLeaf(0, big.NewInt(1)), qt.IsNil)
	c.Assert(stg.SaveLeaf(2, big.NewInt(3)), qt.IsNil)

	_, err := stg.Leaves()
	c.Assert(err, qt.IsNotNil)
}

func TestCursor(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	block, err := stg.LastBlock()
	c.Assert(err, qt.IsNil)
	c.Assert(block, qt.Equals, uint64(0))

	c.Assert(stg.SetLastBlock(12345), qt.IsNil)
	block, err = stg.LastBlock()
	c.Assert(err, qt.IsNil)
	c.Assert(block, qt.Equals, uint64(12345))
}
