package circuits

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"

	"github.com/zktoken/zktoken-core/crypto/keys"
	"github.com/zktoken/zktoken-core/merkle"
	"github.com/zktoken/zktoken-core/note"
	"github.com/zktoken/zktoken-core/util"
)

var testToken = common.HexToAddress("0x00000000000000000000000000000000000000aa")

// spendFixture is a finalized note inserted into a fresh tree, with its path.
type spendFixture struct {
	owner *keys.KeyPair
	note  *note.Note
	tree  *merkle.Tree
	path  *merkle.Path
}

func newSpendFixture(c *qt.C, amount int64) *spendFixture {
	owner, err := keys.Generate()
	c.Assert(err, qt.IsNil)
	n, err := note.New(big.NewInt(amount), owner.Public(), testToken)
	c.Assert(err, qt.IsNil)

	tree, err := merkle.NewTree()
	c.Assert(err, qt.IsNil)
	cm, err := n.Commitment()
	c.Assert(err, qt.IsNil)
	index, _, err := tree.Insert(cm)
	c.Assert(err, qt.IsNil)

	finalized, err := n.Finalize(int64(index))
	c.Assert(err, qt.IsNil)
	path, err := tree.Path(index)
	c.Assert(err, qt.IsNil)
	return &spendFixture{owner: owner, note: finalized, tree: tree, path: path}
}

func TestDepositThenSpend(t *testing.T) {
	c := qt.New(t)

	// owner key derived from a host signature, deposit of 1_000_000 at index 0
	owner, err := keys.FromHostSignature(util.RandomBytes(65))
	c.Assert(err, qt.IsNil)
	n, err := note.New(big.NewInt(1_000_000), owner.Public(), testToken)
	c.Assert(err, qt.IsNil)

	tree, err := merkle.NewTree()
	c.Assert(err, qt.IsNil)
	cm, err := n.Commitment()
	c.Assert(err, qt.IsNil)
	index, _, err := tree.Insert(cm)
	c.Assert(err, qt.IsNil)
	c.Assert(index, qt.Equals, uint32(0))

	finalized, err := n.Finalize(0)
	c.Assert(err, qt.IsNil)
	nf, err := finalized.Nullifier()
	c.Assert(err, qt.IsNil)

	recipient, err := keys.Generate()
	c.Assert(err, qt.IsNil)
	path, err := tree.Path(0)
	c.Assert(err, qt.IsNil)

	w, err := BuildTransfer(finalized, owner.Private(), path,
		big.NewInt(700_000), recipient.Public(), owner.Public())
	c.Assert(err, qt.IsNil)

	c.Assert(w.NullifierHash.Cmp(nf), qt.Equals, 0)
	c.Assert(w.Outputs[0].Amount.Int64(), qt.Equals, int64(700_000))
	c.Assert(w.Outputs[1].Amount.Int64(), qt.Equals, int64(300_000))
	c.Assert(w.checkConservation(), qt.IsNil)

	signals := w.PublicSignals()
	c.Assert(signals, qt.HasLen, 4)
	c.Assert(signals[0].Cmp(path.Root), qt.Equals, 0)
	c.Assert(signals[1].Cmp(nf), qt.Equals, 0)
	c.Assert(signals[2].Cmp(w.OutCommitments[0]), qt.Equals, 0)
	c.Assert(signals[3].Cmp(w.OutCommitments[1]), qt.Equals, 0)
}

func TestTransferConservationRandomized(t *testing.T) {
	c := qt.New(t)
	for i := 0; i < 500; i++ {
		amount := util.RandomInRange(big.NewInt(1 << 40)).Int64() + 2
		fx := newSpendFixture(c, amount)
		recipient, err := keys.Generate()
		c.Assert(err, qt.IsNil)
		send := util.RandomInRange(big.NewInt(amount-1)).Int64() + 1

		w, err := BuildTransfer(fx.note, fx.owner.Private(), fx.path,
			big.NewInt(send), recipient.Public(), fx.owner.Public())
		c.Assert(err, qt.IsNil)

		amountSum := new(big.Int).Add(w.Outputs[0].Amount, w.Outputs[1].Amount)
		c.Assert(amountSum.Cmp(fx.note.Amount), qt.Equals, 0)
		blindingSum := new(big.Int).Add(w.Outputs[0].Blinding, w.Outputs[1].Blinding)
		c.Assert(blindingSum.Cmp(fx.note.Blinding), qt.Equals, 0)

		// the split is an integer decomposition: both parts non-negative
		c.Assert(w.Outputs[0].Blinding.Sign() >= 0, qt.IsTrue)
		c.Assert(w.Outputs[1].Blinding.Sign() >= 0, qt.IsTrue)
	}
}

func TestTransferRejectsOverspend(t *testing.T) {
	c := qt.New(t)
	fx := newSpendFixture(c, 100)
	recipient, err := keys.Generate()
	c.Assert(err, qt.IsNil)

	_, err = BuildTransfer(fx.note, fx.owner.Private(), fx.path,
		big.NewInt(101), recipient.Public(), fx.owner.Public())
	c.Assert(err, qt.IsNotNil)

	_, err = BuildTransfer(fx.note, fx.owner.Private(), fx.path,
		big.NewInt(0), recipient.Public(), fx.owner.Public())
	c.Assert(err, qt.IsNotNil)
}

func TestTransferRejectsForeignKey(t *testing.T) {
	c := qt.New(t)
	fx := newSpendFixture(c, 100)
	stranger, err := keys.Generate()
	c.Assert(err, qt.IsNil)

	_, err = BuildTransfer(fx.note, stranger.Private(), fx.path,
		big.NewInt(50), stranger.Public(), fx.owner.Public())
	c.Assert(err, qt.ErrorIs, ErrOwnerMismatch)
}

func TestTransferRejectsStalePath(t *testing.T) {
	c := qt.New(t)
	fx := newSpendFixture(c, 100)
	recipient, err := keys.Generate()
	c.Assert(err, qt.IsNil)

	// grow the tree, then tamper the old path's root to the new root: the
	// old siblings no longer fold to it
	_, newRoot, err := fx.tree.Insert(big.NewInt(7))
	c.Assert(err, qt.IsNil)
	stale := *fx.path
	stale.Root = newRoot

	_, err = BuildTransfer(fx.note, fx.owner.Private(), &stale,
		big.NewInt(50), recipient.Public(), fx.owner.Public())
	c.Assert(err, qt.ErrorIs, ErrMerklePathInvalid)
}

func TestTransferRejectsUnfinalizedInput(t *testing.T) {
	c := qt.New(t)
	owner, err := keys.Generate()
	c.Assert(err, qt.IsNil)
	n, err := note.New(big.NewInt(100), owner.Public(), testToken)
	c.Assert(err, qt.IsNil)
	tree, err := merkle.NewTree()
	c.Assert(err, qt.IsNil)
	cm, err := n.Commitment()
	c.Assert(err, qt.IsNil)
	_, _, err = tree.Insert(cm)
	c.Assert(err, qt.IsNil)
	path, err := tree.Path(0)
	c.Assert(err, qt.IsNil)

	_, err = BuildTransfer(n, owner.Private(), path,
		big.NewInt(50), owner.Public(), owner.Public())
	c.Assert(err, qt.ErrorIs, note.ErrNotFinalized)
}

func TestCircomInputsShape(t *testing.T) {
	c := qt.New(t)
	fx := newSpendFixture(c, 1000)
	recipient, err := keys.Generate()
	c.Assert(err, qt.IsNil)

	w, err := BuildTransfer(fx.note, fx.owner.Private(), fx.path,
		big.NewInt(400), recipient.Public(), fx.owner.Public())
	c.Assert(err, qt.IsNil)

	inputs := w.CircomInputs()
	c.Assert(inputs["root"], qt.Equals, fx.path.Root.String())
	c.Assert(inputs["pathElements"].([]string), qt.HasLen, NLevels)
	c.Assert(inputs["pathIndices"].([]string), qt.HasLen, NLevels)
	c.Assert(inputs["outAmount"].([]string), qt.HasLen, NOutputs)
	c.Assert(inputs["inLeafIndex"], qt.Equals, "0")
}
