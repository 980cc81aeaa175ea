package memo

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"

	"github.com/zktoken/zktoken-core/crypto/ecc"
	"github.com/zktoken/zktoken-core/crypto/ecc/bjj"
	"github.com/zktoken/zktoken-core/crypto/keys"
	"github.com/zktoken/zktoken-core/note"
	"github.com/zktoken/zktoken-core/types"
	"github.com/zktoken/zktoken-core/util"
)

var testToken = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func randomData() *Data {
	return &Data{
		Amount:            big.NewInt(123456),
		Blinding:          new(big.Int).SetBytes(util.RandomBytes(types.SecretBytes)),
		Secret:            new(big.Int).SetBytes(util.RandomBytes(types.SecretBytes)),
		NullifierPreimage: new(big.Int).SetBytes(util.RandomBytes(types.SecretBytes)),
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	c := qt.New(t)
	recipient, err := keys.Generate()
	c.Assert(err, qt.IsNil)

	data := randomData()
	sealed, err := Seal(data, recipient.Public())
	c.Assert(err, qt.IsNil)
	c.Assert(sealed, qt.HasLen, types.MemoBytes)

	opened, err := Open(sealed, recipient.Private())
	c.Assert(err, qt.IsNil)
	c.Assert(opened.Amount.Cmp(data.Amount), qt.Equals, 0)
	c.Assert(opened.Blinding.Cmp(data.Blinding), qt.Equals, 0)
	c.Assert(opened.Secret.Cmp(data.Secret), qt.Equals, 0)
	c.Assert(opened.NullifierPreimage.Cmp(data.NullifierPreimage), qt.Equals, 0)
}

func TestOpenWithWrongKey(t *testing.T) {
	c := qt.New(t)
	recipient, err := keys.Generate()
	c.Assert(err, qt.IsNil)
	other, err := keys.Generate()
	c.Assert(err, qt.IsNil)

	sealed, err := Seal(randomData(), recipient.Public())
	c.Assert(err, qt.IsNil)

	_, err = Open(sealed, other.Private())
	c.Assert(err, qt.ErrorIs, ErrMemoReject)
}

func TestOpenRejectsTampering(t *testing.T) {
	c := qt.New(t)
	recipient, err := keys.Generate()
	c.Assert(err, qt.IsNil)

	sealed, err := Seal(randomData(), recipient.Public())
	c.Assert(err, qt.IsNil)

	// single-bit flips anywhere in the ciphertext must reject
	for _, pos := range []int{64 + 12, types.MemoBytes - 1, 100} {
		corrupted := make([]byte, len(sealed))
		copy(corrupted, sealed)
		corrupted[pos] ^= 0x01
		_, err = Open(corrupted, recipient.Private())
		c.Assert(err, qt.ErrorIs, ErrMemoReject)
	}

	// wrong length
	_, err = Open(sealed[:types.MemoBytes-1], recipient.Private())
	c.Assert(err, qt.ErrorIs, ErrMemoReject)

	// garbage ephemeral point
	corrupted := make([]byte, len(sealed))
	copy(corrupted, sealed)
	for i := 0; i < 64; i++ {
		corrupted[i] = 0xff
	}
	_, err = Open(corrupted, recipient.Private())
	c.Assert(err, qt.ErrorIs, ErrMemoReject)
}

func TestSealRejectsInvalidRecipient(t *testing.T) {
	c := qt.New(t)
	offCurve := bjj.New().SetPoint(big.NewInt(1), big.NewInt(2))
	_, err := Seal(randomData(), offCurve)
	c.Assert(err, qt.ErrorIs, ecc.ErrPointNotOnCurve)
}

func TestNoteRoundTripThroughMemo(t *testing.T) {
	c := qt.New(t)
	owner, err := keys.Generate()
	c.Assert(err, qt.IsNil)

	original, err := note.New(big.NewInt(777_000), owner.Public(), testToken)
	c.Assert(err, qt.IsNil)
	finalized, err := original.Finalize(5)
	c.Assert(err, qt.IsNil)

	sealed, err := Seal(&Data{
		Amount:            finalized.Amount,
		Blinding:          finalized.Blinding,
		Secret:            finalized.Secret,
		NullifierPreimage: finalized.NullifierPreimage,
	}, owner.Public())
	c.Assert(err, qt.IsNil)

	opened, err := Open(sealed, owner.Private())
	c.Assert(err, qt.IsNil)
	rebuilt, err := note.FromSecrets(opened.Amount, opened.Blinding, opened.Secret,
		opened.NullifierPreimage, owner.Public(), testToken, 5)
	c.Assert(err, qt.IsNil)

	cmOriginal, err := finalized.Commitment()
	c.Assert(err, qt.IsNil)
	cmRebuilt, err := rebuilt.Commitment()
	c.Assert(err, qt.IsNil)
	c.Assert(cmRebuilt.Cmp(cmOriginal), qt.Equals, 0)
}

func TestScanMixedStream(t *testing.T) {
	c := qt.New(t)
	keyA, err := keys.Generate()
	c.Assert(err, qt.IsNil)
	keyB, err := keys.Generate()
	c.Assert(err, qt.IsNil)

	var events []Event
	var expectedA []*big.Int
	for i := 0; i < 10; i++ {
		// events 0, 3 and 6 go to A, the other seven to B
		recipient := keyB
		if i%3 == 0 && i < 9 {
			recipient = keyA
		}
		n, err := note.New(big.NewInt(int64(1000+i)), recipient.Public(), testToken)
		c.Assert(err, qt.IsNil)
		finalized, err := n.Finalize(int64(i))
		c.Assert(err, qt.IsNil)
		cm, err := finalized.Commitment()
		c.Assert(err, qt.IsNil)
		sealed, err := Seal(&Data{
			Amount:            finalized.Amount,
			Blinding:          finalized.Blinding,
			Secret:            finalized.Secret,
			NullifierPreimage: finalized.NullifierPreimage,
		}, recipient.Public())
		c.Assert(err, qt.IsNil)
		events = append(events, Event{
			Memo:       sealed,
			Commitment: cm,
			LeafIndex:  int64(i),
			Block:      uint64(i),
			Token:      testToken,
		})
		if recipient == keyA {
			expectedA = append(expectedA, cm)
		}
	}
	c.Assert(expectedA, qt.HasLen, 3)

	found, err := Scan(events, keyA)
	c.Assert(err, qt.IsNil)
	c.Assert(found, qt.HasLen, 3)
	for i, n := range found {
		cm, err := n.Commitment()
		c.Assert(err, qt.IsNil)
		c.Assert(cm.Cmp(expectedA[i]), qt.Equals, 0)
	}
}

func TestScanDiscardsMismatchedCommitment(t *testing.T) {
	c := qt.New(t)
	owner, err := keys.Generate()
	c.Assert(err, qt.IsNil)

	n, err := note.New(big.NewInt(500), owner.Public(), testToken)
	c.Assert(err, qt.IsNil)
	finalized, err := n.Finalize(0)
	c.Assert(err, qt.IsNil)
	sealed, err := Seal(&Data{
		Amount:            finalized.Amount,
		Blinding:          finalized.Blinding,
		Secret:            finalized.Secret,
		NullifierPreimage: finalized.NullifierPreimage,
	}, owner.Public())
	c.Assert(err, qt.IsNil)

	// the event lies about the commitment
	found, err := Scan([]Event{{
		Memo:       sealed,
		Commitment: big.NewInt(42),
		LeafIndex:  0,
		Token:      testToken,
	}}, owner)
	c.Assert(err, qt.IsNil)
	c.Assert(found, qt.HasLen, 0)
}
