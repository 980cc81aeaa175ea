package storage

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/zktoken/zktoken-core/crypto/ecc/bjj"
	"github.com/zktoken/zktoken-core/note"
)

// NoteRecord is the durable form of a note. Secrets are stored as raw bytes;
// loading them back reconstructs a *note.Note with the original owner key.
type NoteRecord struct {
	Amount            []byte `cbor:"1,keyasint"`
	Blinding          []byte `cbor:"2,keyasint"`
	Secret            []byte `cbor:"3,keyasint"`
	NullifierPreimage []byte `cbor:"4,keyasint"`
	OwnerX            []byte `cbor:"5,keyasint"`
	OwnerY            []byte `cbor:"6,keyasint"`
	Token             []byte `cbor:"7,keyasint"`
	LeafIndex         int64  `cbor:"8,keyasint"`
	Spent             bool   `cbor:"9,keyasint"`
}

// SaveNote persists a note, keyed by its commitment.
func (s *Storage) SaveNote(n *note.Note) error {
	cm, err := n.Commitment()
	if err != nil {
		return err
	}
	x, y := n.OwnerPub.Point()
	rec := NoteRecord{
		Amount:            n.Amount.Bytes(),
		Blinding:          n.Blinding.Bytes(),
		Secret:            n.Secret.Bytes(),
		NullifierPreimage: n.NullifierPreimage.Bytes(),
		OwnerX:            x.Bytes(),
		OwnerY:            y.Bytes(),
		Token:             n.Token.Bytes(),
		LeafIndex:         n.LeafIndex,
		Spent:             n.Spent,
	}
	return s.setArtifact(notePrefix, cm.Bytes(), rec)
}

// Notes loads every persisted note.
func (s *Storage) Notes() ([]*note.Note, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, notePrefix)
	var notes []*note.Note
	var iterErr error
	if err := rTx.Iterate(nil, func(_, v []byte) bool {
		var rec NoteRecord
		if err := decodeArtifact(v, &rec); err != nil {
			iterErr = err
			return false
		}
		n, err := recordToNote(&rec)
		if err != nil {
			iterErr = err
			return false
		}
		notes = append(notes, n)
		return true
	}); err != nil {
		return nil, err
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return notes, nil
}

func recordToNote(rec *NoteRecord) (*note.Note, error) {
	pub := bjj.New().SetPoint(
		new(big.Int).SetBytes(rec.OwnerX),
		new(big.Int).SetBytes(rec.OwnerY),
	)
	n, err := note.FromSecrets(
		new(big.Int).SetBytes(rec.Amount),
		new(big.Int).SetBytes(rec.Blinding),
		new(big.Int).SetBytes(rec.Secret),
		new(big.Int).SetBytes(rec.NullifierPreimage),
		pub,
		common.BytesToAddress(rec.Token),
		rec.LeafIndex,
	)
	if err != nil {
		return nil, err
	}
	n.Spent = rec.Spent
	return n, nil
}
