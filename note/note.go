// Package note implements the shielded note lifecycle: creation, Pedersen
// and note commitments, finalization against an assigned tree index, and the
// nullifier derivation that makes each note spendable exactly once.
package note

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zktoken/zktoken-core/crypto/ecc"
	"github.com/zktoken/zktoken-core/crypto/hash/poseidon"
	"github.com/zktoken/zktoken-core/crypto/pedersen"
	"github.com/zktoken/zktoken-core/types"
	"github.com/zktoken/zktoken-core/util"
)

// LeafIndexUnset marks a note whose commitment has not been inserted into the
// on-chain tree yet. The chain assigns indices; clients never invent them.
const LeafIndexUnset = int64(-1)

var (
	// ErrNotFinalized is returned when an operation needs the tree index of a
	// note that has none yet.
	ErrNotFinalized = errors.New("note has no assigned leaf index")
	// ErrZeroAmount is returned when creating a note with amount zero.
	ErrZeroAmount = errors.New("note amount must be positive")
)

// Note is the primary secret of the shielded pool. Only its commitment hash
// ever appears on-chain.
type Note struct {
	Amount            *big.Int
	Blinding          *big.Int
	Secret            *big.Int
	NullifierPreimage *big.Int
	OwnerPub          ecc.Point
	Token             common.Address
	LeafIndex         int64
	Spent             bool
}

// New creates an unfinalized note owned by ownerPub. The amount must be in
// [1, 2^64). Blinding, secret and nullifier preimage are sampled as fresh
// uniform 31-byte integers from the process CSPRNG.
func New(amount *big.Int, ownerPub ecc.Point, token common.Address) (*Note, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if amount.Cmp(pedersen.MaxAmount) >= 0 {
		return nil, pedersen.ErrAmountOutOfRange
	}
	if err := ecc.Validate(ownerPub); err != nil {
		return nil, err
	}
	return &Note{
		Amount:            new(big.Int).Set(amount),
		Blinding:          new(big.Int).SetBytes(util.RandomBytes(types.SecretBytes)),
		Secret:            new(big.Int).SetBytes(util.RandomBytes(types.SecretBytes)),
		NullifierPreimage: new(big.Int).SetBytes(util.RandomBytes(types.SecretBytes)),
		OwnerPub:          ownerPub,
		Token:             token,
		LeafIndex:         LeafIndexUnset,
	}, nil
}

// FromSecrets rebuilds a note from recovered secrets, e.g. after decrypting a
// memo. The resulting note carries the given leaf index.
func FromSecrets(amount, blinding, secret, preimage *big.Int, ownerPub ecc.Point,
	token common.Address, leafIndex int64,
) (*Note, error) {
	if amount == nil || amount.Sign() < 0 || amount.Cmp(pedersen.MaxAmount) >= 0 {
		return nil, pedersen.ErrAmountOutOfRange
	}
	if err := ecc.Validate(ownerPub); err != nil {
		return nil, err
	}
	return &Note{
		Amount:            new(big.Int).Set(amount),
		Blinding:          new(big.Int).Set(blinding),
		Secret:            new(big.Int).Set(secret),
		NullifierPreimage: new(big.Int).Set(preimage),
		OwnerPub:          ownerPub,
		Token:             token,
		LeafIndex:         leafIndex,
	}, nil
}

// Pedersen returns the note's value commitment amount*G + blinding*H.
func (n *Note) Pedersen() (ecc.Point, error) {
	return pedersen.Commit(n.Amount, n.Blinding)
}

// Commitment returns the note commitment
// Poseidon5(ped.x, ped.y, secret, nullifierPreimage, ownerPub.x), the value
// inserted as a leaf into the on-chain tree.
func (n *Note) Commitment() (*big.Int, error) {
	ped, err := n.Pedersen()
	if err != nil {
		return nil, err
	}
	pedX, pedY := ped.Point()
	ownerX, _ := n.OwnerPub.Point()
	return poseidon.Hash5(pedX, pedY, n.Secret, n.NullifierPreimage, ownerX)
}

// Nullifier returns Poseidon3(nullifierPreimage, secret, leafIndex). The leaf
// index is part of the hash so two deposits sharing secrets still nullify
// independently. It fails on unfinalized notes.
func (n *Note) Nullifier() (*big.Int, error) {
	if n.LeafIndex < 0 {
		return nil, ErrNotFinalized
	}
	return poseidon.Hash3(n.NullifierPreimage, n.Secret, big.NewInt(n.LeafIndex))
}

// Finalize returns a copy of the note bound to the leaf index the chain
// assigned to its commitment. The receiver is not mutated.
func (n *Note) Finalize(leafIndex int64) (*Note, error) {
	if leafIndex < 0 || leafIndex >= types.TreeCapacity {
		return nil, errors.New("leaf index out of tree capacity")
	}
	out := n.clone()
	out.LeafIndex = leafIndex
	return out, nil
}

func (n *Note) clone() *Note {
	pub := n.OwnerPub.New()
	pub.Set(n.OwnerPub)
	return &Note{
		Amount:            new(big.Int).Set(n.Amount),
		Blinding:          new(big.Int).Set(n.Blinding),
		Secret:            new(big.Int).Set(n.Secret),
		NullifierPreimage: new(big.Int).Set(n.NullifierPreimage),
		OwnerPub:          pub,
		Token:             n.Token,
		LeafIndex:         n.LeafIndex,
		Spent:             n.Spent,
	}
}
