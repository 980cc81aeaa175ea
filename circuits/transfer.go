package circuits

import (
	"math/big"

	"github.com/zktoken/zktoken-core/crypto/ecc"
	"github.com/zktoken/zktoken-core/crypto/ecc/bjj"
	"github.com/zktoken/zktoken-core/crypto/pedersen"
	"github.com/zktoken/zktoken-core/merkle"
	"github.com/zktoken/zktoken-core/note"
	"github.com/zktoken/zktoken-core/types"
	"github.com/zktoken/zktoken-core/util"
)

// TransferWitness is the fully-assembled input set of the transfer statement:
// one input note is consumed, two output notes (recipient and change) are
// created, amounts and blindings are conserved as integers.
type TransferWitness struct {
	// Public signals, in verifier order.
	Root           *big.Int
	NullifierHash  *big.Int
	OutCommitments [NOutputs]*big.Int

	// Private inputs.
	Input     *note.Note
	OwnerPriv *big.Int
	Path      *merkle.Path
	Outputs   [NOutputs]*note.Note
}

// BuildTransfer assembles and validates a transfer witness: spend `input`
// (owned by ownerPriv), send `sendAmount` to recipientPub and return the
// change to changePub. The path must prove the input commitment against a
// root the verifier still accepts.
//
// The blinding of the recipient output is sampled uniformly in
// [0, input.Blinding) so the integer difference assigned to the change output
// is non-negative; the conservation the circuit checks is over the integers
// embedded in GF(p), never modulo the subgroup order.
func BuildTransfer(input *note.Note, ownerPriv *big.Int, path *merkle.Path,
	sendAmount *big.Int, recipientPub, changePub ecc.Point,
) (*TransferWitness, error) {
	if err := validateInputNote(input, ownerPriv, path); err != nil {
		return nil, err
	}
	if sendAmount == nil || sendAmount.Sign() <= 0 || sendAmount.Cmp(pedersen.MaxAmount) >= 0 {
		return nil, pedersen.ErrAmountOutOfRange
	}
	changeAmount := new(big.Int).Sub(input.Amount, sendAmount)
	if changeAmount.Sign() < 0 {
		return nil, pedersen.ErrAmountOutOfRange
	}
	for _, pub := range []ecc.Point{recipientPub, changePub} {
		if err := validateOutputOwner(pub); err != nil {
			return nil, err
		}
	}

	// integer split of the input blinding across the two outputs
	recipientBlinding := big.NewInt(0)
	if input.Blinding.Sign() > 0 {
		recipientBlinding = util.RandomInRange(input.Blinding)
	}
	changeBlinding := new(big.Int).Sub(input.Blinding, recipientBlinding)

	recipientNote, err := freshOutput(sendAmount, recipientBlinding, recipientPub, input)
	if err != nil {
		return nil, err
	}
	changeNote, err := freshOutput(changeAmount, changeBlinding, changePub, input)
	if err != nil {
		return nil, err
	}

	w := &TransferWitness{
		Input:     input,
		OwnerPriv: ownerPriv,
		Path:      path,
		Outputs:   [NOutputs]*note.Note{recipientNote, changeNote},
	}
	w.Root = new(big.Int).Set(path.Root)
	if w.NullifierHash, err = input.Nullifier(); err != nil {
		return nil, err
	}
	for i, out := range w.Outputs {
		if w.OutCommitments[i], err = out.Commitment(); err != nil {
			return nil, err
		}
	}
	if err := w.checkConservation(); err != nil {
		return nil, err
	}
	return w, nil
}

// checkConservation re-asserts the integer sums the circuit will enforce.
func (w *TransferWitness) checkConservation() error {
	amountSum := new(big.Int).Add(w.Outputs[0].Amount, w.Outputs[1].Amount)
	if amountSum.Cmp(w.Input.Amount) != 0 {
		return ErrConservationViolation
	}
	blindingSum := new(big.Int).Add(w.Outputs[0].Blinding, w.Outputs[1].Blinding)
	if blindingSum.Cmp(w.Input.Blinding) != 0 {
		return ErrConservationViolation
	}
	return nil
}

// PublicSignals returns [root, nullifierHash, outCommitment1, outCommitment2].
func (w *TransferWitness) PublicSignals() PublicSignals {
	return PublicSignals{w.Root, w.NullifierHash, w.OutCommitments[0], w.OutCommitments[1]}
}

// CircomInputs returns the witness as the string-keyed map the witness
// calculator parses. Scalars are decimal strings; arrays are string slices.
func (w *TransferWitness) CircomInputs() map[string]any {
	inputs := map[string]any{
		"root":          w.Root.String(),
		"nullifierHash": w.NullifierHash.String(),
		"outCommitment": bigSliceToStr(w.OutCommitments[:]),

		"inAmount":            w.Input.Amount.String(),
		"inBlinding":          w.Input.Blinding.String(),
		"inSecret":            w.Input.Secret.String(),
		"inNullifierPreimage": w.Input.NullifierPreimage.String(),
		"inPrivateKey":        w.OwnerPriv.String(),
		"inLeafIndex":         big.NewInt(w.Input.LeafIndex).String(),

		"pathElements": pathElementsToStr(w.Path),
		"pathIndices":  pathIndicesToStr(w.Path),
	}
	outAmount := make([]string, NOutputs)
	outBlinding := make([]string, NOutputs)
	outSecret := make([]string, NOutputs)
	outPreimage := make([]string, NOutputs)
	outOwnerX := make([]string, NOutputs)
	outOwnerY := make([]string, NOutputs)
	for i, out := range w.Outputs {
		x, y := out.OwnerPub.Point()
		outAmount[i] = out.Amount.String()
		outBlinding[i] = out.Blinding.String()
		outSecret[i] = out.Secret.String()
		outPreimage[i] = out.NullifierPreimage.String()
		outOwnerX[i] = x.String()
		outOwnerY[i] = y.String()
	}
	inputs["outAmount"] = outAmount
	inputs["outBlinding"] = outBlinding
	inputs["outSecret"] = outSecret
	inputs["outNullifierPreimage"] = outPreimage
	inputs["outOwnerX"] = outOwnerX
	inputs["outOwnerY"] = outOwnerY
	return inputs
}

// validateInputNote runs the spend-side preconditions shared by both
// statements: the note is finalized, the key owns it, and the path folds its
// commitment to the declared root. The note's spent flag is not checked.
func validateInputNote(input *note.Note, ownerPriv *big.Int, path *merkle.Path) error {
	if input.LeafIndex < 0 {
		return note.ErrNotFinalized
	}
	if ownerPriv == nil || ownerPriv.Sign() <= 0 {
		return ecc.ErrInvalidScalar
	}
	derived := input.OwnerPub.New()
	derived.ScalarBaseMult(ownerPriv)
	if !derived.Equal(input.OwnerPub) {
		return ErrOwnerMismatch
	}
	cm, err := input.Commitment()
	if err != nil {
		return err
	}
	folded, err := merkle.FoldPath(cm, path)
	if err != nil {
		return err
	}
	if folded.Cmp(path.Root) != 0 {
		return ErrMerklePathInvalid
	}
	if uint32(input.LeafIndex) != path.LeafIndex {
		return ErrMerklePathInvalid
	}
	return nil
}

// validateOutputOwner refuses output keys outside the subgroup and the two
// ambiguous encodings sharing an x coordinate: y must be nonzero and
// canonical, because only x binds the owner inside the commitment hash.
func validateOutputOwner(pub ecc.Point) error {
	if err := ecc.Validate(pub); err != nil {
		return err
	}
	_, y := pub.Point()
	if y.Sign() == 0 || y.Cmp(bjj.Prime) >= 0 {
		return ErrNonCanonicalPoint
	}
	return nil
}

// freshOutput creates an output note with the given amount and blinding and
// newly sampled secret and preimage, inheriting the input's token.
func freshOutput(amount, blinding *big.Int, ownerPub ecc.Point, input *note.Note) (*note.Note, error) {
	secret := new(big.Int).SetBytes(util.RandomBytes(types.SecretBytes))
	preimage := new(big.Int).SetBytes(util.RandomBytes(types.SecretBytes))
	return note.FromSecrets(amount, blinding, secret, preimage, ownerPub,
		input.Token, note.LeafIndexUnset)
}

func bigSliceToStr(in []*big.Int) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = v.String()
	}
	return out
}

func pathElementsToStr(p *merkle.Path) []string {
	out := make([]string, len(p.Elements))
	for i, e := range p.Elements {
		out[i] = e.String()
	}
	return out
}

func pathIndicesToStr(p *merkle.Path) []string {
	out := make([]string, len(p.Indices))
	for i, b := range p.Indices {
		out[i] = big.NewInt(int64(b)).String()
	}
	return out
}
