package circuits

import (
	"math/big"

	"github.com/zktoken/zktoken-core/crypto/ecc"
	"github.com/zktoken/zktoken-core/crypto/pedersen"
	"github.com/zktoken/zktoken-core/merkle"
	"github.com/zktoken/zktoken-core/note"
)

// WithdrawWitness is the input set of the withdraw statement. The withdrawn
// amount is revealed as a public signal; an optional change note keeps the
// remainder shielded. The withdrawn portion carries no blinding, so the full
// input blinding is assigned to the change side in every case.
type WithdrawWitness struct {
	// Public signals, in verifier order.
	Root             *big.Int
	NullifierHash    *big.Int
	Amount           *big.Int
	ChangeCommitment *big.Int

	// Private inputs.
	Input     *note.Note
	OwnerPriv *big.Int
	Path      *merkle.Path
	// Change is nil on a full withdrawal.
	Change *note.Note
}

// BuildWithdraw assembles and validates a withdraw witness revealing
// `amount`. When amount equals the input amount the withdrawal is full: the
// change commitment public signal is zero and no change note is created.
// Otherwise the remainder goes to a change note owned by changePub, carrying
// the entire input blinding.
func BuildWithdraw(input *note.Note, ownerPriv *big.Int, path *merkle.Path,
	amount *big.Int, changePub ecc.Point,
) (*WithdrawWitness, error) {
	if err := validateInputNote(input, ownerPriv, path); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 || amount.Cmp(pedersen.MaxAmount) >= 0 {
		return nil, pedersen.ErrAmountOutOfRange
	}
	changeAmount := new(big.Int).Sub(input.Amount, amount)
	if changeAmount.Sign() < 0 {
		return nil, pedersen.ErrAmountOutOfRange
	}

	w := &WithdrawWitness{
		Input:     input,
		OwnerPriv: ownerPriv,
		Path:      path,
		Amount:    new(big.Int).Set(amount),
		Root:      new(big.Int).Set(path.Root),
	}
	var err error
	if w.NullifierHash, err = input.Nullifier(); err != nil {
		return nil, err
	}
	if changeAmount.Sign() == 0 {
		w.ChangeCommitment = big.NewInt(0)
	} else {
		if err := validateOutputOwner(changePub); err != nil {
			return nil, err
		}
		w.Change, err = freshOutput(changeAmount, input.Blinding, changePub, input)
		if err != nil {
			return nil, err
		}
		if w.ChangeCommitment, err = w.Change.Commitment(); err != nil {
			return nil, err
		}
	}
	if err := w.checkConservation(); err != nil {
		return nil, err
	}
	return w, nil
}

// checkConservation re-asserts amount conservation and the withdraw blinding
// rule: the change side carries the entire input blinding.
func (w *WithdrawWitness) checkConservation() error {
	changeAmount := big.NewInt(0)
	changeBlinding := new(big.Int).Set(w.Input.Blinding)
	if w.Change != nil {
		changeAmount = w.Change.Amount
		changeBlinding = w.Change.Blinding
	}
	total := new(big.Int).Add(w.Amount, changeAmount)
	if total.Cmp(w.Input.Amount) != 0 {
		return ErrConservationViolation
	}
	if changeBlinding.Cmp(w.Input.Blinding) != 0 {
		return ErrConservationViolation
	}
	return nil
}

// PublicSignals returns [root, nullifierHash, amount, changeCommitment].
func (w *WithdrawWitness) PublicSignals() PublicSignals {
	return PublicSignals{w.Root, w.NullifierHash, w.Amount, w.ChangeCommitment}
}

// CircomInputs returns the witness as the string-keyed map the witness
// calculator parses.
func (w *WithdrawWitness) CircomInputs() map[string]any {
	changeAmount := big.NewInt(0)
	changeBlinding := w.Input.Blinding
	changeSecret := big.NewInt(0)
	changePreimage := big.NewInt(0)
	changeOwnerX, changeOwnerY := big.NewInt(0), big.NewInt(0)
	if w.Change != nil {
		changeAmount = w.Change.Amount
		changeBlinding = w.Change.Blinding
		changeSecret = w.Change.Secret
		changePreimage = w.Change.NullifierPreimage
		changeOwnerX, changeOwnerY = w.Change.OwnerPub.Point()
	}
	return map[string]any{
		"root":             w.Root.String(),
		"nullifierHash":    w.NullifierHash.String(),
		"amount":           w.Amount.String(),
		"changeCommitment": w.ChangeCommitment.String(),

		"inAmount":            w.Input.Amount.String(),
		"inBlinding":          w.Input.Blinding.String(),
		"inSecret":            w.Input.Secret.String(),
		"inNullifierPreimage": w.Input.NullifierPreimage.String(),
		"inPrivateKey":        w.OwnerPriv.String(),
		"inLeafIndex":         big.NewInt(w.Input.LeafIndex).String(),

		"pathElements": pathElementsToStr(w.Path),
		"pathIndices":  pathIndicesToStr(w.Path),

		"changeAmount":            changeAmount.String(),
		"changeBlinding":          changeBlinding.String(),
		"changeSecret":            changeSecret.String(),
		"changeNullifierPreimage": changePreimage.String(),
		"changeOwnerX":            changeOwnerX.String(),
		"changeOwnerY":            changeOwnerY.String(),
	}
}
