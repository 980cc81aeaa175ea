// Package circuits assembles the witness vectors consumed by the external
// Groth16 prover for the two spend statements (transfer and withdraw),
// validates every algebraic precondition before proving, and encodes the
// resulting proofs into the ABI byte layout the on-chain verifier expects.
package circuits

import (
	"errors"
	"math/big"

	"github.com/zktoken/zktoken-core/types"
)

// NLevels is the depth of the in-circuit Merkle checker. It must match the
// tree depth of the synchronizer and the on-chain contract.
const NLevels = types.TreeDepth

// NOutputs is the number of output notes of a transfer statement.
const NOutputs = 2

var (
	// ErrConservationViolation is returned when the amount or blinding sums
	// of a witness disagree. Reaching it means a bug upstream; the check runs
	// anyway because failing here is cheaper than an opaque prover failure.
	ErrConservationViolation = errors.New("conservation violation in witness")
	// ErrMerklePathInvalid is returned when the witness path does not fold
	// the input note commitment to the declared root.
	ErrMerklePathInvalid = errors.New("merkle path does not verify against root")
	// ErrProofEncodeMalformed is returned when proof pieces are not the
	// expected field shape.
	ErrProofEncodeMalformed = errors.New("malformed proof data")
	// ErrOwnerMismatch is returned when the spending key does not own the
	// input note.
	ErrOwnerMismatch = errors.New("private key does not own the input note")
	// ErrNonCanonicalPoint is returned when an output owner key has a zero or
	// non-canonical y coordinate. Only x binds the owner inside the
	// commitment hash, so the assembler refuses ambiguous points outright.
	ErrNonCanonicalPoint = errors.New("output owner key is not canonical")
)

// PublicSignals is the ordered public input tuple the verifier compares
// signal by signal.
type PublicSignals []*big.Int

// Strings returns the signals as decimal strings, the shape snarkjs and the
// witness calculator expect.
func (ps PublicSignals) Strings() []string {
	out := make([]string, len(ps))
	for i, s := range ps {
		out[i] = s.String()
	}
	return out
}
