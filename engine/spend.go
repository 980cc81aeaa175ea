package engine

import (
	"math/big"

	"github.com/zktoken/zktoken-core/note"
)

// SpendState tracks a spend attempt through its lifecycle. Cancellation is
// local-only up to and including Proving; once Submitted, the engine owns a
// pending record until the chain resolves it.
type SpendState int

const (
	StateIdle SpendState = iota
	StateBuildingWitness
	StateProving
	StateEncodingProof
	StateSubmitted
	StateConfirmed
	StateRejected
)

func (s SpendState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuildingWitness:
		return "building_witness"
	case StateProving:
		return "proving"
	case StateEncodingProof:
		return "encoding_proof"
	case StateSubmitted:
		return "submitted"
	case StateConfirmed:
		return "confirmed"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Spend is the record of one spend attempt. While pending, it keeps the
// unfinalized output notes so a confirmation can bind them to their assigned
// leaf indices, and the input nullifier so a rejection can restore the input
// note.
type Spend struct {
	State     SpendState
	Nullifier *big.Int
	Input     *note.Note
	// Outputs are the shielded output notes awaiting leaf indices. Withdraw
	// spends have at most one (the change note).
	Outputs []*note.Note
	Proof   []byte

	// prevSpent remembers the input's spent flag at submission time so a
	// rejection restores exactly the pre-submit state.
	prevSpent bool
}
