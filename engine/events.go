package engine

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zktoken/zktoken-core/circuits"
)

// ErrChainReject is returned when the on-chain verifier rejects a submission
// (unknown root, spent nullifier, failed pairing). The engine rolls back any
// optimistic local state before surfacing it.
var ErrChainReject = errors.New("chain rejected the submission")

// OutputEvent is one freshly-inserted commitment of a pool event, with the
// leaf index the chain assigned and the sealed memo addressed to its owner.
type OutputEvent struct {
	Commitment *big.Int
	LeafIndex  int64
	Memo       []byte
}

// PoolEvent is the unit of the contract's event stream the engine ingests,
// in block order: the consumed nullifier (nil on deposits) and the new
// outputs.
type PoolEvent struct {
	Block     uint64
	Token     common.Address
	Nullifier *big.Int
	Outputs   []OutputEvent
}

// Submitter carries proofs and commitments to the chain. Implementations
// wrap whatever transport the application uses; the engine only depends on
// this contract. A rejection by the verifier must be reported as
// ErrChainReject.
type Submitter interface {
	// SubmitDeposit publishes a new commitment and its sealed memo.
	SubmitDeposit(ctx context.Context, token common.Address, amount *big.Int,
		commitment *big.Int, memo []byte) error
	// SubmitSpend publishes an encoded proof with its public signals and the
	// memos of the output notes.
	SubmitSpend(ctx context.Context, token common.Address, proof []byte,
		signals circuits.PublicSignals, memos [][]byte) error
}

// EventSource yields pool events in block order.
type EventSource interface {
	// Next blocks until the next event is available or the context is done.
	Next(ctx context.Context) (*PoolEvent, error)
}
