package circuits

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iden3/go-rapidsnark/prover"
	rapidsnarktypes "github.com/iden3/go-rapidsnark/types"
	"github.com/iden3/go-rapidsnark/witness"
)

// Witness is implemented by both statement witnesses.
type Witness interface {
	CircomInputs() map[string]any
	PublicSignals() PublicSignals
}

// Prover produces a Groth16 proof for an assembled witness. The concrete
// proving system is external to the engine; implementations may take seconds
// and must honor context cancellation where possible.
type Prover interface {
	Prove(ctx context.Context, w Witness) (*rapidsnarktypes.ZKProof, error)
}

// Artifacts bundles the compiled circuit and proving key of one statement.
type Artifacts struct {
	Wasm       []byte
	ProvingKey []byte
}

// RapidsnarkProver runs the witness calculator over the compiled circom
// circuit and proves with rapidsnark's Groth16 implementation.
type RapidsnarkProver struct {
	artifacts Artifacts
}

// NewRapidsnarkProver creates a prover from circuit artifacts.
func NewRapidsnarkProver(artifacts Artifacts) (*RapidsnarkProver, error) {
	if len(artifacts.Wasm) == 0 || len(artifacts.ProvingKey) == 0 {
		return nil, fmt.Errorf("missing circuit artifacts")
	}
	return &RapidsnarkProver{artifacts: artifacts}, nil
}

// Prove calculates the circuit witness from the assembled inputs and
// generates the Groth16 proof. The context is checked before the two
// long-running stages; the stages themselves are opaque.
func (p *RapidsnarkProver) Prove(ctx context.Context, w Witness) (*rapidsnarktypes.ZKProof, error) {
	inputsJSON, err := json.Marshal(w.CircomInputs())
	if err != nil {
		return nil, err
	}
	parsedInputs, err := witness.ParseInputs(inputsJSON)
	if err != nil {
		return nil, fmt.Errorf("cannot parse witness inputs: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	calc, err := witness.NewCircom2WitnessCalculator(p.artifacts.Wasm, true)
	if err != nil {
		return nil, fmt.Errorf("cannot instance witness calculator: %w", err)
	}
	wtns, err := calc.CalculateWTNSBin(parsedInputs, true)
	if err != nil {
		return nil, fmt.Errorf("cannot calculate witness: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	proofJSON, pubSignalsJSON, err := prover.Groth16ProverRaw(p.artifacts.ProvingKey, wtns)
	if err != nil {
		return nil, fmt.Errorf("prover failed: %w", err)
	}
	var proofData rapidsnarktypes.ProofData
	if err := json.Unmarshal([]byte(proofJSON), &proofData); err != nil {
		return nil, fmt.Errorf("cannot decode proof: %w", err)
	}
	var pubSignals []string
	if err := json.Unmarshal([]byte(pubSignalsJSON), &pubSignals); err != nil {
		return nil, fmt.Errorf("cannot decode public signals: %w", err)
	}
	return &rapidsnarktypes.ZKProof{Proof: &proofData, PubSignals: pubSignals}, nil
}
