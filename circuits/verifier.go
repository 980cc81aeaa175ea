package circuits

import (
	"encoding/json"
	"fmt"

	rapidsnarktypes "github.com/iden3/go-rapidsnark/types"
	"github.com/vocdoni/circom2gnark/parser"
)

// VerifyLocal checks a circom Groth16 proof against the statement's
// verification key before it is ever submitted. It converts the proof to the
// gnark format and runs the off-chain pairing check. A proof that fails here
// would be rejected on-chain as well; one that passes can still be rejected
// for protocol reasons (unknown root, spent nullifier).
func VerifyLocal(vkeyJSON []byte, proof *rapidsnarktypes.ZKProof) error {
	if proof == nil || proof.Proof == nil {
		return ErrProofEncodeMalformed
	}
	vkey, err := parser.UnmarshalCircomVerificationKeyJSON(vkeyJSON)
	if err != nil {
		return fmt.Errorf("cannot parse verification key: %w", err)
	}
	proofJSON, err := json.Marshal(proof.Proof)
	if err != nil {
		return err
	}
	circomProof, err := parser.UnmarshalCircomProofJSON(proofJSON)
	if err != nil {
		return fmt.Errorf("cannot parse proof: %w", err)
	}
	gnarkProof, err := parser.ConvertCircomToGnark(circomProof, vkey, proof.PubSignals)
	if err != nil {
		return fmt.Errorf("cannot convert proof to gnark format: %w", err)
	}
	ok, err := parser.VerifyProof(gnarkProof)
	if err != nil {
		return fmt.Errorf("proof verification failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("proof verification failed")
	}
	return nil
}
