package circuits

import (
	"fmt"
	"math/big"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	rapidsnarktypes "github.com/iden3/go-rapidsnark/types"

	"github.com/zktoken/zktoken-core/types"
)

// EncodeProof serializes a Groth16 proof into the 256-byte ABI layout of the
// tuple (uint256[2], uint256[2][2], uint256[2]).
//
// The G2 element piB lives in Fq2; the prover emits each coordinate as
// [c0, c1] but the pairing precompile consumes [c1, c0], so the inner pair is
// swapped on both the x and y components. Omitting the swap yields proofs
// that verify off-chain and fail on-chain.
func EncodeProof(proof *rapidsnarktypes.ProofData) ([]byte, error) {
	piA, piB, piC, err := parseProofPoints(proof)
	if err != nil {
		return nil, err
	}
	words := []*big.Int{
		piA[0], piA[1],
		piB[0][1], piB[0][0],
		piB[1][1], piB[1][0],
		piC[0], piC[1],
	}
	out := make([]byte, types.ProofBytes)
	for i, w := range words {
		w.FillBytes(out[i*32 : (i+1)*32])
	}
	return out, nil
}

// DecodeProof parses 256 ABI-encoded proof bytes back into the prover's
// representation, undoing the G2 inner-pair swap.
func DecodeProof(data []byte) (*rapidsnarktypes.ProofData, error) {
	if len(data) != types.ProofBytes {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d",
			ErrProofEncodeMalformed, types.ProofBytes, len(data))
	}
	words := make([]*big.Int, 8)
	for i := range words {
		words[i] = new(big.Int).SetBytes(data[i*32 : (i+1)*32])
	}
	proof := &rapidsnarktypes.ProofData{
		A: []string{words[0].String(), words[1].String(), "1"},
		B: [][]string{
			{words[3].String(), words[2].String()},
			{words[5].String(), words[4].String()},
			{"1", "0"},
		},
		C:        []string{words[6].String(), words[7].String(), "1"},
		Protocol: "groth16",
	}
	if _, _, _, err := parseProofPoints(proof); err != nil {
		return nil, err
	}
	return proof, nil
}

// parseProofPoints validates the shape and the group membership of the three
// proof elements and returns their affine coordinates.
func parseProofPoints(proof *rapidsnarktypes.ProofData) (
	piA [2]*big.Int, piB [2][2]*big.Int, piC [2]*big.Int, err error,
) {
	if proof == nil || len(proof.A) < 2 || len(proof.B) < 2 || len(proof.C) < 2 ||
		len(proof.B[0]) < 2 || len(proof.B[1]) < 2 {
		err = ErrProofEncodeMalformed
		return
	}
	if piA[0], err = parseFq(proof.A[0]); err != nil {
		return
	}
	if piA[1], err = parseFq(proof.A[1]); err != nil {
		return
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if piB[i][j], err = parseFq(proof.B[i][j]); err != nil {
				return
			}
		}
	}
	if piC[0], err = parseFq(proof.C[0]); err != nil {
		return
	}
	if piC[1], err = parseFq(proof.C[1]); err != nil {
		return
	}
	if err = checkG1(piA); err != nil {
		return
	}
	if err = checkG2(piB); err != nil {
		return
	}
	err = checkG1(piC)
	return
}

// parseFq parses a decimal base-field coordinate and rejects unreduced values.
func parseFq(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 || v.Cmp(fp.Modulus()) >= 0 {
		return nil, fmt.Errorf("%w: coordinate %q not a reduced base field element",
			ErrProofEncodeMalformed, s)
	}
	return v, nil
}

// checkG1 and checkG2 refuse (0, 0): gnark reads it as the point at infinity
// and IsOnCurve accepts it, but it does not satisfy the affine curve equation.
func checkG1(coords [2]*big.Int) error {
	var p bn254.G1Affine
	p.X.SetBigInt(coords[0])
	p.Y.SetBigInt(coords[1])
	if p.IsInfinity() || !p.IsOnCurve() {
		return fmt.Errorf("%w: G1 element not on curve", ErrProofEncodeMalformed)
	}
	return nil
}

func checkG2(coords [2][2]*big.Int) error {
	var p bn254.G2Affine
	p.X.A0.SetBigInt(coords[0][0])
	p.X.A1.SetBigInt(coords[0][1])
	p.Y.A0.SetBigInt(coords[1][0])
	p.Y.A1.SetBigInt(coords[1][1])
	if p.IsInfinity() || !p.IsOnCurve() {
		return fmt.Errorf("%w: G2 element not on curve", ErrProofEncodeMalformed)
	}
	if !p.IsInSubGroup() {
		return fmt.Errorf("%w: G2 element not in subgroup", ErrProofEncodeMalformed)
	}
	return nil
}
