// Package poseidon wraps the iden3 Poseidon permutation with the fixed-arity
// hashes the engine uses. The parameters (8 full rounds, 57 partial rounds for
// the two-input case, x^5 S-box, canonical constants) are the circomlib ones,
// so outputs are byte-identical to the on-chain hash. Any deviation here
// silently invalidates every proof.
package poseidon

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/constants"
	"github.com/iden3/go-iden3-crypto/poseidon"
)

// checkInputs rejects inputs that are not reduced field elements. The
// on-chain hash operates on canonical representatives only.
func checkInputs(inputs ...*big.Int) error {
	for i, in := range inputs {
		if in == nil {
			return fmt.Errorf("input %d is nil", i)
		}
		if in.Sign() < 0 || in.Cmp(constants.Q) >= 0 {
			return fmt.Errorf("input %d is not a reduced field element", i)
		}
	}
	return nil
}

// Hash2 hashes two field elements. It is the node hash of the note commitment
// tree: Hash2(left, right).
func Hash2(a, b *big.Int) (*big.Int, error) {
	if err := checkInputs(a, b); err != nil {
		return nil, err
	}
	return poseidon.Hash([]*big.Int{a, b})
}

// Hash3 hashes three field elements. It is the nullifier hash:
// Hash3(nullifierPreimage, secret, leafIndex).
func Hash3(a, b, c *big.Int) (*big.Int, error) {
	if err := checkInputs(a, b, c); err != nil {
		return nil, err
	}
	return poseidon.Hash([]*big.Int{a, b, c})
}

// Hash5 hashes five field elements. It is the note commitment hash:
// Hash5(pedersenX, pedersenY, secret, nullifierPreimage, ownerPubX).
func Hash5(a, b, c, d, e *big.Int) (*big.Int, error) {
	if err := checkInputs(a, b, c, d, e); err != nil {
		return nil, err
	}
	return poseidon.Hash([]*big.Int{a, b, c, d, e})
}

// Hash hashes an arbitrary number of field elements, up to the permutation
// width limit of the canonical parameter set.
func Hash(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs provided")
	}
	if len(inputs) > 16 {
		return nil, fmt.Errorf("too many inputs")
	}
	if err := checkInputs(inputs...); err != nil {
		return nil, err
	}
	return poseidon.Hash(inputs)
}
