// Package pedersen implements the additively homomorphic commitment
// amount*G + blinding*H over Baby Jubjub. G is the curve generator; H is
// derived from a public seed by hash-to-curve with cofactor clearing, so its
// discrete log with respect to G is unknown to everyone.
package pedersen

import (
	"math/big"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/zktoken/zktoken-core/crypto/ecc"
	"github.com/zktoken/zktoken-core/crypto/ecc/bjj"
	"github.com/zktoken/zktoken-core/types"
)

// MaxAmount is one past the largest committable amount (2^64).
var MaxAmount = new(big.Int).Lsh(big.NewInt(1), types.MaxAmountBits)

var (
	hOnce sync.Once
	hBase ecc.Point
)

// G returns the Pedersen value base: the Baby Jubjub generator G, of order
// 8*L (the keying base Base8 is 8*G).
func G() ecc.Point {
	return bjj.Generator()
}

// H returns the Pedersen blinding base, derived deterministically from the
// protocol seed. The derivation hashes seed||counter with keccak256 until the
// candidate y yields a curve point, then clears the cofactor. The result is a
// fixed constant of the protocol; all clients must agree on it.
func H() ecc.Point {
	hOnce.Do(func() {
		hBase = deriveH([]byte(types.PedersenHSeed))
	})
	p := bjj.New()
	p.Set(hBase)
	return p
}

// deriveH performs the try-and-increment hash-to-curve. For counter c from 0:
// y = keccak256(seed || c) mod p; solve a*x^2 + y^2 = 1 + d*x^2*y^2 for x;
// if x^2 has a square root, take the even root, multiply the point by the
// cofactor 8, and accept the first non-identity result.
func deriveH(seed []byte) ecc.Point {
	one := big.NewInt(1)
	for counter := byte(0); ; counter++ {
		digest := ethcrypto.Keccak256(seed, []byte{counter})
		y := new(big.Int).SetBytes(digest)
		y.Mod(y, bjj.Prime)

		// x^2 = (1 - y^2) / (a - d*y^2) mod p
		y2 := new(big.Int).Mul(y, y)
		y2.Mod(y2, bjj.Prime)
		num := new(big.Int).Sub(one, y2)
		num.Mod(num, bjj.Prime)
		den := new(big.Int).Mul(bjj.D, y2)
		den.Sub(bjj.A, den)
		den.Mod(den, bjj.Prime)
		if den.Sign() == 0 {
			continue
		}
		den.ModInverse(den, bjj.Prime)
		x2 := new(big.Int).Mul(num, den)
		x2.Mod(x2, bjj.Prime)

		x := new(big.Int).ModSqrt(x2, bjj.Prime)
		if x == nil {
			continue
		}
		// canonical root: the even one
		if x.Bit(0) == 1 {
			x.Sub(bjj.Prime, x)
		}

		p := bjj.New().SetPoint(x, y)
		if !p.OnCurve() {
			continue
		}
		h := bjj.New()
		h.ScalarMult(p, big.NewInt(8))
		identity := bjj.New()
		identity.SetZero()
		if h.Equal(identity) {
			continue
		}
		return h
	}
}

// Commit computes amount*G + blinding*H. The amount must be in [0, 2^64);
// the blinding factor is an arbitrary field scalar and is used as-is, never
// reduced by the subgroup order.
func Commit(amount, blinding *big.Int) (ecc.Point, error) {
	if amount.Sign() < 0 || amount.Cmp(MaxAmount) >= 0 {
		return nil, ErrAmountOutOfRange
	}
	aG := bjj.New()
	aG.ScalarMult(G(), amount)
	bH := bjj.New()
	bH.ScalarMult(H(), blinding)
	out := bjj.New()
	out.Add(aG, bH)
	return out, nil
}
