// Package keys manages the Baby Jubjub keypairs that own shielded notes.
// Keys are either sampled fresh or derived deterministically from a signature
// produced by the user's host-chain wallet, so the same wallet always
// recovers the same shielded identity on any client.
package keys

import (
	"crypto/rand"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/zktoken/zktoken-core/crypto/ecc"
	"github.com/zktoken/zktoken-core/crypto/ecc/bjj"
	"github.com/zktoken/zktoken-core/types"
	"github.com/zktoken/zktoken-core/util"
)

// KeyPair holds a private scalar and its public point pub = priv * Base8.
type KeyPair struct {
	priv *big.Int
	pub  ecc.Point
}

// Generate samples a fresh keypair. The private scalar is drawn uniformly
// from [1, L-1] by rejection sampling from the process CSPRNG.
func Generate() (*KeyPair, error) {
	order := bjj.New().Order()
	for {
		priv, err := rand.Int(rand.Reader, order)
		if err != nil {
			return nil, err
		}
		if priv.Sign() == 0 {
			continue
		}
		return FromPrivate(priv)
	}
}

// FromPrivate builds a keypair from an existing private scalar. The scalar
// must be in [1, L-1].
func FromPrivate(priv *big.Int) (*KeyPair, error) {
	order := bjj.New().Order()
	if priv == nil || priv.Sign() <= 0 || priv.Cmp(order) >= 0 {
		return nil, ecc.ErrInvalidScalar
	}
	pub := bjj.New()
	pub.ScalarBaseMult(priv)
	return &KeyPair{priv: new(big.Int).Set(priv), pub: pub}, nil
}

// DerivationMessage returns the ASCII message the host wallet must sign to
// derive the shielded keypair for the given hex address.
func DerivationMessage(address string) []byte {
	return []byte(types.KeyDerivationPrefix + strings.ToLower(util.TrimHex(address)))
}

// FromHostSignature derives a keypair deterministically from a host-chain
// wallet signature over DerivationMessage(address). The private scalar is
// keccak256(signature) mod L, bumped to 1 if the reduction lands on zero.
// Two calls with the same signature always produce the same keypair.
func FromHostSignature(signature []byte) (*KeyPair, error) {
	order := bjj.New().Order()
	priv := new(big.Int).SetBytes(ethcrypto.Keccak256(signature))
	priv.Mod(priv, order)
	if priv.Sign() == 0 {
		priv.SetInt64(1)
	}
	return FromPrivate(priv)
}

// Public returns the public point of the keypair.
func (k *KeyPair) Public() ecc.Point {
	p := bjj.New()
	p.Set(k.pub)
	return p
}

// Private returns a copy of the private scalar.
func (k *KeyPair) Private() *big.Int {
	return new(big.Int).Set(k.priv)
}

// ECDH computes the shared point priv * theirPub. Both parties obtain the
// same point. The peer's public key is validated before use.
func ECDH(priv *big.Int, theirPub ecc.Point) (ecc.Point, error) {
	order := bjj.New().Order()
	if priv == nil || priv.Sign() <= 0 || priv.Cmp(order) >= 0 {
		return nil, ecc.ErrInvalidScalar
	}
	if err := ecc.Validate(theirPub); err != nil {
		return nil, err
	}
	shared := bjj.New()
	shared.ScalarMult(theirPub, priv)
	return shared, nil
}

// Zeroize overwrites the private scalar. The keypair is unusable afterwards.
func (k *KeyPair) Zeroize() {
	if k.priv != nil {
		k.priv.SetInt64(0)
	}
}
