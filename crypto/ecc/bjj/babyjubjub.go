// Package bjj implements the engine's group element over the Baby Jubjub
// twisted Edwards curve, whose base field is the BN254 scalar field. The
// arithmetic is backed by the iden3 implementation, which is bit-compatible
// with the circomlib circuits and the on-chain hash domain.
package bjj

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/fxamacker/cbor/v2"
	babyjubjub "github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/iden3/go-iden3-crypto/constants"

	curve "github.com/zktoken/zktoken-core/crypto/ecc"
	"github.com/zktoken/zktoken-core/types"
)

const CurveType = "bjj_iden3"

var (
	// Prime is the base field modulus of Baby Jubjub, i.e. the BN254 scalar
	// field prime.
	Prime = new(big.Int).Set(constants.Q)

	// A and D are the twisted Edwards curve coefficients.
	A = big.NewInt(168700)
	D = big.NewInt(168696)

	// GeneratorX and GeneratorY are the curve generator G, of order 8*L. The
	// keying base Base8 equals 8*G and generates the prime-order subgroup.
	GeneratorX, _ = new(big.Int).SetString("995203441582195749578291179787384436505546430278305826713579947235728471134", 10)
	GeneratorY, _ = new(big.Int).SetString("5472060717959818805561601436314318772137091100104008585924551046643952123905", 10)
)

// BJJ is the affine representation of a Baby Jubjub group element.
type BJJ struct {
	inner *babyjubjub.Point
	lock  sync.Mutex
}

// New creates a new BJJ point set to the identity element.
func New() curve.Point {
	return &BJJ{inner: babyjubjub.NewPoint()}
}

func (g *BJJ) New() curve.Point {
	return &BJJ{inner: babyjubjub.NewPoint()}
}

// Order returns the order of the Baby Jubjub prime-order subgroup.
func (g *BJJ) Order() *big.Int {
	return new(big.Int).Set(babyjubjub.SubOrder)
}

func (g *BJJ) Add(a, b curve.Point) {
	g.inner = g.inner.Projective().Add(a.(*BJJ).inner.Projective(), b.(*BJJ).inner.Projective()).Affine()
}

func (g *BJJ) SafeAdd(a, b curve.Point) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.Add(a, b)
}

func (g *BJJ) ScalarMult(a curve.Point, scalar *big.Int) {
	g.inner = g.inner.Mul(scalar, a.(*BJJ).inner)
}

// ScalarBaseMult multiplies the keying base Base8 = 8*G by the scalar.
func (g *BJJ) ScalarBaseMult(scalar *big.Int) {
	g.inner = g.inner.Mul(scalar, babyjubjub.B8)
}

func (g *BJJ) Marshal() []byte {
	b := g.inner.Compress()
	return b[:]
}

func (g *BJJ) Unmarshal(buf []byte) error {
	if len(buf) != 32 {
		return fmt.Errorf("expected 32 bytes, got %d", len(buf))
	}
	b32 := [32]byte{}
	copy(b32[:], buf)
	p, err := g.inner.Decompress(b32)
	if err != nil {
		return err
	}
	g.inner = p
	return curve.Validate(g)
}

// MarshalJSON serializes the group element into a JSON byte slice.
func (g *BJJ) MarshalJSON() ([]byte, error) {
	return json.Marshal([]*types.BigInt{
		(*types.BigInt)(g.inner.X), (*types.BigInt)(g.inner.Y),
	})
}

// UnmarshalJSON deserializes the group element from a JSON byte slice.
func (g *BJJ) UnmarshalJSON(buf []byte) error {
	if g.inner == nil {
		g.inner = babyjubjub.NewPoint()
	}
	var coords []*types.BigInt
	if err := json.Unmarshal(buf, &coords); err != nil {
		return err
	}
	if len(coords) != 2 {
		return fmt.Errorf("expected 2 coordinates, got %d", len(coords))
	}
	g.inner.X = coords[0].MathBigInt()
	g.inner.Y = coords[1].MathBigInt()
	return nil
}

func (g *BJJ) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal([]*big.Int{g.inner.X, g.inner.Y})
}

func (g *BJJ) UnmarshalCBOR(buf []byte) error {
	if g.inner == nil {
		g.inner = babyjubjub.NewPoint()
	}
	var coords []*big.Int
	if err := cbor.Unmarshal(buf, &coords); err != nil {
		return err
	}
	if len(coords) != 2 {
		return fmt.Errorf("expected 2 coordinates, got %d", len(coords))
	}
	g.inner.X = coords[0]
	g.inner.Y = coords[1]
	return nil
}

func (g *BJJ) Equal(a curve.Point) bool {
	return g.inner.X.Cmp(a.(*BJJ).inner.X) == 0 && g.inner.Y.Cmp(a.(*BJJ).inner.Y) == 0
}

func (g *BJJ) Neg(a curve.Point) {
	x := new(big.Int).Neg(a.(*BJJ).inner.X)
	x.Mod(x, constants.Q)
	g.inner.X = x
	g.inner.Y = new(big.Int).Set(a.(*BJJ).inner.Y)
}

// SetZero sets the element to the group identity (0, 1).
func (g *BJJ) SetZero() {
	g.inner.X = big.NewInt(0)
	g.inner.Y = big.NewInt(1)
}

func (g *BJJ) Set(a curve.Point) {
	g.inner.X = new(big.Int).Set(a.(*BJJ).inner.X)
	g.inner.Y = new(big.Int).Set(a.(*BJJ).inner.Y)
}

// SetGenerator sets the element to the keying base Base8.
func (g *BJJ) SetGenerator() {
	g.inner.X = new(big.Int).Set(babyjubjub.B8.X)
	g.inner.Y = new(big.Int).Set(babyjubjub.B8.Y)
}

// OnCurve reports whether the element satisfies
// a*x^2 + y^2 = 1 + d*x^2*y^2 over the base field.
func (g *BJJ) OnCurve() bool {
	return g.inner.InCurve()
}

// InSubgroup reports whether the element belongs to the prime-order subgroup,
// i.e. SubOrder * P is the identity.
func (g *BJJ) InSubgroup() bool {
	return g.inner.InSubGroup()
}

func (g *BJJ) String() string {
	return fmt.Sprintf("%s,%s", g.inner.X.String(), g.inner.Y.String())
}

// Point returns the affine X and Y coordinates of the element.
func (g *BJJ) Point() (*big.Int, *big.Int) {
	return new(big.Int).Set(g.inner.X), new(big.Int).Set(g.inner.Y)
}

func (g *BJJ) SetPoint(x, y *big.Int) curve.Point {
	p := &BJJ{inner: babyjubjub.NewPoint()}
	p.inner.X = new(big.Int).Set(x)
	p.inner.Y = new(big.Int).Set(y)
	return p
}

func (g *BJJ) Type() string {
	return CurveType
}

// Generator returns the curve generator G as a group element. Note this is
// the order-8*L generator, not the keying base Base8 = 8*G; G itself is not
// in the prime-order subgroup.
func Generator() curve.Point {
	return New().SetPoint(GeneratorX, GeneratorY)
}
