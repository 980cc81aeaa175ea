// Package ecc defines the elliptic curve group interface used across the
// engine, plus the algebraic failure modes shared by its implementations.
package ecc

import (
	"errors"
	"math/big"
)

var (
	// ErrPointNotOnCurve is returned when affine coordinates do not satisfy
	// the curve equation.
	ErrPointNotOnCurve = errors.New("point is not on the curve")
	// ErrPointNotInSubgroup is returned when a point is on the curve but
	// outside the prime-order subgroup.
	ErrPointNotInSubgroup = errors.New("point is not in the prime-order subgroup")
	// ErrInvalidScalar is returned when a scalar is outside [1, order-1].
	ErrInvalidScalar = errors.New("scalar out of range")
	// ErrInverseOfZero is returned when a field inversion of zero is requested.
	ErrInverseOfZero = errors.New("inverse of zero")
)

// Point defines the operations that can be performed on elliptic curve group
// elements. It represents the affine coordinates of a point and provides
// methods for arithmetic, serialization and validation.
type Point interface {
	// New returns a new point set to the identity element.
	New() Point

	// Order returns the order of the prime-order subgroup.
	Order() *big.Int

	// Add adds two group elements and stores the result in the receiver.
	Add(a, b Point)

	// SafeAdd adds two group elements and stores the result in the receiver.
	// It is thread-safe, ensuring exclusive access to the receiver.
	SafeAdd(a, b Point)

	// ScalarMult multiplies the group element a by scalar and stores the
	// result in the receiver.
	ScalarMult(a Point, scalar *big.Int)

	// ScalarBaseMult multiplies the keying base point by scalar and stores
	// the result in the receiver.
	ScalarBaseMult(scalar *big.Int)

	// Marshal serializes the group element into a byte slice.
	Marshal() []byte

	// Unmarshal deserializes a byte slice into a group element. The input
	// must represent a valid point or an error is returned.
	Unmarshal(buf []byte) error

	// Equal checks if two group elements are equal.
	Equal(a Point) bool

	// Neg negates a group element.
	Neg(a Point)

	// SetZero sets the element to the group identity.
	SetZero()

	// Set sets the receiver to be equal to another group element.
	Set(a Point)

	// SetGenerator sets the element to the keying base point.
	SetGenerator()

	// OnCurve reports whether the element satisfies the curve equation.
	OnCurve() bool

	// InSubgroup reports whether the element belongs to the prime-order
	// subgroup.
	InSubgroup() bool

	// String returns a human-readable representation of the element.
	String() string

	// Point returns the affine X and Y coordinates of the element.
	Point() (*big.Int, *big.Int)

	// SetPoint sets the affine X and Y coordinates of the element.
	SetPoint(x, y *big.Int) Point

	// Type returns the identifier of the curve implementation.
	Type() string
}

// Validate returns an error unless p is a valid group element: on the curve
// and inside the prime-order subgroup. Every point entering the engine from
// the outside goes through this check.
func Validate(p Point) error {
	if !p.OnCurve() {
		return ErrPointNotOnCurve
	}
	if !p.InSubgroup() {
		return ErrPointNotInSubgroup
	}
	return nil
}
