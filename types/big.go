package types

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// BigInt is a big.Int wrapper which marshals JSON to a string representation
// of the big number. It is CBOR friendly as well.
type BigInt big.Int

// MarshalJSON implements the json.Marshaler interface.
func (i BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + (*big.Int)(&i).String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (i *BigInt) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if _, ok := (*big.Int)(i).SetString(s, 10); !ok {
		return fmt.Errorf("invalid big number %q", s)
	}
	return nil
}

// MarshalCBOR implements the cbor.Marshaler interface.
func (i BigInt) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal((*big.Int)(&i).Bytes())
}

// UnmarshalCBOR implements the cbor.Unmarshaler interface.
func (i *BigInt) UnmarshalCBOR(data []byte) error {
	var buf []byte
	if err := cbor.Unmarshal(data, &buf); err != nil {
		return err
	}
	(*big.Int)(i).SetBytes(buf)
	return nil
}

// MathBigInt converts b to a math/big *big.Int.
func (i *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(i)
}

// String returns the decimal representation of the big number.
func (i *BigInt) String() string {
	return (*big.Int)(i).String()
}

// SetBigInt sets the value from a math/big *big.Int and returns itself.
func (i *BigInt) SetBigInt(v *big.Int) *BigInt {
	(*big.Int)(i).Set(v)
	return i
}
