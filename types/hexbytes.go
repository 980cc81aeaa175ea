package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HexBytes is a byte slice which marshals JSON as a 0x-prefixed hex string.
type HexBytes []byte

// String returns the 0x-prefixed hex representation of the bytes.
func (b HexBytes) String() string {
	return "0x" + hex.EncodeToString(b)
}

// MarshalJSON implements the json.Marshaler interface.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	s = strings.TrimPrefix(s, "0x")
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hex bytes %q: %w", s, err)
	}
	*b = decoded
	return nil
}
