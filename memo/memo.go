// Package memo implements the note-encryption channel: the four secrets that
// reconstruct a note are sealed to the recipient's Baby Jubjub key and carried
// through the public event log. Decryption failures of any kind collapse into
// a single opaque rejection so scanning leaks nothing about candidate memos.
package memo

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
	"math/big"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/zktoken/zktoken-core/crypto/ecc"
	"github.com/zktoken/zktoken-core/crypto/ecc/bjj"
	"github.com/zktoken/zktoken-core/crypto/keys"
	"github.com/zktoken/zktoken-core/types"
)

// ErrMemoReject is the single error returned for any memo that cannot be
// opened: wrong length, invalid ephemeral point, failed authentication. The
// caller cannot distinguish "corrupt" from "not mine".
var ErrMemoReject = errors.New("memo rejected")

// Data is the fixed-layout memo plaintext: the four scalars a recipient needs
// to reconstruct a note.
type Data struct {
	Amount            *big.Int
	Blinding          *big.Int
	Secret            *big.Int
	NullifierPreimage *big.Int
}

// Encode packs the four scalars as 32-byte big-endian words.
func (d *Data) Encode() []byte {
	buf := make([]byte, types.MemoPlaintextBytes)
	d.Amount.FillBytes(buf[0:32])
	d.Blinding.FillBytes(buf[32:64])
	d.Secret.FillBytes(buf[64:96])
	d.NullifierPreimage.FillBytes(buf[96:128])
	return buf
}

// decodeData parses a fixed-layout plaintext.
func decodeData(buf []byte) *Data {
	return &Data{
		Amount:            new(big.Int).SetBytes(buf[0:32]),
		Blinding:          new(big.Int).SetBytes(buf[32:64]),
		Secret:            new(big.Int).SetBytes(buf[64:96]),
		NullifierPreimage: new(big.Int).SetBytes(buf[96:128]),
	}
}

// deriveKey runs HKDF-SHA256 over the 32-byte x-coordinate of the shared
// point with the protocol info string, yielding the AEAD key.
func deriveKey(shared ecc.Point) ([]byte, error) {
	x, _ := shared.Point()
	xBytes := make([]byte, 32)
	x.FillBytes(xBytes)
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, xBytes, nil, []byte(types.MemoInfoString))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Seal encrypts data to the recipient public key. Wire layout:
// ephemeral x (32) | ephemeral y (32) | nonce (12) | ciphertext+tag. The
// output length is always types.MemoBytes, independent of content.
func Seal(data *Data, recipientPub ecc.Point) ([]byte, error) {
	if err := ecc.Validate(recipientPub); err != nil {
		return nil, err
	}
	eph, err := keys.Generate()
	if err != nil {
		return nil, err
	}
	shared, err := keys.ECDH(eph.Private(), recipientPub)
	if err != nil {
		return nil, err
	}
	key, err := deriveKey(shared)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	out := make([]byte, 0, types.MemoBytes)
	ex, ey := eph.Public().Point()
	coord := make([]byte, 32)
	ex.FillBytes(coord)
	out = append(out, coord...)
	ey.FillBytes(coord)
	out = append(out, coord...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, data.Encode(), nil)
	if len(out) != types.MemoBytes {
		return nil, errors.New("sealed memo has unexpected length")
	}
	return out, nil
}

// Open decrypts a memo with the recipient's private scalar. Every failure
// path returns ErrMemoReject and nothing else.
func Open(sealed []byte, priv *big.Int) (*Data, error) {
	if len(sealed) != types.MemoBytes {
		return nil, ErrMemoReject
	}
	ex := new(big.Int).SetBytes(sealed[0:32])
	ey := new(big.Int).SetBytes(sealed[32:64])
	eph := bjj.New().SetPoint(ex, ey)
	if err := ecc.Validate(eph); err != nil {
		return nil, ErrMemoReject
	}
	shared, err := keys.ECDH(priv, eph)
	if err != nil {
		return nil, ErrMemoReject
	}
	key, err := deriveKey(shared)
	if err != nil {
		return nil, ErrMemoReject
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, ErrMemoReject
	}
	nonce := sealed[64 : 64+chacha20poly1305.NonceSize]
	plaintext, err := aead.Open(nil, nonce, sealed[64+chacha20poly1305.NonceSize:], nil)
	if err != nil {
		return nil, ErrMemoReject
	}
	if len(plaintext) != types.MemoPlaintextBytes {
		return nil, ErrMemoReject
	}
	return decodeData(plaintext), nil
}
