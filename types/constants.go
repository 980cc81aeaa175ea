package types

const (
	// TreeDepth is the fixed depth of the note commitment tree. It must match
	// the on-chain incremental tree.
	TreeDepth = 20
	// TreeCapacity is the maximum number of leaves the tree can hold.
	TreeCapacity = 1 << TreeDepth
	// RootHistorySize is the number of recent roots the on-chain verifier
	// accepts for inclusion proofs.
	RootHistorySize = 30
	// MaxAmountBits is the bit width of a note amount.
	MaxAmountBits = 64
	// SecretBytes is the byte length of sampled note secrets, nullifier
	// preimages and blinding factors.
	SecretBytes = 31
	// MemoPlaintextBytes is the fixed memo plaintext length: four 32-byte
	// big-endian scalars (amount, blinding, secret, nullifier preimage).
	MemoPlaintextBytes = 128
	// MemoBytes is the total wire length of a sealed memo: ephemeral point
	// (64) + nonce (12) + ciphertext (128) + AEAD tag (16).
	MemoBytes = 64 + 12 + MemoPlaintextBytes + 16
	// ProofBytes is the ABI-encoded Groth16 proof length accepted by the
	// on-chain verifier.
	ProofBytes = 256
)

// KeyDerivationPrefix is the ASCII prefix of the host-chain signature message
// used to derive a shielded keypair.
const KeyDerivationPrefix = "zktoken-shielded-key-v1:"

// MemoInfoString is the HKDF info string of the memo encryption channel.
const MemoInfoString = "zktoken-memo-v1"

// PedersenHSeed is the ASCII seed of the hash-to-curve derivation of the
// second Pedersen base H.
const PedersenHSeed = "zktoken_pedersen_h"
