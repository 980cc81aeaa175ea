package memo

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zktoken/zktoken-core/crypto/keys"
	"github.com/zktoken/zktoken-core/note"
)

// Event is one new-commitment entry of the contract's event log: the sealed
// memo, the commitment it belongs to and the leaf index the chain assigned.
type Event struct {
	Memo       []byte
	Commitment *big.Int
	LeafIndex  int64
	Block      uint64
	Token      common.Address
}

// Scan walks an ordered event stream and returns the notes addressed to the
// given key. For each event it attempts decryption, rebuilds the note with
// the recipient's public key and the event's leaf index, and keeps it only if
// the recomputed note commitment equals the event's commitment. Events that
// fail at any step are skipped silently.
func Scan(events []Event, recipient *keys.KeyPair) ([]*note.Note, error) {
	priv := recipient.Private()
	pub := recipient.Public()
	var found []*note.Note
	for _, ev := range events {
		data, err := Open(ev.Memo, priv)
		if err != nil {
			continue
		}
		n, err := note.FromSecrets(data.Amount, data.Blinding, data.Secret,
			data.NullifierPreimage, pub, ev.Token, ev.LeafIndex)
		if err != nil {
			continue
		}
		cm, err := n.Commitment()
		if err != nil {
			continue
		}
		if cm.Cmp(ev.Commitment) != 0 {
			continue
		}
		found = append(found, n)
	}
	return found, nil
}
