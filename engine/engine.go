// Package engine ties the core components into the client workflow: minting
// deposits, building and proving spends, submitting them, and ingesting the
// chain's event stream to keep the local tree and note set synchronized.
package engine

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zktoken/zktoken-core/circuits"
	"github.com/zktoken/zktoken-core/crypto/ecc"
	"github.com/zktoken/zktoken-core/crypto/keys"
	"github.com/zktoken/zktoken-core/log"
	"github.com/zktoken/zktoken-core/memo"
	"github.com/zktoken/zktoken-core/merkle"
	"github.com/zktoken/zktoken-core/note"
)

// Config wires the engine's collaborators. TransferVKey and WithdrawVKey are
// optional; when present every proof is verified locally before submission.
type Config struct {
	Keys           *keys.KeyPair
	Submitter      Submitter
	TransferProver circuits.Prover
	WithdrawProver circuits.Prover
	TransferVKey   []byte
	WithdrawVKey   []byte
}

// Engine is the per-wallet client core. Spend attempts are serialized: a
// single writer mutates the note store and the tree mirror.
type Engine struct {
	cfg   Config
	notes *note.Store
	tree  *merkle.Tree

	// spendMtx imposes a total ordering over spend attempts so two proofs
	// are never built against the same note concurrently.
	spendMtx sync.Mutex

	pendingMtx sync.Mutex
	// pending maps nullifier strings to submitted spends awaiting chain
	// resolution.
	pending map[string]*Spend
	// pendingDeposits maps commitment strings to unfinalized deposit notes.
	pendingDeposits map[string]*note.Note

	lastBlock uint64
}

// New creates an engine with an empty note set and tree mirror.
func New(cfg Config) (*Engine, error) {
	if cfg.Keys == nil {
		return nil, fmt.Errorf("engine requires a keypair")
	}
	if cfg.Submitter == nil {
		return nil, fmt.Errorf("engine requires a submitter")
	}
	tree, err := merkle.NewTree()
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:             cfg,
		notes:           note.NewStore(),
		tree:            tree,
		pending:         make(map[string]*Spend),
		pendingDeposits: make(map[string]*note.Note),
	}, nil
}

// Notes returns the engine's note store.
func (e *Engine) Notes() *note.Store { return e.notes }

// Tree returns the engine's tree mirror.
func (e *Engine) Tree() *merkle.Tree { return e.tree }

// LastBlock returns the block height of the last ingested event.
func (e *Engine) LastBlock() uint64 { return e.lastBlock }

// Deposit mints a fresh note for the engine's own key, seals its memo and
// submits the commitment. The note stays unfinalized until the chain reports
// its assigned leaf index through the event stream.
func (e *Engine) Deposit(ctx context.Context, token common.Address, amount *big.Int) (*note.Note, error) {
	n, err := note.New(amount, e.cfg.Keys.Public(), token)
	if err != nil {
		return nil, err
	}
	cm, err := n.Commitment()
	if err != nil {
		return nil, err
	}
	sealed, err := memo.Seal(&memo.Data{
		Amount:            n.Amount,
		Blinding:          n.Blinding,
		Secret:            n.Secret,
		NullifierPreimage: n.NullifierPreimage,
	}, e.cfg.Keys.Public())
	if err != nil {
		return nil, err
	}
	if err := e.cfg.Submitter.SubmitDeposit(ctx, token, amount, cm, sealed); err != nil {
		return nil, err
	}
	e.pendingMtx.Lock()
	e.pendingDeposits[cm.String()] = n
	e.pendingMtx.Unlock()
	log.Infow("deposit submitted", "token", token.Hex(), "commitment", cm.String())
	return n, nil
}

// Transfer spends input, sending sendAmount to recipientPub and the change
// back to the engine's own key. It walks the full spend state machine and
// returns the submitted spend record.
func (e *Engine) Transfer(ctx context.Context, input *note.Note, sendAmount *big.Int,
	recipientPub ecc.Point,
) (*Spend, error) {
	if e.cfg.TransferProver == nil {
		return nil, fmt.Errorf("no transfer prover configured")
	}
	e.spendMtx.Lock()
	defer e.spendMtx.Unlock()

	spend := &Spend{State: StateBuildingWitness, Input: input}
	path, err := e.tree.Path(uint32(input.LeafIndex))
	if err != nil {
		return nil, err
	}
	w, err := circuits.BuildTransfer(input, e.cfg.Keys.Private(), path,
		sendAmount, recipientPub, e.cfg.Keys.Public())
	if err != nil {
		return nil, err
	}
	spend.Nullifier = w.NullifierHash
	spend.Outputs = w.Outputs[:]

	spend.State = StateProving
	proof, err := e.cfg.TransferProver.Prove(ctx, w)
	if err != nil {
		return nil, err
	}
	if len(e.cfg.TransferVKey) > 0 {
		if err := circuits.VerifyLocal(e.cfg.TransferVKey, proof); err != nil {
			return nil, err
		}
	}

	spend.State = StateEncodingProof
	encoded, err := circuits.EncodeProof(proof.Proof)
	if err != nil {
		return nil, err
	}
	spend.Proof = encoded

	memos := make([][]byte, len(w.Outputs))
	for i, out := range w.Outputs {
		sealed, err := memo.Seal(&memo.Data{
			Amount:            out.Amount,
			Blinding:          out.Blinding,
			Secret:            out.Secret,
			NullifierPreimage: out.NullifierPreimage,
		}, out.OwnerPub)
		if err != nil {
			return nil, err
		}
		memos[i] = sealed
	}

	if err := e.submitSpend(ctx, input.Token, spend, w.PublicSignals(), memos); err != nil {
		return nil, err
	}
	return spend, nil
}

// Withdraw spends input revealing amount publicly; any remainder returns to
// the engine's own key as a shielded change note.
func (e *Engine) Withdraw(ctx context.Context, input *note.Note, amount *big.Int) (*Spend, error) {
	if e.cfg.WithdrawProver == nil {
		return nil, fmt.Errorf("no withdraw prover configured")
	}
	e.spendMtx.Lock()
	defer e.spendMtx.Unlock()

	spend := &Spend{State: StateBuildingWitness, Input: input}
	path, err := e.tree.Path(uint32(input.LeafIndex))
	if err != nil {
		return nil, err
	}
	w, err := circuits.BuildWithdraw(input, e.cfg.Keys.Private(), path, amount, e.cfg.Keys.Public())
	if err != nil {
		return nil, err
	}
	spend.Nullifier = w.NullifierHash
	if w.Change != nil {
		spend.Outputs = []*note.Note{w.Change}
	}

	spend.State = StateProving
	proof, err := e.cfg.WithdrawProver.Prove(ctx, w)
	if err != nil {
		return nil, err
	}
	if len(e.cfg.WithdrawVKey) > 0 {
		if err := circuits.VerifyLocal(e.cfg.WithdrawVKey, proof); err != nil {
			return nil, err
		}
	}

	spend.State = StateEncodingProof
	encoded, err := circuits.EncodeProof(proof.Proof)
	if err != nil {
		return nil, err
	}
	spend.Proof = encoded

	var memos [][]byte
	if w.Change != nil {
		sealed, err := memo.Seal(&memo.Data{
			Amount:            w.Change.Amount,
			Blinding:          w.Change.Blinding,
			Secret:            w.Change.Secret,
			NullifierPreimage: w.Change.NullifierPreimage,
		}, w.Change.OwnerPub)
		if err != nil {
			return nil, err
		}
		memos = [][]byte{sealed}
	}

	if err := e.submitSpend(ctx, input.Token, spend, w.PublicSignals(), memos); err != nil {
		return nil, err
	}
	return spend, nil
}

// submitSpend publishes the spend and registers the pending record. The
// input note is flagged spent optimistically so it is not picked again while
// the submission is pending; a chain rejection restores the pre-submit flag.
func (e *Engine) submitSpend(ctx context.Context, token common.Address, spend *Spend,
	signals circuits.PublicSignals, memos [][]byte,
) error {
	spend.State = StateSubmitted
	if n, ok := e.notes.ByNullifier(spend.Nullifier); ok {
		spend.prevSpent = n.Spent
	}
	e.notes.MarkSpent(spend.Nullifier)
	e.pendingMtx.Lock()
	e.pending[spend.Nullifier.String()] = spend
	e.pendingMtx.Unlock()
	if err := e.cfg.Submitter.SubmitSpend(ctx, token, spend.Proof, signals, memos); err != nil {
		e.rejectSpend(spend)
		return err
	}
	log.Infow("spend submitted", "nullifier", spend.Nullifier.String(), "outputs", len(spend.Outputs))
	return nil
}

// rejectSpend reverts a pending spend: the input note's spent flag returns to
// its pre-submit value and the sampled output secrets are discarded.
func (e *Engine) rejectSpend(spend *Spend) {
	e.pendingMtx.Lock()
	delete(e.pending, spend.Nullifier.String())
	e.pendingMtx.Unlock()
	spend.State = StateRejected
	if !spend.prevSpent {
		e.notes.Unspend(spend.Nullifier)
	}
	log.Warnw("spend rejected, local state restored", "nullifier", spend.Nullifier.String())
}

// HandleEvent ingests one pool event. Events must arrive in block order; a
// mirror that ingests out of order computes a wrong root. All tree mutations
// and every spent flag set by an observed nullifier happen here, on the
// ingestion path; the only store change made at submission is the optimistic
// spent flag of submitSpend, which a rejection reverts.
func (e *Engine) HandleEvent(ev *PoolEvent) error {
	if ev.Block < e.lastBlock {
		return fmt.Errorf("event out of order: block %d after %d", ev.Block, e.lastBlock)
	}
	e.lastBlock = ev.Block

	if ev.Nullifier != nil {
		if e.notes.MarkSpent(ev.Nullifier) {
			log.Debugw("own nullifier observed on-chain", "nullifier", ev.Nullifier.String())
		}
	}

	for _, out := range ev.Outputs {
		index, root, err := e.tree.Insert(out.Commitment)
		if err != nil {
			return err
		}
		if int64(index) != out.LeafIndex {
			return fmt.Errorf("tree mirror out of sync: inserted %d, chain assigned %d",
				index, out.LeafIndex)
		}
		log.Debugw("leaf ingested", "index", index, "root", root.String())
		if err := e.adoptOutput(ev, out); err != nil {
			return err
		}
	}

	if ev.Nullifier != nil {
		e.resolvePending(ev)
	}
	return nil
}

// adoptOutput finalizes a pending deposit or scans the memo for an incoming
// note, saving whatever belongs to this wallet.
func (e *Engine) adoptOutput(ev *PoolEvent, out OutputEvent) error {
	e.pendingMtx.Lock()
	pendingNote, isOwnDeposit := e.pendingDeposits[out.Commitment.String()]
	if isOwnDeposit {
		delete(e.pendingDeposits, out.Commitment.String())
	}
	e.pendingMtx.Unlock()

	if isOwnDeposit {
		finalized, err := pendingNote.Finalize(out.LeafIndex)
		if err != nil {
			return err
		}
		if err := e.notes.Save(finalized); err != nil {
			return err
		}
		log.Infow("deposit confirmed", "leafIndex", out.LeafIndex)
		return nil
	}

	found, err := memo.Scan([]memo.Event{{
		Memo:       out.Memo,
		Commitment: out.Commitment,
		LeafIndex:  out.LeafIndex,
		Block:      ev.Block,
		Token:      ev.Token,
	}}, e.cfg.Keys)
	if err != nil {
		return err
	}
	for _, n := range found {
		saved, err := e.saveIfNew(n)
		if err != nil {
			return err
		}
		if saved {
			log.Infow("incoming note recovered", "leafIndex", n.LeafIndex, "amount", n.Amount.String())
		}
	}
	return nil
}

// saveIfNew stores a finalized note unless one with the same nullifier is
// already present. An output can reach the wallet twice, through its memo and
// through the pending-spend record; only the first arrival counts.
func (e *Engine) saveIfNew(n *note.Note) (bool, error) {
	nf, err := n.Nullifier()
	if err != nil {
		return false, err
	}
	if _, ok := e.notes.ByNullifier(nf); ok {
		return false, nil
	}
	return true, e.notes.Save(n)
}

// resolvePending confirms a submitted spend whose nullifier appeared
// on-chain: the output notes receive their assigned leaf indices, and those
// owned by this wallet's key join the store.
func (e *Engine) resolvePending(ev *PoolEvent) {
	e.pendingMtx.Lock()
	spend, ok := e.pending[ev.Nullifier.String()]
	if ok {
		delete(e.pending, ev.Nullifier.String())
	}
	e.pendingMtx.Unlock()
	if !ok {
		return
	}
	spend.State = StateConfirmed
	for i, out := range spend.Outputs {
		if i >= len(ev.Outputs) {
			break
		}
		finalized, err := out.Finalize(ev.Outputs[i].LeafIndex)
		if err != nil {
			log.Errorw(err, "cannot finalize confirmed output")
			continue
		}
		if finalized.OwnerPub.Equal(e.cfg.Keys.Public()) {
			if _, err := e.saveIfNew(finalized); err != nil {
				log.Errorw(err, "cannot save confirmed output")
			}
		}
	}
	log.Infow("spend confirmed", "nullifier", ev.Nullifier.String())
}

// Run ingests events from the source until the context is cancelled. It is
// the engine's single long-lived worker; all mutations stay on this
// goroutine.
func (e *Engine) Run(ctx context.Context, source EventSource) error {
	log.Infow("engine event loop started")
	for {
		ev, err := source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Infow("engine event loop stopped")
				return nil
			}
			return err
		}
		if err := e.HandleEvent(ev); err != nil {
			log.Errorw(err, "cannot ingest event")
		}
	}
}
