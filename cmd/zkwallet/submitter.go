package main

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zktoken/zktoken-core/circuits"
	"github.com/zktoken/zktoken-core/log"
)

// noopSubmitter logs submissions instead of sending them. It stands in for a
// real transport so the wallet can run standalone against a replayed event
// stream.
type noopSubmitter struct{}

func (noopSubmitter) SubmitDeposit(_ context.Context, token common.Address, amount *big.Int,
	commitment *big.Int, memo []byte,
) error {
	log.Infow("deposit ready for submission", "token", token.Hex(),
		"amount", amount.String(), "commitment", commitment.String(), "memoBytes", len(memo))
	return nil
}

func (noopSubmitter) SubmitSpend(_ context.Context, token common.Address, proof []byte,
	signals circuits.PublicSignals, memos [][]byte,
) error {
	log.Infow("spend ready for submission", "token", token.Hex(),
		"proofBytes", len(proof), "signals", len(signals), "memos", len(memos))
	return nil
}
