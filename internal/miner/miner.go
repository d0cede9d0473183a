// Package miner assembles blocks on top of the best tip.
package miner

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Klingon-tech/klingnet-ledger/config"
	"github.com/Klingon-tech/klingnet-ledger/internal/chain"
	"github.com/Klingon-tech/klingnet-ledger/internal/consensus"
	klog "github.com/Klingon-tech/klingnet-ledger/internal/log"
	"github.com/Klingon-tech/klingnet-ledger/internal/txhandler"
	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
)

// ChainState is the part of the chain a miner needs.
type ChainState interface {
	BestTip() *chain.Record
	ProcessBlock(blk *block.Block) error
	SubmitTx(t *tx.Transaction) error
}

// MempoolSelector supplies pending transactions in the order they should
// be tried.
type MempoolSelector interface {
	SelectForBlock(limit int) []*tx.Transaction
}

// Miner produces new blocks.
type Miner struct {
	chain       ChainState
	pool        MempoolSelector
	handler     *txhandler.Handler
	engine      consensus.Engine
	owner       []byte // Coinbase recipient public key.
	blockReward int64
	maxBlockTxs int
	now         func() time.Time
}

// New creates a block producer paying blockReward plus fees to owner.
// A nil handler uses Schnorr verification; a nil engine seals nothing.
func New(ch ChainState, pool MempoolSelector, handler *txhandler.Handler, engine consensus.Engine,
	owner []byte, blockReward int64) *Miner {
	if handler == nil {
		handler = txhandler.New(nil)
	}
	if engine == nil {
		engine = consensus.None{}
	}
	return &Miner{
		chain:       ch,
		pool:        pool,
		handler:     handler,
		engine:      engine,
		owner:       owner,
		blockReward: blockReward,
		maxBlockTxs: config.MaxBlockTxs,
		now:         time.Now,
	}
}

// SetMaxBlockTxs caps the declared transactions per block.
func (m *Miner) SetMaxBlockTxs(n int) {
	if n < 0 || n > config.MaxBlockTxs {
		n = config.MaxBlockTxs
	}
	m.maxBlockTxs = n
}

// ProduceBlock builds and seals a block on the current best tip.
// The coinbase output value = block reward + sum of all tx fees.
// The block is NOT applied to the chain; the caller must call ProcessBlock.
func (m *Miner) ProduceBlock(ctx context.Context) (*block.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tip := m.chain.BestTip()
	height := tip.Height + 1

	// Coinbases recorded in the pool can never validate; skip them.
	var candidates []*tx.Transaction
	if m.pool != nil {
		for _, t := range m.pool.SelectForBlock(0) {
			if !t.IsCoinbase() {
				candidates = append(candidates, t)
			}
		}
	}

	res := m.handler.HandleTxsReport(candidates, tip.Ledger())
	if len(res.Accepted) > m.maxBlockTxs {
		// A prefix of an accepted sequence stays valid; recompute its fees.
		res = m.handler.HandleTxsReport(res.Accepted[:m.maxBlockTxs], tip.Ledger())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	value := m.blockReward
	if res.Fees > math.MaxInt64-value {
		value = math.MaxInt64
	} else {
		value += res.Fees
	}

	// Block timestamp must be strictly after the parent's.
	timestamp := uint64(m.now().Unix())
	if parentTS := tip.Block.Header.Timestamp; timestamp <= parentTS {
		timestamp = parentTS + 1
	}

	blk := block.New(tip.Hash(), tx.NewCoinbase(m.owner, value, height), res.Accepted, timestamp)
	if err := m.engine.Seal(ctx, blk); err != nil {
		return nil, fmt.Errorf("seal block: %w", err)
	}

	klog.Miner.Debug().
		Str("parent", tip.Hash().Short()).
		Uint64("height", height).
		Int("txs", len(res.Accepted)).
		Int("skipped", len(res.Rejected)).
		Int64("fees", res.Fees).
		Msg("Block assembled")
	return blk, nil
}

// MineAndProcess produces a block and submits it to the chain.
func (m *Miner) MineAndProcess(ctx context.Context) (*block.Block, error) {
	blk, err := m.ProduceBlock(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.chain.ProcessBlock(blk); err != nil {
		return nil, fmt.Errorf("process own block: %w", err)
	}
	return blk, nil
}

// ProcessBlock hands an externally received block to the chain.
func (m *Miner) ProcessBlock(blk *block.Block) error {
	return m.chain.ProcessBlock(blk)
}

// ProcessTx hands an externally received transaction to the chain.
func (m *Miner) ProcessTx(t *tx.Transaction) error {
	return m.chain.SubmitTx(t)
}

// Run mines blocks until ctx is done, pausing interval between blocks.
// A block that loses a race to another miner is logged and skipped.
func (m *Miner) Run(ctx context.Context, interval time.Duration) error {
	for {
		blk, err := m.MineAndProcess(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			klog.Miner.Warn().Err(err).Msg("Mining round failed")
		} else {
			klog.Miner.Info().
				Str("hash", blk.Hash().Short()).
				Int("txs", len(blk.Transactions)).
				Msg("Mined block")
		}

		if interval > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
			}
		}
	}
}
