package chain

import (
	"errors"
	"fmt"
	"math"

	klog "github.com/Klingon-tech/klingnet-ledger/internal/log"
	"github.com/Klingon-tech/klingnet-ledger/internal/txhandler"
	"github.com/Klingon-tech/klingnet-ledger/internal/utxo"
	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
)

// Block processing errors.
var (
	ErrNilBlock         = errors.New("nil block or header")
	ErrNoParent         = errors.New("block has no parent reference")
	ErrBlockKnown       = errors.New("block already known")
	ErrPrevNotFound     = errors.New("previous block not found")
	ErrTooOld           = errors.New("block too far behind best tip")
	ErrBadBlock         = errors.New("block failed structural validation")
	ErrInvalidTx        = errors.New("block contains invalid transaction")
	ErrCoinbaseTooLarge = errors.New("coinbase exceeds reward limit")
)

// ProcessBlock validates a block against its parent's ledger and inserts
// it. A block is accepted only if every transaction it declares is valid
// when applied in order on the parent's ledger. Rejected blocks leave the
// registry and the pool untouched.
//
// The block becomes the best tip if its height is at least the current
// best height; on equal height the newer block wins.
func (c *Chain) ProcessBlock(blk *block.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := c.connectLocked(blk)
	if err != nil {
		c.metrics.BlockRejected(rejectReason(err))
		ev := klog.Chain.Debug().Err(err)
		if blk != nil && blk.Header != nil {
			ev = ev.Str("hash", blk.Hash().Short())
		}
		ev.Msg("Block rejected")
		return err
	}

	c.blocks.put(rec)
	c.pool.RemoveConfirmed(rec.Block.Transactions)
	if err := c.pool.Add(rec.Block.Coinbase); err != nil {
		klog.Chain.Debug().Err(err).Str("hash", rec.Hash().Short()).Msg("Coinbase not pooled")
	}

	newBest := rec.Height >= c.state.Height
	if newBest {
		c.best = rec
		c.state.Height = rec.Height
		c.state.TipHash = rec.Hash()
		c.state.TipTimestamp = rec.Block.Header.Timestamp
	}

	evicted := 0
	if c.prune && c.state.Height > c.window {
		evicted = c.blocks.evictBelow(c.state.Height - c.window)
	}
	c.state.Records = c.blocks.len()

	c.metrics.BlockAccepted(len(rec.Block.Transactions), c.state.Height, c.state.Records)
	c.metrics.RecordsEvicted(evicted, c.state.Records)

	klog.Chain.Info().
		Str("hash", rec.Hash().Short()).
		Uint64("height", rec.Height).
		Int("txs", len(rec.Block.Transactions)).
		Bool("best", newBest).
		Int("evicted", evicted).
		Msg("Block accepted")
	return nil
}

// AddBlock is ProcessBlock reduced to a boolean.
func (c *Chain) AddBlock(blk *block.Block) bool {
	return c.ProcessBlock(blk) == nil
}

// connectLocked runs every check and builds the record, without changing
// any chain state. Must be called with c.mu held.
func (c *Chain) connectLocked(blk *block.Block) (*Record, error) {
	if blk == nil || blk.Header == nil {
		return nil, ErrNilBlock
	}
	if blk.PrevHash().IsZero() {
		return nil, ErrNoParent
	}

	hash := blk.Hash()
	if c.blocks.has(hash) {
		return nil, fmt.Errorf("%w: %s", ErrBlockKnown, hash)
	}

	parent, ok := c.blocks.get(blk.PrevHash())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPrevNotFound, blk.PrevHash())
	}

	height := parent.Height + 1
	if height+c.window <= c.state.Height {
		return nil, fmt.Errorf("%w: height %d, best %d, window %d",
			ErrTooOld, height, c.state.Height, c.window)
	}

	if err := blk.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadBlock, err)
	}
	if c.headers != nil {
		if err := c.headers.VerifyHeader(blk.Header); err != nil {
			return nil, fmt.Errorf("%w: seal: %v", ErrBadBlock, err)
		}
	}

	ledger, err := c.applyBlock(parent.ledger, blk)
	if err != nil {
		return nil, err
	}
	return newRecord(blk, height, ledger, c.now()), nil
}

// applyBlock replays blk on a copy of the parent ledger: declared
// transactions first, in order, then the coinbase outputs. Coinbase
// outputs are admitted unconditionally and overwrite an existing entry.
func (c *Chain) applyBlock(parent *utxo.Snapshot, blk *block.Block) (*utxo.Snapshot, error) {
	ledger := parent.Clone()

	res := c.handler.HandleTxsReport(blk.Transactions, ledger)
	if len(res.Rejected) > 0 {
		r := res.Rejected[0]
		return nil, fmt.Errorf("%w: %s: %v (%d of %d rejected)",
			ErrInvalidTx, r.Tx.Hash(), r.Err, len(res.Rejected), len(blk.Transactions))
	}

	if c.maxCoinbase > 0 {
		minted, err := blk.Coinbase.TotalOutputValue()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadBlock, err)
		}
		limit := int64(math.MaxInt64)
		if res.Fees <= math.MaxInt64-c.maxCoinbase {
			limit = c.maxCoinbase + res.Fees
		}
		if minted > limit {
			return nil, fmt.Errorf("%w: coinbase %s pays %d, limit %d (reward %d + fees %d)",
				ErrCoinbaseTooLarge, blk.Coinbase.Hash().Short(), minted, limit, c.maxCoinbase, res.Fees)
		}
	}

	txhandler.ApplyCoinbase(blk.Coinbase, ledger)
	return ledger, nil
}

// rejectReason maps a processing error to a metrics label.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrNilBlock):
		return "nil_block"
	case errors.Is(err, ErrNoParent):
		return "no_parent"
	case errors.Is(err, ErrBlockKnown):
		return "known"
	case errors.Is(err, ErrPrevNotFound):
		return "unknown_parent"
	case errors.Is(err, ErrTooOld):
		return "too_old"
	case errors.Is(err, ErrBadBlock):
		return "bad_block"
	case errors.Is(err, ErrInvalidTx):
		return "invalid_tx"
	case errors.Is(err, ErrCoinbaseTooLarge):
		return "coinbase_too_large"
	}
	return "other"
}
