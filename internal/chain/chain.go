// Package chain tracks competing branches of blocks, each with its own
// ledger, and selects the highest branch as the best tip.
package chain

import (
	"errors"
	"sync"
	"time"

	"github.com/Klingon-tech/klingnet-ledger/config"
	klog "github.com/Klingon-tech/klingnet-ledger/internal/log"
	"github.com/Klingon-tech/klingnet-ledger/internal/mempool"
	"github.com/Klingon-tech/klingnet-ledger/internal/metrics"
	"github.com/Klingon-tech/klingnet-ledger/internal/txhandler"
	"github.com/Klingon-tech/klingnet-ledger/internal/utxo"
	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// ErrNilGenesis is returned by New without a genesis block.
var ErrNilGenesis = errors.New("genesis block is nil")

// Chain holds every block record inside the retention window and the
// pending pool. All mutations happen under one lock.
type Chain struct {
	mu     sync.Mutex // Protects state, best and blocks.
	state  *State
	best   *Record
	blocks *blockStore

	pool    *mempool.Pool
	handler *txhandler.Handler
	headers HeaderVerifier // nil = no seal check
	metrics *metrics.Metrics
	now     func() time.Time

	window      uint64 // Retention window in blocks.
	prune       bool   // Drop records that fell out of the window.
	maxCoinbase int64  // Max coinbase value above fees (0 = unlimited).
	genesisHash types.Hash
}

// HeaderVerifier checks a header seal, e.g. proof of work.
type HeaderVerifier interface {
	VerifyHeader(header *block.Header) error
}

// Option configures a Chain.
type Option func(*Chain)

// WithRetentionWindow sets how many blocks a branch may lag the best tip
// and still be extended. Zero keeps the default.
func WithRetentionWindow(window uint64) Option {
	return func(c *Chain) {
		if window > 0 {
			c.window = window
		}
	}
}

// WithVerifier sets the signature verifier used to validate inputs.
func WithVerifier(v crypto.Verifier) Option {
	return func(c *Chain) { c.handler = txhandler.New(v) }
}

// WithHeaderVerifier rejects blocks whose header fails v.
func WithHeaderVerifier(v HeaderVerifier) Option {
	return func(c *Chain) { c.headers = v }
}

// WithPool uses p as the pending pool instead of an unlimited one.
func WithPool(p *mempool.Pool) Option {
	return func(c *Chain) {
		if p != nil {
			c.pool = p
		}
	}
}

// WithMaxCoinbaseValue caps what a coinbase may mint on top of the fees of
// its block. Zero means unlimited.
func WithMaxCoinbaseValue(v int64) Option {
	return func(c *Chain) { c.maxCoinbase = v }
}

// WithMetrics publishes chain and pool state to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Chain) { c.metrics = m }
}

// WithClock sets the clock stamped on new records.
func WithClock(now func() time.Time) Option {
	return func(c *Chain) {
		if now != nil {
			c.now = now
		}
	}
}

// WithPruning controls whether records below the retention window are
// dropped. Keeping them costs memory but lets every branch be replayed
// from genesis.
func WithPruning(prune bool) Option {
	return func(c *Chain) { c.prune = prune }
}

// New creates a chain rooted at genesis. The genesis block is not
// validated: its coinbase and every transaction it declares have their
// outputs added to a fresh ledger, and are recorded in the pending pool.
func New(genesis *block.Block, opts ...Option) (*Chain, error) {
	if genesis == nil || genesis.Header == nil {
		return nil, ErrNilGenesis
	}

	c := &Chain{
		blocks:  newBlockStore(),
		handler: txhandler.New(nil),
		now:     time.Now,
		window:  config.DefaultRetentionWindow,
		prune:   true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pool == nil {
		c.pool = mempool.New(0)
	}
	c.pool.SetMetrics(c.metrics)

	ledger, admitted := genesisLedger(genesis)
	for _, t := range admitted {
		if err := c.pool.Add(t); err != nil {
			klog.Chain.Debug().Err(err).Msg("Genesis tx not pooled")
		}
	}

	rec := newRecord(genesis, GenesisHeight, ledger, c.now())
	c.blocks.put(rec)
	c.best = rec
	c.genesisHash = rec.Hash()
	c.state = &State{
		Height:       GenesisHeight,
		TipHash:      rec.Hash(),
		TipTimestamp: genesis.Header.Timestamp,
		Records:      1,
	}
	c.metrics.BlockAccepted(len(genesis.Transactions), GenesisHeight, 1)

	klog.Chain.Info().
		Str("hash", rec.Hash().Short()).
		Int("outputs", ledger.Len()).
		Uint64("window", c.window).
		Msg("Chain initialized from genesis")
	return c, nil
}

// genesisLedger adds the outputs of the genesis coinbase and of every
// genesis transaction to an empty ledger, without validation. It returns
// the admitted transactions.
func genesisLedger(genesis *block.Block) (*utxo.Snapshot, []*tx.Transaction) {
	ledger := utxo.New()
	admitted := make([]*tx.Transaction, 0, 1+len(genesis.Transactions))
	if genesis.Coinbase != nil {
		admitted = append(admitted, genesis.Coinbase)
	}
	for _, t := range genesis.Transactions {
		if t != nil {
			admitted = append(admitted, t)
		}
	}
	for _, t := range admitted {
		id := t.Hash()
		for i, out := range t.Outputs {
			ledger.Add(types.Outpoint{TxID: id, Index: uint32(i)}, out)
		}
	}
	return ledger, admitted
}

// State returns a copy of the current chain state.
func (c *Chain) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.state
}

// Height returns the best tip height.
func (c *Chain) Height() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Height
}

// TipHash returns the hash of the best tip.
func (c *Chain) TipHash() types.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.TipHash
}

// GenesisHash returns the hash of the genesis block.
func (c *Chain) GenesisHash() types.Hash {
	return c.genesisHash
}

// RetentionWindow returns the configured retention window.
func (c *Chain) RetentionWindow() uint64 {
	return c.window
}

// BestTip returns the record of the best tip. The record is immutable and
// may be used without holding any lock.
func (c *Chain) BestTip() *Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.best
}

// BestBlock returns the best tip block.
func (c *Chain) BestBlock() *block.Block {
	return c.BestTip().Block
}

// BestLedger returns an independent copy of the best tip's ledger.
func (c *Chain) BestLedger() *utxo.Snapshot {
	return c.BestTip().Ledger()
}

// Pool returns the shared pending pool.
func (c *Chain) Pool() *mempool.Pool {
	return c.pool
}

// Handler returns the transaction handler blocks are validated with.
func (c *Chain) Handler() *txhandler.Handler {
	return c.handler
}

// Record returns the retained record for hash.
func (c *Chain) Record(hash types.Hash) (*Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks.get(hash)
}

// HasBlock reports whether hash is a retained block.
func (c *Chain) HasBlock(hash types.Hash) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks.has(hash)
}

// RecordCount returns the number of retained records.
func (c *Chain) RecordCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks.len()
}

// SubmitTx adds a transaction to the pending pool without validating it.
// The pool policy is not applied. Validation happens when a block batch is
// built.
func (c *Chain) SubmitTx(t *tx.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pool.Add(t)
}
