// Package mempool holds transactions that are known but not yet confirmed
// by any retained block.
package mempool

import (
	"container/list"
	"errors"
	"fmt"
	"sync"

	klog "github.com/Klingon-tech/klingnet-ledger/internal/log"
	"github.com/Klingon-tech/klingnet-ledger/internal/metrics"
	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// Mempool errors.
var (
	ErrNilTx  = errors.New("nil transaction")
	ErrPolicy = errors.New("transaction rejected by pool policy")
)

// entry wraps a transaction with its position in arrival order.
type entry struct {
	tx     *tx.Transaction
	txHash types.Hash
	elem   *list.Element
}

// Pool holds unconfirmed transactions in arrival order. It does not
// validate against the ledger: that happens when a block batch is built.
type Pool struct {
	mu      sync.RWMutex
	txs     map[types.Hash]*entry // txHash -> entry
	order   *list.List            // of *entry, oldest first
	maxSize int                   // 0 = unlimited
	policy  *Policy               // nil = accept everything
	metrics *metrics.Metrics
}

// New creates an empty pool holding at most maxSize transactions.
// maxSize <= 0 means unlimited.
func New(maxSize int) *Pool {
	if maxSize < 0 {
		maxSize = 0
	}
	return &Pool{
		txs:     make(map[types.Hash]*entry),
		order:   list.New(),
		maxSize: maxSize,
	}
}

// SetPolicy installs the policy checked by Accept. nil removes it.
func (p *Pool) SetPolicy(policy *Policy) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.policy = policy
}

// SetMetrics publishes pool size and evictions to m.
func (p *Pool) SetMetrics(m *metrics.Metrics) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics = m
	m.PoolSize(len(p.txs))
}

// Add inserts a transaction unconditionally: the policy is not consulted.
// Adding a transaction already in the pool is a no-op. When the pool is
// full the oldest entry is evicted to make room.
func (p *Pool) Add(transaction *tx.Transaction) error {
	if transaction == nil {
		return ErrNilTx
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.addLocked(transaction)
	return nil
}

// Accept screens a relayed transaction with the pool policy and inserts it
// if it passes.
func (p *Pool) Accept(transaction *tx.Transaction) error {
	if transaction == nil {
		return ErrNilTx
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.policy != nil {
		if err := p.policy.Check(transaction); err != nil {
			return fmt.Errorf("%w: %v", ErrPolicy, err)
		}
	}
	p.addLocked(transaction)
	return nil
}

func (p *Pool) addLocked(transaction *tx.Transaction) {
	txHash := transaction.Hash()
	if _, exists := p.txs[txHash]; exists {
		return
	}

	if p.maxSize > 0 && len(p.txs) >= p.maxSize {
		evicted := p.evictLocked(p.maxSize - 1)
		klog.Mempool.Debug().Int("evicted", evicted).Msg("Pool full, dropped oldest")
	}

	e := &entry{tx: transaction, txHash: txHash}
	e.elem = p.order.PushBack(e)
	p.txs[txHash] = e
	p.metrics.PoolSize(len(p.txs))
}

// Remove removes a transaction from the pool by hash.
func (p *Pool) Remove(txHash types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(txHash)
	p.metrics.PoolSize(len(p.txs))
}

func (p *Pool) removeLocked(txHash types.Hash) {
	e, exists := p.txs[txHash]
	if !exists {
		return
	}
	p.order.Remove(e.elem)
	delete(p.txs, txHash)
}

// RemoveConfirmed removes every listed transaction, whether or not it is
// in the pool.
func (p *Pool) RemoveConfirmed(transactions []*tx.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range transactions {
		if t != nil {
			p.removeLocked(t.Hash())
		}
	}
	p.metrics.PoolSize(len(p.txs))
}

// Has checks if a transaction exists in the pool.
func (p *Pool) Has(txHash types.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, exists := p.txs[txHash]
	return exists
}

// Get retrieves a transaction from the pool, or nil.
func (p *Pool) Get(txHash types.Hash) *tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, exists := p.txs[txHash]
	if !exists {
		return nil
	}
	return e.tx
}

// Count returns the number of transactions in the pool.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.txs)
}

// Hashes returns the hashes of all transactions in arrival order.
func (p *Pool) Hashes() []types.Hash {
	p.mu.RLock()
	defer p.mu.RUnlock()
	hashes := make([]types.Hash, 0, len(p.txs))
	for el := p.order.Front(); el != nil; el = el.Next() {
		hashes = append(hashes, el.Value.(*entry).txHash)
	}
	return hashes
}

// Candidates returns the pending transactions in arrival order.
func (p *Pool) Candidates() []*tx.Transaction {
	return p.SelectForBlock(0)
}

// SelectForBlock returns up to limit transactions in arrival order.
// limit <= 0 returns all of them.
func (p *Pool) SelectForBlock(limit int) []*tx.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if limit <= 0 || limit > len(p.txs) {
		limit = len(p.txs)
	}
	result := make([]*tx.Transaction, 0, limit)
	for el := p.order.Front(); el != nil && len(result) < limit; el = el.Next() {
		result = append(result, el.Value.(*entry).tx)
	}
	return result
}
