package mempool

// Evict removes the oldest transactions until the pool is at or below its
// capacity. Returns the number removed.
func (p *Pool) Evict() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.maxSize == 0 {
		return 0
	}
	return p.evictLocked(p.maxSize)
}

// SetMaxSize changes the capacity and evicts down to it.
func (p *Pool) SetMaxSize(maxSize int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if maxSize < 0 {
		maxSize = 0
	}
	p.maxSize = maxSize
	if maxSize == 0 {
		return 0
	}
	return p.evictLocked(maxSize)
}

// evictLocked drops oldest entries until at most target remain.
// Must be called with p.mu held.
func (p *Pool) evictLocked(target int) int {
	evicted := 0
	for len(p.txs) > target {
		front := p.order.Front()
		if front == nil {
			break
		}
		p.removeLocked(front.Value.(*entry).txHash)
		evicted++
	}
	p.metrics.PoolEvicted(evicted)
	p.metrics.PoolSize(len(p.txs))
	return evicted
}
