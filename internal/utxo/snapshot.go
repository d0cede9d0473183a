package utxo

import (
	"bytes"
	"sort"

	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// MaxLayerDepth bounds the number of frozen layers a lookup walks before
// the snapshot is flattened into a single layer.
const MaxLayerDepth = 32

// layer is an immutable diff on top of its parent. A key is never in both
// adds and removes.
type layer struct {
	parent  *layer
	adds    map[types.Outpoint]tx.Output
	removes map[types.Outpoint]struct{}
	depth   int
}

// lookup walks l and its ancestors; the nearest layer mentioning op wins.
func (l *layer) lookup(op types.Outpoint) (tx.Output, bool) {
	for ; l != nil; l = l.parent {
		if _, ok := l.removes[op]; ok {
			return tx.Output{}, false
		}
		if out, ok := l.adds[op]; ok {
			return out, true
		}
	}
	return tx.Output{}, false
}

// Snapshot is a copy-on-write set of spendable outputs.
//
// Writes go into a private diff. Clone seals the diff into a shared frozen
// layer and hands both snapshots a fresh diff on top of it, so a clone costs
// O(changes since the last clone) and the two never see each other's later
// writes.
//
// A Snapshot is not safe for concurrent use, except that once Freeze has
// been called and no further writes happen, Get, Has, Len, Outpoints and
// Clone may be called concurrently.
type Snapshot struct {
	base    *layer
	adds    map[types.Outpoint]tx.Output
	removes map[types.Outpoint]struct{}
	size    int
}

// New returns an empty snapshot.
func New() *Snapshot {
	return &Snapshot{}
}

// Get returns the output at op.
// The returned Owner slice is shared and must not be modified.
func (s *Snapshot) Get(op types.Outpoint) (tx.Output, bool) {
	if _, ok := s.removes[op]; ok {
		return tx.Output{}, false
	}
	if out, ok := s.adds[op]; ok {
		return out, true
	}
	return s.base.lookup(op)
}

// Has reports whether op is spendable.
func (s *Snapshot) Has(op types.Outpoint) bool {
	_, ok := s.Get(op)
	return ok
}

// Len returns the number of spendable outputs.
func (s *Snapshot) Len() int {
	return s.size
}

// Add makes out spendable at op, replacing any existing entry.
func (s *Snapshot) Add(op types.Outpoint, out tx.Output) {
	if !s.Has(op) {
		s.size++
	}
	if s.adds == nil {
		s.adds = make(map[types.Outpoint]tx.Output)
	}
	delete(s.removes, op)
	s.adds[op] = out.Clone()
}

// Remove consumes op. Removing an absent entry is a no-op.
func (s *Snapshot) Remove(op types.Outpoint) {
	if _, ok := s.adds[op]; ok {
		delete(s.adds, op)
		s.size--
		if _, below := s.base.lookup(op); below {
			s.markRemoved(op)
		}
		return
	}
	if _, ok := s.removes[op]; ok {
		return
	}
	if _, present := s.base.lookup(op); present {
		s.markRemoved(op)
		s.size--
	}
}

func (s *Snapshot) markRemoved(op types.Outpoint) {
	if s.removes == nil {
		s.removes = make(map[types.Outpoint]struct{})
	}
	s.removes[op] = struct{}{}
}

// Freeze seals pending writes into a shared layer.
func (s *Snapshot) Freeze() {
	if len(s.adds) == 0 && len(s.removes) == 0 {
		return
	}
	depth := 1
	if s.base != nil {
		depth = s.base.depth + 1
	}
	s.base = &layer{parent: s.base, adds: s.adds, removes: s.removes, depth: depth}
	s.adds, s.removes = nil, nil
	if depth > MaxLayerDepth {
		s.base = &layer{adds: s.materialize(), depth: 1}
	}
}

// Clone returns an independent snapshot with the same contents.
func (s *Snapshot) Clone() *Snapshot {
	s.Freeze()
	return &Snapshot{base: s.base, size: s.size}
}

// Depth returns the number of frozen layers under the snapshot.
func (s *Snapshot) Depth() int {
	if s.base == nil {
		return 0
	}
	return s.base.depth
}

// materialize resolves every layer and the private diff into one map.
func (s *Snapshot) materialize() map[types.Outpoint]tx.Output {
	var chain []*layer
	for l := s.base; l != nil; l = l.parent {
		chain = append(chain, l)
	}
	m := make(map[types.Outpoint]tx.Output, s.size)
	for i := len(chain) - 1; i >= 0; i-- {
		for op := range chain[i].removes {
			delete(m, op)
		}
		for op, out := range chain[i].adds {
			m[op] = out
		}
	}
	for op := range s.removes {
		delete(m, op)
	}
	for op, out := range s.adds {
		m[op] = out
	}
	return m
}

// Outpoints returns every spendable outpoint ordered by txid, then index.
func (s *Snapshot) Outpoints() []types.Outpoint {
	m := s.materialize()
	ops := make([]types.Outpoint, 0, len(m))
	for op := range m {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Less(ops[j]) })
	return ops
}

// ForEach calls fn for every entry in Outpoints order. Stops at the first
// error.
func (s *Snapshot) ForEach(fn func(op types.Outpoint, out tx.Output) error) error {
	m := s.materialize()
	ops := make([]types.Outpoint, 0, len(m))
	for op := range m {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Less(ops[j]) })
	for _, op := range ops {
		if err := fn(op, m[op]); err != nil {
			return err
		}
	}
	return nil
}

// Equal reports whether a and b hold exactly the same entries.
func Equal(a, b *Snapshot) bool {
	if a.Len() != b.Len() {
		return false
	}
	for op, out := range a.materialize() {
		other, ok := b.Get(op)
		if !ok || other.Value != out.Value || !bytes.Equal(other.Owner, out.Owner) {
			return false
		}
	}
	return true
}
