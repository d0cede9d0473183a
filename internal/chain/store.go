package chain

import (
	"time"

	"github.com/Klingon-tech/klingnet-ledger/internal/utxo"
	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// Record is one retained block with the ledger as of that block. Records
// are immutable once stored.
type Record struct {
	Block   *block.Block
	Height  uint64
	Created time.Time

	hash   types.Hash
	ledger *utxo.Snapshot // frozen
}

func newRecord(blk *block.Block, height uint64, ledger *utxo.Snapshot, created time.Time) *Record {
	ledger.Freeze()
	return &Record{
		Block:   blk,
		Height:  height,
		Created: created,
		hash:    blk.Hash(),
		ledger:  ledger,
	}
}

// Hash returns the block hash.
func (r *Record) Hash() types.Hash {
	return r.hash
}

// PrevHash returns the parent block hash.
func (r *Record) PrevHash() types.Hash {
	return r.Block.PrevHash()
}

// Ledger returns an independent copy of the ledger as of this block.
func (r *Record) Ledger() *utxo.Snapshot {
	return r.ledger.Clone()
}

// Commitment returns the merkle commitment of the ledger as of this block.
func (r *Record) Commitment() types.Hash {
	return utxo.Commitment(r.ledger)
}

// blockStore indexes retained records by block hash.
// Not safe for concurrent use; the chain lock guards it.
type blockStore struct {
	records map[types.Hash]*Record
}

func newBlockStore() *blockStore {
	return &blockStore{records: make(map[types.Hash]*Record)}
}

func (bs *blockStore) get(hash types.Hash) (*Record, bool) {
	r, ok := bs.records[hash]
	return r, ok
}

func (bs *blockStore) has(hash types.Hash) bool {
	_, ok := bs.records[hash]
	return ok
}

func (bs *blockStore) put(r *Record) {
	bs.records[r.hash] = r
}

func (bs *blockStore) len() int {
	return len(bs.records)
}

// evictBelow drops every record with height < minHeight and returns how
// many were dropped.
func (bs *blockStore) evictBelow(minHeight uint64) int {
	evicted := 0
	for hash, r := range bs.records {
		if r.Height < minHeight {
			delete(bs.records, hash)
			evicted++
		}
	}
	return evicted
}
