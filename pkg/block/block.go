// Package block defines the block payload exchanged with the mining and
// networking layers.
package block

import (
	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// Block is a header, the value-minting coinbase and the ordered list of
// declared transactions.
type Block struct {
	Header       *Header           `json:"header"`
	Coinbase     *tx.Transaction   `json:"coinbase"`
	Transactions []*tx.Transaction `json:"transactions"`
}

// New assembles a block on top of parent, filling in the merkle root.
func New(parent types.Hash, coinbase *tx.Transaction, txs []*tx.Transaction, timestamp uint64) *Block {
	b := &Block{
		Header: &Header{
			Version:   CurrentVersion,
			PrevHash:  parent,
			Timestamp: timestamp,
		},
		Coinbase:     coinbase,
		Transactions: txs,
	}
	b.Header.MerkleRoot = ComputeMerkleRoot(b.TxHashes())
	return b
}

// Hash returns the block header hash.
func (b *Block) Hash() types.Hash {
	if b.Header == nil {
		return types.Hash{}
	}
	return b.Header.Hash()
}

// PrevHash returns the declared parent reference (zero for genesis).
func (b *Block) PrevHash() types.Hash {
	if b.Header == nil {
		return types.Hash{}
	}
	return b.Header.PrevHash
}

// TxHashes returns the coinbase id followed by the declared transaction
// ids, the leaves of the merkle tree.
func (b *Block) TxHashes() []types.Hash {
	hashes := make([]types.Hash, 0, 1+len(b.Transactions))
	if b.Coinbase != nil {
		hashes = append(hashes, b.Coinbase.Hash())
	}
	for _, t := range b.Transactions {
		if t != nil {
			hashes = append(hashes, t.Hash())
		}
	}
	return hashes
}
