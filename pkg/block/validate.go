package block

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-ledger/config"
)

// Validation errors.
var (
	ErrNilHeader     = errors.New("block has nil header")
	ErrBadVersion    = errors.New("unsupported block version")
	ErrNoCoinbase    = errors.New("block has no coinbase")
	ErrBadCoinbase   = errors.New("coinbase must not have inputs")
	ErrNilTx         = errors.New("block contains nil transaction")
	ErrTooManyTxs    = errors.New("too many transactions in block")
	ErrBadMerkleRoot = errors.New("merkle root mismatch")
)

// Block version constants.
const (
	CurrentVersion = 1
	MaxVersion     = 1
)

// Validate checks block structure and internal consistency. It does not
// look at ledger state: ownership and double spends are checked when the
// block is replayed on its parent's snapshot.
func (b *Block) Validate() error {
	if b.Header == nil {
		return ErrNilHeader
	}
	if b.Header.Version < 1 || b.Header.Version > MaxVersion {
		return fmt.Errorf("%w: got %d, want 1..%d", ErrBadVersion, b.Header.Version, MaxVersion)
	}

	if b.Coinbase == nil {
		return ErrNoCoinbase
	}
	if !b.Coinbase.IsCoinbase() {
		return fmt.Errorf("%w: %d inputs", ErrBadCoinbase, len(b.Coinbase.Inputs))
	}
	if err := b.Coinbase.CheckLimits(); err != nil {
		return fmt.Errorf("coinbase: %w", err)
	}
	if _, err := b.Coinbase.TotalOutputValue(); err != nil {
		return fmt.Errorf("coinbase: %w", err)
	}

	if len(b.Transactions) > config.MaxBlockTxs {
		return fmt.Errorf("%w: %d txs, max %d", ErrTooManyTxs, len(b.Transactions), config.MaxBlockTxs)
	}
	for i, t := range b.Transactions {
		if t == nil {
			return fmt.Errorf("tx %d: %w", i, ErrNilTx)
		}
		if err := t.CheckLimits(); err != nil {
			return fmt.Errorf("tx %d: %w", i, err)
		}
	}

	if root := ComputeMerkleRoot(b.TxHashes()); b.Header.MerkleRoot != root {
		return fmt.Errorf("%w: header=%s computed=%s", ErrBadMerkleRoot, b.Header.MerkleRoot, root)
	}
	return nil
}
