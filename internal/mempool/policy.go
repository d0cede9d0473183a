package mempool

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
)

// DefaultMaxTxSize is the maximum transaction size in bytes (signing bytes).
const DefaultMaxTxSize = 100_000

// Policy defines local admission rules. They are not consensus rules: a
// block may confirm a transaction this node's pool would have refused.
type Policy struct {
	MaxTxSize int // Maximum transaction size in signing bytes (0 = no limit).
}

// DefaultPolicy returns a policy with sensible defaults.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxTxSize: DefaultMaxTxSize,
	}
}

// Check applies the size limit and the structural transaction limits.
func (p *Policy) Check(transaction *tx.Transaction) error {
	size := len(transaction.SigningBytes())
	if p.MaxTxSize > 0 && size > p.MaxTxSize {
		return fmt.Errorf("transaction too large: %d bytes, max %d", size, p.MaxTxSize)
	}
	return transaction.CheckLimits()
}
