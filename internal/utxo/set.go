// Package utxo holds the ledger snapshot: the set of spendable outputs as of
// one block.
package utxo

import (
	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// View is read-only access to a set of spendable outputs.
type View interface {
	Get(op types.Outpoint) (tx.Output, bool)
	Has(op types.Outpoint) bool
}

// Set is a View that can be modified.
type Set interface {
	View
	Add(op types.Outpoint, out tx.Output)
	Remove(op types.Outpoint)
}

var (
	_ Set = (*Snapshot)(nil)
)
