package chain

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-ledger/config"
	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// GenesisHeight is the height of the genesis block.
const GenesisHeight = 1

// CreateGenesisBlock builds the genesis block from the genesis configuration.
// The genesis block has a zero PrevHash and a coinbase paying every
// allocation, in owner order.
func CreateGenesisBlock(gen *config.Genesis) (*block.Block, error) {
	if gen == nil {
		return nil, fmt.Errorf("genesis config is nil")
	}
	if err := gen.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}

	allocs, err := gen.Allocations()
	if err != nil {
		return nil, fmt.Errorf("build coinbase: %w", err)
	}
	outputs := make([]tx.Output, 0, len(allocs))
	for _, a := range allocs {
		outputs = append(outputs, tx.Output{Value: a.Value, Owner: a.Owner})
	}

	coinbase := &tx.Transaction{
		Version:  1,
		Outputs:  outputs,
		LockTime: GenesisHeight,
	}
	return block.New(types.Hash{}, coinbase, nil, gen.Timestamp), nil
}

// NewFromGenesis creates a chain rooted at the block built from gen.
func NewFromGenesis(gen *config.Genesis, opts ...Option) (*Chain, error) {
	blk, err := CreateGenesisBlock(gen)
	if err != nil {
		return nil, fmt.Errorf("create genesis: %w", err)
	}
	return New(blk, opts...)
}
