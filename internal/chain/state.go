package chain

import "github.com/Klingon-tech/klingnet-ledger/pkg/types"

// State holds the current best tip.
type State struct {
	Height       uint64
	TipHash      types.Hash
	TipTimestamp uint64 // Header timestamp of the tip block.
	Records      int    // Retained block records.
}

// IsGenesis returns true if the best tip is the genesis block.
func (s *State) IsGenesis() bool {
	return s.Height == GenesisHeight
}
