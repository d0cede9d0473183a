package block

import (
	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// ComputeMerkleRoot calculates the merkle root of a list of hashes.
//
//   - 0 hashes: zero hash
//   - 1 hash: that hash
//   - otherwise hash adjacent pairs; an unpaired last node is carried up
//     unchanged, so [a, b, c] and [a, b, c, c] have different roots.
func ComputeMerkleRoot(hashes []types.Hash) types.Hash {
	if len(hashes) == 0 {
		return types.Hash{}
	}

	// Work on a copy so we don't mutate the caller's slice.
	level := make([]types.Hash, len(hashes))
	copy(level, hashes)

	for len(level) > 1 {
		next := level[:0]
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, crypto.HashConcat(level[i], level[i+1]))
		}
		level = next
	}
	return level[0]
}
