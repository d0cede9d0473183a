package utxo

import (
	"encoding/binary"

	"github.com/Klingon-tech/klingnet-ledger/pkg/block"
	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// Commitment computes a merkle root over all entries in the snapshot.
// Entries are hashed in Outpoints order, so two snapshots with the same
// contents commit to the same root however they were built. Returns a zero
// hash for an empty set.
func Commitment(s *Snapshot) types.Hash {
	hashes := make([]types.Hash, 0, s.Len())
	s.ForEach(func(op types.Outpoint, out tx.Output) error {
		hashes = append(hashes, hashEntry(op, out))
		return nil
	})
	return block.ComputeMerkleRoot(hashes)
}

// hashEntry produces a deterministic BLAKE3 hash of one entry.
// Format: txid(32) | index(4) | value(8) | owner_len(4) | owner
func hashEntry(op types.Outpoint, out tx.Output) types.Hash {
	buf := make([]byte, 0, 48+len(out.Owner))
	buf = append(buf, op.TxID[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, op.Index)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(out.Value))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(out.Owner)))
	buf = append(buf, out.Owner...)
	return crypto.Hash(buf)
}
