// Package tx defines the transaction payload: its canonical identity, the
// per-input digests that owners sign, and a builder.
package tx

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// Value errors.
var (
	ErrNegativeValue  = errors.New("output value is negative")
	ErrOutputOverflow = errors.New("output values overflow")
)

// Transaction moves value from previously created outputs to new ones.
type Transaction struct {
	Version  uint32   `json:"version"`
	Inputs   []Input  `json:"inputs"`
	Outputs  []Output `json:"outputs"`
	LockTime uint64   `json:"locktime"`
}

// Input claims a previous output. Signature covers SigningHash of this
// input's index.
type Input struct {
	PrevOut   types.Outpoint `json:"prevout"`
	Signature []byte         `json:"signature"`
}

// Output is a spendable amount locked to an owner public key.
type Output struct {
	Value int64  `json:"value"`
	Owner []byte `json:"owner"`
}

type inputJSON struct {
	PrevOut   types.Outpoint `json:"prevout"`
	Signature *string        `json:"signature"`
}

// MarshalJSON encodes the input with a hex-encoded signature.
func (in Input) MarshalJSON() ([]byte, error) {
	j := inputJSON{PrevOut: in.PrevOut}
	if in.Signature != nil {
		s := hex.EncodeToString(in.Signature)
		j.Signature = &s
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes an input with a hex-encoded signature.
func (in *Input) UnmarshalJSON(data []byte) error {
	var j inputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	in.PrevOut = j.PrevOut
	in.Signature = nil
	if j.Signature != nil {
		b, err := hex.DecodeString(*j.Signature)
		if err != nil {
			return fmt.Errorf("signature: %w", err)
		}
		in.Signature = b
	}
	return nil
}

type outputJSON struct {
	Value int64  `json:"value"`
	Owner string `json:"owner"`
}

// MarshalJSON encodes the output with a hex-encoded owner key.
func (out Output) MarshalJSON() ([]byte, error) {
	return json.Marshal(outputJSON{Value: out.Value, Owner: hex.EncodeToString(out.Owner)})
}

// UnmarshalJSON decodes an output with a hex-encoded owner key.
func (out *Output) UnmarshalJSON(data []byte) error {
	var j outputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	owner, err := hex.DecodeString(j.Owner)
	if err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	out.Value = j.Value
	out.Owner = owner
	return nil
}

// Clone returns a deep copy of the output.
func (out Output) Clone() Output {
	return Output{Value: out.Value, Owner: append([]byte(nil), out.Owner...)}
}

// NewCoinbase creates a value-minting transaction paying value to owner.
// The height is stored in LockTime so coinbases of different blocks never
// share an identity.
func NewCoinbase(owner []byte, value int64, height uint64) *Transaction {
	return &Transaction{
		Version:  1,
		Outputs:  []Output{{Value: value, Owner: owner}},
		LockTime: height,
	}
}

// IsCoinbase reports whether the transaction mints value (has no inputs).
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 0
}

// Hash computes the transaction ID (BLAKE3 of SigningBytes).
// Signatures are excluded so inputs can sign over the identity.
func (tx *Transaction) Hash() types.Hash {
	return crypto.Hash(tx.SigningBytes())
}

// SigningBytes returns the canonical byte representation of the transaction.
// Format: version(4) | input_count(4) | [prevout(36)]... | output_count(4) |
// [value(8) + owner_len(4) + owner]... | locktime(8)
func (tx *Transaction) SigningBytes() []byte {
	size := 4 + 4 + 36*len(tx.Inputs) + 4 + 8
	for _, out := range tx.Outputs {
		size += 12 + len(out.Owner)
	}
	buf := make([]byte, 0, size)

	buf = binary.LittleEndian.AppendUint32(buf, tx.Version)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf = append(buf, in.PrevOut.TxID[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, in.PrevOut.Index)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(out.Value))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(out.Owner)))
		buf = append(buf, out.Owner...)
	}

	buf = binary.LittleEndian.AppendUint64(buf, tx.LockTime)
	return buf
}

// SigningHash returns the digest the owner of input i signs:
// BLAKE3(txid(32) | input_index(4)).
func (tx *Transaction) SigningHash(i int) types.Hash {
	return InputDigest(tx.Hash(), i)
}

// InputDigest is SigningHash for an already computed transaction id.
func InputDigest(id types.Hash, i int) types.Hash {
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], uint32(i))
	return crypto.HashParts(id[:], idx[:])
}

// OutPoint returns the reference to output i of this transaction.
func (tx *Transaction) OutPoint(i int) types.Outpoint {
	return types.Outpoint{TxID: tx.Hash(), Index: uint32(i)}
}

// TotalOutputValue returns the sum of all output values. It fails on a
// negative output or if the sum overflows int64.
func (tx *Transaction) TotalOutputValue() (int64, error) {
	var total int64
	for i, out := range tx.Outputs {
		if out.Value < 0 {
			return 0, fmt.Errorf("output %d: %w", i, ErrNegativeValue)
		}
		if total > math.MaxInt64-out.Value {
			return 0, fmt.Errorf("output %d: %w", i, ErrOutputOverflow)
		}
		total += out.Value
	}
	return total, nil
}
