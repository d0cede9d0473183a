package tx

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// Builder constructs transactions incrementally.
type Builder struct {
	tx *Transaction
}

// NewBuilder creates a new transaction builder.
func NewBuilder() *Builder {
	return &Builder{
		tx: &Transaction{Version: 1},
	}
}

// AddInput adds an input referencing a previous output.
func (b *Builder) AddInput(prevOut types.Outpoint) *Builder {
	b.tx.Inputs = append(b.tx.Inputs, Input{PrevOut: prevOut})
	return b
}

// AddOutput adds an output paying value to owner.
func (b *Builder) AddOutput(value int64, owner []byte) *Builder {
	b.tx.Outputs = append(b.tx.Outputs, Output{Value: value, Owner: owner})
	return b
}

// SetLockTime sets the transaction lock time.
func (b *Builder) SetLockTime(lockTime uint64) *Builder {
	b.tx.LockTime = lockTime
	return b
}

// Sign signs input i with the given key.
func (b *Builder) Sign(i int, key crypto.Signer) error {
	if i < 0 || i >= len(b.tx.Inputs) {
		return fmt.Errorf("sign input %d: index out of range (%d inputs)", i, len(b.tx.Inputs))
	}
	digest := b.tx.SigningHash(i)
	sig, err := key.Sign(digest[:])
	if err != nil {
		return fmt.Errorf("sign input %d: %w", i, err)
	}
	b.tx.Inputs[i].Signature = sig
	return nil
}

// SignAll signs every input with one key (single-owner spending).
func (b *Builder) SignAll(key crypto.Signer) error {
	for i := range b.tx.Inputs {
		if err := b.Sign(i, key); err != nil {
			return err
		}
	}
	return nil
}

// SignWith signs each input with the key owning its outpoint.
func (b *Builder) SignWith(signers map[types.Outpoint]crypto.Signer) error {
	for i, in := range b.tx.Inputs {
		key, ok := signers[in.PrevOut]
		if !ok {
			return fmt.Errorf("no signer for input %d (%s)", i, in.PrevOut)
		}
		if err := b.Sign(i, key); err != nil {
			return err
		}
	}
	return nil
}

// Build returns the constructed transaction.
// Does NOT validate; validation needs a ledger snapshot.
func (b *Builder) Build() *Transaction {
	return b.tx
}
