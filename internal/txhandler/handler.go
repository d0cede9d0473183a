// Package txhandler validates transactions against a ledger snapshot and
// selects a mutually consistent subset from a candidate list.
package txhandler

import (
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/klingnet-ledger/internal/utxo"
	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// Validation errors.
var (
	ErrNilTx             = errors.New("nil transaction")
	ErrInputNotFound     = errors.New("input not in ledger")
	ErrDuplicateInput    = errors.New("output claimed twice")
	ErrBadSignature      = errors.New("signature verification failed")
	ErrNegativeOutput    = errors.New("negative output value")
	ErrInputOverflow     = errors.New("input values overflow")
	ErrInsufficientFunds = errors.New("outputs exceed inputs")
)

// Handler validates transactions. The zero value is not usable; use New.
type Handler struct {
	verifier crypto.Verifier
}

// New creates a handler that checks input signatures with verifier.
// A nil verifier selects crypto.SchnorrVerifier.
func New(verifier crypto.Verifier) *Handler {
	if verifier == nil {
		verifier = crypto.SchnorrVerifier{}
	}
	return &Handler{verifier: verifier}
}

// Validate checks t against view. A transaction is valid when every input
// is spendable in view, no output is claimed twice, every input signature
// verifies against the owner of the output it claims, no output is negative
// and inputs cover outputs.
func (h *Handler) Validate(t *tx.Transaction, view utxo.View) error {
	_, err := h.check(t, view)
	return err
}

// IsValid is Validate reduced to a boolean.
func (h *Handler) IsValid(t *tx.Transaction, view utxo.View) bool {
	return h.Validate(t, view) == nil
}

// Fee validates t and returns inputs minus outputs.
func (h *Handler) Fee(t *tx.Transaction, view utxo.View) (int64, error) {
	return h.check(t, view)
}

func (h *Handler) check(t *tx.Transaction, view utxo.View) (int64, error) {
	if t == nil {
		return 0, ErrNilTx
	}
	if err := t.CheckLimits(); err != nil {
		return 0, err
	}

	id := t.Hash()
	claimed := make(map[types.Outpoint]struct{}, len(t.Inputs))
	var totalIn int64
	for i, in := range t.Inputs {
		prev, ok := view.Get(in.PrevOut)
		if !ok {
			return 0, fmt.Errorf("input %d (%s): %w", i, in.PrevOut, ErrInputNotFound)
		}
		if _, dup := claimed[in.PrevOut]; dup {
			return 0, fmt.Errorf("input %d (%s): %w", i, in.PrevOut, ErrDuplicateInput)
		}
		claimed[in.PrevOut] = struct{}{}

		digest := tx.InputDigest(id, i)
		if !h.verifier.Verify(prev.Owner, digest[:], in.Signature) {
			return 0, fmt.Errorf("input %d: %w", i, ErrBadSignature)
		}

		if prev.Value < 0 || totalIn > math.MaxInt64-prev.Value {
			return 0, fmt.Errorf("input %d: %w", i, ErrInputOverflow)
		}
		totalIn += prev.Value
	}

	totalOut, err := t.TotalOutputValue()
	if errors.Is(err, tx.ErrNegativeValue) {
		return 0, fmt.Errorf("%w: %v", ErrNegativeOutput, err)
	}
	if err != nil {
		// Outputs that overflow int64 cannot be covered by any inputs.
		return 0, fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	}
	if totalIn < totalOut {
		return 0, fmt.Errorf("%w: inputs=%d outputs=%d", ErrInsufficientFunds, totalIn, totalOut)
	}
	return totalIn - totalOut, nil
}

// Apply spends t's inputs and adds its outputs to set. It does not
// validate.
func Apply(t *tx.Transaction, set utxo.Set) {
	id := t.Hash()
	for _, in := range t.Inputs {
		set.Remove(in.PrevOut)
	}
	for i, out := range t.Outputs {
		set.Add(types.Outpoint{TxID: id, Index: uint32(i)}, out)
	}
}

// ApplyCoinbase adds the coinbase outputs to set unconditionally. Coinbases
// mint value and have nothing to balance against.
func ApplyCoinbase(coinbase *tx.Transaction, set utxo.Set) {
	if coinbase == nil {
		return
	}
	Apply(coinbase, set)
}
