package tx

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-ledger/config"
)

// Structural errors.
var (
	ErrTooManyInputs  = errors.New("too many inputs")
	ErrTooManyOutputs = errors.New("too many outputs")
	ErrOwnerTooLarge  = errors.New("output owner too large")
)

// CheckLimits enforces size bounds that hold regardless of ledger state.
// Ownership, double spends and value conservation need a snapshot and are
// checked by the transaction handler.
func (tx *Transaction) CheckLimits() error {
	if len(tx.Inputs) > config.MaxTxInputs {
		return fmt.Errorf("%w: %d inputs, max %d", ErrTooManyInputs, len(tx.Inputs), config.MaxTxInputs)
	}
	if len(tx.Outputs) > config.MaxTxOutputs {
		return fmt.Errorf("%w: %d outputs, max %d", ErrTooManyOutputs, len(tx.Outputs), config.MaxTxOutputs)
	}
	for i, out := range tx.Outputs {
		if len(out.Owner) > config.MaxOwnerSize {
			return fmt.Errorf("output %d: %w: %d bytes, max %d", i, ErrOwnerTooLarge, len(out.Owner), config.MaxOwnerSize)
		}
	}
	return nil
}
