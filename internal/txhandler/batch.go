package txhandler

import (
	"math"

	klog "github.com/Klingon-tech/klingnet-ledger/internal/log"
	"github.com/Klingon-tech/klingnet-ledger/internal/utxo"
	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
)

// Rejection is a candidate the batch refused and the reason.
type Rejection struct {
	Tx  *tx.Transaction
	Err error
}

// BatchResult is the outcome of one pass over a candidate list.
type BatchResult struct {
	Accepted []*tx.Transaction
	Rejected []Rejection
	// Fees is the sum of accepted fees, saturating at math.MaxInt64.
	Fees int64
}

// HandleTxs makes one greedy pass over candidates in order, validating
// each against set as modified by the candidates accepted before it. An
// accepted transaction is applied to set before the next one is checked,
// so a chained spend is accepted only if its parent comes first. Rejected
// candidates leave set untouched and are never retried.
func (h *Handler) HandleTxs(candidates []*tx.Transaction, set utxo.Set) []*tx.Transaction {
	return h.HandleTxsReport(candidates, set).Accepted
}

// HandleTxsReport is HandleTxs that also reports rejections and fees.
func (h *Handler) HandleTxsReport(candidates []*tx.Transaction, set utxo.Set) BatchResult {
	var res BatchResult
	for _, t := range candidates {
		if t == nil {
			continue
		}
		fee, err := h.check(t, set)
		if err != nil {
			klog.Validator.Debug().
				Str("tx", t.Hash().Short()).
				Err(err).
				Msg("Transaction rejected")
			res.Rejected = append(res.Rejected, Rejection{Tx: t, Err: err})
			continue
		}
		Apply(t, set)
		res.Accepted = append(res.Accepted, t)
		if res.Fees > math.MaxInt64-fee {
			res.Fees = math.MaxInt64
		} else {
			res.Fees += fee
		}
	}
	return res
}
