package types

import "fmt"

// Outpoint references a specific output in a transaction.
// It is comparable and used directly as a map key.
type Outpoint struct {
	TxID  Hash   `json:"txid"`
	Index uint32 `json:"index"`
}

// IsZero returns true if the outpoint has a zero TxID and zero index.
func (o Outpoint) IsZero() bool {
	return o.TxID.IsZero() && o.Index == 0
}

// String returns "txid:index" in hex.
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID.String(), o.Index)
}

// Less orders outpoints by txid bytes, then by index.
func (o Outpoint) Less(other Outpoint) bool {
	if c := o.TxID.Compare(other.TxID); c != 0 {
		return c < 0
	}
	return o.Index < other.Index
}
