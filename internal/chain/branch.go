package chain

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-ledger/internal/utxo"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// Branch errors.
var (
	ErrUnknownBlock   = errors.New("block not retained")
	ErrNoForkPoint    = errors.New("branches share no retained ancestor")
	ErrLedgerMismatch = errors.New("replayed ledger differs from record")
)

// Ancestors returns the retained branch ending at hash, oldest first. The
// first record is either genesis or the oldest ancestor still inside the
// retention window.
func (c *Chain) Ancestors(hash types.Hash) ([]*Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ancestorsLocked(hash)
}

func (c *Chain) ancestorsLocked(hash types.Hash) ([]*Record, error) {
	rec, ok := c.blocks.get(hash)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBlock, hash)
	}
	branch := []*Record{rec}
	for {
		parent, ok := c.blocks.get(rec.PrevHash())
		if !ok {
			break
		}
		branch = append(branch, parent)
		rec = parent
	}
	for i, j := 0, len(branch)-1; i < j; i, j = i+1, j-1 {
		branch[i], branch[j] = branch[j], branch[i]
	}
	return branch, nil
}

// ForkPoint returns the most recent retained block that both a and b
// descend from (a block counts as its own descendant).
func (c *Chain) ForkPoint(a, b types.Hash) (*Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ra, ok := c.blocks.get(a)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBlock, a)
	}
	rb, ok := c.blocks.get(b)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBlock, b)
	}

	// Step the higher record back until the two meet.
	for ra != nil && rb != nil && ra.hash != rb.hash {
		if ra.Height >= rb.Height {
			ra = c.parentLocked(ra)
		} else {
			rb = c.parentLocked(rb)
		}
	}
	if ra == nil || rb == nil {
		return nil, fmt.Errorf("%w: %s, %s", ErrNoForkPoint, a.Short(), b.Short())
	}
	return ra, nil
}

func (c *Chain) parentLocked(r *Record) *Record {
	p, ok := c.blocks.get(r.PrevHash())
	if !ok {
		return nil
	}
	return p
}

// VerifyRecord replays the retained branch ending at hash and checks that
// the result matches the stored ledger. A branch reaching genesis is
// replayed from an empty ledger; otherwise replay starts from the oldest
// retained record's ledger.
func (c *Chain) VerifyRecord(hash types.Hash) error {
	c.mu.Lock()
	branch, err := c.ancestorsLocked(hash)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	var ledger *utxo.Snapshot
	for i, rec := range branch {
		if i == 0 {
			if rec.hash == c.genesisHash {
				ledger, _ = genesisLedger(rec.Block)
			} else {
				ledger = rec.Ledger()
			}
			continue
		}
		next, err := c.applyBlock(ledger, rec.Block)
		if err != nil {
			return fmt.Errorf("replay %s at height %d: %w", rec.Hash().Short(), rec.Height, err)
		}
		ledger = next
	}

	want := branch[len(branch)-1]
	if !utxo.Equal(ledger, want.ledger) {
		return fmt.Errorf("%w: %s: replayed %s, stored %s", ErrLedgerMismatch,
			want.Hash().Short(), utxo.Commitment(ledger).Short(), want.Commitment().Short())
	}
	return nil
}
