package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// =============================================================================
// Ledger Rules (immutable)
// These MUST match across every instance validating the same chain.
// =============================================================================

// Denomination constants.
// 1 coin = 10^8 base units. All on-chain values are in base units.
const (
	Decimals = 8
	Coin     = 100_000_000
)

// DefaultRetentionWindow is how far (in blocks) a branch may lag the best
// branch and still be extended.
const DefaultRetentionWindow = 10

// Block and transaction size limits.
const (
	MaxBlockTxs  = 500  // Max declared transactions per block (excluding coinbase)
	MaxTxInputs  = 2500 // Max inputs per transaction
	MaxTxOutputs = 2500 // Max outputs per transaction
	MaxOwnerSize = 128  // Max owner identity bytes per output
)

// Genesis describes the first block of a chain.
type Genesis struct {
	ChainName string `json:"chain_name"`
	Timestamp uint64 `json:"timestamp"`
	ExtraData string `json:"extra_data,omitempty"`

	// Initial allocations (hex compressed public key -> balance in base units).
	Alloc map[string]int64 `json:"alloc"`
}

// AllocEntry is one decoded genesis allocation.
type AllocEntry struct {
	Owner []byte
	Value int64
}

// Allocations returns the decoded allocations sorted by owner hex, so the
// genesis coinbase is identical on every run.
func (g *Genesis) Allocations() ([]AllocEntry, error) {
	keys := make([]string, 0, len(g.Alloc))
	for k := range g.Alloc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]AllocEntry, 0, len(keys))
	for _, k := range keys {
		owner, err := hex.DecodeString(k)
		if err != nil {
			return nil, fmt.Errorf("alloc key %q: %w", k, err)
		}
		entries = append(entries, AllocEntry{Owner: owner, Value: g.Alloc[k]})
	}
	return entries, nil
}

// LoadGenesis loads genesis configuration from a file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file: %w", err)
	}

	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing genesis file: %w", err)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}

	return &g, nil
}

// Save writes the genesis configuration to a file.
func (g *Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding genesis: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing genesis file: %w", err)
	}
	return nil
}

// Validate checks that the genesis configuration is usable.
func (g *Genesis) Validate() error {
	if g.ChainName == "" {
		return fmt.Errorf("chain_name is required")
	}
	if g.Timestamp == 0 {
		return fmt.Errorf("timestamp is required")
	}
	if len(g.Alloc) == 0 {
		return fmt.Errorf("alloc must fund at least one key")
	}

	entries, err := g.Allocations()
	if err != nil {
		return err
	}
	var total int64
	for _, e := range entries {
		if err := crypto.ValidatePublicKey(e.Owner); err != nil {
			return fmt.Errorf("alloc %x: %w", e.Owner, err)
		}
		if e.Value < 0 {
			return fmt.Errorf("alloc %x: negative balance %d", e.Owner, e.Value)
		}
		if total > math.MaxInt64-e.Value {
			return fmt.Errorf("genesis allocations overflow")
		}
		total += e.Value
	}
	return nil
}

// Hash returns a BLAKE3 hash of the genesis configuration.
func (g *Genesis) Hash() (types.Hash, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Hash(data), nil
}
