package node

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Klingon-tech/klingnet-ledger/config"
	"github.com/Klingon-tech/klingnet-ledger/internal/consensus"
	"github.com/Klingon-tech/klingnet-ledger/internal/utxo"
	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// walletFunding is the genesis allocation per generated wallet.
const walletFunding = 100 * config.Coin

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// loadGenesis reads the genesis file at path, or builds one funding every
// wallet when path is empty.
func loadGenesis(path string, w *wallets) (*config.Genesis, error) {
	if path != "" {
		gen, err := config.LoadGenesis(expandHome(path))
		if err != nil {
			return nil, fmt.Errorf("load genesis %s: %w", path, err)
		}
		return gen, nil
	}
	alloc := make(map[string]int64, w.len())
	for _, k := range w.keys {
		alloc[hex.EncodeToString(k.PublicKey())] = walletFunding
	}
	return &config.Genesis{
		ChainName: "ledgersim",
		Timestamp: uint64(time.Now().Unix()),
		Alloc:     alloc,
	}, nil
}

// createEngine returns a PoW sealer for a non-zero difficulty, otherwise
// an engine that seals nothing.
func createEngine(difficulty uint64) (consensus.Engine, error) {
	if difficulty == 0 {
		return consensus.None{}, nil
	}
	pow, err := consensus.NewPoW(difficulty)
	if err != nil {
		return nil, fmt.Errorf("create pow: %w", err)
	}
	return pow, nil
}

// txPresence reports whether a transaction is still pending.
type txPresence interface {
	Has(txHash types.Hash) bool
}

// wallets holds the simulation's spending keys and the coins they have
// already committed to pending transactions.
type wallets struct {
	keys    []*crypto.PrivateKey
	byOwner map[string]*crypto.PrivateKey
	pending map[types.Outpoint]types.Hash
}

func newWallets(n int) (*wallets, error) {
	w := &wallets{
		byOwner: make(map[string]*crypto.PrivateKey, n),
		pending: make(map[types.Outpoint]types.Hash),
	}
	for i := 0; i < n; i++ {
		k, err := crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		w.keys = append(w.keys, k)
		w.byOwner[string(k.PublicKey())] = k
	}
	return w, nil
}

func (w *wallets) len() int {
	return len(w.keys)
}

var errEnough = errors.New("enough payments")

// payments builds up to limit signed transfers spending wallet coins in
// ledger. Each pays half of the coin to a random wallet, one unit of fee,
// and the change back to the spender.
func (w *wallets) payments(ledger *utxo.Snapshot, pool txPresence, limit int) []*tx.Transaction {
	if limit <= 0 || len(w.keys) == 0 {
		return nil
	}
	// Coins whose spend left the pool are either confirmed or dropped.
	for op, h := range w.pending {
		if !pool.Has(h) {
			delete(w.pending, op)
		}
	}

	var out []*tx.Transaction
	_ = ledger.ForEach(func(op types.Outpoint, coin tx.Output) error {
		key, ok := w.byOwner[string(coin.Owner)]
		if !ok || coin.Value < 2 {
			return nil
		}
		if _, busy := w.pending[op]; busy {
			return nil
		}

		amount := (coin.Value - 1) / 2
		change := coin.Value - 1 - amount
		to := w.keys[rand.IntN(len(w.keys))]

		b := tx.NewBuilder().AddInput(op)
		if amount > 0 {
			b.AddOutput(amount, to.PublicKey())
		}
		b.AddOutput(change, key.PublicKey())
		if err := b.SignAll(key); err != nil {
			return nil
		}
		t := b.Build()
		w.pending[op] = t.Hash()
		out = append(out, t)
		if len(out) >= limit {
			return errEnough
		}
		return nil
	})
	return out
}
