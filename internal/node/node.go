// Package node wires a ledger, its pending pool and a set of competing
// miners into one runnable process.
package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/klingnet-ledger/config"
	"github.com/Klingon-tech/klingnet-ledger/internal/chain"
	"github.com/Klingon-tech/klingnet-ledger/internal/consensus"
	klog "github.com/Klingon-tech/klingnet-ledger/internal/log"
	"github.com/Klingon-tech/klingnet-ledger/internal/mempool"
	"github.com/Klingon-tech/klingnet-ledger/internal/metrics"
	"github.com/Klingon-tech/klingnet-ledger/internal/miner"
	"github.com/Klingon-tech/klingnet-ledger/internal/utxo"
	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
)

// Node is a fully-initialized simulation process.
type Node struct {
	cfg     *config.Config
	genesis *config.Genesis
	logger  zerolog.Logger
	closer  io.Closer

	// Core
	ch   *chain.Chain
	pool *mempool.Pool
	reg  *prometheus.Registry

	// Actors
	wallets *wallets
	miners  []*miner.Miner
}

// New creates and initializes a Node. It performs all setup steps
// (logger, genesis, consensus, pool, chain, miners) but starts nothing.
// Call Run for that.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Logger ───────────────────────────────────────────────────
	closer, err := klog.Init(cfg.Log.Level, cfg.Log.JSON, expandHome(cfg.Log.File))
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.Node

	// ── 2. Genesis and funded wallets ───────────────────────────────
	w, err := newWallets(cfg.Sim.Wallets)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("generate wallets: %w", err)
	}
	genesis, err := loadGenesis(cfg.GenesisFile, w)
	if err != nil {
		closer.Close()
		return nil, err
	}

	// ── 3. Consensus engine ─────────────────────────────────────────
	engine, err := createEngine(cfg.Mining.Difficulty)
	if err != nil {
		closer.Close()
		return nil, err
	}

	// ── 4. Metrics ──────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	// ── 5. Pool and chain ───────────────────────────────────────────
	pool := mempool.New(cfg.Mempool.MaxSize)
	pool.SetPolicy(mempool.DefaultPolicy())
	pool.SetMetrics(m)

	opts := []chain.Option{
		chain.WithRetentionWindow(cfg.Chain.RetentionWindow),
		chain.WithMaxCoinbaseValue(cfg.Chain.MaxCoinbaseValue),
		chain.WithPool(pool),
		chain.WithMetrics(m),
	}
	if pow, ok := engine.(*consensus.PoW); ok {
		opts = append(opts, chain.WithHeaderVerifier(pow))
	}
	ch, err := chain.NewFromGenesis(genesis, opts...)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("create chain: %w", err)
	}

	logger.Info().
		Str("chain", genesis.ChainName).
		Str("genesis", ch.GenesisHash().Short()).
		Uint64("retention", ch.RetentionWindow()).
		Uint64("difficulty", cfg.Mining.Difficulty).
		Int("wallets", w.len()).
		Msg("Ledger initialized")

	// ── 6. Miners ───────────────────────────────────────────────────
	miners := make([]*miner.Miner, 0, cfg.Mining.Miners)
	for i := 0; i < cfg.Mining.Miners; i++ {
		key, err := crypto.GenerateKey()
		if err != nil {
			closer.Close()
			return nil, fmt.Errorf("miner %d key: %w", i, err)
		}
		mn := miner.New(ch, pool, ch.Handler(), engine, key.PublicKey(), cfg.Mining.Reward)
		mn.SetMaxBlockTxs(cfg.Mining.MaxBlockTxs)
		miners = append(miners, mn)
	}

	return &Node{
		cfg:     cfg,
		genesis: genesis,
		logger:  logger,
		closer:  closer,
		ch:      ch,
		pool:    pool,
		reg:     reg,
		wallets: w,
		miners:  miners,
	}, nil
}

// Chain returns the node's ledger.
func (n *Node) Chain() *chain.Chain {
	return n.ch
}

// Registry returns the Prometheus registry the node reports to.
func (n *Node) Registry() *prometheus.Registry {
	return n.reg
}

// Run mines and submits transactions until the best tip reaches
// sim.blocks or ctx is cancelled. It returns the first actor error.
func (n *Node) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	for i, m := range n.miners {
		g.Go(func() error {
			n.logger.Debug().Int("miner", i).Msg("Miner started")
			return m.Run(gctx, n.cfg.Mining.Interval)
		})
	}

	g.Go(func() error {
		n.drive(gctx, cancel)
		return nil
	})

	if n.cfg.Metrics.Enabled {
		srv := &http.Server{
			Addr:              n.cfg.Metrics.Addr,
			Handler:           n.metricsHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			n.logger.Info().Str("addr", srv.Addr).Msg("Metrics server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	n.report()
	return err
}

// drive relays sim.txrate wallet payments through the pool policy for
// every new best tip and cancels the run once the target height is reached.
func (n *Node) drive(ctx context.Context, stop context.CancelFunc) {
	target := uint64(n.cfg.Sim.Blocks)
	lastHeight := n.ch.Height()

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		h := n.ch.Height()
		if h >= target {
			n.logger.Info().Uint64("height", h).Msg("Target height reached")
			stop()
			return
		}
		if h == lastHeight {
			continue
		}
		lastHeight = h

		submitted := 0
		for _, t := range n.wallets.payments(n.ch.BestLedger(), n.pool, n.cfg.Sim.TxRate) {
			if err := n.pool.Accept(t); err != nil {
				n.logger.Debug().Err(err).Msg("Submit rejected")
				continue
			}
			submitted++
		}
		n.logger.Debug().
			Uint64("height", h).
			Int("submitted", submitted).
			Int("pending", n.pool.Count()).
			Msg("Transactions submitted")
	}
}

// report logs the final ledger state and re-derives the best ledger
// from the retained history.
func (n *Node) report() {
	tip := n.ch.BestTip()
	ledger := tip.Ledger()

	ev := n.logger.Info().
		Str("chain", n.genesis.ChainName).
		Uint64("height", tip.Height).
		Str("tip", tip.Hash().Short()).
		Int("records", n.ch.RecordCount()).
		Int("utxos", ledger.Len()).
		Str("commitment", utxo.Commitment(ledger).Short())
	done := klog.Benchmark(n.logger, "verify_record")
	err := n.ch.VerifyRecord(tip.Hash())
	done()
	if err != nil {
		n.logger.Error().Err(err).Msg("Best ledger failed replay")
	} else {
		ev = ev.Bool("replayed", true)
	}
	ev.Msg("Simulation finished")
}

func (n *Node) metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(n.reg, promhttp.HandlerOpts{}))
	return mux
}

// Close releases the log file.
func (n *Node) Close() error {
	n.logger.Info().Msg("Goodbye!")
	return n.closer.Close()
}
