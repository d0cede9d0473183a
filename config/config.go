// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Ledger rules: constants and genesis, must match across every instance
//     that validates the same chain
//   - Node settings: runtime configuration, can vary per process
package config

import "time"

// =============================================================================
// Node Configuration (runtime, per-process settings)
// =============================================================================

// Config holds process-specific runtime configuration.
type Config struct {
	// Genesis file (JSON). Empty means a generated development genesis.
	GenesisFile string `conf:"genesis"`

	Chain   ChainConfig
	Mempool MempoolConfig
	Mining  MiningConfig
	Metrics MetricsConfig
	Sim     SimConfig
	Log     LogConfig
}

// ChainConfig holds fork-tracking settings.
type ChainConfig struct {
	// Blocks whose height would be <= best-RetentionWindow are refused and
	// records below that line are evicted.
	RetentionWindow uint64 `conf:"chain.retention"`
	// Upper bound on a block's coinbase value above its fees (0 = unlimited).
	MaxCoinbaseValue int64 `conf:"chain.maxcoinbase"`
}

// MempoolConfig holds pending pool settings.
type MempoolConfig struct {
	MaxSize int `conf:"mempool.maxsize"` // 0 = unlimited
}

// MiningConfig holds block assembly settings.
type MiningConfig struct {
	Reward      int64         `conf:"mining.reward"`   // Coinbase subsidy in base units
	MaxBlockTxs int           `conf:"mining.maxtxs"`   // Non-coinbase transactions per block
	Miners      int           `conf:"mining.miners"`   // Competing in-process miners
	Interval    time.Duration `conf:"mining.interval"` // Pause between mined blocks
	// Expected hashes per sealed block (0 = no proof of work).
	Difficulty uint64 `conf:"mining.difficulty"`
}

// MetricsConfig holds Prometheus exporter settings.
type MetricsConfig struct {
	Enabled bool   `conf:"metrics.enabled"`
	Addr    string `conf:"metrics.addr"`
}

// SimConfig drives the simulation binary.
type SimConfig struct {
	Blocks  int `conf:"sim.blocks"`  // Stop after the best tip reaches this height
	Wallets int `conf:"sim.wallets"` // Keys funded in the generated genesis
	TxRate  int `conf:"sim.txrate"`  // Transactions submitted per mined block
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Chain: ChainConfig{
			RetentionWindow: DefaultRetentionWindow,
		},
		Mempool: MempoolConfig{
			MaxSize: 50_000,
		},
		Mining: MiningConfig{
			Reward:      25 * Coin,
			MaxBlockTxs: MaxBlockTxs,
			Miners:      2,
			Interval:    50 * time.Millisecond,
			Difficulty:  256,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
		Sim: SimConfig{
			Blocks:  50,
			Wallets: 8,
			TxRate:  4,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}
