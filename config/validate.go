package config

import (
	"fmt"
	"net"
)

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Chain.RetentionWindow == 0 {
		return fmt.Errorf("chain.retention must be at least 1")
	}
	if cfg.Chain.MaxCoinbaseValue < 0 {
		return fmt.Errorf("chain.maxcoinbase must not be negative")
	}
	if cfg.Mempool.MaxSize < 0 {
		return fmt.Errorf("mempool.maxsize must not be negative")
	}
	if cfg.Mining.Reward < 0 {
		return fmt.Errorf("mining.reward must not be negative")
	}
	if cfg.Chain.MaxCoinbaseValue > 0 && cfg.Mining.Reward > cfg.Chain.MaxCoinbaseValue {
		return fmt.Errorf("mining.reward %d exceeds chain.maxcoinbase %d", cfg.Mining.Reward, cfg.Chain.MaxCoinbaseValue)
	}
	if cfg.Mining.MaxBlockTxs < 0 || cfg.Mining.MaxBlockTxs > MaxBlockTxs {
		return fmt.Errorf("mining.maxtxs must be in range [0, %d]", MaxBlockTxs)
	}
	if cfg.Mining.Miners < 1 {
		return fmt.Errorf("mining.miners must be at least 1")
	}
	if cfg.Mining.Interval < 0 {
		return fmt.Errorf("mining.interval must not be negative")
	}
	if cfg.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Addr); err != nil {
			return fmt.Errorf("metrics.addr: %w", err)
		}
	}
	if cfg.Sim.Blocks < 1 {
		return fmt.Errorf("sim.blocks must be at least 1")
	}
	if cfg.Sim.Wallets < 1 {
		return fmt.Errorf("sim.wallets must be at least 1")
	}
	if cfg.Sim.TxRate < 0 {
		return fmt.Errorf("sim.txrate must not be negative")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error")
	}
	return nil
}
