package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Chain.RetentionWindow != DefaultRetentionWindow {
		t.Errorf("retention = %d, want %d", cfg.Chain.RetentionWindow, DefaultRetentionWindow)
	}
	if cfg.Mining.MaxBlockTxs != MaxBlockTxs {
		t.Errorf("mining.maxtxs = %d, want the full block limit %d", cfg.Mining.MaxBlockTxs, MaxBlockTxs)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero retention", func(c *Config) { c.Chain.RetentionWindow = 0 }},
		{"negative coinbase cap", func(c *Config) { c.Chain.MaxCoinbaseValue = -1 }},
		{"reward above cap", func(c *Config) { c.Chain.MaxCoinbaseValue = 1; c.Mining.Reward = 2 }},
		{"too many txs", func(c *Config) { c.Mining.MaxBlockTxs = MaxBlockTxs + 1 }},
		{"no miners", func(c *Config) { c.Mining.Miners = 0 }},
		{"bad metrics addr", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Addr = "nope" }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"nil", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg *Config
			if tt.mutate != nil {
				cfg = Default()
				tt.mutate(cfg)
			}
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func writeConf(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.conf")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write conf: %v", err)
	}
	return path
}

func TestLoadFile_Apply(t *testing.T) {
	path := writeConf(t, `
# comment
chain.retention = 6
chain.maxcoinbase = "500"
mempool.maxsize = 10
mining.interval = 2s
mining.difficulty = 0
log.json = yes
unknown.key = whatever
`)
	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	cfg := Default()
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if cfg.Chain.RetentionWindow != 6 {
		t.Errorf("retention = %d, want 6", cfg.Chain.RetentionWindow)
	}
	if cfg.Chain.MaxCoinbaseValue != 500 {
		t.Errorf("maxcoinbase = %d, want 500", cfg.Chain.MaxCoinbaseValue)
	}
	if cfg.Mempool.MaxSize != 10 {
		t.Errorf("mempool.maxsize = %d, want 10", cfg.Mempool.MaxSize)
	}
	if cfg.Mining.Interval != 2*time.Second {
		t.Errorf("interval = %s, want 2s", cfg.Mining.Interval)
	}
	if cfg.Mining.Difficulty != 0 {
		t.Errorf("difficulty = %d, want 0", cfg.Mining.Difficulty)
	}
	if !cfg.Log.JSON {
		t.Error("log.json should be true")
	}
}

func TestLoadFile_Errors(t *testing.T) {
	values, err := LoadFile(filepath.Join(t.TempDir(), "missing.conf"))
	if err != nil || len(values) != 0 {
		t.Errorf("missing file should yield empty values, got %v, %v", values, err)
	}

	if _, err := LoadFile(writeConf(t, "no equals sign\n")); err == nil {
		t.Error("expected format error")
	}

	cfg := Default()
	if err := ApplyFileConfig(cfg, map[string]string{"chain.retention": "ten"}); err == nil {
		t.Error("expected parse error for non-numeric retention")
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConf(t, "chain.retention = 6\nsim.blocks = 20\n")
	cfg, flags, err := Load([]string{"-c", path, "-retention", "4", "-log-level", "debug"}, io.Discard)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chain.RetentionWindow != 4 {
		t.Errorf("flag should override file: retention = %d", cfg.Chain.RetentionWindow)
	}
	if cfg.Sim.Blocks != 20 {
		t.Errorf("file value should apply: sim.blocks = %d", cfg.Sim.Blocks)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %s", cfg.Log.Level)
	}
	if !flags.IsSet("retention") || flags.IsSet("miners") {
		t.Error("IsSet should reflect explicitly given flags")
	}

	if _, _, err := Load([]string{"-retention", "0"}, io.Discard); err == nil {
		t.Error("explicit zero retention should fail validation")
	}
	if _, _, err := Load([]string{"stray"}, io.Discard); err == nil {
		t.Error("positional argument should be rejected")
	}
}
