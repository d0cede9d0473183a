package config

import (
	"flag"
	"fmt"
	"io"
	"time"
)

// Flags holds parsed command-line flags.
type Flags struct {
	Help bool

	Config  string
	Genesis string

	Retention   uint64
	MaxCoinbase int64
	MempoolSize int

	Reward     int64
	MaxTxs     int
	Miners     int
	Interval   time.Duration
	Difficulty uint64

	Metrics     bool
	MetricsAddr string

	Blocks  int
	Wallets int
	TxRate  int

	LogLevel string
	LogFile  string
	LogJSON  bool

	// Explicitly-set flags (zero can be a meaningful override).
	set map[string]bool
}

// ParseFlags parses command-line arguments (without the program name).
func ParseFlags(args []string, usageOut io.Writer) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("ledgersim", flag.ContinueOnError)
	fs.SetOutput(usageOut)

	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")

	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")
	fs.StringVar(&f.Genesis, "genesis", "", "Genesis JSON file (default: generated)")

	fs.Uint64Var(&f.Retention, "retention", 0, "Retention window in blocks")
	fs.Int64Var(&f.MaxCoinbase, "max-coinbase", 0, "Max coinbase value in base units (0 = unlimited)")
	fs.IntVar(&f.MempoolSize, "mempool-size", 0, "Max pending transactions (0 = unlimited)")

	fs.Int64Var(&f.Reward, "reward", 0, "Block reward in base units")
	fs.IntVar(&f.MaxTxs, "max-txs", 0, "Max transactions per mined block")
	fs.IntVar(&f.Miners, "miners", 0, "Number of competing miners")
	fs.DurationVar(&f.Interval, "interval", 0, "Pause between mined blocks")
	fs.Uint64Var(&f.Difficulty, "difficulty", 0, "Proof-of-work difficulty (0 = none)")

	fs.BoolVar(&f.Metrics, "metrics", false, "Serve Prometheus metrics")
	fs.StringVar(&f.MetricsAddr, "metrics-addr", "", "Metrics listen address")

	fs.IntVar(&f.Blocks, "blocks", 0, "Stop once the best height reaches this value")
	fs.IntVar(&f.Wallets, "wallets", 0, "Number of funded wallets")
	fs.IntVar(&f.TxRate, "tx-rate", 0, "Transactions submitted per block")

	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	fs.Usage = func() {
		fmt.Fprintln(usageOut, "Usage: ledgersim [options]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if f.Help {
		fs.Usage()
	}

	f.set = make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) {
		f.set[fl.Name] = true
	})
	return f, nil
}

// IsSet reports whether the named flag was given explicitly.
func (f *Flags) IsSet(name string) bool {
	return f.set[name]
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	if f.Genesis != "" {
		cfg.GenesisFile = f.Genesis
	}

	if f.IsSet("retention") {
		cfg.Chain.RetentionWindow = f.Retention
	}
	if f.IsSet("max-coinbase") {
		cfg.Chain.MaxCoinbaseValue = f.MaxCoinbase
	}
	if f.IsSet("mempool-size") {
		cfg.Mempool.MaxSize = f.MempoolSize
	}

	if f.IsSet("reward") {
		cfg.Mining.Reward = f.Reward
	}
	if f.IsSet("max-txs") {
		cfg.Mining.MaxBlockTxs = f.MaxTxs
	}
	if f.IsSet("miners") {
		cfg.Mining.Miners = f.Miners
	}
	if f.IsSet("interval") {
		cfg.Mining.Interval = f.Interval
	}

	if f.IsSet("difficulty") {
		cfg.Mining.Difficulty = f.Difficulty
	}

	if f.IsSet("metrics") {
		cfg.Metrics.Enabled = f.Metrics
	}
	if f.MetricsAddr != "" {
		cfg.Metrics.Addr = f.MetricsAddr
	}

	if f.IsSet("blocks") {
		cfg.Sim.Blocks = f.Blocks
	}
	if f.IsSet("wallets") {
		cfg.Sim.Wallets = f.Wallets
	}
	if f.IsSet("tx-rate") {
		cfg.Sim.TxRate = f.TxRate
	}

	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.IsSet("log-json") {
		cfg.Log.JSON = f.LogJSON
	}
}

// Load builds the configuration with the following precedence:
// 1. Default values
// 2. Config file (when given)
// 3. Command-line flags
func Load(args []string, usageOut io.Writer) (*Config, *Flags, error) {
	flags, err := ParseFlags(args, usageOut)
	if err != nil {
		return nil, nil, err
	}

	cfg := Default()

	if flags.Config != "" {
		values, err := LoadFile(flags.Config)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config file: %w", err)
		}
		if err := ApplyFileConfig(cfg, values); err != nil {
			return nil, nil, fmt.Errorf("applying config file: %w", err)
		}
	}

	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, flags, nil
}
