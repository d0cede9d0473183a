package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads configuration values from a .conf file.
// Format: key = value (one per line, # for comments).
// A missing file yields an empty map.
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets one config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	var err error
	switch key {
	case "genesis":
		cfg.GenesisFile = value

	// Chain
	case "chain.retention":
		cfg.Chain.RetentionWindow, err = strconv.ParseUint(value, 10, 64)
	case "chain.maxcoinbase":
		cfg.Chain.MaxCoinbaseValue, err = strconv.ParseInt(value, 10, 64)

	// Mempool
	case "mempool.maxsize":
		cfg.Mempool.MaxSize, err = strconv.Atoi(value)

	// Mining
	case "mining.reward":
		cfg.Mining.Reward, err = strconv.ParseInt(value, 10, 64)
	case "mining.maxtxs":
		cfg.Mining.MaxBlockTxs, err = strconv.Atoi(value)
	case "mining.miners":
		cfg.Mining.Miners, err = strconv.Atoi(value)
	case "mining.interval":
		cfg.Mining.Interval, err = time.ParseDuration(value)
	case "mining.difficulty":
		cfg.Mining.Difficulty, err = strconv.ParseUint(value, 10, 64)

	// Metrics
	case "metrics.enabled", "metrics":
		cfg.Metrics.Enabled = parseBool(value)
	case "metrics.addr":
		cfg.Metrics.Addr = value

	// Simulation
	case "sim.blocks":
		cfg.Sim.Blocks, err = strconv.Atoi(value)
	case "sim.wallets":
		cfg.Sim.Wallets, err = strconv.Atoi(value)
	case "sim.txrate":
		cfg.Sim.TxRate, err = strconv.Atoi(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", value, err)
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
