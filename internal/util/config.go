// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/aplane-algo/apvault/internal/ledger"
)

// Ledger backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// DefaultDataDirName is the data directory created under the home directory
const DefaultDataDirName = ".apvault"

// LedgerConfig selects and locates the ledger backend.
type LedgerConfig struct {
	Backend string `yaml:"backend" description:"Ledger backend (memory, sqlite)" default:"sqlite"`
	Path    string `yaml:"path" description:"SQLite database path (relative to data dir)" default:"ledger.db"`
}

// Config holds apvault configuration settings
type Config struct {
	Ledger LedgerConfig `yaml:"ledger" description:"Ledger storage"`

	// Rent rules; edits are applied to a running ledger
	Rent ledger.Params `yaml:"rent" description:"Rent rules that set the minimum persistence floor"`

	ProgramID   string `yaml:"program_id" description:"Vault program address (built-in id if empty)"`
	MetricsAddr string `yaml:"metrics_addr" description:"Prometheus listen address (disabled if empty)"`
	Faucet      bool   `yaml:"faucet" description:"Allow the airdrop command" default:"true"`
}

// configEnv holds environment overrides. Empty values leave the file value.
type configEnv struct {
	Backend     string `env:"APVAULT_LEDGER_BACKEND"`
	Path        string `env:"APVAULT_LEDGER_PATH"`
	ProgramID   string `env:"APVAULT_PROGRAM_ID"`
	MetricsAddr string `env:"APVAULT_METRICS_ADDR"`
	Faucet      *bool  `env:"APVAULT_FAUCET"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Ledger: LedgerConfig{
			Backend: BackendSQLite,
			Path:    "ledger.db",
		},
		Rent:   ledger.DefaultParams(),
		Faucet: true,
	}
}

// Validate checks the configuration for values apvault cannot run with.
func (c Config) Validate() error {
	switch c.Ledger.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Ledger.Path == "" {
			return fmt.Errorf("ledger.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("invalid ledger.backend '%s' (must be memory or sqlite)", c.Ledger.Backend)
	}
	if err := c.Rent.Validate(); err != nil {
		return fmt.Errorf("invalid rent: %w", err)
	}
	if _, err := c.ProgramAddress(); err != nil {
		return err
	}
	return nil
}

// ProgramAddress decodes ProgramID. The zero address means "use the built-in id".
func (c Config) ProgramAddress() (types.Address, error) {
	if c.ProgramID == "" {
		return types.Address{}, nil
	}
	addr, err := types.DecodeAddress(c.ProgramID)
	if err != nil {
		return types.Address{}, fmt.Errorf("invalid program_id: %w", err)
	}
	return addr, nil
}

// GetDataDir returns the apvault data directory.
// Resolution order: -d flag > APVAULT_DATA env var > ~/.apvault
func GetDataDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envDir := os.Getenv("APVAULT_DATA"); envDir != "" {
		return envDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultDataDirName)
}

// GetConfigPath returns the path to config.yaml in the data directory.
func GetConfigPath(dataDir string) string {
	if dataDir == "" {
		return ""
	}
	return filepath.Join(dataDir, "config.yaml")
}

// KeysDir returns the keystore directory inside the data directory.
func KeysDir(dataDir string) string {
	return filepath.Join(dataDir, "keys")
}

// LoadConfig loads config.yaml from dataDir, applies environment overrides,
// and resolves the ledger path against dataDir.
func LoadConfig(dataDir string) (Config, error) {
	config, err := LoadConfigFromPath(GetConfigPath(dataDir))
	if err != nil {
		return config, err
	}
	if err := applyEnv(&config); err != nil {
		return Config{}, err
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	config.Ledger.Path = ResolvePath(config.Ledger.Path, dataDir)
	return config, nil
}

// LoadConfigFromPath loads configuration from path, returning defaults if
// path is empty or the file does not exist. Fields missing from the file
// keep their defaults.
func LoadConfigFromPath(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// SaveConfig writes config to path as YAML.
func SaveConfig(path string, config Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func applyEnv(config *Config) error {
	var raw configEnv
	if err := env.Parse(&raw); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if raw.Backend != "" {
		config.Ledger.Backend = raw.Backend
	}
	if raw.Path != "" {
		config.Ledger.Path = raw.Path
	}
	if raw.ProgramID != "" {
		config.ProgramID = raw.ProgramID
	}
	if raw.MetricsAddr != "" {
		config.MetricsAddr = raw.MetricsAddr
	}
	if raw.Faucet != nil {
		config.Faucet = *raw.Faucet
	}
	return nil
}

// ResolvePath returns path unchanged if absolute, otherwise joined to baseDir.
func ResolvePath(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
