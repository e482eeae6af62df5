package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/chunkstore/pkg/chunk"
)

// GetDefaultConfig returns a configuration populated entirely from defaults.
// Used when no configuration file exists.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyShutdownTimeoutDefaults(cfg)
	applyStoreDefaults(&cfg.Store)
	applyEngineDefaults(&cfg.Engine)
	cfg.Metrics.ApplyDefaults()
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyShutdownTimeoutDefaults sets shutdown timeout defaults.
func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyStoreDefaults sets substrate store defaults.
//
// The default backend is BadgerDB under the data directory, which gives a
// working embedded setup with no external services.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "badger"
	}

	if cfg.Type == "badger" && !cfg.Badger.InMemory {
		if cfg.Badger.Path == "" {
			cfg.Badger.Path = filepath.Join(getDataDir(), "badger")
		}
		if cfg.Badger.GCInterval == 0 {
			cfg.Badger.GCInterval = 5 * time.Minute
		}
	}

	if cfg.Type == "sqlite" && cfg.SQLite.Path == "" {
		cfg.SQLite.Path = filepath.Join(getDataDir(), "chunkstore.db")
	}

	if cfg.Type == "postgres" {
		cfg.Postgres.ApplyDefaults()
	}
}

// applyEngineDefaults sets chunking engine defaults.
func applyEngineDefaults(cfg *EngineConfig) {
	if cfg.DefaultBatchSize == 0 {
		cfg.DefaultBatchSize = chunk.DefaultBatchSize
	}
}
