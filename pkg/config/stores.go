package config

import (
	"context"
	"fmt"

	"github.com/marmos91/chunkstore/pkg/kv"
	"github.com/marmos91/chunkstore/pkg/kv/badger"
	"github.com/marmos91/chunkstore/pkg/kv/memory"
	"github.com/marmos91/chunkstore/pkg/kv/postgres"
	"github.com/marmos91/chunkstore/pkg/kv/sqlite"
)

// StoreConfig selects and configures the substrate key-value store.
type StoreConfig struct {
	// Type selects the store backend.
	// Valid values: memory, badger, sqlite, postgres
	// Default: badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger sqlite postgres" yaml:"type"`

	// Badger configures the BadgerDB backend (type: badger).
	Badger badger.Config `mapstructure:"badger" yaml:"badger,omitempty"`

	// SQLite configures the SQLite backend (type: sqlite).
	SQLite sqlite.Config `mapstructure:"sqlite" yaml:"sqlite,omitempty"`

	// Postgres configures the PostgreSQL backend (type: postgres).
	Postgres postgres.Config `mapstructure:"postgres" yaml:"postgres,omitempty"`
}

// CreateStore creates a substrate store instance from configuration.
//
// The memory backend keeps everything in process memory and is only
// suitable for tests and experiments.
func CreateStore(ctx context.Context, cfg StoreConfig) (kv.Store, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(), nil
	case "badger", "":
		if !cfg.Badger.InMemory && cfg.Badger.Path == "" {
			return nil, fmt.Errorf("badger store requires path to be set")
		}
		return badger.New(cfg.Badger)
	case "sqlite":
		if cfg.SQLite.Path == "" {
			return nil, fmt.Errorf("sqlite store requires path to be set")
		}
		return sqlite.New(cfg.SQLite)
	case "postgres":
		if cfg.Postgres.Database == "" {
			return nil, fmt.Errorf("postgres store requires database to be set")
		}
		return postgres.New(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown store type: %q", cfg.Type)
	}
}
