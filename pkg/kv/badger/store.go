// Package badger provides a BadgerDB-backed kv.Store implementation.
//
// BadgerDB is an embedded LSM-tree key-value store; it gives the engine
// durable single-key atomic writes, which is all the substrate contract
// requires.
package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/chunkstore/internal/logger"
	"github.com/marmos91/chunkstore/pkg/kv"
)

// Config holds BadgerDB store configuration.
type Config struct {
	// Path is the directory for the Badger value log and LSM tree.
	// Ignored when InMemory is true.
	Path string `mapstructure:"path" yaml:"path"`

	// InMemory runs Badger without touching disk. Used in tests.
	InMemory bool `mapstructure:"in_memory" yaml:"in_memory"`

	// GCInterval controls how often the value log garbage collector runs.
	// Zero disables the GC goroutine.
	GCInterval time.Duration `mapstructure:"gc_interval" yaml:"gc_interval"`

	// GCDiscardRatio is passed to RunValueLogGC. Defaults to 0.5.
	GCDiscardRatio float64 `mapstructure:"gc_discard_ratio" yaml:"gc_discard_ratio"`
}

// Store is a BadgerDB implementation of kv.Store.
type Store struct {
	db *badgerdb.DB

	closeOnce sync.Once
	stopGC    chan struct{}
	gcDone    chan struct{}
}

// New opens a BadgerDB store with the given configuration.
func New(cfg Config) (*Store, error) {
	var opts badgerdb.Options
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badgerdb.DefaultOptions(cfg.Path)
	}
	// Badger logs through its own logger by default; keep it quiet and let
	// the store log lifecycle events itself.
	opts = opts.WithLogger(nil)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}

	s := &Store{
		db:     db,
		stopGC: make(chan struct{}),
		gcDone: make(chan struct{}),
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		ratio := cfg.GCDiscardRatio
		if ratio == 0 {
			ratio = 0.5
		}
		go s.runGC(cfg.GCInterval, ratio)
	} else {
		close(s.gcDone)
	}

	logger.Info("badger store opened", "path", cfg.Path, "in_memory", cfg.InMemory)
	return s, nil
}

// runGC periodically runs the value log garbage collector.
func (s *Store) runGC(interval time.Duration, discardRatio float64) {
	defer close(s.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite just means there was nothing to collect.
			if err := s.db.RunValueLogGC(discardRatio); err != nil && err != badgerdb.ErrNoRewrite {
				logger.Warn("badger value log GC failed", "error", err)
			}
		}
	}
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badgerdb.ErrKeyNotFound {
			return kv.ErrKeyNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			value = append([]byte{}, val...)
			return nil
		})
	})
	if err != nil {
		if err == kv.ErrKeyNotFound {
			return nil, err
		}
		if err == badgerdb.ErrDBClosed {
			return nil, kv.ErrStoreClosed
		}
		return nil, fmt.Errorf("badger get %q: %w", key, err)
	}

	return value, nil
}

// Put stores value under key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		if err == badgerdb.ErrDBClosed {
			return kv.ErrStoreClosed
		}
		return fmt.Errorf("badger put %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Absent keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		if err == badgerdb.ErrDBClosed {
			return kv.ErrStoreClosed
		}
		return fmt.Errorf("badger delete %q: %w", key, err)
	}
	return nil
}

// DeleteMany removes the given keys in a single transaction where possible.
// Returns the number of keys that existed before deletion.
func (s *Store) DeleteMany(ctx context.Context, keys []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	removed := 0
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		for _, key := range keys {
			_, err := txn.Get([]byte(key))
			if err == badgerdb.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		if err == badgerdb.ErrDBClosed {
			return removed, kv.ErrStoreClosed
		}
		return removed, fmt.Errorf("badger delete many: %w", err)
	}
	return removed, nil
}

// Healthcheck verifies the database accepts reads.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return kv.ErrStoreClosed
	}

	return s.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte("__healthcheck__"))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// Close stops the GC goroutine and closes the database.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopGC)
		<-s.gcDone
		err = s.db.Close()
	})
	return err
}
