// Package sqlite provides a SQLite-backed kv.Store implementation using
// GORM with the pure-Go glebarez driver (no cgo).
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marmos91/chunkstore/internal/logger"
	"github.com/marmos91/chunkstore/pkg/kv"
)

// Config holds SQLite store configuration.
type Config struct {
	// Path is the database file path. ":memory:" opens an in-memory database.
	Path string `mapstructure:"path" yaml:"path"`
}

// entry is the GORM model for a single key-value pair.
type entry struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value []byte `gorm:"column:value"`
}

// TableName sets the table name for the entry model.
func (entry) TableName() string { return "kv_entries" }

// Store is a SQLite implementation of kv.Store.
type Store struct {
	db *gorm.DB

	mu     sync.RWMutex
	closed bool
}

// New opens (and if necessary creates) the SQLite database at cfg.Path.
func New(cfg Config) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}

	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv_entries table: %w", err)
	}

	logger.Info("sqlite store opened", "path", cfg.Path)
	return &Store{db: db}, nil
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return kv.ErrStoreClosed
	}
	return nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var e entry
	err := s.db.WithContext(ctx).First(&e, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, kv.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get %q: %w", key, err)
	}
	return e.Value, nil
}

// Put stores value under key, overwriting any existing value.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Save(&entry{Key: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("sqlite put %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Absent keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Delete(&entry{}, "key = ?", key).Error
	if err != nil {
		return fmt.Errorf("sqlite delete %q: %w", key, err)
	}
	return nil
}

// DeleteMany removes the given keys and returns how many rows were deleted.
func (s *Store) DeleteMany(ctx context.Context, keys []string) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	res := s.db.WithContext(ctx).Delete(&entry{}, "key IN ?", keys)
	if res.Error != nil {
		return 0, fmt.Errorf("sqlite delete many: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// Healthcheck pings the underlying database connection.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
