// Package memory provides an in-memory kv.Store implementation for testing
// and single-process deployments without durability requirements.
package memory

import (
	"context"
	"sync"

	"github.com/marmos91/chunkstore/pkg/kv"
)

// Store is an in-memory implementation of kv.Store.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		values: make(map[string][]byte),
	}
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, kv.ErrStoreClosed
	}

	value, ok := s.values[key]
	if !ok {
		return nil, kv.ErrKeyNotFound
	}

	// Return a copy to prevent mutation
	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, nil
}

// Put stores value under key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return kv.ErrStoreClosed
	}

	// Make a copy of the value to prevent mutation
	copied := make([]byte, len(value))
	copy(copied, value)
	s.values[key] = copied

	return nil
}

// Delete removes key. Absent keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return kv.ErrStoreClosed
	}

	delete(s.values, key)
	return nil
}

// DeleteMany removes the given keys and returns how many existed.
func (s *Store) DeleteMany(ctx context.Context, keys []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, kv.ErrStoreClosed
	}

	removed := 0
	for _, key := range keys {
		if _, ok := s.values[key]; ok {
			delete(s.values, key)
			removed++
		}
	}
	return removed, nil
}

// Healthcheck reports whether the store is usable.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return kv.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed and drops all values.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.values = nil
	return nil
}

// Len returns the number of stored keys. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
