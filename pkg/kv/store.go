// Package kv defines the key-value substrate contract consumed by the
// chunked array engine. Backends live in subdirectories (memory, badger,
// sqlite, postgres) and implement Store.
package kv

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound is returned by Get when the key was never written
	// or has been deleted.
	ErrKeyNotFound = errors.New("kv: key not found")

	// ErrStoreClosed is returned by all operations after Close.
	ErrStoreClosed = errors.New("kv: store is closed")
)

// Store is the minimal key-value contract the array engine depends on.
//
// Put overwrites atomically from the caller's perspective for a single key.
// Delete is idempotent. DeleteMany is best-effort and returns the number of
// keys actually removed. Values are opaque byte payloads; the engine encodes
// JSON above this layer.
type Store interface {
	// Get returns the last value written for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, overwriting any existing value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteMany removes the given keys, returning how many were removed.
	DeleteMany(ctx context.Context, keys []string) (int, error)

	// Healthcheck verifies the backend is reachable and usable.
	Healthcheck(ctx context.Context) error

	// Close releases backend resources. Further calls return ErrStoreClosed.
	Close() error
}
