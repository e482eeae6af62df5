// Package kvtest provides a conformance suite every kv.Store backend must
// pass. Backend packages call RunConformanceSuite from their own tests.
package kvtest

import (
	"context"
	"testing"

	"github.com/marmos91/chunkstore/pkg/kv"
)

// StoreFactory creates a fresh, empty store for a single test.
// Cleanup should be registered on t (t.Cleanup) by the factory.
type StoreFactory func(t *testing.T) kv.Store

// RunConformanceSuite runs all substrate contract tests against the backend
// produced by factory.
func RunConformanceSuite(t *testing.T, factory StoreFactory) {
	t.Run("PutGet", func(t *testing.T) { testPutGet(t, factory) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, factory) })
	t.Run("Overwrite", func(t *testing.T) { testOverwrite(t, factory) })
	t.Run("DeleteIdempotent", func(t *testing.T) { testDeleteIdempotent(t, factory) })
	t.Run("DeleteMany", func(t *testing.T) { testDeleteMany(t, factory) })
	t.Run("ValueIsolation", func(t *testing.T) { testValueIsolation(t, factory) })
	t.Run("Healthcheck", func(t *testing.T) { testHealthcheck(t, factory) })
	t.Run("ClosedStore", func(t *testing.T) { testClosedStore(t, factory) })
}

func testPutGet(t *testing.T, factory StoreFactory) {
	ctx := context.Background()
	s := factory(t)

	if err := s.Put(ctx, "alpha", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Get(ctx, "alpha")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"v":1}` {
		t.Errorf("Get returned %q, want %q", got, `{"v":1}`)
	}
}

func testGetMissing(t *testing.T, factory StoreFactory) {
	ctx := context.Background()
	s := factory(t)

	_, err := s.Get(ctx, "nope")
	if err != kv.ErrKeyNotFound {
		t.Errorf("Get returned error %v, want ErrKeyNotFound", err)
	}
}

func testOverwrite(t *testing.T, factory StoreFactory) {
	ctx := context.Background()
	s := factory(t)

	if err := s.Put(ctx, "k", []byte("first")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Put(ctx, "k", []byte("second")); err != nil {
		t.Fatalf("Put (overwrite) failed: %v", err)
	}

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Get returned %q, want %q", got, "second")
	}
}

func testDeleteIdempotent(t *testing.T, factory StoreFactory) {
	ctx := context.Background()
	s := factory(t)

	if err := s.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "k"); err != kv.ErrKeyNotFound {
		t.Errorf("Get after delete returned %v, want ErrKeyNotFound", err)
	}

	// Deleting again must not fail
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("second Delete failed: %v", err)
	}
	if err := s.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Delete of absent key failed: %v", err)
	}
}

func testDeleteMany(t *testing.T, factory StoreFactory) {
	ctx := context.Background()
	s := factory(t)

	for _, k := range []string{"a", "b", "c"} {
		if err := s.Put(ctx, k, []byte(k)); err != nil {
			t.Fatalf("Put %q failed: %v", k, err)
		}
	}

	// "d" does not exist; count covers only removed keys
	removed, err := s.DeleteMany(ctx, []string{"a", "c", "d"})
	if err != nil {
		t.Fatalf("DeleteMany failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("DeleteMany removed %d, want 2", removed)
	}

	if _, err := s.Get(ctx, "a"); err != kv.ErrKeyNotFound {
		t.Errorf("key a should be gone, got %v", err)
	}
	if _, err := s.Get(ctx, "b"); err != nil {
		t.Errorf("key b should survive, got %v", err)
	}

	removed, err = s.DeleteMany(ctx, nil)
	if err != nil {
		t.Fatalf("DeleteMany(nil) failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("DeleteMany(nil) removed %d, want 0", removed)
	}
}

func testValueIsolation(t *testing.T, factory StoreFactory) {
	ctx := context.Background()
	s := factory(t)

	original := []byte("immutable")
	if err := s.Put(ctx, "k", original); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Mutating the slice passed to Put must not affect stored data
	original[0] = 'X'

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "immutable" {
		t.Errorf("stored value was mutated: %q", got)
	}

	// Mutating a returned slice must not affect a subsequent read
	got[0] = 'Y'
	again, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("second Get failed: %v", err)
	}
	if string(again) != "immutable" {
		t.Errorf("returned value aliases store memory: %q", again)
	}
}

func testHealthcheck(t *testing.T, factory StoreFactory) {
	ctx := context.Background()
	s := factory(t)

	if err := s.Healthcheck(ctx); err != nil {
		t.Errorf("Healthcheck failed on open store: %v", err)
	}
}

func testClosedStore(t *testing.T, factory StoreFactory) {
	ctx := context.Background()
	s := factory(t)

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := s.Get(ctx, "k"); err == nil {
		t.Error("Get succeeded on closed store")
	}
	if err := s.Put(ctx, "k", []byte("v")); err == nil {
		t.Error("Put succeeded on closed store")
	}
	if err := s.Healthcheck(ctx); err == nil {
		t.Error("Healthcheck succeeded on closed store")
	}

	// Close must be safe to call twice
	if err := s.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
