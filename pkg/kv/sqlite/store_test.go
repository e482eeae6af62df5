package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/marmos91/chunkstore/pkg/kv"
	"github.com/marmos91/chunkstore/pkg/kv/kvtest"
	"github.com/marmos91/chunkstore/pkg/kv/sqlite"
)

func TestConformance(t *testing.T) {
	kvtest.RunConformanceSuite(t, func(t *testing.T) kv.Store {
		path := filepath.Join(t.TempDir(), "kv.db")
		s, err := sqlite.New(sqlite.Config{Path: path})
		if err != nil {
			t.Fatalf("failed to open sqlite store: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := sqlite.New(sqlite.Config{Path: path})
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	if err := s.Put(ctx, "persist", []byte("yes")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = sqlite.New(sqlite.Config{Path: path})
	if err != nil {
		t.Fatalf("failed to reopen sqlite store: %v", err)
	}
	defer s.Close()

	got, err := s.Get(ctx, "persist")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got) != "yes" {
		t.Errorf("Get returned %q, want %q", got, "yes")
	}
}
