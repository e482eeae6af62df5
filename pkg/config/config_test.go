package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are interpreted as
// escape sequences (e.g. \U -> Unicode escape), causing parse errors.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

store:
  type: sqlite
  sqlite:
    path: "` + yamlSafePath(tmpDir) + `/chunkstore.db"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Engine.DefaultBatchSize != 1000 {
		t.Errorf("Expected default batch size 1000, got %d", cfg.Engine.DefaultBatchSize)
	}
	if !cfg.API.IsEnabled() {
		t.Error("Expected API to be enabled by default")
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics to be disabled by default")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Store.Type != "badger" {
		t.Errorf("Expected default store type 'badger', got %q", cfg.Store.Type)
	}
	if cfg.Store.Badger.Path == "" {
		t.Error("Expected default badger path to be set")
	}
	if cfg.Store.Badger.GCInterval != 5*time.Minute {
		t.Errorf("Expected default GC interval 5m, got %v", cfg.Store.Badger.GCInterval)
	}
}

func TestLoad_ParsesDurations(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
shutdown_timeout: "45s"

store:
  type: memory

api:
  read_timeout: "5s"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.ShutdownTimeout != 45*time.Second {
		t.Errorf("Expected shutdown timeout 45s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.API.ReadTimeout != 5*time.Second {
		t.Errorf("Expected API read timeout 5s, got %v", cfg.API.ReadTimeout)
	}
}

func TestLoad_InvalidLevelFails(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "VERBOSE"

store:
  type: memory
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Expected validation error for invalid log level")
	}
}

func TestLoad_UnknownStoreTypeFails(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
store:
  type: redis
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Expected validation error for unknown store type")
	}
}

func TestValidate_RejectsPortClash(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.API.Port = 9090
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 9090

	if err := Validate(cfg); err == nil {
		t.Error("Expected validation error for clashing ports")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Store.Type = "sqlite"
	cfg.Store.SQLite.Path = filepath.Join(tmpDir, "chunkstore.db")
	cfg.Engine.DefaultBatchSize = 250

	if err := SaveConfig(cfg, configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}

	if loaded.Store.Type != "sqlite" {
		t.Errorf("Expected store type 'sqlite', got %q", loaded.Store.Type)
	}
	if loaded.Engine.DefaultBatchSize != 250 {
		t.Errorf("Expected batch size 250, got %d", loaded.Engine.DefaultBatchSize)
	}
}

func TestCreateStore_Memory(t *testing.T) {
	store, err := CreateStore(context.Background(), StoreConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("Failed to create memory store: %v", err)
	}
	defer store.Close()

	if err := store.Healthcheck(context.Background()); err != nil {
		t.Errorf("Healthcheck failed: %v", err)
	}
}

func TestCreateStore_SQLite(t *testing.T) {
	cfg := StoreConfig{Type: "sqlite"}
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "test.db")

	store, err := CreateStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create sqlite store: %v", err)
	}
	defer store.Close()

	if err := store.Healthcheck(context.Background()); err != nil {
		t.Errorf("Healthcheck failed: %v", err)
	}
}

func TestCreateStore_MissingPathFails(t *testing.T) {
	if _, err := CreateStore(context.Background(), StoreConfig{Type: "sqlite"}); err == nil {
		t.Error("Expected error for sqlite store without path")
	}
	if _, err := CreateStore(context.Background(), StoreConfig{Type: "badger"}); err == nil {
		t.Error("Expected error for badger store without path")
	}
}

func TestCreateStore_UnknownTypeFails(t *testing.T) {
	if _, err := CreateStore(context.Background(), StoreConfig{Type: "redis"}); err == nil {
		t.Error("Expected error for unknown store type")
	}
}
