package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marmos91/chunkstore/pkg/kv/memory"
)

func TestLiveness_ReturnsOK(t *testing.T) {
	handler := NewHealthHandler(nil)
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	handler.Liveness(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", resp.Status)
	}

	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected Data to be a map, got %T", resp.Data)
	}

	if data["service"] != "chunkstore" {
		t.Errorf("Expected service 'chunkstore', got '%s'", data["service"])
	}
}

func TestReadiness_NoStore_Returns503(t *testing.T) {
	handler := NewHealthHandler(nil)
	req := httptest.NewRequest("GET", "/health/ready", nil)
	w := httptest.NewRecorder()

	handler.Readiness(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
}

func TestReadiness_HealthyStore_ReturnsOK(t *testing.T) {
	store := memory.New()
	defer store.Close()

	handler := NewHealthHandler(store)
	req := httptest.NewRequest("GET", "/health/ready", nil)
	w := httptest.NewRecorder()

	handler.Readiness(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestStore_ClosedStore_Returns503(t *testing.T) {
	store := memory.New()
	store.Close()

	handler := NewHealthHandler(store)
	req := httptest.NewRequest("GET", "/health/store", nil)
	w := httptest.NewRecorder()

	handler.Store(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
}

func TestStore_HealthyStore_ReportsLatency(t *testing.T) {
	store := memory.New()
	defer store.Close()

	handler := NewHealthHandler(store)
	req := httptest.NewRequest("GET", "/health/store", nil)
	w := httptest.NewRecorder()

	handler.Store(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected Data to be a map, got %T", resp.Data)
	}

	if data["status"] != "healthy" {
		t.Errorf("Expected store status 'healthy', got '%v'", data["status"])
	}
	if data["latency"] == "" {
		t.Error("Expected a latency measurement")
	}
}
