package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/marmos91/chunkstore/pkg/kv"
)

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Is the server ready to accept requests?
//   - Store health: Health status of the substrate store
type HealthHandler struct {
	store kv.Store
}

// NewHealthHandler creates a new health handler.
//
// The store parameter may be nil, in which case readiness and store health
// checks will return unhealthy status.
func NewHealthHandler(store kv.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// Liveness handles GET /health - simple liveness probe.
//
// Returns 200 OK if the server process is running. This endpoint is designed
// for Kubernetes liveness probes and should always succeed as long as the
// HTTP server is responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "chunkstore",
	}))
}

// Readiness handles GET /health/ready - readiness probe.
//
// Returns 200 OK if the substrate store is reachable, 503 Service
// Unavailable otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("store not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.store.Healthcheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(nil))
}

// StoreHealth represents the health status of the substrate store.
type StoreHealth struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Store handles GET /health/store - substrate store health with latency.
//
// Returns 200 OK if the store is healthy, 503 Service Unavailable otherwise.
func (h *HealthHandler) Store(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("store not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	start := time.Now()
	err := h.store.Healthcheck(ctx)
	latency := time.Since(start)

	health := StoreHealth{Latency: latency.String()}
	if err != nil {
		health.Status = "unhealthy"
		health.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}

	health.Status = "healthy"
	writeJSON(w, http.StatusOK, healthyResponse(health))
}
