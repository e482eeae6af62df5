package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level registry state. Metrics are opt-in: until InitRegistry is
// called, every constructor in this package returns nil and instrumented
// code paths run with zero overhead.
var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates the process-wide Prometheus registry and enables
// metrics collection.
//
// Calling InitRegistry more than once is a no-op; the first registry wins.
// Standard Go runtime and process collectors are registered automatically.
func InitRegistry() {
	mu.Lock()
	defer mu.Unlock()

	if registry != nil {
		return
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IsEnabled reports whether metrics collection has been enabled via
// InitRegistry.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the process-wide registry, or nil when metrics are
// disabled. Callers should check IsEnabled first.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Handler returns an HTTP handler serving the registry in the Prometheus
// exposition format. Returns http.NotFoundHandler when metrics are disabled
// so it is always safe to mount.
func Handler() http.Handler {
	mu.RLock()
	defer mu.RUnlock()

	if registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// resetForTesting discards the registry so tests can re-initialize with a
// clean collector set.
func resetForTesting() {
	mu.Lock()
	defer mu.Unlock()
	registry = nil
}
