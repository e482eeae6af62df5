package metrics

import (
	"github.com/marmos91/chunkstore/pkg/chunk"
)

// NewEngineMetrics creates a new Prometheus-backed chunk.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
// When nil is returned, callers should pass nil to the engine, which
// results in zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	engine := chunk.New(store, chunk.WithMetrics(metrics.NewEngineMetrics()))
//
//	// Without metrics (zero overhead)
//	engine := chunk.New(store)
func NewEngineMetrics() chunk.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusEngineMetrics()
}

// newPrometheusEngineMetrics is implemented in pkg/metrics/prometheus.
// The indirection avoids an import cycle between this package and the
// Prometheus implementation, which needs GetRegistry.
var newPrometheusEngineMetrics func() chunk.Metrics

// RegisterEngineMetricsConstructor registers the Prometheus engine metrics
// constructor. Called by pkg/metrics/prometheus during package
// initialization.
func RegisterEngineMetricsConstructor(constructor func() chunk.Metrics) {
	newPrometheusEngineMetrics = constructor
}
