// Package prometheus contains the Prometheus-backed implementations of the
// metric interfaces consumed by the storage engine.
//
// Importing this package (usually blank-imported from cmd) registers the
// constructors with pkg/metrics.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/chunkstore/pkg/chunk"
	"github.com/marmos91/chunkstore/pkg/metrics"
)

func init() {
	metrics.RegisterEngineMetricsConstructor(NewEngineMetrics)
}

// engineMetrics is the Prometheus implementation of chunk.Metrics.
type engineMetrics struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	segmentReads      *prometheus.CounterVec
	segmentWrites     *prometheus.CounterVec
	rebalances        prometheus.Counter
	rebalanceShift    prometheus.Histogram
}

// NewEngineMetrics creates a new Prometheus-backed chunk.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewEngineMetrics() chunk.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &engineMetrics{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunkstore_engine_operations_total",
				Help: "Total number of engine operations by operation and outcome",
			},
			[]string{"operation", "error_code"}, // error_code empty on success
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "chunkstore_engine_operation_duration_milliseconds",
				Help: "Duration of engine operations in milliseconds",
				Buckets: []float64{
					0.1,  // 100us - memory backend
					0.5,  // 500us
					1,    // 1ms
					5,    // 5ms
					10,   // 10ms - embedded backends
					50,   // 50ms
					100,  // 100ms - networked backends
					500,  // 500ms
					1000, // 1s - large rebalances
					5000, // 5s
				},
			},
			[]string{"operation"},
		),
		segmentReads: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunkstore_engine_segment_reads_total",
				Help: "Total number of segment records read by operation",
			},
			[]string{"operation"},
		),
		segmentWrites: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunkstore_engine_segment_writes_total",
				Help: "Total number of segment records written by operation",
			},
			[]string{"operation"},
		),
		rebalances: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "chunkstore_engine_rebalances_total",
				Help: "Total number of completed re-segmentations",
			},
		),
		rebalanceShift: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "chunkstore_engine_rebalance_batch_size_ratio",
				Help: "Ratio of new batch size to old batch size per rebalance",
				Buckets: []float64{
					0.1, 0.25, 0.5, 1, 2, 4, 10,
				},
			},
		),
	}
}

func (m *engineMetrics) RecordOperation(op string, duration time.Duration, errorCode string) {
	if m == nil {
		return
	}

	m.operations.WithLabelValues(op, errorCode).Inc()
	m.operationDuration.WithLabelValues(op).Observe(duration.Seconds() * 1000)
}

func (m *engineMetrics) RecordSegmentReads(op string, count int) {
	if m == nil {
		return
	}

	m.segmentReads.WithLabelValues(op).Add(float64(count))
}

func (m *engineMetrics) RecordSegmentWrites(op string, count int) {
	if m == nil {
		return
	}

	m.segmentWrites.WithLabelValues(op).Add(float64(count))
}

func (m *engineMetrics) RecordRebalance(oldBatchSize, newBatchSize int) {
	if m == nil {
		return
	}

	m.rebalances.Inc()
	if oldBatchSize > 0 {
		m.rebalanceShift.Observe(float64(newBatchSize) / float64(oldBatchSize))
	}
}
