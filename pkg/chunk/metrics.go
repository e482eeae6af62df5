package chunk

import "time"

// Operation names reported to metrics and logs.
const (
	OpAppend    = "append"
	OpGetAll    = "get_all"
	OpGetRecent = "get_recent"
	OpGetRange  = "get_range"
	OpMeta      = "meta"
	OpDrop      = "drop"
)

// Metrics provides observability for engine operations.
//
// This interface is optional - pass nil to disable metrics collection with
// zero overhead. The Prometheus implementation lives in
// pkg/metrics/prometheus.
type Metrics interface {
	// RecordOperation records a completed engine operation with its
	// duration and outcome. errorCode is empty on success.
	RecordOperation(op string, duration time.Duration, errorCode string)

	// RecordSegmentReads records how many segments an operation read.
	RecordSegmentReads(op string, count int)

	// RecordSegmentWrites records how many segments an operation wrote.
	RecordSegmentWrites(op string, count int)

	// RecordRebalance records a completed re-segmentation.
	RecordRebalance(oldBatchSize, newBatchSize int)
}

// observe records an operation outcome when metrics are enabled.
func (s *Store) observe(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	code := ""
	if err != nil {
		code = CodeOf(err).String()
	}
	s.metrics.RecordOperation(op, time.Since(start), code)
}

func (s *Store) observeSegmentReads(op string, count int) {
	if s.metrics != nil && count > 0 {
		s.metrics.RecordSegmentReads(op, count)
	}
}

func (s *Store) observeSegmentWrites(op string, count int) {
	if s.metrics != nil && count > 0 {
		s.metrics.RecordSegmentWrites(op, count)
	}
}
