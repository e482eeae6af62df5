package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so the output is
// queryable in log aggregation.
const (
	// Operation
	KeyOp        = "op"         // Engine operation: append, get_all, get_recent, get_range, drop
	KeyArray     = "array"      // Logical array key
	KeyBatchSize = "batch_size" // Segmentation policy (items per segment)
	KeyBatches   = "batches"    // Segment count
	KeyItems     = "items"      // Item count for the operation
	KeyTotal     = "total"      // Total items in the array
	KeySegment   = "segment"    // Segment index
	KeyStart     = "start"      // Range start index
	KeyEnd       = "end"        // Range end index (exclusive)
	KeyCount     = "count"      // Tail-window size

	// Substrate
	KeyBackend = "backend" // KV backend type: memory, badger, sqlite, postgres

	// Request handling
	KeyRequestID = "request_id" // HTTP request ID
	KeyClientIP  = "client_ip"  // Client IP address

	// Outcome
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Engine error code
	KeyAttempt    = "attempt"     // Read retry attempt number
)

// Op returns a slog.Attr for the engine operation name
func Op(name string) slog.Attr {
	return slog.String(KeyOp, name)
}

// Array returns a slog.Attr for the logical array key
func Array(key string) slog.Attr {
	return slog.String(KeyArray, key)
}

// BatchSize returns a slog.Attr for the segmentation policy
func BatchSize(n int) slog.Attr {
	return slog.Int(KeyBatchSize, n)
}

// Segment returns a slog.Attr for a segment index
func Segment(i int) slog.Attr {
	return slog.Int(KeySegment, i)
}

// Err returns a slog.Attr for an error value
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// DurationMs returns a slog.Attr for the elapsed time since start
func DurationMs(start time.Time) slog.Attr {
	return slog.Float64(KeyDurationMs, Duration(start))
}
