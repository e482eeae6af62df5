package chunk

import (
	"fmt"
	"time"
)

// Meta is the metadata record stored once per logical array under
// "{key}_meta". BatchCount is the single source of truth for which segment
// keys exist; segment presence is never inferred by probing.
type Meta struct {
	// BatchCount is the number of segments currently persisted.
	BatchCount int `json:"batchCount"`

	// TotalItems is the total logical item count across all segments.
	TotalItems int `json:"totalItems"`

	// BatchSize is the segmentation policy in force. Fixed once the array
	// is created unless an explicit rebalance occurs.
	BatchSize int `json:"batchSize"`

	// LastUpdated is advisory and refreshed on every mutating operation.
	LastUpdated time.Time `json:"lastUpdated"`
}

// metaKey derives the metadata record key for a logical array.
func metaKey(key string) string {
	return key + "_meta"
}

// segmentKey derives the i-th segment key for a logical array.
func segmentKey(key string, i int) string {
	return fmt.Sprintf("%s_%d", key, i)
}

// derivedKeys enumerates the metadata key plus every segment key the
// metadata record accounts for. Used by rebalance and Drop.
func derivedKeys(key string, batchCount int) []string {
	keys := make([]string, 0, batchCount+1)
	for i := 0; i < batchCount; i++ {
		keys = append(keys, segmentKey(key, i))
	}
	keys = append(keys, metaKey(key))
	return keys
}
