package chunk_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/chunkstore/pkg/chunk"
	"github.com/marmos91/chunkstore/pkg/kv/memory"
)

// intItems encodes the integers [from, to] as JSON items.
func intItems(from, to int) []json.RawMessage {
	items := make([]json.RawMessage, 0, to-from+1)
	for i := from; i <= to; i++ {
		items = append(items, json.RawMessage(fmt.Sprintf("%d", i)))
	}
	return items
}

// decodeInts turns JSON items back into integers for comparison.
func decodeInts(t *testing.T, items []json.RawMessage) []int {
	t.Helper()
	out := make([]int, 0, len(items))
	for _, raw := range items {
		var n int
		require.NoError(t, json.Unmarshal(raw, &n))
		out = append(out, n)
	}
	return out
}

func intRange(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func newEngine(t *testing.T) (*chunk.Store, *memory.Store) {
	t.Helper()
	kvStore := memory.New()
	t.Cleanup(func() { _ = kvStore.Close() })
	return chunk.New(kvStore), kvStore
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t)

	require.NoError(t, engine.Append(ctx, "nums", intItems(1, 2500), chunk.AppendOptions{BatchSize: 1000}))

	got, err := engine.All(ctx, "nums")
	require.NoError(t, err)
	assert.Equal(t, intRange(1, 2500), decodeInts(t, got))

	meta, err := engine.Meta(ctx, "nums")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 3, meta.BatchCount)
	assert.Equal(t, 2500, meta.TotalItems)
	assert.Equal(t, 1000, meta.BatchSize)
	assert.False(t, meta.LastUpdated.IsZero())
}

func TestSegmentInvariant(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t)

	require.NoError(t, engine.Append(ctx, "nums", intItems(1, 2500), chunk.AppendOptions{BatchSize: 1000}))

	meta, err := engine.Meta(ctx, "nums")
	require.NoError(t, err)

	// Every segment except the last holds exactly batchSize items; the sum
	// of all segment lengths equals totalItems.
	sum := 0
	for i := 0; i < meta.BatchCount; i++ {
		segment, err := engine.Range(ctx, "nums", i*meta.BatchSize, (i+1)*meta.BatchSize)
		require.NoError(t, err)
		if i < meta.BatchCount-1 {
			assert.Len(t, segment, meta.BatchSize, "segment %d", i)
		}
		sum += len(segment)
	}
	assert.Equal(t, meta.TotalItems, sum)

	// Last segment holds the remainder.
	last, err := engine.Range(ctx, "nums", (meta.BatchCount-1)*meta.BatchSize, meta.TotalItems)
	require.NoError(t, err)
	assert.Len(t, last, 500)
}

func TestIncrementalAppendEquivalence(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t)

	// One shot.
	require.NoError(t, engine.Append(ctx, "oneshot", intItems(1, 700), chunk.AppendOptions{BatchSize: 250}))

	// Two calls.
	require.NoError(t, engine.Append(ctx, "twostep", intItems(1, 300), chunk.AppendOptions{BatchSize: 250}))
	require.NoError(t, engine.Append(ctx, "twostep", intItems(301, 700), chunk.AppendOptions{}))

	a, err := engine.All(ctx, "oneshot")
	require.NoError(t, err)
	b, err := engine.All(ctx, "twostep")
	require.NoError(t, err)
	assert.Equal(t, decodeInts(t, a), decodeInts(t, b))

	ma, err := engine.Meta(ctx, "oneshot")
	require.NoError(t, err)
	mb, err := engine.Meta(ctx, "twostep")
	require.NoError(t, err)
	assert.Equal(t, ma.BatchCount, mb.BatchCount)
	assert.Equal(t, ma.TotalItems, mb.TotalItems)
}

func TestAppendFillsLastSegment(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t)

	require.NoError(t, engine.Append(ctx, "nums", intItems(1, 2500), chunk.AppendOptions{BatchSize: 1000}))

	// 100 items fit entirely in the 500-item tail segment.
	require.NoError(t, engine.Append(ctx, "nums", intItems(2501, 2600), chunk.AppendOptions{}))
	meta, err := engine.Meta(ctx, "nums")
	require.NoError(t, err)
	assert.Equal(t, 3, meta.BatchCount)
	assert.Equal(t, 2600, meta.TotalItems)

	// 400 more exactly top the tail segment up to batchSize.
	require.NoError(t, engine.Append(ctx, "nums", intItems(2601, 3000), chunk.AppendOptions{}))
	meta, err = engine.Meta(ctx, "nums")
	require.NoError(t, err)
	assert.Equal(t, 3, meta.BatchCount)
	assert.Equal(t, 3000, meta.TotalItems)

	got, err := engine.All(ctx, "nums")
	require.NoError(t, err)
	assert.Equal(t, intRange(1, 3000), decodeInts(t, got))

	// The next item rolls a fourth segment.
	require.NoError(t, engine.Append(ctx, "nums", intItems(3001, 3001), chunk.AppendOptions{}))
	meta, err = engine.Meta(ctx, "nums")
	require.NoError(t, err)
	assert.Equal(t, 4, meta.BatchCount)
	assert.Equal(t, 3001, meta.TotalItems)
}

func TestAppendSpillsAcrossSegments(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t)

	require.NoError(t, engine.Append(ctx, "nums", intItems(1, 80), chunk.AppendOptions{BatchSize: 100}))
	// 20 fill segment 0, then 230 slice into segments of 100, 100, 30.
	require.NoError(t, engine.Append(ctx, "nums", intItems(81, 330), chunk.AppendOptions{}))

	meta, err := engine.Meta(ctx, "nums")
	require.NoError(t, err)
	assert.Equal(t, 4, meta.BatchCount)
	assert.Equal(t, 330, meta.TotalItems)

	got, err := engine.All(ctx, "nums")
	require.NoError(t, err)
	assert.Equal(t, intRange(1, 330), decodeInts(t, got))
}

func TestStoredBatchSizeIsAuthoritative(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t)

	require.NoError(t, engine.Append(ctx, "nums", intItems(1, 100), chunk.AppendOptions{BatchSize: 50}))
	// Different batch size without Rebalance must be ignored.
	require.NoError(t, engine.Append(ctx, "nums", intItems(101, 200), chunk.AppendOptions{BatchSize: 10}))

	meta, err := engine.Meta(ctx, "nums")
	require.NoError(t, err)
	assert.Equal(t, 50, meta.BatchSize)
	assert.Equal(t, 4, meta.BatchCount)
}

func TestRangeCorrectness(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t)

	require.NoError(t, engine.Append(ctx, "nums", intItems(1, 2500), chunk.AppendOptions{BatchSize: 1000}))

	all, err := engine.All(ctx, "nums")
	require.NoError(t, err)

	cases := []struct{ start, end int }{
		{0, 1},
		{0, 1000},
		{950, 1050},  // spans segments 0 and 1
		{999, 1001},  // exact boundary crossing
		{1000, 2000}, // whole middle segment
		{2000, 2500}, // tail segment
		{0, 2500},    // everything
		{2499, 2500}, // last item
		{100, 5000},  // end clipped to totalItems
	}
	for _, tc := range cases {
		got, err := engine.Range(ctx, "nums", tc.start, tc.end)
		require.NoError(t, err, "range [%d,%d)", tc.start, tc.end)

		end := tc.end
		if end > len(all) {
			end = len(all)
		}
		assert.Equal(t, decodeInts(t, all[tc.start:end]), decodeInts(t, got),
			"range [%d,%d)", tc.start, tc.end)
	}

	// Scenario from the drawing board: [950,1050) is 951..1050.
	got, err := engine.Range(ctx, "nums", 950, 1050)
	require.NoError(t, err)
	assert.Equal(t, intRange(951, 1050), decodeInts(t, got))
}

func TestRangeEmptyCases(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t)

	require.NoError(t, engine.Append(ctx, "nums", intItems(1, 100), chunk.AppendOptions{BatchSize: 10}))

	for _, tc := range []struct {
		name       string
		start, end int
	}{
		{"negative start", -1, 10},
		{"end equals start", 5, 5},
		{"end before start", 10, 5},
		{"start past total", 100, 200},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.Range(ctx, "nums", tc.start, tc.end)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestRecentCorrectness(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t)

	require.NoError(t, engine.Append(ctx, "nums", intItems(1, 2500), chunk.AppendOptions{BatchSize: 1000}))

	// Tail window within the last segment.
	got, err := engine.Recent(ctx, "nums", 10)
	require.NoError(t, err)
	assert.Equal(t, intRange(2491, 2500), decodeInts(t, got))

	// Tail window spanning two segments.
	got, err = engine.Recent(ctx, "nums", 700)
	require.NoError(t, err)
	assert.Equal(t, intRange(1801, 2500), decodeInts(t, got))

	// Window exactly one segment long.
	got, err = engine.Recent(ctx, "nums", 500)
	require.NoError(t, err)
	assert.Equal(t, intRange(2001, 2500), decodeInts(t, got))

	// Window larger than the array returns everything.
	got, err = engine.Recent(ctx, "nums", 99999)
	require.NoError(t, err)
	assert.Equal(t, intRange(1, 2500), decodeInts(t, got))

	// Non-positive counts return empty.
	got, err = engine.Recent(ctx, "nums", 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = engine.Recent(ctx, "nums", -3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMissingArrayQueries(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t)

	got, err := engine.All(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = engine.Range(ctx, "missing", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = engine.Recent(ctx, "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	meta, err := engine.Meta(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestRebalance(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t)

	require.NoError(t, engine.Append(ctx, "nums", intItems(1, 2500), chunk.AppendOptions{BatchSize: 1000}))

	// Rebalance to 500 with no new items.
	require.NoError(t, engine.Append(ctx, "nums", nil, chunk.AppendOptions{BatchSize: 500, Rebalance: true}))

	got, err := engine.All(ctx, "nums")
	require.NoError(t, err)
	assert.Equal(t, intRange(1, 2500), decodeInts(t, got))

	meta, err := engine.Meta(ctx, "nums")
	require.NoError(t, err)
	assert.Equal(t, 500, meta.BatchSize)
	assert.Equal(t, 5, meta.BatchCount)
	assert.Equal(t, 2500, meta.TotalItems)
}

func TestRebalanceWithNewItems(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t)

	require.NoError(t, engine.Append(ctx, "nums", intItems(1, 100), chunk.AppendOptions{BatchSize: 30}))
	// Existing data keeps its order ahead of the newly appended items.
	require.NoError(t, engine.Append(ctx, "nums", intItems(101, 150), chunk.AppendOptions{BatchSize: 40, Rebalance: true}))

	got, err := engine.All(ctx, "nums")
	require.NoError(t, err)
	assert.Equal(t, intRange(1, 150), decodeInts(t, got))

	meta, err := engine.Meta(ctx, "nums")
	require.NoError(t, err)
	assert.Equal(t, 40, meta.BatchSize)
	assert.Equal(t, 4, meta.BatchCount) // ceil(150/40)
}

func TestRebalanceLeavesNoOrphanSegments(t *testing.T) {
	ctx := context.Background()
	engine, kvStore := newEngine(t)

	require.NoError(t, engine.Append(ctx, "nums", intItems(1, 100), chunk.AppendOptions{BatchSize: 10}))
	before := kvStore.Len() // 10 segments + meta

	require.NoError(t, engine.Append(ctx, "nums", nil, chunk.AppendOptions{BatchSize: 50, Rebalance: true}))

	// 2 segments + meta after re-segmentation; nothing left behind.
	assert.Equal(t, 3, kvStore.Len())
	assert.Less(t, kvStore.Len(), before)
}

func TestRebalanceSameSizeIsNormalAppend(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t)

	require.NoError(t, engine.Append(ctx, "nums", intItems(1, 100), chunk.AppendOptions{BatchSize: 50}))
	require.NoError(t, engine.Append(ctx, "nums", intItems(101, 120), chunk.AppendOptions{BatchSize: 50, Rebalance: true}))

	meta, err := engine.Meta(ctx, "nums")
	require.NoError(t, err)
	assert.Equal(t, 50, meta.BatchSize)
	assert.Equal(t, 120, meta.TotalItems)
}

func TestEmptyAppend(t *testing.T) {
	ctx := context.Background()
	engine, kvStore := newEngine(t)

	// Empty append on a missing array creates nothing.
	require.NoError(t, engine.Append(ctx, "nums", nil, chunk.AppendOptions{BatchSize: 10}))
	assert.Equal(t, 0, kvStore.Len())

	meta, err := engine.Meta(ctx, "nums")
	require.NoError(t, err)
	assert.Nil(t, meta)

	// Empty append on an existing array refreshes the timestamp only.
	require.NoError(t, engine.Append(ctx, "nums", intItems(1, 5), chunk.AppendOptions{BatchSize: 10}))
	before, err := engine.Meta(ctx, "nums")
	require.NoError(t, err)

	require.NoError(t, engine.Append(ctx, "nums", nil, chunk.AppendOptions{}))
	after, err := engine.Meta(ctx, "nums")
	require.NoError(t, err)

	assert.Equal(t, before.TotalItems, after.TotalItems)
	assert.Equal(t, before.BatchCount, after.BatchCount)
	assert.False(t, after.LastUpdated.Before(before.LastUpdated))
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	engine, kvStore := newEngine(t)

	err := engine.Append(ctx, "", intItems(1, 10), chunk.AppendOptions{})
	assert.True(t, chunk.IsCode(err, chunk.ErrInvalidArgument))

	err = engine.Append(ctx, "nums", intItems(1, 10), chunk.AppendOptions{BatchSize: -5})
	assert.True(t, chunk.IsCode(err, chunk.ErrInvalidArgument))

	// Validation failures never touch the substrate.
	assert.Equal(t, 0, kvStore.Len())
}

func TestDefaultBatchSize(t *testing.T) {
	ctx := context.Background()
	kvStore := memory.New()
	t.Cleanup(func() { _ = kvStore.Close() })
	engine := chunk.New(kvStore, chunk.WithDefaultBatchSize(25))

	require.NoError(t, engine.Append(ctx, "nums", intItems(1, 60), chunk.AppendOptions{}))

	meta, err := engine.Meta(ctx, "nums")
	require.NoError(t, err)
	assert.Equal(t, 25, meta.BatchSize)
	assert.Equal(t, 3, meta.BatchCount)
}

func TestDrop(t *testing.T) {
	ctx := context.Background()
	engine, kvStore := newEngine(t)

	require.NoError(t, engine.Append(ctx, "nums", intItems(1, 100), chunk.AppendOptions{BatchSize: 10}))
	require.NoError(t, engine.Drop(ctx, "nums"))

	assert.Equal(t, 0, kvStore.Len())

	got, err := engine.All(ctx, "nums")
	require.NoError(t, err)
	assert.Empty(t, got)

	// Dropping again is a no-op.
	require.NoError(t, engine.Drop(ctx, "nums"))
}

func TestSegmentMissingSurfacesLoudly(t *testing.T) {
	ctx := context.Background()
	engine, kvStore := newEngine(t)

	require.NoError(t, engine.Append(ctx, "nums", intItems(1, 100), chunk.AppendOptions{BatchSize: 10}))

	// Simulate substrate data loss of a middle segment.
	require.NoError(t, kvStore.Delete(ctx, "nums_4"))

	_, err := engine.All(ctx, "nums")
	require.Error(t, err)
	assert.True(t, chunk.IsCode(err, chunk.ErrSegmentMissing))

	_, err = engine.Range(ctx, "nums", 40, 50)
	require.Error(t, err)
	assert.True(t, chunk.IsCode(err, chunk.ErrSegmentMissing))
}

func TestConcurrentAppendsSameKey(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t)

	const (
		goroutines = 8
		perWorker  = 50
	)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			base := g * perWorker
			for i := 0; i < perWorker; i++ {
				item := json.RawMessage(fmt.Sprintf("%d", base+i))
				if err := engine.Append(ctx, "contended", []json.RawMessage{item}, chunk.AppendOptions{BatchSize: 7}); err != nil {
					t.Errorf("append failed: %v", err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	meta, err := engine.Meta(ctx, "contended")
	require.NoError(t, err)
	assert.Equal(t, goroutines*perWorker, meta.TotalItems)

	all, err := engine.All(ctx, "contended")
	require.NoError(t, err)
	assert.Len(t, all, goroutines*perWorker)

	// Segment invariant survives contention.
	expectBatches := (goroutines*perWorker + 6) / 7
	assert.Equal(t, expectBatches, meta.BatchCount)
}

func TestConcurrentKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t)

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", g)
			if err := engine.Append(ctx, key, intItems(1, 120), chunk.AppendOptions{BatchSize: 50}); err != nil {
				t.Errorf("append %s failed: %v", key, err)
			}
		}(g)
	}
	wg.Wait()

	for g := 0; g < 10; g++ {
		key := fmt.Sprintf("key-%d", g)
		got, err := engine.All(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, intRange(1, 120), decodeInts(t, got))
	}
}

func TestOpaqueItemsRoundTrip(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t)

	items := []json.RawMessage{
		json.RawMessage(`{"event":"login","user":"alice"}`),
		json.RawMessage(`"bare string"`),
		json.RawMessage(`[1,2,3]`),
		json.RawMessage(`null`),
		json.RawMessage(`42.5`),
	}
	require.NoError(t, engine.Append(ctx, "mixed", items, chunk.AppendOptions{BatchSize: 2}))

	got, err := engine.All(ctx, "mixed")
	require.NoError(t, err)
	require.Len(t, got, len(items))
	for i := range items {
		assert.JSONEq(t, string(items[i]), string(got[i]), "item %d", i)
	}
}
