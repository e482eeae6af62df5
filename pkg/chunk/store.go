// Package chunk implements the chunked logical-array storage engine: an
// arbitrarily large ordered sequence of items stored under a single logical
// key, transparently split into fixed-size segments on top of a kv.Store.
//
// Physical layout for a logical key K with N segments:
//
//	K_meta : Meta record (batchCount, totalItems, batchSize, lastUpdated)
//	K_0 .. K_(N-1) : JSON arrays of items
//
// Every segment except the last holds exactly batchSize items. All derived
// keys are owned exclusively by this engine.
//
// Mutating operations (Append, Drop) are serialized per logical key.
// Reads tolerate a metadata/segment mismatch produced by a concurrent
// writer by retrying once before surfacing ErrSegmentMissing.
package chunk

import (
	"context"
	"encoding/json"
	"time"

	"github.com/marmos91/chunkstore/internal/logger"
	"github.com/marmos91/chunkstore/pkg/kv"
)

// DefaultBatchSize is the segmentation policy used when the caller does not
// specify one on array creation.
const DefaultBatchSize = 1000

// AppendOptions controls Append behavior.
type AppendOptions struct {
	// BatchSize is the segmentation policy to adopt when the array is
	// created by this call. Zero means DefaultBatchSize (or the store-wide
	// default). For an existing array the stored policy is authoritative
	// and this value is ignored unless Rebalance is set.
	BatchSize int

	// Rebalance forces a re-segmentation of the whole array under
	// BatchSize when it differs from the stored policy. The array is
	// materialized, all derived keys are deleted, and the combined
	// sequence is written back in one create pass.
	Rebalance bool
}

// Option configures a Store.
type Option func(*Store)

// WithDefaultBatchSize overrides DefaultBatchSize for arrays created
// without an explicit policy.
func WithDefaultBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.defaultBatchSize = n
		}
	}
}

// WithMetrics attaches a metrics recorder. Pass the value returned by
// metrics.NewEngineMetrics, or nil to disable collection.
func WithMetrics(m Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// Store is the array engine. It is safe for concurrent use.
type Store struct {
	kv               kv.Store
	locks            *keyLock
	metrics          Metrics
	defaultBatchSize int
}

// New creates an array engine on top of the given substrate.
func New(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:               store,
		locks:            newKeyLock(),
		defaultBatchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ============================================================================
// Append
// ============================================================================

// Append appends items to the logical array identified by key, creating it
// if absent. Appending an empty sequence to an existing array only refreshes
// the metadata timestamp; on a non-existent array it is a complete no-op.
//
// Failure semantics: the metadata-plus-segments write set is not atomic in
// the substrate. A write error mid-append leaves the array partially
// updated; the per-key lock prevents concurrent appends from compounding
// that, but crash recovery is the substrate's problem, not this engine's.
func (s *Store) Append(ctx context.Context, key string, items []json.RawMessage, opts AppendOptions) error {
	start := time.Now()
	err := s.append(ctx, key, items, opts)
	s.observe(OpAppend, start, err)
	return err
}

func (s *Store) append(ctx context.Context, key string, items []json.RawMessage, opts AppendOptions) error {
	if key == "" {
		return NewInvalidArgumentError("key must not be empty")
	}
	if opts.BatchSize < 0 {
		return NewInvalidArgumentError("batch size must be a positive integer")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = s.defaultBatchSize
	}

	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	meta, err := s.readMeta(ctx, key)
	if err != nil {
		return err
	}

	// Array does not exist yet: adopt the requested policy and create.
	if meta == nil || meta.BatchCount == 0 {
		if len(items) == 0 {
			return nil
		}
		return s.create(ctx, key, items, batchSize)
	}

	// Rebalance path. The stored policy is authoritative otherwise.
	if opts.Rebalance && opts.BatchSize > 0 && opts.BatchSize != meta.BatchSize && meta.TotalItems > 0 {
		return s.rebalance(ctx, key, meta, items, opts.BatchSize)
	}

	// Normal append path.
	if len(items) == 0 {
		meta.LastUpdated = time.Now().UTC()
		return s.writeMeta(ctx, key, meta)
	}

	lastIndex := meta.BatchCount - 1
	last, err := s.readSegment(ctx, key, lastIndex)
	if err != nil {
		return err
	}
	s.observeSegmentReads(OpAppend, 1)

	// Fill the last segment in place before rolling new ones.
	remaining := meta.BatchSize - len(last)
	if remaining > len(items) {
		remaining = len(items)
	}
	if remaining > 0 {
		last = append(last, items[:remaining]...)
	}
	if err := s.writeSegment(ctx, key, lastIndex, last); err != nil {
		return err
	}

	rest := items[remaining:]
	created := 0
	for offset := 0; offset < len(rest); offset += meta.BatchSize {
		end := offset + meta.BatchSize
		if end > len(rest) {
			end = len(rest)
		}
		if err := s.writeSegment(ctx, key, lastIndex+1+created, rest[offset:end]); err != nil {
			return err
		}
		created++
	}
	s.observeSegmentWrites(OpAppend, 1+created)

	meta.TotalItems += len(items)
	meta.BatchCount += created
	meta.LastUpdated = time.Now().UTC()
	if err := s.writeMeta(ctx, key, meta); err != nil {
		return err
	}

	logger.DebugCtx(ctx, "array appended",
		logger.KeyArray, key,
		logger.KeyItems, len(items),
		logger.KeyBatches, meta.BatchCount,
		logger.KeyTotal, meta.TotalItems,
	)
	return nil
}

// create writes a fresh logical array: items sliced into consecutive chunks
// of batchSize, then the metadata record. Callers hold the key lock and
// guarantee the derived keys are absent.
func (s *Store) create(ctx context.Context, key string, items []json.RawMessage, batchSize int) error {
	batchCount := (len(items) + batchSize - 1) / batchSize

	for i := 0; i < batchCount; i++ {
		lo := i * batchSize
		hi := lo + batchSize
		if hi > len(items) {
			hi = len(items)
		}
		if err := s.writeSegment(ctx, key, i, items[lo:hi]); err != nil {
			return err
		}
	}
	s.observeSegmentWrites(OpAppend, batchCount)

	meta := &Meta{
		BatchCount:  batchCount,
		TotalItems:  len(items),
		BatchSize:   batchSize,
		LastUpdated: time.Now().UTC(),
	}
	if err := s.writeMeta(ctx, key, meta); err != nil {
		return err
	}

	logger.DebugCtx(ctx, "array created",
		logger.KeyArray, key,
		logger.KeyBatchSize, batchSize,
		logger.KeyBatches, batchCount,
		logger.KeyTotal, len(items),
	)
	return nil
}

// rebalance rewrites the whole array under a new batch size: materialize,
// delete every derived key, then a single create pass with the existing
// data ahead of the newly appended items. The transient empty state is not
// observable through this engine because the key lock is held throughout;
// a crash inside this window loses the array, which is inherent to the
// non-transactional substrate.
func (s *Store) rebalance(ctx context.Context, key string, meta *Meta, items []json.RawMessage, newBatchSize int) error {
	existing, err := s.readAllSegments(ctx, key, meta)
	if err != nil {
		return err
	}
	s.observeSegmentReads(OpAppend, meta.BatchCount)

	if _, err := s.kv.DeleteMany(ctx, derivedKeys(key, meta.BatchCount)); err != nil {
		return NewStoreFailureError(key, "delete many", err)
	}

	combined := make([]json.RawMessage, 0, len(existing)+len(items))
	combined = append(combined, existing...)
	combined = append(combined, items...)

	if err := s.create(ctx, key, combined, newBatchSize); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordRebalance(meta.BatchSize, newBatchSize)
	}
	logger.InfoCtx(ctx, "array rebalanced",
		logger.KeyArray, key,
		"old_batch_size", meta.BatchSize,
		"new_batch_size", newBatchSize,
		logger.KeyTotal, len(combined),
	)
	return nil
}

// ============================================================================
// Reads
// ============================================================================

// All returns the complete ordered sequence stored under key, or an empty
// slice if the logical array does not exist. This is the only operation
// that reads every segment.
func (s *Store) All(ctx context.Context, key string) ([]json.RawMessage, error) {
	start := time.Now()
	items, err := s.readWithRetry(ctx, OpGetAll, key, s.getAll)
	s.observe(OpGetAll, start, err)
	return items, err
}

func (s *Store) getAll(ctx context.Context, key string) ([]json.RawMessage, error) {
	meta, err := s.readMeta(ctx, key)
	if err != nil {
		return nil, err
	}
	if meta == nil || meta.BatchCount == 0 {
		return []json.RawMessage{}, nil
	}
	return s.readAllSegments(ctx, key, meta)
}

func (s *Store) readAllSegments(ctx context.Context, key string, meta *Meta) ([]json.RawMessage, error) {
	items := make([]json.RawMessage, 0, meta.TotalItems)
	for i := 0; i < meta.BatchCount; i++ {
		segment, err := s.readSegment(ctx, key, i)
		if err != nil {
			return nil, err
		}
		items = append(items, segment...)
	}
	s.observeSegmentReads(OpGetAll, meta.BatchCount)
	return items, nil
}

// Recent returns the last count items in original order, fewer if count
// exceeds the array length, and an empty slice when count <= 0 or the
// array does not exist. It walks segments backward from the tail and stops
// as soon as enough items are collected.
func (s *Store) Recent(ctx context.Context, key string, count int) ([]json.RawMessage, error) {
	start := time.Now()
	items, err := s.readWithRetry(ctx, OpGetRecent, key, func(ctx context.Context, key string) ([]json.RawMessage, error) {
		return s.getRecent(ctx, key, count)
	})
	s.observe(OpGetRecent, start, err)
	return items, err
}

func (s *Store) getRecent(ctx context.Context, key string, count int) ([]json.RawMessage, error) {
	if count <= 0 {
		return []json.RawMessage{}, nil
	}

	meta, err := s.readMeta(ctx, key)
	if err != nil {
		return nil, err
	}
	if meta == nil || meta.BatchCount == 0 {
		return []json.RawMessage{}, nil
	}

	// No benefit to partial reads when the window covers everything.
	if count >= meta.TotalItems {
		return s.readAllSegments(ctx, key, meta)
	}

	items := make([]json.RawMessage, 0, count)
	needed := count
	reads := 0

	for i := meta.BatchCount - 1; i >= 0 && needed > 0; i-- {
		segment, err := s.readSegment(ctx, key, i)
		if err != nil {
			return nil, err
		}
		reads++

		if len(segment) <= needed {
			items = append(segment, items...)
			needed -= len(segment)
		} else {
			items = append(segment[len(segment)-needed:], items...)
			needed = 0
		}
	}
	s.observeSegmentReads(OpGetRecent, reads)

	return items, nil
}

// Range returns items at logical indices [start, end), zero-based and
// half-open, clipped to the array bounds. It returns an empty slice when
// start < 0, end <= start, or start is past the end of the array, and
// reads only the segments the window intersects.
func (s *Store) Range(ctx context.Context, key string, start, end int) ([]json.RawMessage, error) {
	began := time.Now()
	items, err := s.readWithRetry(ctx, OpGetRange, key, func(ctx context.Context, key string) ([]json.RawMessage, error) {
		return s.getRange(ctx, key, start, end)
	})
	s.observe(OpGetRange, began, err)
	return items, err
}

func (s *Store) getRange(ctx context.Context, key string, start, end int) ([]json.RawMessage, error) {
	if start < 0 || end <= start {
		return []json.RawMessage{}, nil
	}

	meta, err := s.readMeta(ctx, key)
	if err != nil {
		return nil, err
	}
	if meta == nil || meta.BatchCount == 0 || start >= meta.TotalItems {
		return []json.RawMessage{}, nil
	}

	if end > meta.TotalItems {
		end = meta.TotalItems
	}

	startBatch := start / meta.BatchSize
	endBatch := (end - 1) / meta.BatchSize

	items := make([]json.RawMessage, 0, end-start)
	for i := startBatch; i <= endBatch; i++ {
		segment, err := s.readSegment(ctx, key, i)
		if err != nil {
			return nil, err
		}

		offset := i * meta.BatchSize
		lo := start - offset
		if lo < 0 {
			lo = 0
		}
		hi := end - offset
		if hi > len(segment) {
			hi = len(segment)
		}
		if lo < hi {
			items = append(items, segment[lo:hi]...)
		}
	}
	s.observeSegmentReads(OpGetRange, endBatch-startBatch+1)

	return items, nil
}

// Meta returns the metadata record for key, or nil if the array does not
// exist.
func (s *Store) Meta(ctx context.Context, key string) (*Meta, error) {
	start := time.Now()
	meta, err := s.readMeta(ctx, key)
	s.observe(OpMeta, start, err)
	return meta, err
}

// ============================================================================
// Drop
// ============================================================================

// Drop removes the logical array: metadata plus every segment, in one
// best-effort batch delete. Dropping a non-existent array is not an error.
func (s *Store) Drop(ctx context.Context, key string) error {
	start := time.Now()
	err := s.drop(ctx, key)
	s.observe(OpDrop, start, err)
	return err
}

func (s *Store) drop(ctx context.Context, key string) error {
	if key == "" {
		return NewInvalidArgumentError("key must not be empty")
	}

	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	meta, err := s.readMeta(ctx, key)
	if err != nil {
		return err
	}
	if meta == nil {
		return nil
	}

	if _, err := s.kv.DeleteMany(ctx, derivedKeys(key, meta.BatchCount)); err != nil {
		return NewStoreFailureError(key, "delete many", err)
	}

	logger.DebugCtx(ctx, "array dropped", logger.KeyArray, key, logger.KeyBatches, meta.BatchCount)
	return nil
}

// ============================================================================
// Substrate access
// ============================================================================

// readWithRetry runs a read operation and retries it once when a segment
// named by metadata turned out to be missing. That mismatch is the
// signature of a concurrent rebalance or append between the metadata read
// and the segment reads; a single retry re-reads metadata and sees a
// consistent snapshot unless the substrate actually lost data.
func (s *Store) readWithRetry(ctx context.Context, op, key string, read func(context.Context, string) ([]json.RawMessage, error)) ([]json.RawMessage, error) {
	items, err := read(ctx, key)
	if err == nil || !IsCode(err, ErrSegmentMissing) {
		return items, err
	}

	logger.WarnCtx(ctx, "segment missing mid-read, retrying",
		logger.KeyOp, op,
		logger.KeyArray, key,
		logger.KeyError, err.Error(),
	)
	return read(ctx, key)
}

// readMeta loads the metadata record, returning nil (not an error) when the
// array does not exist.
func (s *Store) readMeta(ctx context.Context, key string) (*Meta, error) {
	data, err := s.kv.Get(ctx, metaKey(key))
	if err == kv.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, NewStoreFailureError(key, "get", err)
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, NewStoreFailureError(key, "decode meta", err)
	}
	return &meta, nil
}

func (s *Store) writeMeta(ctx context.Context, key string, meta *Meta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return NewStoreFailureError(key, "encode meta", err)
	}
	if err := s.kv.Put(ctx, metaKey(key), data); err != nil {
		return NewStoreFailureError(key, "put", err)
	}
	return nil
}

func (s *Store) readSegment(ctx context.Context, key string, index int) ([]json.RawMessage, error) {
	data, err := s.kv.Get(ctx, segmentKey(key, index))
	if err == kv.ErrKeyNotFound {
		return nil, NewSegmentMissingError(key, index)
	}
	if err != nil {
		return nil, NewStoreFailureError(key, "get", err)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, NewStoreFailureError(key, "decode segment", err)
	}
	return items, nil
}

func (s *Store) writeSegment(ctx context.Context, key string, index int, items []json.RawMessage) error {
	data, err := json.Marshal(items)
	if err != nil {
		return NewStoreFailureError(key, "encode segment", err)
	}
	if err := s.kv.Put(ctx, segmentKey(key, index), data); err != nil {
		return NewStoreFailureError(key, "put", err)
	}
	return nil
}
