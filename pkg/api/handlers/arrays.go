package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/chunkstore/pkg/chunk"
)

// ArrayHandler handles the /v1/arrays endpoints.
type ArrayHandler struct {
	engine *chunk.Store
}

// NewArrayHandler creates a new array handler backed by the given engine.
func NewArrayHandler(engine *chunk.Store) *ArrayHandler {
	return &ArrayHandler{engine: engine}
}

// AppendRequest is the body of POST /v1/arrays/{key}/items.
type AppendRequest struct {
	// Items are the opaque JSON values to append, in order.
	Items []json.RawMessage `json:"items"`

	// BatchSize sets the segmentation policy when the array is created.
	// Ignored on existing arrays unless Rebalance is true.
	BatchSize int `json:"batchSize,omitempty"`

	// Rebalance requests re-segmentation to BatchSize before appending.
	Rebalance bool `json:"rebalance,omitempty"`
}

// ItemsResponse is the payload returned by the read endpoints.
type ItemsResponse struct {
	Key   string            `json:"key"`
	Items []json.RawMessage `json:"items"`
	Count int               `json:"count"`
}

// Append handles POST /v1/arrays/{key}/items.
//
// Appends the request items to the logical array, creating it on first
// write, and returns the updated metadata.
func (h *ArrayHandler) Append(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req AppendRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	opts := chunk.AppendOptions{
		BatchSize: req.BatchSize,
		Rebalance: req.Rebalance,
	}
	if err := h.engine.Append(r.Context(), key, req.Items, opts); err != nil {
		writeEngineError(w, err)
		return
	}

	meta, err := h.engine.Meta(r.Context(), key)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse(map[string]interface{}{
		"key":      key,
		"appended": len(req.Items),
		"meta":     meta,
	}))
}

// All handles GET /v1/arrays/{key}.
//
// Returns every item of the logical array in order. A missing array yields
// an empty item list, not an error.
func (h *ArrayHandler) All(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	items, err := h.engine.All(r.Context(), key)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse(ItemsResponse{
		Key:   key,
		Items: emptyIfNil(items),
		Count: len(items),
	}))
}

// Recent handles GET /v1/arrays/{key}/recent?count=N.
//
// Returns the last N items in order. A non-positive or missing count is
// rejected with 400.
func (h *ArrayHandler) Recent(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	count, ok := queryInt(w, r, "count")
	if !ok {
		return
	}
	if count <= 0 {
		BadRequest(w, "count must be a positive integer")
		return
	}

	items, err := h.engine.Recent(r.Context(), key, count)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse(ItemsResponse{
		Key:   key,
		Items: emptyIfNil(items),
		Count: len(items),
	}))
}

// Range handles GET /v1/arrays/{key}/range?start=S&end=E.
//
// Returns the items in the half-open interval [start, end). Out-of-bounds
// intervals are clipped; inverted intervals yield an empty list.
func (h *ArrayHandler) Range(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	start, ok := queryInt(w, r, "start")
	if !ok {
		return
	}
	end, ok := queryInt(w, r, "end")
	if !ok {
		return
	}

	items, err := h.engine.Range(r.Context(), key, start, end)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse(ItemsResponse{
		Key:   key,
		Items: emptyIfNil(items),
		Count: len(items),
	}))
}

// Meta handles GET /v1/arrays/{key}/meta.
//
// Returns 404 when the array does not exist.
func (h *ArrayHandler) Meta(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	meta, err := h.engine.Meta(r.Context(), key)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if meta == nil {
		NotFound(w, "Array not found")
		return
	}

	writeJSON(w, http.StatusOK, okResponse(meta))
}

// Drop handles DELETE /v1/arrays/{key}.
//
// Removes the array's metadata and every segment. Dropping a missing array
// succeeds.
func (h *ArrayHandler) Drop(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if err := h.engine.Drop(r.Context(), key); err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse(map[string]string{
		"key": key,
	}))
}

// writeEngineError maps engine error codes to HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch chunk.CodeOf(err) {
	case chunk.ErrInvalidArgument:
		BadRequest(w, err.Error())
	case chunk.ErrSegmentMissing:
		// The substrate lost a segment the metadata still accounts for.
		BadGateway(w, err.Error())
	default:
		InternalServerError(w, err.Error())
	}
}

// queryInt parses a required integer query parameter. Returns false after
// writing a 400 response when the parameter is absent or malformed.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		BadRequest(w, "missing required query parameter: "+name)
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		BadRequest(w, "invalid integer for query parameter: "+name)
		return 0, false
	}
	return n, true
}

// emptyIfNil keeps item lists serializing as [] instead of null.
func emptyIfNil(items []json.RawMessage) []json.RawMessage {
	if items == nil {
		return []json.RawMessage{}
	}
	return items
}
