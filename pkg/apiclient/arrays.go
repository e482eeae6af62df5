package apiclient

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// ArrayMeta is the metadata record returned by the API.
type ArrayMeta struct {
	BatchCount  int       `json:"batchCount"`
	TotalItems  int       `json:"totalItems"`
	BatchSize   int       `json:"batchSize"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// AppendRequest is the body of the append endpoint.
type AppendRequest struct {
	Items     []json.RawMessage `json:"items"`
	BatchSize int               `json:"batchSize,omitempty"`
	Rebalance bool              `json:"rebalance,omitempty"`
}

// AppendResult reports the outcome of an append.
type AppendResult struct {
	Key      string    `json:"key"`
	Appended int       `json:"appended"`
	Meta     ArrayMeta `json:"meta"`
}

// itemsResult mirrors the read endpoints' payload.
type itemsResult struct {
	Key   string            `json:"key"`
	Items []json.RawMessage `json:"items"`
	Count int               `json:"count"`
}

func arrayPath(key string) string {
	return "/v1/arrays/" + url.PathEscape(key)
}

// AppendItems appends items to the logical array, creating it on first
// write, and returns the updated metadata.
func (c *Client) AppendItems(key string, req AppendRequest) (*AppendResult, error) {
	var result AppendResult
	if err := c.post(arrayPath(key)+"/items", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetAll returns every item of the logical array in order.
func (c *Client) GetAll(key string) ([]json.RawMessage, error) {
	var result itemsResult
	if err := c.get(arrayPath(key), &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// GetRecent returns the last count items of the logical array in order.
func (c *Client) GetRecent(key string, count int) ([]json.RawMessage, error) {
	var result itemsResult
	path := fmt.Sprintf("%s/recent?count=%d", arrayPath(key), count)
	if err := c.get(path, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// GetRange returns the items in the half-open interval [start, end).
func (c *Client) GetRange(key string, start, end int) ([]json.RawMessage, error) {
	var result itemsResult
	path := fmt.Sprintf("%s/range?start=%d&end=%d", arrayPath(key), start, end)
	if err := c.get(path, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// GetMeta returns the array's metadata. Returns an APIError with
// IsNotFound() true when the array does not exist.
func (c *Client) GetMeta(key string) (*ArrayMeta, error) {
	var meta ArrayMeta
	if err := c.get(arrayPath(key)+"/meta", &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// DropArray removes the array's metadata and every segment.
func (c *Client) DropArray(key string) error {
	return c.delete(arrayPath(key), nil)
}
