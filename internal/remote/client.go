// Package remote is the HTTP client for the remote log store. The store is
// an external collaborator; this package only implements its narrow
// contract: batch append, per-user query, and a reachability probe.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/msabate/transit-logger/internal/domain"
)

// Client is the contract the sync engine and the journey view need from the
// remote store. Append is all-or-nothing: a nil return means the whole
// batch is durable remotely; any error means none of it should be assumed
// delivered.
type Client interface {
	// Append batch-inserts entries. Returns domain.ErrSyncRejected when the
	// store answered with a non-2xx status and domain.ErrSyncUnavailable on
	// transport failure. Entries are idempotent by ID at the store, so
	// retrying a batch that was actually accepted is harmless.
	Append(ctx context.Context, entries []domain.LogEntry) error

	// Query returns the stored entries for a user, most recent first.
	Query(ctx context.Context, userID string) ([]domain.LogEntry, error)

	// Ping reports whether the store is currently reachable.
	Ping(ctx context.Context) error
}

// HTTPClient talks JSON over HTTP to the remote log store.
type HTTPClient struct {
	base string
	http *http.Client
}

// NewHTTPClient constructs a Client for the store at baseURL.
// The client relies on its own timeout; no retry or backoff happens here —
// the outbox is the retry mechanism.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

var _ Client = (*HTTPClient)(nil)

// Append POSTs the batch to /api/logs.
func (c *HTTPClient) Append(ctx context.Context, entries []domain.LogEntry) error {
	body, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("remote.HTTPClient.Append: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/logs", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("remote.HTTPClient.Append: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote.HTTPClient.Append: %w: %w", domain.ErrSyncUnavailable, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("remote.HTTPClient.Append: %w: status %d", domain.ErrSyncRejected, resp.StatusCode)
	}
	return nil
}

// Query GETs /api/logs?user_id=... and decodes the entry list.
func (c *HTTPClient) Query(ctx context.Context, userID string) ([]domain.LogEntry, error) {
	u := c.base + "/api/logs?user_id=" + url.QueryEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("remote.HTTPClient.Query: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote.HTTPClient.Query: %w: %w", domain.ErrSyncUnavailable, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote.HTTPClient.Query: %w: status %d", domain.ErrSyncRejected, resp.StatusCode)
	}

	var entries []domain.LogEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("remote.HTTPClient.Query: decode: %w", err)
	}
	return entries, nil
}

// Ping GETs /healthz to check reachability. Any HTTP answer counts as
// reachable — a 500 from the store is still "online" for flush purposes,
// since Append will report the real outcome.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("remote.HTTPClient.Ping: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote.HTTPClient.Ping: %w: %w", domain.ErrSyncUnavailable, err)
	}
	drain(resp)
	return nil
}

// drain discards and closes the response body so the connection can be reused.
func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()
}
