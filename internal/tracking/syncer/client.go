package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/architect/interactive-content/internal/tracking/models"
)

const (
	progressPath      = "/api/v1/tracking/progress"
	contentLoadedPath = "/api/v1/tracking/content-loaded"
	timeExpiredPath   = "/api/v1/tracking/time-expired"

	defaultRequestTimeout = 4 * time.Second
)

// ErrSyncRejected marks a response the endpoint answered but refused
// (non-2xx status or success:false). Callers log and drop it; the next
// scheduled tick carries superseding state.
var ErrSyncRejected = errors.New("progress sync rejected by endpoint")

// Endpoint is the wire surface the scheduler needs. Satisfied by *Client;
// tests substitute fakes.
type Endpoint interface {
	SyncProgress(ctx context.Context, payload models.SyncPayload) (*models.SyncResult, error)
	NotifyContentLoaded(ctx context.Context, notice models.ContentLoadedNotice) error
	NotifyTimeExpired(ctx context.Context, notice models.TimeExpiredNotice) error
}

// Client talks JSON to the progress collection endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultRequestTimeout},
	}
}

// NewClientWithHTTP creates a Client with a caller-supplied http.Client.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: baseURL, http: hc}
}

// SyncProgress ships one full snapshot plus interaction bundle.
func (c *Client) SyncProgress(ctx context.Context, payload models.SyncPayload) (*models.SyncResult, error) {
	var result models.SyncResult
	if err := c.post(ctx, progressPath, payload, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return &result, fmt.Errorf("%w: %s", ErrSyncRejected, result.Message)
	}
	return &result, nil
}

// NotifyContentLoaded fires the one-shot content-loaded notification.
func (c *Client) NotifyContentLoaded(ctx context.Context, notice models.ContentLoadedNotice) error {
	return c.post(ctx, contentLoadedPath, notice, nil)
}

// NotifyTimeExpired fires the one-shot time-expired notification.
func (c *Client) NotifyTimeExpired(ctx context.Context, notice models.TimeExpiredNotice) error {
	return c.post(ctx, timeExpiredPath, notice, nil)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrSyncRejected, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
