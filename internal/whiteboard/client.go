// Package whiteboard is the REST client for the collaborative whiteboard
// service. It resolves or provisions the room/folder/board hierarchy a project
// needs and manipulates sticky-note widgets and their tags. All calls go
// through a single bounded request helper; the client keeps no state between
// calls beyond its configuration.
package whiteboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds every outbound call. A single shared value governs all
// requests; it is configurable once at construction, not per call.
const DefaultTimeout = 15 * time.Second

// Client talks to the whiteboard service's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a Client for the given API base URL. A non-positive
// timeout selects DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// do performs one bounded request and decodes the JSON response best-effort.
// Transport failures and timeouts surface as *NetworkError, non-2xx statuses
// as *APIError. On success the decoded body is returned; an empty or
// undecodable body yields an empty object so callers stay total.
func (c *Client) do(ctx context.Context, method, path, token string, body any) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody := map[string]any{}
		// The service is not guaranteed to return JSON on errors.
		_ = json.Unmarshal(respBody, &errBody)
		return nil, &APIError{Status: resp.StatusCode, Body: errBody}
	}

	var decoded any
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &decoded); err != nil {
			decoded = nil
		}
	}
	if decoded == nil {
		decoded = map[string]any{}
	}
	return decoded, nil
}

func (c *Client) get(ctx context.Context, path, token string) (any, error) {
	return c.do(ctx, http.MethodGet, path, token, nil)
}

func (c *Client) post(ctx context.Context, path, token string, body any) (any, error) {
	return c.do(ctx, http.MethodPost, path, token, body)
}

func (c *Client) patch(ctx context.Context, path, token string, body any) (any, error) {
	return c.do(ctx, http.MethodPatch, path, token, body)
}
