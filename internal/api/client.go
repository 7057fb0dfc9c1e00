// Package api is an HTTP client for the engai API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tuannvm/engai/internal/server"
	"github.com/tuannvm/engai/internal/usage"
)

// Client is an HTTP client for a running engai server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Error is a non-2xx answer from the server.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Detail)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:8000". Generation takes minutes, so the default
// timeout is generous.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health returns the server health
func (c *Client) Health(ctx context.Context) (*server.HealthResponse, error) {
	var out server.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get health: %w", err)
	}
	return &out, nil
}

// Usage returns the usage snapshot
func (c *Client) Usage(ctx context.Context) (*usage.Snapshot, error) {
	var out usage.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/usage", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get usage: %w", err)
	}
	return &out, nil
}

// Generate runs a generation on the server. A failed run is not an error;
// check Success on the response.
func (c *Client) Generate(ctx context.Context, req server.GenerateRequest) (*server.GenerateResponse, error) {
	var out server.GenerateResponse
	if err := c.do(ctx, http.MethodPost, "/api/generate", req, &out); err != nil {
		return nil, fmt.Errorf("failed to generate: %w", err)
	}
	return &out, nil
}

// WaitForHealthy waits until the server responds to health checks
func (c *Client) WaitForHealthy(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if _, err := c.Health(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	return fmt.Errorf("timeout waiting for server to be healthy")
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		var e struct {
			Detail string `json:"detail"`
		}
		detail := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &e) == nil && e.Detail != "" {
			detail = e.Detail
		}
		return &Error{StatusCode: resp.StatusCode, Detail: detail}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
