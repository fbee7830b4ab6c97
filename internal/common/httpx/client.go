// Package httpx provides a shared HTTP client with pooled connections and a
// bounded default timeout for driver calls to external provider APIs.
//
// Drivers perform blocking synchronous I/O while a checkout flow waits, so
// every request through this client carries a hard timeout even when the
// caller's context has none.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"commerce-router/internal/common/errors"
)

// ClientConfig holds HTTP client configuration
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// DefaultClientConfig returns default HTTP client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             15 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// ClientOption is a function that modifies ClientConfig
type ClientOption func(*ClientConfig)

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// Client wraps http.Client with JSON helpers
type Client struct {
	httpClient *http.Client
}

// NewClient creates a client with pooled transport
func NewClient(opts ...ClientOption) *Client {
	config := DefaultClientConfig()
	for _, opt := range opts {
		opt(&config)
	}

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
	}
}

// PostJSON sends a JSON body and decodes a JSON response into out.
// Non-2xx responses are returned as connection errors carrying the status
// and response body.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.InternalError("failed to marshal request body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errors.InternalError("failed to build request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.ConnectionError(fmt.Sprintf("request to %s failed", url), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.ConnectionError("failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.ConnectionError(
			fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, url), nil,
		).WithContext("body", string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.InternalError("failed to decode response body", err)
	}
	return nil
}
