// internal/common/http/client.go

// Package http wraps the standard HTTP client with the fixed per-client
// timeout used for outbound collaborator calls, such as the geocoding lookup.
package http

import (
	"context"
	"net/http"
	"time"
)

// defaultTimeout bounds outbound calls when the caller passes no timeout, so a
// misconfigured client can never hang a feed fetch indefinitely.
const defaultTimeout = 5 * time.Second

// Client issues outbound HTTP requests with a bounded timeout. It carries no
// feed-specific behavior; collaborators build their own requests and parse
// their own responses.
type Client struct {
	httpClient *http.Client
}

// NewClient returns a client whose requests time out after the given duration.
// A non-positive timeout falls back to defaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Do issues the request under the client timeout.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// DoWithContext issues the request bound to ctx, so callers can cancel early
// when the surrounding fetch cycle is abandoned. The client timeout still
// applies as an upper bound.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	return c.httpClient.Do(req)
}
