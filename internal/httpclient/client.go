// Package httpclient sends JSON requests to dependency services with bounded
// retry on transient failures.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the request may succeed if retried.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client sends JSON requests. Transport errors, 429 and 5xx responses are
// retried with exponential backoff, honouring Retry-After when present.
type Client struct {
	// HTTP retries on its own; requests made directly through it share the
	// retry budget of the client.
	HTTP    *http.Client
	Headers map[string]string

	retry *retryablehttp.Client
}

// New returns a client that retries a failed request up to retries times.
func New(retries int) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = retries
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = slog.Default()
	rc.Backoff = cappedBackoff
	// Hand the last response back so the caller sees its status and body.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		HTTP:    rc.StandardClient(),
		Headers: map[string]string{},
		retry:   rc,
	}
}

// SetBackoff changes the first and the largest wait between attempts.
func (c *Client) SetBackoff(first, limit time.Duration) {
	c.retry.RetryWaitMin = first
	c.retry.RetryWaitMax = limit
}

// cappedBackoff keeps a long Retry-After from exceeding the largest wait.
func cappedBackoff(first, limit time.Duration, attempt int, resp *http.Response) time.Duration {
	return min(retryablehttp.DefaultBackoff(first, limit, attempt, resp), limit)
}

// PostJSON marshals in, posts it to url and decodes the response into out.
// The request is bounded by ctx.
func (c *Client) PostJSON(ctx context.Context, url string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.send(ctx, http.MethodPost, url, bytes.NewReader(data), out)
}

// GetJSON fetches url and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.send(ctx, http.MethodGet, url, nil, out)
}

func (c *Client) send(ctx context.Context, method, url string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(data), 512)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
