package httpapi

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

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxRetries is the maximum number of attempts for transient errors.
	MaxRetries = 3

	// RetryDelay is the initial delay between retries.
	RetryDelay = time.Second

	// MaxRetryDelay caps the exponential retry delay.
	MaxRetryDelay = 8 * time.Second

	maxErrorBody = 4096
)

// Options configures a Client.
type Options struct {
	HTTPClient    *http.Client
	RateLimit     RateLimitConfig
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	// Header is added to every request (auth tokens, API keys).
	Header http.Header
}

// Client sends JSON requests with rate limiting and bounded retries.
type Client struct {
	http          *http.Client
	limiter       *RateLimiter
	maxRetries    int
	retryDelay    time.Duration
	maxRetryDelay time.Duration
	header        http.Header
}

// New creates a client, filling unset options with defaults.
func New(opts Options) *Client {
	c := &Client{
		http:          opts.HTTPClient,
		limiter:       NewRateLimiter(opts.RateLimit),
		maxRetries:    opts.MaxRetries,
		retryDelay:    opts.RetryDelay,
		maxRetryDelay: opts.MaxRetryDelay,
		header:        opts.Header.Clone(),
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: DefaultTimeout}
	}
	if c.maxRetries <= 0 {
		c.maxRetries = MaxRetries
	}
	if c.retryDelay <= 0 {
		c.retryDelay = RetryDelay
	}
	if c.maxRetryDelay <= 0 {
		c.maxRetryDelay = MaxRetryDelay
	}
	return c
}

// Do sends a request with an optional JSON body and decodes a JSON response
// into out when out is non-nil. Retryable failures are attempted up to
// MaxRetries times with exponential backoff. The response headers of the
// final attempt are returned.
func (c *Client) Do(ctx context.Context, method, url string, body, out any) (http.Header, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	delay := c.retryDelay
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		header, err := c.once(ctx, method, url, payload, out)
		if err == nil {
			return header, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == c.maxRetries {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, c.maxRetryDelay)
	}
	return nil, lastErr
}

func (c *Client) once(ctx context.Context, method, url string, payload []byte, out any) (http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	c.limiter.UpdateFromResponse(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.Header, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
			URL:        url,
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.Header, nil
}
