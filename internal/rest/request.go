package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// doRequest performs a single GET attempt.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if q := c.mergeQuery(query); len(q) > 0 {
		fullURL += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{
			Source:     c.source,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), c.now())
		}
		return nil, apiErr
	}

	return body, nil
}

func (c *Client) mergeQuery(query url.Values) url.Values {
	if len(c.query) == 0 {
		return query
	}
	merged := url.Values{}
	for k, v := range c.query {
		merged[k] = v
	}
	for k, v := range query {
		merged[k] = v
	}
	return merged
}

// retryable decides whether a failed attempt may be repeated. Transport
// failures are retried unless the caller's context is finished.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	return true
}

// delay computes the wait before retry n, honouring Retry-After on 429.
func (c *Client) delay(n int, err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter
	}

	d := c.policy.Backoff(n)
	if c.policy.Jitter > 0 && d > 0 {
		d += time.Duration(float64(d) * c.policy.Jitter * c.jitter())
	}
	return d
}

// limiterError marks an early "would exceed context deadline" refusal from the
// limiter as a deadline failure so callers classify it as a timeout.
func limiterError(ctx context.Context, err error) error {
	if _, ok := ctx.Deadline(); ok && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("rate limit wait: %w: %w", context.DeadlineExceeded, err)
	}
	return fmt.Errorf("rate limit wait: %w", err)
}

// doWithRetry performs a request with exponential backoff retry.
func (c *Client) doWithRetry(ctx context.Context, path string, query url.Values) ([]byte, error) {
	attempts := c.policy.attempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := c.delay(attempt-1, lastErr)
			c.logger.Debug("retrying request",
				"source", c.source,
				"attempt", attempt,
				"backoff", wait,
				"path", path,
			)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, limiterError(ctx, err)
			}
		}

		body, err := c.doRequest(ctx, path, query)
		if err == nil {
			return body, nil
		}

		lastErr = err
		if !retryable(ctx, err) {
			return nil, err
		}
	}

	c.logger.Warn("giving up on request",
		"source", c.source,
		"attempts", attempts,
		"path", path,
		"error", lastErr,
	)
	return nil, &RetryError{Attempts: attempts, Err: lastErr}
}

// Get performs a GET request with retries and returns the raw body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.doWithRetry(ctx, path, query)
}

// GetJSON performs a GET request with retries and decodes the body into result.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, result any) error {
	body, err := c.doWithRetry(ctx, path, query)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}
