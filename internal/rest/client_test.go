package rest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSleeper captures requested delays without waiting.
type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("ensembl", "https://rest.ensembl.org")

		assert.Equal(t, "ensembl", c.Source())
		assert.Equal(t, "https://rest.ensembl.org", c.BaseURL())
		assert.Equal(t, 30*time.Second, c.httpClient.Timeout)
		assert.Equal(t, DefaultPolicy(), c.policy)
		assert.Nil(t, c.limiter)
		assert.NotNil(t, c.logger)
	})

	t.Run("with options", func(t *testing.T) {
		logger := quietLogger()
		p := Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}
		c := NewClient("ncbi", "http://x",
			WithTimeout(5*time.Second),
			WithPolicy(p),
			WithRateLimit(3),
			WithUserAgent("genecompare/test"),
			WithQueryParam("api_key", "secret"),
			WithQueryParam("empty", ""),
			WithLogger(logger),
		)

		assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
		assert.Equal(t, p, c.policy)
		require.NotNil(t, c.limiter)
		assert.Equal(t, 3, c.limiter.Burst())
		assert.Equal(t, "genecompare/test", c.userAgent)
		assert.Equal(t, "secret", c.query.Get("api_key"))
		assert.False(t, c.query.Has("empty"))
		assert.Same(t, logger, c.logger)
	})

	t.Run("fractional rate keeps burst of one", func(t *testing.T) {
		c := NewClient("x", "http://x", WithRateLimit(0.5))
		require.NotNil(t, c.limiter)
		assert.Equal(t, 1, c.limiter.Burst())
	})

	t.Run("custom HTTP client", func(t *testing.T) {
		hc := &http.Client{Timeout: 10 * time.Second}
		c := NewClient("x", "http://x", WithHTTPClient(hc))
		assert.Same(t, hc, c.httpClient)
	})
}

func TestPolicyBackoff(t *testing.T) {
	p := Policy{MaxAttempts: 6, BaseDelay: time.Second, MaxDelay: 5 * time.Second}

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second},
		{10, 5 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Backoff(tt.retry), "retry %d", tt.retry)
	}

	uncapped := Policy{BaseDelay: 100 * time.Millisecond}
	assert.Equal(t, 800*time.Millisecond, uncapped.Backoff(4))
}

func TestPolicyBackoff_NoOverflow(t *testing.T) {
	p := Policy{MaxAttempts: 100, BaseDelay: time.Second}

	prev := time.Duration(0)
	for n := 1; n < p.MaxAttempts; n++ {
		d := p.Backoff(n)
		require.Positive(t, d, "retry %d", n)
		require.GreaterOrEqual(t, d, prev, "retry %d", n)
		prev = d
	}
	assert.Equal(t, time.Duration(math.MaxInt64), p.Backoff(99))
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.Equal(t, 5*time.Second, parseRetryAfter("5", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-3", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon", now))
	assert.Equal(t, 7*time.Second, parseRetryAfter(now.Add(7*time.Second).Format(http.TimeFormat), now))
	assert.Equal(t, time.Duration(0), parseRetryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now))
}

func TestAPIError(t *testing.T) {
	err := &APIError{Source: "uniprot", StatusCode: 404, Message: "Not Found"}
	assert.Equal(t, "uniprot api error 404: Not Found", err.Error())

	tests := []struct {
		code     int
		expected bool
	}{
		{500, true},
		{502, true},
		{503, true},
		{504, true},
		{429, true},
		{400, false},
		{403, false},
		{404, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, (&APIError{StatusCode: tt.code}).IsRetryable(), "status %d", tt.code)
	}

	wrapped := &RetryError{Attempts: 3, Err: &APIError{StatusCode: 503}}
	assert.Equal(t, 503, StatusCode(wrapped))
	assert.Equal(t, 0, StatusCode(errors.New("plain")))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(&RetryError{Err: &APIError{StatusCode: http.StatusGatewayTimeout}}))
	assert.False(t, IsTimeout(&APIError{StatusCode: http.StatusBadGateway}))
	assert.False(t, IsTimeout(errors.New("boom")))
}

func TestDoRequest(t *testing.T) {
	t.Run("sends headers and merged query", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			assert.Equal(t, "genecompare/test", r.Header.Get("User-Agent"))
			assert.Equal(t, "/esearch.fcgi", r.URL.Path)
			assert.Equal(t, "gene", r.URL.Query().Get("db"))
			assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
			w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		c := NewClient("ncbi", server.URL, WithUserAgent("genecompare/test"), WithQueryParam("api_key", "secret"))
		body, err := c.doRequest(context.Background(), "/esearch.fcgi", map[string][]string{"db": {"gene"}})

		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(body))
	})

	t.Run("4xx returns APIError with body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"ID not found"}`))
		}))
		defer server.Close()

		c := NewClient("ensembl", server.URL)
		_, err := c.doRequest(context.Background(), "/lookup/id/X", nil)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 404, apiErr.StatusCode)
		assert.Equal(t, "ensembl", apiErr.Source)
		assert.Contains(t, string(apiErr.Body), "ID not found")
		assert.Zero(t, apiErr.RetryAfter)
	})
}

func TestDoWithRetry(t *testing.T) {
	t.Run("fails twice then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`{"value":42}`))
		}))
		defer server.Close()

		p := Policy{MaxAttempts: 5, BaseDelay: 20 * time.Millisecond}
		c := NewClient("ensembl", server.URL, WithPolicy(p), WithLogger(quietLogger()))

		start := time.Now()
		var out struct {
			Value int `json:"value"`
		}
		err := c.GetJSON(context.Background(), "/", nil, &out)
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.Equal(t, 42, out.Value)
		assert.Equal(t, int32(3), calls.Load())
		assert.GreaterOrEqual(t, elapsed, p.Backoff(1)+p.Backoff(2))
	})

	t.Run("429 honours Retry-After", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.Header().Set("Retry-After", "5")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		rec := &recordingSleeper{}
		c := NewClient("uniprot", server.URL,
			WithPolicy(Policy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond}),
			WithLogger(quietLogger()),
		)
		c.sleep = rec.sleep

		_, err := c.Get(context.Background(), "/", nil)

		require.NoError(t, err)
		require.Len(t, rec.delays, 1)
		assert.Equal(t, 5*time.Second, rec.delays[0])
	})

	t.Run("429 without Retry-After uses backoff", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		rec := &recordingSleeper{}
		c := NewClient("uniprot", server.URL,
			WithPolicy(Policy{MaxAttempts: 3, BaseDelay: time.Second}),
			WithLogger(quietLogger()),
		)
		c.sleep = rec.sleep

		_, err := c.Get(context.Background(), "/", nil)

		require.NoError(t, err)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
	})

	t.Run("non-retryable status returns immediately", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		rec := &recordingSleeper{}
		c := NewClient("ensembl", server.URL, WithLogger(quietLogger()))
		c.sleep = rec.sleep

		_, err := c.Get(context.Background(), "/", nil)

		assert.Equal(t, 400, StatusCode(err))
		var retryErr *RetryError
		assert.False(t, errors.As(err, &retryErr))
		assert.Equal(t, int32(1), calls.Load())
		assert.Empty(t, rec.delays)
	})

	t.Run("exhaustion returns RetryError", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		rec := &recordingSleeper{}
		c := NewClient("ncbi", server.URL,
			WithPolicy(Policy{MaxAttempts: 4, BaseDelay: time.Second, MaxDelay: 3 * time.Second}),
			WithLogger(quietLogger()),
		)
		c.sleep = rec.sleep

		_, err := c.Get(context.Background(), "/", nil)

		var retryErr *RetryError
		require.ErrorAs(t, err, &retryErr)
		assert.Equal(t, 4, retryErr.Attempts)
		assert.Equal(t, 502, StatusCode(err))
		assert.Equal(t, int32(4), calls.Load())
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, rec.delays)
	})

	t.Run("connection errors are retried", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		rec := &recordingSleeper{}
		c := NewClient("ensembl", url,
			WithPolicy(Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}),
			WithLogger(quietLogger()),
		)
		c.sleep = rec.sleep

		_, err := c.Get(context.Background(), "/", nil)

		var retryErr *RetryError
		require.ErrorAs(t, err, &retryErr)
		assert.Len(t, rec.delays, 2)
	})

	t.Run("jitter only lengthens the delay", func(t *testing.T) {
		c := NewClient("x", "http://x", WithPolicy(Policy{MaxAttempts: 3, BaseDelay: time.Second, Jitter: 0.5}))
		c.jitter = func() float64 { return 0.5 }

		assert.Equal(t, 1250*time.Millisecond, c.delay(1, errors.New("net")))

		c.jitter = func() float64 { return 0 }
		assert.Equal(t, 2*time.Second, c.delay(2, errors.New("net")))
	})

	t.Run("context cancellation stops retries", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		c := NewClient("ensembl", server.URL,
			WithPolicy(Policy{MaxAttempts: 5, BaseDelay: time.Hour}),
			WithLogger(quietLogger()),
		)
		c.sleep = func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}

		_, err := c.Get(ctx, "/", nil)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invalid JSON body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}))
		defer server.Close()

		c := NewClient("x", server.URL)
		var out map[string]any
		err := c.GetJSON(context.Background(), "/", nil, &out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unmarshal response")
	})
}

func TestRateLimitWait(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	newClient := func() *Client {
		// One token now, the next one in about 17 minutes.
		return NewClient("ncbi", server.URL, WithRateLimit(0.001), WithLogger(quietLogger()))
	}

	t.Run("wait past the deadline is a timeout", func(t *testing.T) {
		c := newClient()
		_, err := c.Get(context.Background(), "/", nil)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		start := time.Now()
		_, err = c.Get(ctx, "/", nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limit wait")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.True(t, IsTimeout(err))
		assert.Less(t, time.Since(start), 500*time.Millisecond, "limiter should refuse without waiting")
	})

	t.Run("cancellation is not a timeout", func(t *testing.T) {
		c := newClient()
		_, err := c.Get(context.Background(), "/", nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = c.Get(ctx, "/", nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, IsTimeout(err))
	})

	assert.Equal(t, int32(2), calls.Load())
}
