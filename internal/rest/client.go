package rest

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Client performs rate-limited, retried GET requests against one upstream.
type Client struct {
	source     string
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
	policy     Policy
	limiter    *rate.Limiter
	query      url.Values

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
	now    func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client for the named source rooted at baseURL.
func NewClient(source, baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		source:  source,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
		policy: DefaultPolicy(),
		query:  url.Values{},
		sleep:  sleepContext,
		jitter: rand.Float64,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithPolicy sets the retry policy.
func WithPolicy(p Policy) ClientOption {
	return func(c *Client) {
		c.policy = p
	}
}

// WithRateLimit caps outbound requests per second. Zero or negative disables
// limiting.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithQueryParam adds a parameter sent with every request, such as an API key.
func WithQueryParam(key, value string) ClientOption {
	return func(c *Client) {
		if value != "" {
			c.query.Set(key, value)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Source returns the name the client was created with.
func (c *Client) Source() string { return c.source }

// BaseURL returns the upstream root.
func (c *Client) BaseURL() string { return c.baseURL }

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
