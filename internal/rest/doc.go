// Package rest is the shared outbound HTTP client used by every annotation
// source. It issues JSON GET requests with a per-source rate limit and retries
// transient failures (network errors, timeouts, HTTP 429 and 5xx) with capped
// exponential backoff. A Retry-After header on a 429 response replaces the
// computed delay for that attempt.
package rest
