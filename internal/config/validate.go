package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.RequestTimeout.Duration <= 0 {
		return errors.New("server.request_timeout must be > 0")
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.gin_mode must be debug, release or test, got %q", c.Server.GinMode)
	}

	if c.HTTP.Timeout.Duration <= 0 {
		return errors.New("http.timeout must be > 0")
	}

	if c.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be >= 1")
	}
	if c.Retry.BaseDelay.Duration < 0 {
		return errors.New("retry.base_delay must be >= 0")
	}
	if c.Retry.MaxDelay.Duration <= 0 {
		return errors.New("retry.max_delay must be > 0")
	}
	if c.Retry.MaxDelay.Duration < c.Retry.BaseDelay.Duration {
		return fmt.Errorf("retry.max_delay (%s) cannot be below retry.base_delay (%s)", c.Retry.MaxDelay, c.Retry.BaseDelay)
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		return fmt.Errorf("retry.jitter must be between 0 and 1, got %g", c.Retry.Jitter)
	}

	if !c.Ensembl.Enabled {
		return errors.New("ensembl.enabled cannot be false: it is the primary source")
	}
	if err := c.Ensembl.validate("ensembl"); err != nil {
		return err
	}
	if err := c.UniProt.validate("uniprot"); err != nil {
		return err
	}
	if err := c.NCBI.validate("ncbi"); err != nil {
		return err
	}

	if c.Limits.MaxIDs < 2 {
		return errors.New("limits.max_ids must be >= 2")
	}
	if c.Limits.BatchConcurrency < 1 {
		return errors.New("limits.batch_concurrency must be >= 1")
	}
	if c.Limits.GroupMinShared < 1 {
		return errors.New("limits.group_min_shared must be >= 1")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}

	return nil
}

func (s *SourceConfig) validate(prefix string) error {
	if !s.Enabled {
		return nil
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s.base_url must be an absolute URL, got %q", prefix, s.BaseURL)
	}
	if s.RequestsPerSecond < 0 {
		return fmt.Errorf("%s.requests_per_second must be >= 0", prefix)
	}
	return nil
}
