package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/agenthands/genecompare/internal/rest"
	"github.com/agenthands/genecompare/internal/source/ensembl"
	"github.com/agenthands/genecompare/internal/source/ncbi"
	"github.com/agenthands/genecompare/internal/source/uniprot"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "GENECOMPARE_"

// Duration decodes "30s"-style strings from TOML and the environment.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type ServerConfig struct {
	Addr           string   `toml:"addr" env:"ADDR"`
	RequestTimeout Duration `toml:"request_timeout" env:"REQUEST_TIMEOUT"`
	GinMode        string   `toml:"gin_mode" env:"GIN_MODE"`
	AllowedOrigins []string `toml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
}

type HTTPConfig struct {
	Timeout   Duration `toml:"timeout" env:"TIMEOUT"`
	UserAgent string   `toml:"user_agent" env:"USER_AGENT"`
}

type RetryConfig struct {
	MaxAttempts int      `toml:"max_attempts" env:"MAX_ATTEMPTS" json:"maxAttempts"`
	BaseDelay   Duration `toml:"base_delay" env:"BASE_DELAY" json:"baseDelay"`
	MaxDelay    Duration `toml:"max_delay" env:"MAX_DELAY" json:"maxDelay"`
	Jitter      float64  `toml:"jitter" env:"JITTER" json:"jitter"`
}

type SourceConfig struct {
	Enabled           bool    `toml:"enabled" env:"ENABLED"`
	BaseURL           string  `toml:"base_url" env:"BASE_URL"`
	RequestsPerSecond float64 `toml:"requests_per_second" env:"RPS"`
	APIKey            string  `toml:"api_key" env:"API_KEY"`
}

type LimitsConfig struct {
	MaxIDs           int `toml:"max_ids" env:"MAX_IDS"`
	BatchConcurrency int `toml:"batch_concurrency" env:"BATCH_CONCURRENCY"`
	GroupMinShared   int `toml:"group_min_shared" env:"GROUP_MIN_SHARED"`
}

type LogConfig struct {
	Level string `toml:"level" env:"LEVEL"`
}

type Config struct {
	Server  ServerConfig `toml:"server" envPrefix:"SERVER_"`
	HTTP    HTTPConfig   `toml:"http" envPrefix:"HTTP_"`
	Retry   RetryConfig  `toml:"retry" envPrefix:"RETRY_"`
	Ensembl SourceConfig `toml:"ensembl" envPrefix:"ENSEMBL_"`
	UniProt SourceConfig `toml:"uniprot" envPrefix:"UNIPROT_"`
	NCBI    SourceConfig `toml:"ncbi" envPrefix:"NCBI_"`
	Limits  LimitsConfig `toml:"limits" envPrefix:"LIMITS_"`
	Log     LogConfig    `toml:"log" envPrefix:"LOG_"`
}

// Default returns the configuration used when no file or environment
// overrides are present. Request rates follow each service's published
// fair-use limits; NCBI allows 3 rps without an API key.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: Duration{2 * time.Minute},
			GinMode:        "release",
			AllowedOrigins: []string{"*"},
		},
		HTTP: HTTPConfig{
			Timeout:   Duration{30 * time.Second},
			UserAgent: "genecompare",
		},
		Retry: RetryConfig{
			MaxAttempts: 5,
			BaseDelay:   Duration{time.Second},
			MaxDelay:    Duration{30 * time.Second},
		},
		Ensembl: SourceConfig{Enabled: true, BaseURL: ensembl.DefaultBaseURL, RequestsPerSecond: 12},
		UniProt: SourceConfig{Enabled: true, BaseURL: uniprot.DefaultBaseURL, RequestsPerSecond: 10},
		NCBI:    SourceConfig{Enabled: true, BaseURL: ncbi.DefaultBaseURL, RequestsPerSecond: 3},
		Limits: LimitsConfig{
			MaxIDs:           200,
			BatchConcurrency: 4,
			GroupMinShared:   1,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults, then the TOML file at path
// (skipped when path is empty), then GENECOMPARE_* environment variables,
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.NCBI.APIKey != "" && cfg.NCBI.RequestsPerSecond == 3 {
		cfg.NCBI.RequestsPerSecond = 10
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays GENECOMPARE_* environment variables onto cfg. Unset
// variables leave the existing value untouched.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Policy converts the retry section into the policy used by outbound clients.
func (c *Config) Policy() rest.Policy {
	return rest.Policy{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   c.Retry.BaseDelay.Duration,
		MaxDelay:    c.Retry.MaxDelay.Duration,
		Jitter:      c.Retry.Jitter,
	}
}

// Public is the subset of the configuration safe to expose over HTTP.
type Public struct {
	EnsemblURL      string      `json:"ensemblRestUrl"`
	UniProtURL      string      `json:"uniprotRestUrl"`
	NCBIURL         string      `json:"ncbiEutilsUrl"`
	UniProtEnabled  bool        `json:"uniprotEnabled"`
	NCBIEnabled     bool        `json:"ncbiEnabled"`
	MaxIDs          int         `json:"maxIds"`
	Retry           RetryConfig `json:"retry"`
	UpstreamTimeout Duration    `json:"upstreamTimeout"`
	Version         string      `json:"version"`
}

func (c *Config) Public(version string) Public {
	return Public{
		EnsemblURL:      c.Ensembl.BaseURL,
		UniProtURL:      c.UniProt.BaseURL,
		NCBIURL:         c.NCBI.BaseURL,
		UniProtEnabled:  c.UniProt.Enabled,
		NCBIEnabled:     c.NCBI.Enabled,
		MaxIDs:          c.Limits.MaxIDs,
		Retry:           c.Retry,
		UpstreamTimeout: c.HTTP.Timeout,
		Version:         version,
	}
}
