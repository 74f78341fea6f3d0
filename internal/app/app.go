// Package app wires configuration into a ready-to-use Aggregator.
package app

import (
	"log/slog"
	"os"
	"strings"

	"github.com/agenthands/genecompare/internal/config"
	"github.com/agenthands/genecompare/internal/core"
	"github.com/agenthands/genecompare/internal/rest"
	"github.com/agenthands/genecompare/internal/source"
	"github.com/agenthands/genecompare/internal/source/ensembl"
	"github.com/agenthands/genecompare/internal/source/ncbi"
	"github.com/agenthands/genecompare/internal/source/uniprot"
	"github.com/agenthands/genecompare/internal/version"
)

// NewAggregator builds one rest.Client per enabled source, all sharing the
// configured retry policy and timeout.
func NewAggregator(cfg *config.Config, logger *slog.Logger) *core.Aggregator {
	if logger == nil {
		logger = slog.Default()
	}

	sources := core.Sources{
		Primary: ensembl.New(newRestClient(cfg, source.Ensembl, cfg.Ensembl, logger)),
	}
	if cfg.UniProt.Enabled {
		sources.Secondary = uniprot.New(newRestClient(cfg, source.UniProt, cfg.UniProt, logger))
	}
	if cfg.NCBI.Enabled {
		rc := newRestClient(cfg, source.NCBI, cfg.NCBI, logger,
			rest.WithQueryParam("api_key", cfg.NCBI.APIKey),
			rest.WithQueryParam("tool", "genecompare"),
		)
		sources.Tertiary = ncbi.New(rc)
	}

	return core.NewAggregator(sources,
		core.WithLogger(logger),
		core.WithBatchLimits(cfg.Limits.MaxIDs, cfg.Limits.BatchConcurrency),
		core.WithGroupMinShared(cfg.Limits.GroupMinShared),
		core.WithVersion(version.Version),
	)
}

func newRestClient(cfg *config.Config, name string, sc config.SourceConfig, logger *slog.Logger, extra ...rest.ClientOption) *rest.Client {
	opts := []rest.ClientOption{
		rest.WithTimeout(cfg.HTTP.Timeout.Duration),
		rest.WithPolicy(cfg.Policy()),
		rest.WithRateLimit(sc.RequestsPerSecond),
		rest.WithUserAgent(cfg.HTTP.UserAgent + "/" + version.Version),
		rest.WithLogger(logger),
	}
	opts = append(opts, extra...)
	return rest.NewClient(name, strings.TrimRight(sc.BaseURL, "/"), opts...)
}

// NewLogger returns a text slog logger at the configured level.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
