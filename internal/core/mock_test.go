package core

import (
	"context"
	"io"
	"log/slog"

	"github.com/agenthands/genecompare/internal/core/model"
	"github.com/agenthands/genecompare/internal/source"
)

// BlockingFetcher never answers until its context is done.
type BlockingFetcher struct {
	Started chan string
}

func (m *BlockingFetcher) FetchGene(ctx context.Context, id string) (*model.PrimaryData, error) {
	if m.Started != nil {
		m.Started <- id
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

// RoutingFetcher sends each id to its own fetcher.
type RoutingFetcher struct {
	Routes map[string]source.GeneFetcher
}

func (m *RoutingFetcher) FetchGene(ctx context.Context, id string) (*model.PrimaryData, error) {
	return m.Routes[id].FetchGene(ctx, id)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
