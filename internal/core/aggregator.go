package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agenthands/genecompare/internal/core/community"
	"github.com/agenthands/genecompare/internal/core/dedupe"
	"github.com/agenthands/genecompare/internal/core/model"
	"github.com/agenthands/genecompare/internal/requestctx"
	"github.com/agenthands/genecompare/internal/source"
)

// Sources is the set of collaborators the Aggregator draws from. Secondary
// and Tertiary are optional; a nil value skips that step.
type Sources struct {
	Primary   source.GeneFetcher
	Secondary source.AnnotationSource
	Tertiary  source.CrossReferenceResolver

	// Names used in logs and errors.
	PrimaryName   string
	SecondaryName string
	TertiaryName  string
}

// Aggregator builds merged gene records from the configured sources. It holds
// no per-request state and is safe for concurrent use.
type Aggregator struct {
	sources          Sources
	logger           *slog.Logger
	maxIDs           int
	batchConcurrency int
	groups           *community.Detector
	version          string
	now              func() time.Time
}

type Option func(*Aggregator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithBatchLimits bounds Annotate: at most maxIDs identifiers per call, with
// at most concurrency pipelines in flight.
func WithBatchLimits(maxIDs, concurrency int) Option {
	return func(a *Aggregator) {
		if maxIDs > 0 {
			a.maxIDs = maxIDs
		}
		if concurrency > 0 {
			a.batchConcurrency = concurrency
		}
	}
}

// WithGroupMinShared sets how many GO ids two genes must share before
// Annotate places them in the same group.
func WithGroupMinShared(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.groups.MinShared = n
		}
	}
}

func WithVersion(v string) Option {
	return func(a *Aggregator) {
		a.version = v
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

func NewAggregator(sources Sources, opts ...Option) *Aggregator {
	if sources.PrimaryName == "" {
		sources.PrimaryName = source.Ensembl
	}
	if sources.SecondaryName == "" {
		sources.SecondaryName = source.UniProt
	}
	if sources.TertiaryName == "" {
		sources.TertiaryName = source.NCBI
	}

	a := &Aggregator{
		sources:          sources,
		logger:           slog.Default(),
		maxIDs:           200,
		batchConcurrency: 4,
		groups:           community.NewDetector(),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) MaxIDs() int { return a.maxIDs }

// Compare builds one record per identifier. The two pipelines run
// concurrently; a primary failure on either side fails the comparison and
// cancels the other.
func (a *Aggregator) Compare(ctx context.Context, idA, idB string) (*model.ComparisonResult, error) {
	idA, idB = strings.TrimSpace(idA), strings.TrimSpace(idB)
	if err := ValidateID(idA); err != nil {
		return nil, fmt.Errorf("idA: %w", err)
	}
	if err := ValidateID(idB); err != nil {
		return nil, fmt.Errorf("idB: %w", err)
	}

	var result model.ComparisonResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec, _, err := a.buildRecord(gctx, idA)
		result.RecordA = rec
		return err
	})
	g.Go(func() error {
		rec, _, err := a.buildRecord(gctx, idB)
		result.RecordB = rec
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &result, nil
}

// Annotate runs the per-identifier pipeline over a list. Unlike Compare, a
// primary failure for one identifier is reported in the result instead of
// failing the whole call.
func (a *Aggregator) Annotate(ctx context.Context, ids []string) (*model.AnnotationReport, error) {
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			cleaned = append(cleaned, id)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("%w: no identifiers provided", ErrValidation)
	}
	if len(cleaned) > a.maxIDs {
		return nil, fmt.Errorf("%w: too many identifiers (%d, limit %d)", ErrValidation, len(cleaned), a.maxIDs)
	}
	for _, id := range cleaned {
		if err := ValidateID(id); err != nil {
			return nil, err
		}
	}

	records := make([]*model.GeneRecord, len(cleaned))
	provs := make([]provenance, len(cleaned))
	errs := make([]error, len(cleaned))

	var g errgroup.Group
	g.SetLimit(a.batchConcurrency)
	for i, id := range cleaned {
		i, id := i, id
		g.Go(func() error {
			rec, prov, err := a.buildRecord(ctx, id)
			if err != nil {
				errs[i] = err
				return nil
			}
			records[i] = &rec
			provs[i] = prov
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	report := &model.AnnotationReport{
		Annotations: make([]model.GeneRecord, 0, len(cleaned)),
		Meta: model.ReportMeta{
			RequestID:      requestctx.RequestIDFromContext(ctx),
			Version:        a.version,
			CountInput:     len(ids),
			CountProcessed: len(cleaned),
			Timestamp:      a.now().UTC(),
			UniProt:        model.EnrichmentStats{Enabled: a.sources.Secondary != nil},
			NCBI:           model.EnrichmentStats{Enabled: a.sources.Tertiary != nil},
		},
	}

	var symbols, goIDs []string
	for i, rec := range records {
		if rec == nil {
			report.Failures = append(report.Failures, model.AnnotationFailure{
				InputID: cleaned[i],
				Kind:    Kind(errs[i]),
				Message: errs[i].Error(),
			})
			continue
		}
		report.Annotations = append(report.Annotations, *rec)
		provs[i].count(&report.Meta)
		symbols = append(symbols, rec.Symbol)
		goIDs = append(goIDs, rec.GoIDs()...)
	}
	report.GeneSymbols = dedupe.SortedUnique(symbols)
	report.GoIDs = dedupe.SortedUnique(goIDs)
	report.Groups = a.groups.Detect(report.Annotations)

	return report, nil
}

// provenance records what the supplementary sources added to one record.
type provenance struct {
	secondaryUsed    bool
	secondarySymbol  bool
	secondaryGoTerms bool
	tertiaryUsed     bool
}

func (p provenance) count(meta *model.ReportMeta) {
	if p.secondaryUsed {
		meta.UniProt.UsedCount++
	}
	if p.secondarySymbol {
		meta.UniProt.SymbolsAdded++
	}
	if p.secondaryGoTerms {
		meta.UniProt.GoTermsAdded++
	}
	if p.tertiaryUsed {
		meta.NCBI.UsedCount++
	}
}

// buildRecord runs fetch primary -> resolve secondary -> fetch secondary
// annotations -> resolve tertiary -> merge for a single identifier.
func (a *Aggregator) buildRecord(ctx context.Context, id string) (model.GeneRecord, provenance, error) {
	var prov provenance

	primary, err := a.fetchPrimary(ctx, id)
	if err != nil {
		return model.GeneRecord{}, prov, err
	}

	rec := model.GeneRecord{
		InputID:     id,
		Symbol:      primary.Symbol,
		Description: primary.Description,
		Organism:    primary.Organism,
	}

	var supplemental []model.GoAnnotation
	if acc := a.resolveSecondary(ctx, id); acc != "" {
		rec.SecondaryID = acc
		prov.secondaryUsed = true
		if data := a.fetchSecondaryAnnotations(ctx, acc); data != nil {
			supplemental = data.GoTerms
			if rec.Symbol == "" && data.Symbol != "" {
				rec.Symbol = data.Symbol
				prov.secondarySymbol = true
			}
		}
	}

	rec.TertiaryID = a.resolveTertiary(ctx, id)
	prov.tertiaryUsed = rec.TertiaryID != ""

	rec.GoTerms = dedupe.Merge(primary.GoTerms, supplemental)
	prov.secondaryGoTerms = len(rec.GoTerms) > len(dedupe.Merge(primary.GoTerms))

	return rec, prov, nil
}

func (a *Aggregator) fetchPrimary(ctx context.Context, id string) (*model.PrimaryData, error) {
	data, err := a.sources.Primary.FetchGene(ctx, id)
	if err != nil {
		kind := ErrUpstream
		if errors.Is(err, source.ErrNotFound) {
			kind = ErrNotFound
		}
		return nil, &SourceError{Source: a.sources.PrimaryName, ID: id, Kind: kind, Err: err}
	}
	return data, nil
}

func (a *Aggregator) resolveSecondary(ctx context.Context, id string) string {
	if a.sources.Secondary == nil {
		return ""
	}
	acc, err := a.sources.Secondary.ResolveCrossReference(ctx, id)
	if err != nil {
		a.degraded(ctx, a.sources.SecondaryName, "resolve", id, err)
		return ""
	}
	return acc
}

func (a *Aggregator) fetchSecondaryAnnotations(ctx context.Context, acc string) *model.SecondaryData {
	data, err := a.sources.Secondary.FetchAnnotations(ctx, acc)
	if err != nil {
		a.degraded(ctx, a.sources.SecondaryName, "fetch annotations", acc, err)
		return nil
	}
	return data
}

func (a *Aggregator) resolveTertiary(ctx context.Context, id string) string {
	if a.sources.Tertiary == nil {
		return ""
	}
	xref, err := a.sources.Tertiary.ResolveCrossReference(ctx, id)
	if err != nil {
		a.degraded(ctx, a.sources.TertiaryName, "resolve", id, err)
		return ""
	}
	return xref
}

// degraded logs a non-fatal source failure; the record is returned without
// the data that source would have contributed.
func (a *Aggregator) degraded(ctx context.Context, src, op, id string, err error) {
	a.logger.WarnContext(ctx, "source degraded",
		"source", src,
		"op", op,
		"id", id,
		"request_id", requestctx.RequestIDFromContext(ctx),
		"error", err,
	)
}
