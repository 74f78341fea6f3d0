// Package fake provides an in-memory, fault-injecting source that satisfies
// every capability in package source. It stands in for the remote services
// in tests.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/agenthands/genecompare/internal/core/model"
	"github.com/agenthands/genecompare/internal/source"
)

type Op string

const (
	OpFetchGene        Op = "fetch_gene"
	OpResolve          Op = "resolve"
	OpFetchAnnotations Op = "fetch_annotations"
)

type key struct {
	op Op
	id string
}

// Source is safe for concurrent use.
type Source struct {
	mu          sync.Mutex
	genes       map[string]model.PrimaryData
	xrefs       map[string]string
	annotations map[string]model.SecondaryData
	failures    map[key][]error
	calls       map[key]int
}

func New() *Source {
	return &Source{
		genes:       make(map[string]model.PrimaryData),
		xrefs:       make(map[string]string),
		annotations: make(map[string]model.SecondaryData),
		failures:    make(map[key][]error),
		calls:       make(map[key]int),
	}
}

func (s *Source) AddGene(g model.PrimaryData) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.genes[g.ID] = g
	return s
}

func (s *Source) AddXref(ensemblID, xref string) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.xrefs[ensemblID] = xref
	return s
}

func (s *Source) AddAnnotations(d model.SecondaryData) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.annotations[d.Accession] = d
	return s
}

// FailWith queues errors for the next calls of op on id. Once the queue is
// drained, calls behave normally again. A nil entry lets that call succeed.
func (s *Source) FailWith(op Op, id string, errs ...error) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{op, id}
	s.failures[k] = append(s.failures[k], errs...)
	return s
}

// Calls reports how many times op was invoked for id.
func (s *Source) Calls(op Op, id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key{op, id}]
}

func (s *Source) begin(ctx context.Context, op Op, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{op, id}
	s.calls[k]++
	if q := s.failures[k]; len(q) > 0 {
		s.failures[k] = q[1:]
		return q[0]
	}
	return nil
}

func (s *Source) FetchGene(ctx context.Context, id string) (*model.PrimaryData, error) {
	if err := s.begin(ctx, OpFetchGene, id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.genes[id]
	if !ok {
		return nil, fmt.Errorf("fake gene %s: %w", id, source.ErrNotFound)
	}
	g.GoTerms = append([]model.GoAnnotation(nil), g.GoTerms...)
	return &g, nil
}

func (s *Source) ResolveCrossReference(ctx context.Context, ensemblID string) (string, error) {
	if err := s.begin(ctx, OpResolve, ensemblID); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.xrefs[ensemblID], nil
}

func (s *Source) FetchAnnotations(ctx context.Context, id string) (*model.SecondaryData, error) {
	if err := s.begin(ctx, OpFetchAnnotations, id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.annotations[id]
	if !ok {
		return nil, fmt.Errorf("fake annotations %s: %w", id, source.ErrNotFound)
	}
	d.GoTerms = append([]model.GoAnnotation(nil), d.GoTerms...)
	return &d, nil
}

var (
	_ source.GeneFetcher      = (*Source)(nil)
	_ source.AnnotationSource = (*Source)(nil)
)
