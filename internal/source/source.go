// Package source defines the capabilities the aggregator needs from the
// remote annotation services. Each service lives in its own subpackage.
package source

import (
	"context"
	"errors"
	"regexp"

	"github.com/agenthands/genecompare/internal/core/model"
)

const (
	Ensembl = "ensembl"
	UniProt = "uniprot"
	NCBI    = "ncbi"
)

// ErrNotFound is returned when a source has no record for an identifier.
var ErrNotFound = errors.New("not found")

// GeneFetcher looks up primary gene data by identifier.
type GeneFetcher interface {
	FetchGene(ctx context.Context, id string) (*model.PrimaryData, error)
}

// CrossReferenceResolver maps an Ensembl identifier to the source's own
// identifier. An empty string with a nil error means no mapping exists.
type CrossReferenceResolver interface {
	ResolveCrossReference(ctx context.Context, ensemblID string) (string, error)
}

// AnnotationFetcher returns supplemental annotations for a source identifier.
type AnnotationFetcher interface {
	FetchAnnotations(ctx context.Context, id string) (*model.SecondaryData, error)
}

// AnnotationSource resolves and then fetches, which is what a secondary
// source provides.
type AnnotationSource interface {
	CrossReferenceResolver
	AnnotationFetcher
}

var versionSuffix = regexp.MustCompile(`\.\d+$`)

// StripVersion drops a trailing ".N" version from a stable identifier, as
// cross-reference indexes store unversioned ids.
func StripVersion(id string) string {
	return versionSuffix.ReplaceAllString(id, "")
}
