// Package uniprot resolves Ensembl genes to UniProtKB accessions and reads
// their GO cross-references (https://rest.uniprot.org).
package uniprot

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/agenthands/genecompare/internal/core/model"
	"github.com/agenthands/genecompare/internal/rest"
	"github.com/agenthands/genecompare/internal/source"
)

const DefaultBaseURL = "https://rest.uniprot.org"

type Client struct {
	rest *rest.Client
}

func New(rc *rest.Client) *Client {
	return &Client{rest: rc}
}

// searchQueries lists the UniProt query forms tried in order; the index is
// not consistent about which one matches a given Ensembl gene.
func searchQueries(ensemblID string) []string {
	return []string{
		fmt.Sprintf("database:ensembl AND %s", ensemblID),
		fmt.Sprintf("xref:ensembl-%s", ensemblID),
		fmt.Sprintf("gene:%s", ensemblID),
	}
}

// ResolveCrossReference implements source.CrossReferenceResolver. It returns
// the first accession any query form yields. An error is only returned when
// no form produced an answer and at least one of them failed.
func (c *Client) ResolveCrossReference(ctx context.Context, ensemblID string) (string, error) {
	id := source.StripVersion(ensemblID)

	var lastErr error
	for _, q := range searchQueries(id) {
		query := url.Values{
			"query":  {q},
			"format": {"json"},
			"size":   {"1"},
			"fields": {"accession"},
		}
		body, err := c.rest.Get(ctx, "/uniprotkb/search", query)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			continue
		}
		if acc := gjson.GetBytes(body, "results.0.primaryAccession").String(); acc != "" {
			return acc, nil
		}
	}

	if lastErr != nil {
		return "", fmt.Errorf("uniprot search %s: %w", id, lastErr)
	}
	return "", nil
}

// FetchAnnotations implements source.AnnotationFetcher.
func (c *Client) FetchAnnotations(ctx context.Context, accession string) (*model.SecondaryData, error) {
	query := url.Values{
		"format": {"json"},
		"fields": {"gene_names,go"},
	}
	body, err := c.rest.Get(ctx, "/uniprotkb/"+url.PathEscape(accession), query)
	if err != nil {
		return nil, fmt.Errorf("uniprot entry %s: %w", accession, err)
	}

	doc := gjson.ParseBytes(body)
	return &model.SecondaryData{
		Accession: accession,
		Symbol:    doc.Get("genes.0.geneName.value").String(),
		GoTerms:   parseGoCrossReferences(doc),
	}, nil
}

// aspectPrefix matches the "C:", "F:" or "P:" ontology prefix UniProt puts on
// GoTerm values.
var aspectPrefix = regexp.MustCompile(`^[CFP]:`)

func parseGoCrossReferences(doc gjson.Result) []model.GoAnnotation {
	var terms []model.GoAnnotation
	for _, xref := range doc.Get(`uniProtKBCrossReferences.#(database=="GO")#`).Array() {
		id := strings.ToUpper(strings.TrimSpace(xref.Get("id").String()))
		if !strings.HasPrefix(id, "GO:") {
			continue
		}
		term := xref.Get(`properties.#(key=="GoTerm").value`).String()
		terms = append(terms, model.GoAnnotation{
			ID:   id,
			Term: aspectPrefix.ReplaceAllString(term, ""),
		})
	}
	return terms
}
