// Package ensembl fetches gene records and GO cross-references from the
// Ensembl REST API (https://rest.ensembl.org).
package ensembl

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/agenthands/genecompare/internal/core/model"
	"github.com/agenthands/genecompare/internal/rest"
	"github.com/agenthands/genecompare/internal/source"
)

const DefaultBaseURL = "https://rest.ensembl.org"

type Client struct {
	rest *rest.Client
}

func New(rc *rest.Client) *Client {
	return &Client{rest: rc}
}

type lookupResponse struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	ExternalName string `json:"external_name"`
	Description  string `json:"description"`
	Species      string `json:"species"`
}

// FetchGene implements source.GeneFetcher.
func (c *Client) FetchGene(ctx context.Context, id string) (*model.PrimaryData, error) {
	var lookup lookupResponse
	err := c.rest.GetJSON(ctx, "/lookup/id/"+url.PathEscape(id), nil, &lookup)
	if err != nil {
		// Ensembl answers unknown ids with 400 "ID not found" rather than 404.
		switch rest.StatusCode(err) {
		case http.StatusNotFound, http.StatusBadRequest:
			return nil, fmt.Errorf("ensembl lookup %s: %w", id, source.ErrNotFound)
		}
		return nil, fmt.Errorf("ensembl lookup %s: %w", id, err)
	}

	terms, err := c.goTerms(ctx, id)
	if err != nil {
		return nil, err
	}

	symbol := lookup.DisplayName
	if symbol == "" {
		symbol = lookup.ExternalName
	}

	return &model.PrimaryData{
		ID:          id,
		Symbol:      symbol,
		Description: cleanDescription(lookup.Description),
		Organism:    organism(lookup.Species),
		GoTerms:     terms,
	}, nil
}

func (c *Client) goTerms(ctx context.Context, id string) ([]model.GoAnnotation, error) {
	query := url.Values{
		"all_levels":  {"1"},
		"external_db": {"GO"},
	}
	body, err := c.rest.Get(ctx, "/xrefs/id/"+url.PathEscape(id), query)
	if err != nil {
		if rest.StatusCode(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("ensembl xrefs %s: %w", id, err)
	}
	return parseXrefs(body), nil
}

// parseXrefs keeps the GO entries of an xrefs/id response, in response order.
func parseXrefs(body []byte) []model.GoAnnotation {
	var terms []model.GoAnnotation
	gjson.ParseBytes(body).ForEach(func(_, it gjson.Result) bool {
		dbname := strings.ToUpper(it.Get("dbname").String())
		display := strings.ToUpper(it.Get("db_display_name").String())
		if !strings.Contains(dbname, "GO") && !strings.Contains(display, "GO") {
			return true
		}

		goID := firstNonEmpty(it, "primary_id", "id", "display_id")
		goID = strings.ToUpper(strings.TrimSpace(goID))
		if !strings.HasPrefix(goID, "GO:") {
			return true
		}

		term := it.Get("description").String()
		if term == "" && !strings.EqualFold(it.Get("display_id").String(), goID) {
			term = it.Get("display_id").String()
		}
		terms = append(terms, model.GoAnnotation{ID: goID, Term: term})
		return true
	})
	return terms
}

func firstNonEmpty(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p).String(); v != "" {
			return v
		}
	}
	return ""
}

var sourceTag = regexp.MustCompile(`\s*\[Source:[^\]]*\]\s*$`)

// cleanDescription drops the "[Source:HGNC Symbol;Acc:...]" provenance tag.
func cleanDescription(d string) string {
	return strings.TrimSpace(sourceTag.ReplaceAllString(d, ""))
}

// organism turns "homo_sapiens" into "Homo sapiens".
func organism(species string) string {
	s := strings.ReplaceAll(strings.TrimSpace(species), "_", " ")
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
