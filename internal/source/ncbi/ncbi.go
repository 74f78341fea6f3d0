// Package ncbi confirms gene identity through the NCBI Gene index using the
// E-utilities API (https://eutils.ncbi.nlm.nih.gov/entrez/eutils).
package ncbi

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/agenthands/genecompare/internal/rest"
	"github.com/agenthands/genecompare/internal/source"
)

const DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

type Client struct {
	rest *rest.Client
}

func New(rc *rest.Client) *Client {
	return &Client{rest: rc}
}

// ResolveCrossReference implements source.CrossReferenceResolver and returns
// the NCBI Gene id linked to an Ensembl gene.
func (c *Client) ResolveCrossReference(ctx context.Context, ensemblID string) (string, error) {
	id := source.StripVersion(ensemblID)
	query := url.Values{
		"db":      {"gene"},
		"term":    {id + "[Ensembl]"},
		"retmode": {"json"},
		"retmax":  {"1"},
	}

	body, err := c.rest.Get(ctx, "/esearch.fcgi", query)
	if err != nil {
		return "", fmt.Errorf("ncbi esearch %s: %w", id, err)
	}

	// E-utilities reports query errors inside a 200 response.
	result := gjson.GetBytes(body, "esearchresult")
	if msg := result.Get("ERROR").String(); msg != "" {
		return "", fmt.Errorf("ncbi esearch %s: %s", id, msg)
	}
	return result.Get("idlist.0").String(), nil
}
