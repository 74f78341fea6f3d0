package ncbi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/genecompare/internal/rest"
	"github.com/agenthands/genecompare/internal/source"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...rest.ClientOption) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	opts = append([]rest.ClientOption{
		rest.WithPolicy(rest.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond}),
	}, opts...)
	return New(rest.NewClient(source.NCBI, server.URL, opts...))
}

func TestResolveCrossReference(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/esearch.fcgi", r.URL.Path)
		assert.Equal(t, "gene", r.URL.Query().Get("db"))
		assert.Equal(t, "ENSG00000141510[Ensembl]", r.URL.Query().Get("term"))
		assert.Equal(t, "key-123", r.URL.Query().Get("api_key"))
		w.Write([]byte(`{"header":{"type":"esearch"},"esearchresult":{"count":"1","idlist":["7157"]}}`))
	}, rest.WithQueryParam("api_key", "key-123"))

	id, err := c.ResolveCrossReference(context.Background(), "ENSG00000141510.18")

	require.NoError(t, err)
	assert.Equal(t, "7157", id)
}

func TestResolveCrossReference_NoMatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"esearchresult":{"count":"0","idlist":[]}}`))
	})

	id, err := c.ResolveCrossReference(context.Background(), "ENSG00000000000")

	assert.NoError(t, err)
	assert.Empty(t, id)
}

func TestResolveCrossReference_EmbeddedError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"esearchresult":{"ERROR":"Invalid query"}}`))
	})

	_, err := c.ResolveCrossReference(context.Background(), "ENSG00000141510")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid query")
}

func TestResolveCrossReference_Upstream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.ResolveCrossReference(context.Background(), "ENSG00000141510")

	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, rest.StatusCode(err))
}
