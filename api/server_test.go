package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semcat/export"
	"github.com/c360studio/semcat/graph"
	"github.com/c360studio/semcat/mapping"
	"github.com/c360studio/semcat/metric"
	"github.com/c360studio/semcat/pipeline"
	"github.com/c360studio/semcat/query"
	"github.com/c360studio/semcat/storage"
	"github.com/c360studio/semcat/vocabulary/catalog"
)

const ex = "http://example.org/"

func commit(t *testing.T, store *storage.Store, id string, stmts []graph.Statement) {
	t.Helper()
	token, err := store.Locks().Acquire(context.Background(), id)
	require.NoError(t, err)
	defer token.Release()
	require.NoError(t, store.Replace(context.Background(), token, id, storage.Commit{Graph: graph.New(stmts)}))
}

func dataset(id, title string) []graph.Statement {
	dist := id + "/d1"
	return []graph.Statement{
		{Subject: id, Predicate: catalog.RDFType, Object: graph.IRI(catalog.ClassDataset)},
		{Subject: id, Predicate: catalog.PropTitle, Object: graph.String(title)},
		{Subject: id, Predicate: catalog.PropDistribution, Object: graph.Ref(dist)},
		{Subject: dist, Predicate: catalog.RDFType, Object: graph.IRI(catalog.ClassDistribution)},
		{Subject: dist, Predicate: catalog.PropByteSize, Object: graph.Integer(512)},
	}
}

func newTestServer(t *testing.T, timeout time.Duration) (*httptest.Server, *storage.Store) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metric.New(reg)
	store := storage.NewStore(nil, nil)
	commit(t, store, ex+"ds1", dataset(ex+"ds1", "Chest CT"))
	commit(t, store, ex+"ds2", dataset(ex+"ds2", "Brain MR"))

	svc := query.NewService(store, query.Config{Timeout: timeout, MaxLimit: 10}, m, nil)
	mapper, err := mapping.ForVersion("2024.1")
	require.NoError(t, err)
	catalogs := pipeline.NewCatalogBuilder(mapper, ex+"catalog", pipeline.CatalogInfo{Title: "Test Catalog"})
	srv := NewServer(svc, store, export.NewExporter("2024.1"), catalogs, reg, nil)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts, store
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_Health(t *testing.T) {
	ts, _ := newTestServer(t, time.Second)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	health := decode[HealthResponse](t, resp)
	assert.Equal(t, storage.StateLoaded, health.State)
	assert.Equal(t, 2, health.Datasets)
}

func TestServer_ListDatasets(t *testing.T) {
	ts, _ := newTestServer(t, time.Second)

	tests := []struct {
		name   string
		query  string
		status int
		ids    []string
	}{
		{"default page", "", http.StatusOK, []string{ex + "ds1", ex + "ds2"}},
		{"offset", "?offset=1&limit=5", http.StatusOK, []string{ex + "ds2"}},
		{"clamped limit", "?limit=1000", http.StatusOK, []string{ex + "ds1", ex + "ds2"}},
		{"past end", "?offset=7", http.StatusOK, []string{}},
		{"zero limit", "?limit=0", http.StatusBadRequest, nil},
		{"negative offset", "?offset=-1", http.StatusBadRequest, nil},
		{"non-integer", "?limit=ten", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/datasets" + tt.query)
			require.NoError(t, err)
			require.Equal(t, tt.status, resp.StatusCode)
			if tt.status != http.StatusOK {
				body := decode[ErrorResponse](t, resp)
				assert.NotEmpty(t, body.Error)
				return
			}
			summaries := decode[[]storage.Summary](t, resp)
			ids := make([]string, 0, len(summaries))
			for _, s := range summaries {
				ids = append(ids, s.Identifier)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestServer_SPARQL(t *testing.T) {
	ts, _ := newTestServer(t, time.Second)
	q := `SELECT ?ds ?size WHERE { ?ds dcat:distribution ?d . ?d dcat:byteSize ?size } ORDER BY ?ds`

	resp, err := http.Post(ts.URL+"/sparql", "application/sparql-query", strings.NewReader(q))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/sparql-results+json", resp.Header.Get("Content-Type"))

	res := decode[Results](t, resp)
	assert.Equal(t, []string{"ds", "size"}, res.Head.Vars)
	require.Len(t, res.Results.Bindings, 2)
	assert.Equal(t, RDFTerm{Type: "uri", Value: ex + "ds1"}, res.Results.Bindings[0]["ds"])
	assert.Equal(t, RDFTerm{Type: "literal", Value: "512", Datatype: catalog.XSDInteger}, res.Results.Bindings[0]["size"])

	form := url.Values{"query": {`SELECT ?t WHERE { ?ds dct:title ?t }`}}
	resp, err = http.PostForm(ts.URL+"/sparql", form)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res = decode[Results](t, resp)
	assert.Equal(t, RDFTerm{Type: "literal", Value: "Brain MR"}, res.Results.Bindings[0]["t"])

	resp, err = http.Get(ts.URL + "/sparql?query=" + url.QueryEscape(`SELECT ?t WHERE { ?ds dct:title "none" }`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res = decode[Results](t, resp)
	assert.Empty(t, res.Results.Bindings)
}

func TestServer_SPARQLErrors(t *testing.T) {
	ts, _ := newTestServer(t, time.Second)

	resp, err := http.Post(ts.URL+"/sparql", "application/sparql-query", strings.NewReader("SELECT nonsense {"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[ErrorResponse](t, resp)
	assert.Contains(t, body.Error, "malformed query")

	resp, err = http.Post(ts.URL+"/sparql", "application/sparql-query", strings.NewReader("  "))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestServer_SPARQLTimeout(t *testing.T) {
	ts, store := newTestServer(t, time.Millisecond)

	var stmts []graph.Statement
	for i := 0; i < 3000; i++ {
		stmts = append(stmts, graph.Statement{
			Subject:   fmt.Sprintf("%schain/n%05d", ex, i),
			Predicate: ex + "next",
			Object:    graph.IRI(fmt.Sprintf("%schain/n%05d", ex, i+1)),
		})
	}
	commit(t, store, ex+"chain", stmts)
	before := store.Snapshot().Graph().Statements()

	q := `SELECT ?s ?o WHERE { ?s <http://example.org/next>* ?o }`
	resp, err := http.Post(ts.URL+"/sparql", "application/sparql-query", strings.NewReader(q))
	require.NoError(t, err)
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	_ = resp.Body.Close()

	assert.Equal(t, before, store.Snapshot().Graph().Statements())
}

func TestServer_Catalog(t *testing.T) {
	ts, _ := newTestServer(t, time.Second)

	resp, err := http.Get(ts.URL + "/catalog")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/n-triples", resp.Header.Get("Content-Type"))
	body := readAll(t, resp)
	assert.True(t, strings.HasPrefix(body, "# "+export.VersionHeader+"2024.1"))
	assert.Contains(t, body, "<"+ex+"ds1>")
	assert.Contains(t, body, "<"+ex+"catalog> <"+catalog.RDFType+"> <"+catalog.ClassCatalog+"> .")
	assert.Contains(t, body, "<"+ex+"catalog> <"+catalog.PropDataset+"> <"+ex+"ds1> .")
	assert.Contains(t, body, "<"+ex+"catalog> <"+catalog.PropDataset+"> <"+ex+"ds2> .")
	assert.Contains(t, body, "<"+ex+"catalog> <"+catalog.PropLicense+"> <"+mapping.DefaultLicense+"> .")

	resp, err = http.Get(ts.URL + "/catalog?format=turtle")
	require.NoError(t, err)
	assert.Equal(t, "text/turtle", resp.Header.Get("Content-Type"))
	_ = resp.Body.Close()

	resp, err = http.Get(ts.URL + "/catalog?format=rdfxml")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestServer_GetDataset(t *testing.T) {
	ts, _ := newTestServer(t, time.Second)

	for _, key := range []string{url.PathEscape(ex + "ds1"), "ds1"} {
		t.Run(key, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/datasets/" + key)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			detail := decode[DatasetDetail](t, resp)
			assert.Equal(t, ex+"ds1", detail.Identifier)
			assert.Equal(t, "Chest CT", detail.Title)
			assert.Equal(t, 1, detail.DistributionCount)
			assert.Equal(t, []RDFTerm{{Type: "literal", Value: "Chest CT"}}, detail.Properties[catalog.PropTitle])
			assert.Equal(t, []RDFTerm{{Type: "uri", Value: catalog.ClassDataset}}, detail.Properties[catalog.RDFType])

			require.Len(t, detail.Distributions, 1)
			dist := detail.Distributions[0]
			assert.Equal(t, ex+"ds1/d1", dist.Identifier)
			assert.Equal(t, []RDFTerm{{Type: "literal", Value: "512", Datatype: catalog.XSDInteger}}, dist.Properties[catalog.PropByteSize])
		})
	}

	resp, err := http.Get(ts.URL + "/datasets/unknown")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, "dataset not found", body.Error)
}

func TestServer_Metrics(t *testing.T) {
	ts, _ := newTestServer(t, time.Second)
	resp, err := http.Get(ts.URL + "/datasets")
	require.NoError(t, err)
	_ = resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readAll(t, resp), "semcat_query_duration_seconds")
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var sb strings.Builder
	_, err := io.Copy(&sb, resp.Body)
	require.NoError(t, err)
	return sb.String()
}
