package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/c360studio/semcat/graph"
	"github.com/c360studio/semcat/metric"
	"github.com/c360studio/semcat/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	g         *graph.Graph
	summaries []storage.Summary
}

func (f *fakeCatalog) Snapshot() graph.View { return graph.View{f.g} }

func (f *fakeCatalog) ListDatasets(offset, limit int) []storage.Summary {
	if offset >= len(f.summaries) {
		return []storage.Summary{}
	}
	out := f.summaries[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out
}

func TestService_RunPattern(t *testing.T) {
	svc := NewService(&fakeCatalog{g: sampleGraph()}, Config{}, nil, nil)

	res, err := svc.RunPattern(context.Background(), `SELECT ?t WHERE { ?ds dct:title ?t }`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Brain MR", "Chest CT"}, column(res, "t"))

	res, err = svc.RunPattern(context.Background(), `SELECT ?t WHERE { ?ds dct:title "nothing" }`)
	require.NoError(t, err)
	assert.Empty(t, res.Bindings)

	_, err = svc.RunPattern(context.Background(), `SELECT WHERE`)
	var mqe *MalformedQueryError
	assert.True(t, errors.As(err, &mqe))
}

func TestService_RunPatternTimeout(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metric.New(reg)
	cat := &fakeCatalog{g: chain(3000)}
	before := cat.g.Statements()

	svc := NewService(cat, Config{Timeout: time.Millisecond}, m, nil)
	_, err := svc.RunPattern(context.Background(), `SELECT ?s ?o WHERE { ?s <http://example.org/next>* ?o }`)

	var qte *QueryTimeoutError
	require.True(t, errors.As(err, &qte), "got %v", err)
	assert.Equal(t, time.Millisecond, qte.Timeout)
	assert.ErrorIs(t, err, ErrQuery)
	assert.Equal(t, before, cat.g.Statements())
	assert.Equal(t, 1, testutil.CollectAndCount(m.QueryLatency))
}

func TestService_ListDatasets(t *testing.T) {
	cat := &fakeCatalog{summaries: []storage.Summary{
		{Identifier: "a"}, {Identifier: "b"}, {Identifier: "c"},
	}}
	svc := NewService(cat, Config{MaxLimit: 2}, nil, nil)

	got, err := svc.ListDatasets(context.Background(), Page{Offset: 0, Limit: 50})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = svc.ListDatasets(context.Background(), Page{Offset: 2, Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].Identifier)

	got, err = svc.ListDatasets(context.Background(), Page{Offset: 9, Limit: 1})
	require.NoError(t, err)
	assert.Empty(t, got)

	tests := []Page{{Offset: -1, Limit: 1}, {Offset: 0, Limit: 0}}
	for _, page := range tests {
		_, err := svc.ListDatasets(context.Background(), page)
		var ipe *InvalidPageError
		assert.True(t, errors.As(err, &ipe))
	}
}
