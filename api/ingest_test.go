package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semcat/export"
	"github.com/c360studio/semcat/mapping"
	"github.com/c360studio/semcat/metric"
	"github.com/c360studio/semcat/pipeline"
	"github.com/c360studio/semcat/query"
	"github.com/c360studio/semcat/resolver"
	"github.com/c360studio/semcat/source"
	"github.com/c360studio/semcat/storage"
	"github.com/c360studio/semcat/vocabulary/catalog"
)

type staticExtractor map[source.FileRef]source.Record

func (e staticExtractor) Extract(_ context.Context, ref source.FileRef) (source.Record, error) {
	return e[ref], nil
}

func ctFile(ref string, size int64) source.Record {
	return source.NewRecord(source.FileRef(ref), map[source.Key]source.Value{
		source.KeyPatientID:         source.StringValue("P1"),
		source.KeyStudyInstanceUID:  source.StringValue("S1"),
		source.KeySeriesInstanceUID: source.StringValue("SE1"),
		source.KeySOPInstanceUID:    source.StringValue(ref + ".sop"),
		source.KeyModality:          source.StringValue("CT"),
		source.KeyFileSize:          source.IntValue(size),
	})
}

// Ingested records flow through the pipeline, the store and every HTTP
// surface without being counted twice.
func TestServer_IngestedSeriesEndToEnd(t *testing.T) {
	ext := staticExtractor{
		"/data/a.dcm": ctFile("/data/a.dcm", 1024),
		"/data/b.dcm": ctFile("/data/b.dcm", 2048),
	}
	reg := prometheus.NewRegistry()
	m := metric.New(reg)
	store := storage.NewStore(nil, nil)
	res := resolver.New(resolver.Config{BaseIRI: ex})
	mapper, err := mapping.ForVersion("2024.1")
	require.NoError(t, err)

	report, err := pipeline.New(ext, res, mapper, store, pipeline.WithMetrics(m)).
		Ingest(context.Background(), []source.FileRef{"/data/a.dcm", "/data/b.dcm"})
	require.NoError(t, err)
	require.Len(t, report.Datasets, 1)
	require.Empty(t, report.Manifest)

	svc := query.NewService(store, query.Config{Timeout: time.Second, MaxLimit: 10}, m, nil)
	catalogs := pipeline.NewCatalogBuilder(mapper, res.CatalogID(), pipeline.CatalogInfo{})
	ts := httptest.NewServer(NewServer(svc, store, export.NewExporter(mapper.Version()), catalogs, reg, nil).Routes())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/datasets")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summaries := decode[[]storage.Summary](t, resp)
	require.Len(t, summaries, 1)
	assert.Equal(t, res.DatasetID("P1", "S1"), summaries[0].Identifier)
	assert.Equal(t, 1, summaries[0].DistributionCount)
	assert.Equal(t, []string{"CT"}, summaries[0].Modality)

	resp, err = http.Get(ts.URL + "/catalog?format=ntriples")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sizes []string
	for _, line := range strings.Split(readAll(t, resp), "\n") {
		if strings.Contains(line, "<"+catalog.PropByteSize+">") {
			sizes = append(sizes, line)
		}
	}
	require.Len(t, sizes, 1)
	assert.Contains(t, sizes[0], `"3072"`)
}
