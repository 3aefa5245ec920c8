// Package metric exposes Prometheus instruments for ingestion and queries.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
	OutcomeTimeout  = "timeout"
)

// Metrics holds catalog instruments. A nil *Metrics records nothing.
type Metrics struct {
	// Per-file extraction results by outcome
	FilesExtracted *prometheus.CounterVec

	// Dataset merges by outcome
	DatasetsMerged *prometheus.CounterVec

	// Time from lock acquisition to committed replace
	MergeLatency prometheus.Histogram

	// Query evaluation latency by kind and outcome
	QueryLatency *prometheus.HistogramVec

	// Datasets currently in the store
	Datasets prometheus.Gauge
}

// New registers every instrument on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		FilesExtracted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "semcat_files_extracted_total",
			Help: "Files processed by the attribute extractor by outcome",
		}, []string{"outcome"}),

		DatasetsMerged: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "semcat_datasets_merged_total",
			Help: "Dataset merges into the store by outcome",
		}, []string{"outcome"}),

		MergeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "semcat_merge_duration_seconds",
			Help:    "Duration of dataset assemble, validate and replace",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		QueryLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "semcat_query_duration_seconds",
			Help:    "Duration of catalog queries by kind and outcome",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"kind", "outcome"}), // kind: "pattern", "list"

		Datasets: factory.NewGauge(prometheus.GaugeOpts{
			Name: "semcat_datasets",
			Help: "Datasets currently held by the query store",
		}),
	}
}

// IncrementFiles records one extraction outcome.
func (m *Metrics) IncrementFiles(outcome string) {
	if m != nil {
		m.FilesExtracted.WithLabelValues(outcome).Inc()
	}
}

// IncrementMerged records one dataset merge outcome.
func (m *Metrics) IncrementMerged(outcome string) {
	if m != nil {
		m.DatasetsMerged.WithLabelValues(outcome).Inc()
	}
}

// ObserveMerge records the duration of a committed merge.
func (m *Metrics) ObserveMerge(d time.Duration) {
	if m != nil {
		m.MergeLatency.Observe(d.Seconds())
	}
}

// ObserveQuery records a query evaluation.
func (m *Metrics) ObserveQuery(kind, outcome string, d time.Duration) {
	if m != nil {
		m.QueryLatency.WithLabelValues(kind, outcome).Observe(d.Seconds())
	}
}

// SetDatasets records the current dataset count.
func (m *Metrics) SetDatasets(n int) {
	if m != nil {
		m.Datasets.Set(float64(n))
	}
}
