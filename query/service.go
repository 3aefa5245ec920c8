// Package query answers graph-pattern queries and catalog listings against
// committed store state.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/c360studio/semcat/graph"
	"github.com/c360studio/semcat/metric"
	"github.com/c360studio/semcat/storage"
)

// Defaults for Config.
const (
	DefaultTimeout  = 5 * time.Second
	DefaultMaxLimit = 100
)

// Catalog is the read side of the store.
type Catalog interface {
	Snapshot() graph.View
	ListDatasets(offset, limit int) []storage.Summary
}

// Config bounds query evaluation.
type Config struct {
	// Timeout bounds each pattern evaluation. Zero uses DefaultTimeout.
	Timeout time.Duration
	// MaxLimit caps the page size of listings. Zero uses DefaultMaxLimit.
	MaxLimit int
}

// Page selects a window of a listing.
type Page struct {
	Offset int
	Limit  int
}

// Service is the query service.
type Service struct {
	catalog Catalog
	cfg     Config
	metrics *metric.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

// NewService creates a query service over catalog.
func NewService(catalog Catalog, cfg Config, metrics *metric.Metrics, logger *slog.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = DefaultMaxLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		catalog: catalog,
		cfg:     cfg,
		metrics: metrics,
		tracer:  otel.Tracer("github.com/c360studio/semcat/query"),
		logger:  logger,
	}
}

// MaxLimit returns the effective page size cap.
func (s *Service) MaxLimit() int { return s.cfg.MaxLimit }

// RunPattern parses and evaluates a pattern query against a snapshot of
// committed state. Well-formed queries with no matches return an empty
// result.
func (s *Service) RunPattern(ctx context.Context, text string) (*Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "query.run_pattern")
	defer span.End()

	q, err := Parse(text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed query")
		s.metrics.ObserveQuery("pattern", metric.OutcomeRejected, time.Since(start))
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	res, err := Evaluate(ctx, s.catalog.Snapshot(), q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation failed")
		if errors.Is(err, context.DeadlineExceeded) {
			s.metrics.ObserveQuery("pattern", metric.OutcomeTimeout, time.Since(start))
			s.logger.Warn("Query timed out", "timeout", s.cfg.Timeout)
			return nil, &QueryTimeoutError{Timeout: s.cfg.Timeout}
		}
		s.metrics.ObserveQuery("pattern", metric.OutcomeFailed, time.Since(start))
		return nil, fmt.Errorf("evaluate query: %w", err)
	}

	span.SetAttributes(attribute.Int("semcat.rows", len(res.Bindings)))
	s.metrics.ObserveQuery("pattern", metric.OutcomeOK, time.Since(start))
	s.logger.Debug("Query evaluated", "rows", len(res.Bindings), "duration", time.Since(start))
	return res, nil
}

// ListDatasets returns dataset summaries ordered by identifier. The limit
// is clamped to the configured maximum.
func (s *Service) ListDatasets(ctx context.Context, page Page) ([]storage.Summary, error) {
	start := time.Now()
	if page.Offset < 0 {
		return nil, &InvalidPageError{Offset: page.Offset, Limit: page.Limit, Reason: "offset must be >= 0"}
	}
	if page.Limit < 1 {
		return nil, &InvalidPageError{Offset: page.Offset, Limit: page.Limit, Reason: "limit must be >= 1"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := min(page.Limit, s.cfg.MaxLimit)

	out := s.catalog.ListDatasets(page.Offset, limit)
	s.metrics.ObserveQuery("list", metric.OutcomeOK, time.Since(start))
	return out, nil
}
