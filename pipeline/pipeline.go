// Package pipeline orchestrates ingestion: extract files on a bounded worker
// pool, group records by study, then map, assemble and commit one dataset at
// a time under its lock.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/semcat/graph"
	"github.com/c360studio/semcat/mapping"
	"github.com/c360studio/semcat/metric"
	"github.com/c360studio/semcat/model"
	"github.com/c360studio/semcat/resolver"
	"github.com/c360studio/semcat/source"
	"github.com/c360studio/semcat/storage"
)

// Extractor reads one file into a record.
type Extractor interface {
	Extract(ctx context.Context, ref source.FileRef) (source.Record, error)
}

// Pipeline runs ingestion batches against a store.
type Pipeline struct {
	extractor Extractor
	resolver  *resolver.Resolver
	mapper    *mapping.Mapper
	assembler *graph.Assembler
	store     *storage.Store
	publisher *graph.Publisher
	metrics   *metric.Metrics
	tracer    trace.Tracer
	logger    *slog.Logger
	workers   int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers bounds concurrent extraction and group commits.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithPublisher announces committed datasets.
func WithPublisher(pub *graph.Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithMetrics records ingestion metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a pipeline.
func New(ext Extractor, res *resolver.Resolver, mapper *mapping.Mapper, store *storage.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: ext,
		resolver:  res,
		mapper:    mapper,
		store:     store,
		tracer:    otel.Tracer("github.com/c360studio/semcat/pipeline"),
		logger:    slog.Default(),
		workers:   runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.assembler = graph.NewAssembler(p.logger)
	return p
}

// MappingVersion returns the mapping table revision in use.
func (p *Pipeline) MappingVersion() string { return p.mapper.Version() }

// Ingest runs one batch. Per-file and per-dataset failures are isolated and
// reported in the manifest; only context cancellation aborts the batch.
func (p *Pipeline) Ingest(ctx context.Context, refs []source.FileRef) (*Report, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.ingest",
		trace.WithAttributes(attribute.Int("semcat.files", len(refs))))
	defer span.End()

	report := &Report{
		MappingVersion: p.mapper.Version(),
		Files:          len(refs),
		Checksums:      make(map[source.FileRef]string, len(refs)),
	}

	records, err := p.extract(ctx, refs, report)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction aborted")
		return nil, err
	}

	groups, ungroupable := resolver.GroupRecords(records)
	for _, rec := range ungroupable {
		report.Manifest = append(report.Manifest, Entry{
			Subject: string(rec.Ref()),
			Reason:  ReasonUngroupableRecord,
			Detail:  "missing patient id, study uid or series uid",
		})
	}

	results := make([]groupResult, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, grp := range groups {
		g.Go(func() error {
			res, err := p.commitGroup(gctx, grp)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit aborted")
		return nil, err
	}

	var committed []*graph.Graph
	for _, res := range results {
		report.Manifest = append(report.Manifest, res.entries...)
		if res.graph != nil {
			report.Datasets = append(report.Datasets, res.datasetID)
			committed = append(committed, res.graph)
		}
	}
	report.Graph = graph.View(committed).Graph()
	report.sort()

	p.metrics.SetDatasets(p.store.Count())
	span.SetAttributes(
		attribute.Int("semcat.datasets", len(report.Datasets)),
		attribute.Int("semcat.skipped", len(report.Manifest)),
	)
	p.logger.Info("Batch ingested",
		"files", len(refs),
		"datasets", len(report.Datasets),
		"skipped", len(report.Manifest),
		"mapping_version", report.MappingVersion)
	return report, nil
}

// Refresh re-derives every dataset committed under a different mapping
// table revision from its stored records. Datasets without stored records
// keep their graph and are flagged in the manifest.
func (p *Pipeline) Refresh(ctx context.Context) (*Report, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.refresh")
	defer span.End()

	version := p.mapper.Version()
	report := &Report{MappingVersion: version, Checksums: map[source.FileRef]string{}}
	stale := p.store.Stale(version)
	span.SetAttributes(attribute.Int("semcat.stale", len(stale)))

	var committed []*graph.Graph
	for _, id := range stale {
		res, err := p.commitDataset(ctx, id, nil)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "refresh aborted")
			return nil, err
		}
		report.Manifest = append(report.Manifest, res.entries...)
		if res.graph != nil {
			report.Datasets = append(report.Datasets, id)
			committed = append(committed, res.graph)
		}
	}
	report.Graph = graph.View(committed).Graph()
	report.sort()

	if flagged := report.Skipped(ReasonStaleMapping); len(flagged) > 0 {
		p.logger.Warn("Datasets kept under a previous mapping version",
			"datasets", len(flagged), "mapping_version", version)
	}
	if len(stale) > 0 {
		p.logger.Info("Stale datasets refreshed",
			"stale", len(stale), "refreshed", len(report.Datasets), "mapping_version", version)
	}
	return report, nil
}

// extract reads every file on the worker pool. Records keep input order.
func (p *Pipeline) extract(ctx context.Context, refs []source.FileRef, report *Report) ([]source.Record, error) {
	type outcome struct {
		rec source.Record
		err error
	}
	outcomes := make([]outcome, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, ref := range refs {
		g.Go(func() error {
			rec, err := p.extractor.Extract(gctx, ref)
			if err != nil && !errors.Is(err, source.ErrSource) {
				return err
			}
			outcomes[i] = outcome{rec: rec, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	var records []source.Record
	for i, o := range outcomes {
		if sum := o.rec.Get(source.KeyChecksum); !sum.IsAbsent() {
			report.Checksums[refs[i]] = sum.Lexical()
		}
		var incomplete *source.IncompleteRecordError
		switch {
		case o.err == nil:
			p.metrics.IncrementFiles(metric.OutcomeOK)
			records = append(records, o.rec)
		case errors.As(o.err, &incomplete):
			// Partial records still take part in grouping.
			p.metrics.IncrementFiles(metric.OutcomeSkipped)
			p.logger.Warn("Incomplete record", "file", refs[i], "error", o.err)
			report.Manifest = append(report.Manifest, Entry{
				Subject: string(refs[i]), Reason: ReasonIncompleteRecord, Detail: o.err.Error(),
			})
			records = append(records, o.rec)
		default:
			p.metrics.IncrementFiles(metric.OutcomeFailed)
			p.logger.Warn("Skipping unreadable file", "file", refs[i], "error", o.err)
			report.Manifest = append(report.Manifest, Entry{
				Subject: string(refs[i]), Reason: reasonFor(o.err), Detail: o.err.Error(),
			})
		}
	}
	return records, nil
}

type groupResult struct {
	datasetID string
	graph     *graph.Graph
	entries   []Entry
}

func (r *groupResult) skip(subject string, err error) {
	r.entries = append(r.entries, Entry{Subject: subject, Reason: reasonFor(err), Detail: err.Error()})
}

// commitGroup commits one (patient, study) group of a batch.
func (p *Pipeline) commitGroup(ctx context.Context, grp resolver.Group) (groupResult, error) {
	return p.commitDataset(ctx, p.resolver.DatasetIDFor(grp.Records[0]), grp.Records)
}

// commitDataset re-derives one dataset under its lock from the incoming
// records plus the stored records of every series the batch does not
// redefine, then maps, assembles and commits it. Entity level failures land
// in the result; the returned error is reserved for cancellation.
func (p *Pipeline) commitDataset(ctx context.Context, datasetID string, incoming []source.Record) (groupResult, error) {
	res := groupResult{datasetID: datasetID}

	ctx, span := p.tracer.Start(ctx, "pipeline.commit_dataset",
		trace.WithAttributes(attribute.String("semcat.dataset", datasetID)))
	defer span.End()

	token, err := p.store.Locks().Acquire(ctx, datasetID)
	if err != nil {
		return res, err
	}
	defer token.Release()

	records := mergeRecords(p.store.Records(datasetID), incoming)
	if len(records) == 0 {
		res.entries = append(res.entries, Entry{
			Subject: datasetID, Reason: ReasonStaleMapping, Detail: "no stored records to re-derive from",
		})
		return res, nil
	}

	ds, err := p.resolver.Resolve(records)
	if err != nil {
		res.entries = append(res.entries, Entry{
			Subject: string(records[0].Ref()), Reason: ReasonUngroupableRecord, Detail: err.Error(),
		})
		return res, nil
	}
	span.SetAttributes(attribute.Int("semcat.distributions", len(ds.Distributions)))

	// Distributions that fail mapping are dropped before the dataset is
	// mapped, so the dataset never references them.
	sets := make([][]graph.Statement, 0, len(ds.Distributions)+1)
	var kept []*model.Distribution
	for _, dist := range ds.Distributions {
		stmts, err := p.mapper.Map(dist)
		if err != nil {
			p.logger.Warn("Distribution mapping failed", "distribution", dist.Identifier, "error", err)
			res.skip(dist.Identifier, err)
			continue
		}
		kept = append(kept, dist)
		sets = append(sets, stmts)
	}
	ds.Distributions = kept

	dsStmts, err := p.mapper.Map(ds)
	if err != nil {
		p.reject(span, &res, ds, err, metric.OutcomeRejected)
		return res, nil
	}
	sets = append(sets, dsStmts)

	start := time.Now()
	g, err := p.assembler.Assemble(sets...)
	if err != nil {
		p.reject(span, &res, ds, err, metric.OutcomeRejected)
		return res, nil
	}
	c := storage.Commit{Graph: g, Records: records, MappingVersion: p.mapper.Version()}
	if err := p.store.Replace(ctx, token, ds.Identifier, c); err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		p.reject(span, &res, ds, fmt.Errorf("commit: %w", err), metric.OutcomeFailed)
		return res, nil
	}
	p.metrics.ObserveMerge(time.Since(start))
	p.metrics.IncrementMerged(metric.OutcomeOK)
	res.graph = g

	if err := p.publisher.PublishDataset(ctx, ds.Identifier, p.mapper.Version(), g); err != nil {
		p.logger.Warn("Failed to publish dataset update", "dataset", ds.Identifier, "error", err)
	}
	p.logger.Debug("Dataset committed",
		"dataset", ds.Identifier,
		"records", len(records),
		"distributions", len(ds.Distributions),
		"statements", g.Len())
	return res, nil
}

// mergeRecords returns the prior records of series that incoming does not
// carry, followed by incoming.
func mergeRecords(prior, incoming []source.Record) []source.Record {
	redefined := make(map[string]bool, len(incoming))
	for _, rec := range incoming {
		redefined[seriesKey(rec)] = true
	}
	merged := make([]source.Record, 0, len(prior)+len(incoming))
	for _, rec := range prior {
		if !redefined[seriesKey(rec)] {
			merged = append(merged, rec)
		}
	}
	return append(merged, incoming...)
}

func seriesKey(rec source.Record) string {
	return resolver.Normalize(rec.Get(source.KeySeriesInstanceUID).Lexical())
}

func (p *Pipeline) reject(span trace.Span, res *groupResult, ds *model.Dataset, err error, outcome string) {
	p.metrics.IncrementMerged(outcome)
	span.RecordError(err)
	span.SetStatus(codes.Error, "dataset rejected")
	p.logger.Warn("Dataset rejected, previous state kept", "dataset", ds.Identifier, "error", err)
	res.skip(ds.Identifier, err)
}
