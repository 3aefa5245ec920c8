package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/c360studio/semcat/api"
	"github.com/c360studio/semcat/config"
	"github.com/c360studio/semcat/export"
	"github.com/c360studio/semcat/graph"
	"github.com/c360studio/semcat/mapping"
	"github.com/c360studio/semcat/metric"
	"github.com/c360studio/semcat/pipeline"
	"github.com/c360studio/semcat/query"
	"github.com/c360studio/semcat/resolver"
	"github.com/c360studio/semcat/source"
	"github.com/c360studio/semcat/source/dicom"
	"github.com/c360studio/semcat/storage"
)

// App wires the catalog components together.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	registry *prometheus.Registry
	metrics  *metric.Metrics

	// Storage
	persister *storage.SQLitePersister
	store     *storage.Store

	// NATS, nil when publishing is disabled
	natsConn *nats.Conn

	pipeline *pipeline.Pipeline
	catalogs *pipeline.CatalogBuilder
	queries  *query.Service
	exporter *export.Exporter
}

// NewApp builds every component from cfg and restores persisted state.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metric.New(a.registry)

	dict := source.DefaultDictionary()
	if cfg.Ingest.Dictionary != "" {
		vendor, err := source.LoadDictionary(cfg.Ingest.Dictionary)
		if err != nil {
			return nil, fmt.Errorf("load dictionary: %w", err)
		}
		dict = dict.Merge(vendor)
		logger.Info("Vendor dictionary merged", "path", cfg.Ingest.Dictionary, "vendors", dict.Vendors())
	}

	mapper, err := mapping.ForVersion(cfg.Mapping.TableVersion)
	if err != nil {
		return nil, fmt.Errorf("mapping table: %w", err)
	}

	var persister storage.Persister
	if cfg.Storage.Path != "" {
		a.persister, err = storage.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		persister = a.persister
	}
	a.store = storage.NewStore(persister, logger)
	if err := a.store.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.metrics.SetDatasets(a.store.Count())

	var publisher *graph.Publisher
	if cfg.NATS.URL != "" {
		a.natsConn, err = graph.Connect(cfg.NATS.URL)
		if err != nil {
			a.Close()
			return nil, err
		}
		publisher = graph.NewPublisher(a.natsConn, cfg.NATS.Subject)
		logger.Info("Publishing dataset updates", "url", cfg.NATS.URL, "subject", cfg.NATS.Subject)
	}

	extractor := source.NewExtractor(dicom.NewReader(), dict, logger)
	res := resolver.New(resolver.Config{
		BaseIRI:           cfg.Ingest.BaseIRI,
		AccessURLTemplate: cfg.Ingest.AccessURLTemplate,
	})
	a.pipeline = pipeline.New(extractor, res, mapper, a.store,
		pipeline.WithWorkers(cfg.Ingest.Workers),
		pipeline.WithPublisher(publisher),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithLogger(logger))

	a.catalogs = pipeline.NewCatalogBuilder(mapper, res.CatalogID(), pipeline.CatalogInfo{
		Title:       cfg.Catalog.Title,
		Description: cfg.Catalog.Description,
		Publisher:   cfg.Catalog.Publisher,
		License:     cfg.Catalog.License,
		Language:    cfg.Catalog.Language,
		Issued:      cfg.Catalog.Issued,
	})

	// Datasets restored from an older mapping table are re-derived before
	// anything reads them.
	if _, err := a.pipeline.Refresh(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("refresh stale datasets: %w", err)
	}

	a.queries = query.NewService(a.store, query.Config{
		Timeout:  cfg.Query.Timeout(),
		MaxLimit: cfg.Pagination.MaxLimit,
	}, a.metrics, logger)
	a.exporter = export.NewExporter(mapper.Version())
	return a, nil
}

// CatalogGraph returns every stored dataset plus the catalog node.
func (a *App) CatalogGraph() (*graph.Graph, error) {
	return a.catalogs.Build(a.store.Snapshot())
}

// Close releases connections and the database.
func (a *App) Close() {
	if a.natsConn != nil {
		a.natsConn.Close()
		a.natsConn = nil
	}
	if a.persister != nil {
		if err := a.persister.Close(); err != nil {
			a.logger.Warn("Failed to close database", "error", err)
		}
		a.persister = nil
	}
}

// Discover expands every root into file references, deduplicated and ordered.
func (a *App) Discover(roots []string) ([]source.FileRef, error) {
	seen := make(map[source.FileRef]bool)
	var refs []source.FileRef
	for _, root := range roots {
		found, err := source.Discover(root, a.cfg.Ingest.Include)
		if err != nil {
			return nil, err
		}
		for _, ref := range found {
			if !seen[ref] {
				seen[ref] = true
				refs = append(refs, ref)
			}
		}
	}
	return refs, nil
}

// Ingest discovers and ingests every file under roots.
func (a *App) Ingest(ctx context.Context, roots []string) (*pipeline.Report, error) {
	refs, err := a.Discover(roots)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Files discovered", "count", len(refs), "roots", roots)
	return a.pipeline.Ingest(ctx, refs)
}

// Serve runs the HTTP API until ctx is done. When watchDir is set the
// directory is ingested first and re-ingested on every debounced change.
func (a *App) Serve(ctx context.Context, watchDir string) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           api.NewServer(a.queries, a.store, a.exporter, a.catalogs, a.registry, a.logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if watchDir != "" {
		if err := a.watch(ctx, watchDir); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", "addr", a.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *App) watch(ctx context.Context, dir string) error {
	w, err := source.NewWatcher(source.WatchConfig{Include: a.cfg.Ingest.Include}, dir, a.logger)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	report, err := a.Ingest(ctx, []string{dir})
	if err != nil {
		_ = w.Stop()
		return err
	}
	for ref, digest := range report.Checksums {
		w.Remember(ref, digest)
	}

	if err := w.Start(ctx); err != nil {
		_ = w.Stop()
		return fmt.Errorf("start watcher: %w", err)
	}

	go func() {
		defer func() { _ = w.Stop() }()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events():
				if !ok {
					return
				}
				changed := 1 + drain(w.Events())
				a.logger.Info("Source changed, re-ingesting", "dir", dir, "first", ev.Ref, "op", ev.Operation, "changes", changed)
				// Groups need every file of a study, so the whole tree is re-read.
				report, err := a.Ingest(ctx, []string{dir})
				if err != nil {
					a.logger.Error("Re-ingest failed", "dir", dir, "error", err)
					continue
				}
				for ref, digest := range report.Checksums {
					w.Remember(ref, digest)
				}
			}
		}
	}()
	return nil
}

// drain discards queued events and returns how many there were.
func drain(events <-chan source.WatchEvent) int {
	n := 0
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}
