// Package api is the HTTP surface over the query service and catalog export.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/semcat/export"
	"github.com/c360studio/semcat/graph"
	"github.com/c360studio/semcat/pipeline"
	"github.com/c360studio/semcat/query"
	"github.com/c360studio/semcat/storage"
	"github.com/c360studio/semcat/vocabulary/catalog"
)

// maxQueryBytes bounds request bodies on /sparql.
const maxQueryBytes = 1 << 20

// Server serves catalog queries over HTTP.
type Server struct {
	queries  *query.Service
	store    *storage.Store
	exporter *export.Exporter
	catalogs *pipeline.CatalogBuilder
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// NewServer creates a server. A nil catalog builder exports the datasets
// without a catalog node; a nil gatherer disables /metrics.
func NewServer(queries *query.Service, store *storage.Store, exporter *export.Exporter, catalogs *pipeline.CatalogBuilder, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		queries:  queries,
		store:    store,
		exporter: exporter,
		catalogs: catalogs,
		gatherer: gatherer,
		logger:   logger,
	}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/datasets", s.handleListDatasets)
	r.Get("/datasets/{id}", s.handleGetDataset)
	r.Get("/sparql", s.handleSPARQL)
	r.Post("/sparql", s.handleSPARQL)
	r.Get("/catalog", s.handleCatalog)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status   string        `json:"status"`
	State    storage.State `json:"state"`
	Datasets int           `json:"datasets"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		State:    s.store.State(),
		Datasets: s.store.Count(),
	})
}

// handleListDatasets handles GET /datasets?offset={n}&limit={n}.
func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	page := query.Page{Offset: 0, Limit: s.queries.MaxLimit()}
	var err error
	if v := r.URL.Query().Get("offset"); v != "" {
		if page.Offset, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "offset must be an integer")
			return
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if page.Limit, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
	}

	summaries, err := s.queries.ListDatasets(r.Context(), page)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// DatasetDetail is returned by /datasets/{id}.
type DatasetDetail struct {
	storage.Summary
	// Properties maps predicate IRIs to their objects.
	Properties    map[string][]RDFTerm `json:"properties"`
	Distributions []ResourceDetail     `json:"distributions"`
}

// ResourceDetail describes one entity of a dataset partition.
type ResourceDetail struct {
	Identifier string               `json:"identifier"`
	Properties map[string][]RDFTerm `json:"properties"`
}

// handleGetDataset handles GET /datasets/{id}. The id is the full dataset
// identifier, URL-escaped, or its final path segment.
func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dataset id")
		return
	}
	summary, g, err := s.store.Dataset(key)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "dataset not found")
		return
	}
	if err != nil {
		s.logger.Error("Dataset lookup failed", "dataset", key, "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	detail := DatasetDetail{
		Summary:       summary,
		Properties:    properties(g, summary.Identifier),
		Distributions: []ResourceDetail{},
	}
	for _, d := range g.Objects(summary.Identifier, catalog.PropDistribution) {
		detail.Distributions = append(detail.Distributions, ResourceDetail{
			Identifier: d.Value,
			Properties: properties(g, d.Value),
		})
	}
	writeJSON(w, http.StatusOK, detail)
}

func properties(g *graph.Graph, subject string) map[string][]RDFTerm {
	out := make(map[string][]RDFTerm)
	for _, st := range g.Match(graph.Pattern{Subject: subject}) {
		out[st.Predicate] = append(out[st.Predicate], toRDFTerm(st.Object))
	}
	return out
}

// handleSPARQL handles GET /sparql?query= and POST /sparql with either an
// application/sparql-query body or a form-encoded query field.
func (s *Server) handleSPARQL(w http.ResponseWriter, r *http.Request) {
	text, err := readQuery(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.queries.RunPattern(r.Context(), text)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/sparql-results+json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(NewResults(res)); err != nil {
		s.logger.Warn("Failed to encode response", "error", err)
	}
}

func readQuery(w http.ResponseWriter, r *http.Request) (string, error) {
	if r.Method == http.MethodGet {
		if q := r.URL.Query().Get("query"); q != "" {
			return q, nil
		}
		return "", errors.New("missing query parameter")
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	body := http.MaxBytesReader(w, r.Body, maxQueryBytes)
	switch mediaType {
	case "application/x-www-form-urlencoded":
		r.Body = body
		if err := r.ParseForm(); err != nil {
			return "", errors.New("invalid form body")
		}
		if q := r.PostForm.Get("query"); q != "" {
			return q, nil
		}
		return "", errors.New("missing query field")
	default:
		data, err := io.ReadAll(body)
		if err != nil {
			return "", errors.New("unreadable request body")
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", errors.New("empty query")
		}
		return string(data), nil
	}
}

// handleCatalog handles GET /catalog?format={ntriples|turtle|jsonld}.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	g, err := s.catalogGraph()
	if err != nil {
		s.logger.Error("Failed to build catalog node", "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	data, err := s.exporter.Export(g, format)
	if err != nil {
		s.logger.Error("Failed to export catalog", "format", format, "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	info, _ := export.GetFormatInfo(format)
	w.Header().Set("Content-Type", info.MIMEType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("Failed to write catalog", "error", err)
	}
}

func (s *Server) catalogGraph() (*graph.Graph, error) {
	view := s.store.Snapshot()
	if s.catalogs == nil {
		return view.Graph(), nil
	}
	return s.catalogs.Build(view)
}

func (s *Server) writeQueryError(w http.ResponseWriter, err error) {
	var (
		malformed *query.MalformedQueryError
		timeout   *query.QueryTimeoutError
		page      *query.InvalidPageError
	)
	switch {
	case errors.As(err, &malformed), errors.As(err, &page):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &timeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		s.logger.Error("Query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
	}
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Response is already partially written; nothing else to do on failure.
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
