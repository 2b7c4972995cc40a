// Package server serves configured named queries over HTTP as tabular text
// or JSON.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medatechnology/simpledb"
	"github.com/medatechnology/simpledb/internal/config"
	"github.com/medatechnology/simpledb/metrics"
)

const (
	FormatCsv      = "csv"
	FormatMultiCsv = "multicsv"
	FormatJSON     = "json"

	shutdownTimeout = 10 * time.Second
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Server holds the HTTP server state
type Server struct {
	db       *simpledb.DB
	config   *config.Config
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
}

// NewServer creates a new server. gatherer backs /metrics; nil means the
// default registry.
func NewServer(db *simpledb.DB, cfg *config.Config, m *metrics.Metrics, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{db: db, config: cfg, metrics: m, gatherer: gatherer}
}

// Routes builds the router with all routes configured
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/health", s.instrument("GET", "/health", s.handleHealth))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/queries", s.instrument("GET", "/api/v1/queries", s.handleListQueries))
		r.Get("/queries/{name}", s.instrument("GET", "/api/v1/queries/{name}", s.handleQuery))
	})
	return r
}

func (s *Server) instrument(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	if s.metrics == nil {
		return handler
	}
	return s.metrics.InstrumentHandler(method, endpoint, handler)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		simpledb.Info("HTTP server listening", simpledb.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, err := s.db.Status(r.Context())
	if err != nil {
		sendError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	sendSuccess(w, map[string]interface{}{
		"status":  "healthy",
		"dbms":    status.DBMS,
		"version": status.Version,
		"mode":    status.Mode,
		"uptime":  status.Uptime.String(),
	})
}

func (s *Server) handleListQueries(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Name   string   `json:"name"`
		Params []string `json:"params,omitempty"`
		Format string   `json:"format"`
	}
	list := make([]entry, 0, len(s.config.Queries))
	for _, name := range s.config.QueryNames() {
		q := s.config.Queries[name]
		list = append(list, entry{Name: name, Params: q.Params, Format: formatOf(q.Format)})
	}
	sendSuccess(w, list)
}

func formatOf(format string) string {
	if format == "" {
		return FormatCsv
	}
	return format
}

// handleQuery runs a named query. Query-string values of the declared
// parameters become named parameters; any other key is rejected.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	q, ok := s.config.Queries[name]
	if !ok {
		sendError(w, "unknown query: "+name, http.StatusNotFound)
		return
	}

	values := r.URL.Query()
	format := formatOf(q.Format)
	if f := values.Get("format"); f != "" {
		format = strings.ToLower(f)
	}
	values.Del("format")

	allowed := make(map[string]bool, len(q.Params))
	var opts []simpledb.Option
	for _, p := range q.Params {
		allowed[p] = true
		if values.Has(p) {
			opts = append(opts, simpledb.With(p, values.Get(p)))
		}
	}
	for key := range values {
		if !allowed[key] {
			sendError(w, "unknown parameter: "+key, http.StatusBadRequest)
			return
		}
	}

	ctx := r.Context()
	switch format {
	case FormatCsv:
		blob, err := s.db.Csv(ctx, q.SQL, opts...)
		if err != nil {
			sendError(w, err.Error(), errorStatus(err))
			return
		}
		if blob == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(*blob))
	case FormatMultiCsv:
		blobs, err := s.db.MultiCsv(ctx, q.SQL, opts...)
		if err != nil {
			sendError(w, err.Error(), errorStatus(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(blobs)
	case FormatJSON:
		out, err := s.db.JSON(ctx, q.SQL, opts...)
		if err != nil {
			sendError(w, err.Error(), errorStatus(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(out))
	default:
		sendError(w, "unknown format: "+format, http.StatusBadRequest)
	}
}

func errorStatus(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// sendSuccess sends a successful JSON response
func sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

// sendError sends an error JSON response
func sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: false, Error: message})
}
