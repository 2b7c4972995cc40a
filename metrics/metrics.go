// Package metrics records Prometheus metrics for simpledb backends and the
// HTTP server.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/medatechnology/simpledb"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	OperationQuery     = "query"
	OperationExec      = "exec"
	OperationExecBatch = "exec_batch"
	OperationStatus    = "status"
)

// Metrics holds all Prometheus metrics of simpledb
type Metrics struct {
	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Database operation metrics
	dbOperationsTotal   *prometheus.CounterVec
	dbOperationDuration *prometheus.HistogramVec
	dbRowsAffected      prometheus.Counter
	dbCursorsOpen       prometheus.Gauge
	dbDataSizeBytes     prometheus.Gauge
}

// NewMetrics creates the metrics and registers them with reg. A nil reg
// means the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simpledb_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "simpledb_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "simpledb_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simpledb_operations_total",
				Help: "Total number of backend operations",
			},
			[]string{"operation", "status"},
		),

		dbOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "simpledb_operation_duration_seconds",
				Help:    "Backend operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		dbRowsAffected: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "simpledb_rows_affected_total",
				Help: "Rows affected by exec and batch operations",
			},
		),

		dbCursorsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "simpledb_cursors_open",
				Help: "Number of cursors not closed yet",
			},
		),

		dbDataSizeBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "simpledb_data_size_bytes",
				Help: "Database size reported by the last status check",
			},
		),
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordDBOperation records a backend operation
func (m *Metrics) RecordDBOperation(operation string, success bool, duration time.Duration) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
	m.dbOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Backend decorates a simpledb.Backend with operation metrics.
type Backend struct {
	simpledb.Backend
	metrics *Metrics
}

// Instrument wraps backend so that every operation is counted and timed.
func Instrument(backend simpledb.Backend, m *Metrics) *Backend {
	return &Backend{Backend: backend, metrics: m}
}

func (b *Backend) Query(ctx context.Context, cmd simpledb.Command) (simpledb.Cursor, error) {
	start := time.Now()
	cur, err := b.Backend.Query(ctx, cmd)
	b.metrics.RecordDBOperation(OperationQuery, err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}
	b.metrics.dbCursorsOpen.Inc()
	return &cursor{Cursor: cur, gauge: b.metrics.dbCursorsOpen}, nil
}

func (b *Backend) Exec(ctx context.Context, cmd simpledb.Command) (simpledb.BasicSQLResult, error) {
	start := time.Now()
	res, err := b.Backend.Exec(ctx, cmd)
	b.metrics.RecordDBOperation(OperationExec, err == nil, time.Since(start))
	if err == nil && res.RowsAffected > 0 {
		b.metrics.dbRowsAffected.Add(float64(res.RowsAffected))
	}
	return res, err
}

func (b *Backend) ExecBatch(ctx context.Context, cmds []simpledb.Command) ([]simpledb.BasicSQLResult, error) {
	start := time.Now()
	results, err := b.Backend.ExecBatch(ctx, cmds)
	b.metrics.RecordDBOperation(OperationExecBatch, err == nil, time.Since(start))
	if err == nil {
		for _, r := range results {
			if r.RowsAffected > 0 {
				b.metrics.dbRowsAffected.Add(float64(r.RowsAffected))
			}
		}
	}
	return results, err
}

func (b *Backend) Status(ctx context.Context) (simpledb.StatusStruct, error) {
	start := time.Now()
	status, err := b.Backend.Status(ctx)
	b.metrics.RecordDBOperation(OperationStatus, err == nil, time.Since(start))
	if err == nil {
		b.metrics.dbDataSizeBytes.Set(float64(status.DBSize))
	}
	return status, err
}

// cursor decrements the open cursor gauge once, on the first Close.
type cursor struct {
	simpledb.Cursor
	gauge prometheus.Gauge
	once  sync.Once
}

func (c *cursor) Close() error {
	c.once.Do(c.gauge.Dec)
	return c.Cursor.Close()
}
