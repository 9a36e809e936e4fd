// Package metrics exposes the Prometheus metrics recorded by concord runs.
//
// All collectors are registered on the default registry through promauto.
// Serve starts an optional /metrics endpoint for long running checks.
//
// # Basic Usage
//
//	timer := metrics.NewTimer("find_inconsistent_keys")
//	keys, err := consistency.FindInconsistentKeys(k, v)
//	timer.ObserveDuration()
//	metrics.RowsScanned.WithLabelValues("csv").Add(float64(len(k)))
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	// RowsScanned counts rows passed through the consistency checker.
	// Labels: source
	RowsScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concord_rows_scanned_total",
			Help: "Total number of rows scanned by the consistency checker",
		},
		[]string{"source"},
	)

	// InconsistentKeys counts keys reported with more than one value.
	// Labels: source, field
	InconsistentKeys = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concord_inconsistent_keys_total",
			Help: "Total number of keys found with more than one value",
		},
		[]string{"source", "field"},
	)

	// CheckDuration tracks how long each checker and pipeline operation takes.
	// Labels: operation, status
	CheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "concord_check_duration_seconds",
			Help:    "Duration of consistency operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 120},
		},
		[]string{"operation", "status"},
	)

	// RowsWritten counts rows written to columnar outputs.
	// Labels: format
	RowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concord_rows_written_total",
			Help: "Total number of rows written to columnar outputs",
		},
		[]string{"format"},
	)

	// BytesWritten counts bytes written to columnar outputs and reports.
	// Labels: kind
	BytesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concord_bytes_written_total",
			Help: "Total number of bytes written",
		},
		[]string{"kind"},
	)

	// SourceRows counts rows read from each source type.
	// Labels: source
	SourceRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concord_source_rows_total",
			Help: "Total number of rows read from sources",
		},
		[]string{"source"},
	)

	// HTTPRequests counts outgoing HTTP requests made by sources.
	// Labels: host, status (status code class or "error")
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concord_http_requests_total",
			Help: "Total number of outgoing HTTP requests",
		},
		[]string{"host", "status"},
	)

	// Retries counts retried operations.
	// Labels: operation
	Retries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concord_retries_total",
			Help: "Total number of retried operations",
		},
		[]string{"operation"},
	)

	// SinkUploads counts objects stored through sinks.
	// Labels: sink, status
	SinkUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concord_sink_uploads_total",
			Help: "Total number of objects stored through sinks",
		},
		[]string{"sink", "status"},
	)

	// ProcessMemory tracks the resident set size sampled at the end of a run.
	ProcessMemory = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "concord_process_resident_memory_bytes",
			Help: "Resident memory of the process at the end of the last run",
		},
	)
)

// Status returns the status label for err.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Timer measures an operation and records it in CheckDuration.
type Timer struct {
	start     time.Time
	operation string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(operation string) *Timer {
	return &Timer{
		start:     time.Now(),
		operation: operation,
	}
}

// Elapsed returns the time since the timer was created.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time as a successful operation and
// returns it.
func (t *Timer) ObserveDuration() time.Duration {
	return t.ObserveResult(nil)
}

// ObserveResult records the elapsed time labelled with the outcome of err.
func (t *Timer) ObserveResult(err error) time.Duration {
	d := t.Elapsed()
	CheckDuration.WithLabelValues(t.operation, Status(err)).Observe(d.Seconds())
	return d
}

// Server serves the default registry over HTTP.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger *zap.Logger
}

// Serve starts a /metrics endpoint on addr. It returns once the listener is
// bound; the server runs until Shutdown.
func Serve(addr string, logger *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s := &Server{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln:     ln,
		logger: logger.With(zap.String("component", "metrics_server")),
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
