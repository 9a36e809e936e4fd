// Package base provides BaseSource and BaseSink, the shared plumbing
// embedded by every concord connector: configuration access, lifecycle
// state, retry policy, tracing and row or byte accounting.
//
// # Usage
//
//	type MySource struct {
//	    *base.BaseSource
//	}
//
//	func NewMySource(cfg *config.Config) (core.Source, error) {
//	    return &MySource{BaseSource: base.NewBaseSource("my", cfg)}, nil
//	}
//
// # Lifecycle
//
// 1. Create with NewBaseSource
// 2. MarkOpen from the connector's Open
// 3. EnsureOpen at the start of Read, then Finish with the table
// 4. MarkClosed from Close
package base

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/concord/pkg/clients"
	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/errors"
	"github.com/ajitpratap0/concord/pkg/logger"
	"github.com/ajitpratap0/concord/pkg/metrics"
	"github.com/ajitpratap0/concord/pkg/observability"
	"github.com/ajitpratap0/concord/pkg/pool"
	"github.com/ajitpratap0/concord/pkg/table"
)

// BaseSource holds what every source needs besides its own client.
type BaseSource struct {
	name   string
	config *config.Config
	logger *zap.Logger
	tracer *observability.StageTracer
	retry  *clients.RetryPolicy

	opened   bool
	readDone bool
	mu       sync.Mutex
}

// NewBaseSource creates the shared part of source name.
func NewBaseSource(name string, cfg *config.Config) *BaseSource {
	if cfg == nil {
		cfg = config.NewConfig(name)
	}
	return &BaseSource{
		name:   name,
		config: cfg,
		logger: logger.Get().With(zap.String("component", "source"), zap.String("connector", name)),
		tracer: observability.NewStageTracer("source", observability.Attr("connector", name)),
		retry:  clients.RetryPolicyFromConfig(cfg.Reliability),
	}
}

// Name returns the connector name
func (bs *BaseSource) Name() string {
	return bs.name
}

// Config returns the run configuration
func (bs *BaseSource) Config() *config.Config {
	return bs.config
}

// Settings returns the connector specific settings, never nil.
func (bs *BaseSource) Settings() config.Settings {
	if bs.config.Source.Settings == nil {
		return config.Settings{}
	}
	return bs.config.Source.Settings
}

// GetLogger returns the connector logger
func (bs *BaseSource) GetLogger() *zap.Logger {
	return bs.logger
}

// Tracer returns the stage tracer of the source
func (bs *BaseSource) Tracer() *observability.StageTracer {
	return bs.tracer
}

// RetryPolicy returns the policy built from the reliability settings
func (bs *BaseSource) RetryPolicy() *clients.RetryPolicy {
	return bs.retry
}

// HTTPClient returns a client configured from the run timeouts and retry
// settings plus the "headers" setting.
func (bs *BaseSource) HTTPClient() *clients.HTTPClient {
	cfg := clients.DefaultHTTPConfig()
	if bs.config.Timeouts.Request > 0 {
		cfg.ResponseHeaderTimeout = bs.config.Timeouts.Request
	}
	if bs.config.Timeouts.Connection > 0 {
		cfg.DialTimeout = bs.config.Timeouts.Connection
		cfg.TLSHandshakeTimeout = bs.config.Timeouts.Connection
	}
	cfg.Headers = bs.Settings().StringMap("headers")
	cfg.InsecureSkipVerify = bs.Settings().Bool("insecure_skip_verify", false)
	cfg.Retry = bs.retry
	return clients.NewHTTPClient(cfg, bs.logger)
}

// Inferrer returns the string inferrer built from the missing markers.
func (bs *BaseSource) Inferrer() *table.Inferrer {
	markers := bs.config.Source.MissingMarkers
	if markers == nil {
		markers = config.DefaultMissingMarkers
	}
	in := table.NewInferrer(markers, bs.Settings().Bool("trim_space", true))
	if bs.Settings().Bool("intern_strings", true) {
		in.WithInterner(pool.NewInterner(bs.Settings().Int("intern_limit", 0)))
	}
	return in
}

// TableName returns the "table_name" setting, falling back to def and then
// to the run name.
func (bs *BaseSource) TableName(def string) string {
	if name := bs.Settings().String("table_name", ""); name != "" {
		return name
	}
	if def != "" {
		return def
	}
	return bs.config.Name
}

// WithTimeout bounds ctx by the request timeout, if one is configured.
func (bs *BaseSource) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d := bs.Settings().Duration("timeout", bs.config.Timeouts.Request); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// MarkOpen records a successful Open.
func (bs *BaseSource) MarkOpen() error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.opened {
		return errors.New(errors.ErrorTypeValidation, "source already open").
			WithDetail("connector", bs.name)
	}
	bs.opened = true
	bs.readDone = false
	return nil
}

// EnsureOpen fails unless Open succeeded and Read has not run yet.
func (bs *BaseSource) EnsureOpen() error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if !bs.opened {
		return errors.New(errors.ErrorTypeValidation, "source is not open").
			WithDetail("connector", bs.name)
	}
	if bs.readDone {
		return errors.New(errors.ErrorTypeValidation, "source already read").
			WithDetail("connector", bs.name)
	}
	bs.readDone = true
	return nil
}

// IsOpen reports whether the source is open
func (bs *BaseSource) IsOpen() bool {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.opened
}

// MarkClosed records Close. Closing twice is not an error.
func (bs *BaseSource) MarkClosed() {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.opened = false
}

// Finish records a completed read of t that started at start. A read that
// found nothing at all, such as an empty topic or file, gets empty columns
// for the checked fields so the check sees empty input instead of a missing
// field.
func (bs *BaseSource) Finish(t *table.Table, start time.Time) *table.Table {
	if t.NumRows() == 0 && t.NumColumns() == 0 {
		check := bs.config.Check
		t = t.WithColumns(append([]string{check.KeyField}, check.ValueFields...)...)
	}
	metrics.SourceRows.WithLabelValues(bs.name).Add(float64(t.NumRows()))
	bs.logger.Info("table read",
		zap.String("table", t.Name()),
		zap.Int("rows", t.NumRows()),
		zap.Int("columns", t.NumColumns()),
		zap.Duration("duration", time.Since(start)))
	return t
}
