// Package pipeline runs concord jobs end to end: it reads a table from a
// registered source, checks or converts it and stores the results.
//
// # Stages
//
// A check run moves through
//   - load: open the source and read one table snapshot
//   - check: scan every configured value field against the key field
//   - output: write the table in a columnar format
//   - report: encode the check report
//   - store: upload output and report through the configured sink
//
// A convert run skips check and report. Every stage is traced and timed.
//
// # Basic Usage
//
//	p, err := pipeline.NewCheckPipeline(cfg, logger)
//	res, err := p.Run(ctx)
//	if res.Inconsistent() { ... }
package pipeline

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/connector/registry"
	"github.com/ajitpratap0/concord/pkg/errors"
	"github.com/ajitpratap0/concord/pkg/formats/columnar"
	"github.com/ajitpratap0/concord/pkg/logger"
	"github.com/ajitpratap0/concord/pkg/metrics"
	"github.com/ajitpratap0/concord/pkg/observability"
	"github.com/ajitpratap0/concord/pkg/table"
)

// Option customises a pipeline.
type Option func(*runner)

// WithSource replaces the registry lookup of cfg.Source.Type.
func WithSource(src core.Source) Option {
	return func(r *runner) { r.source = src }
}

// WithSink replaces the registry lookup of cfg.Sink.Type.
func WithSink(sink core.Sink) Option {
	return func(r *runner) { r.sink = sink }
}

// WithClock sets the time source used for keys and durations.
func WithClock(now func() time.Time) Option {
	return func(r *runner) { r.now = now }
}

// WithRunID fixes the run identifier instead of generating a UUID.
func WithRunID(id string) Option {
	return func(r *runner) { r.runID = id }
}

// runner holds what check and convert runs share.
type runner struct {
	cfg    *config.Config
	logger *zap.Logger
	tracer *observability.StageTracer
	source core.Source
	sink   core.Sink
	now    func() time.Time
	runID  string
}

func newRunner(component string, cfg *config.Config, log *zap.Logger, opts []Option) (*runner, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
	}
	if log == nil {
		log = logger.Get()
	}
	r := &runner{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	r.logger = log.With(
		zap.String("component", component),
		zap.String("run_id", r.runID),
		zap.String("source", cfg.Source.Type))
	r.tracer = observability.NewStageTracer(component,
		observability.Attr("run_id", r.runID),
		observability.Attr("source", cfg.Source.Type))
	return r, nil
}

func (r *runner) begin(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = logger.ContextWithRun(ctx, r.runID, r.cfg.Source.Type)
	if d := r.cfg.Timeouts.Run; d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// load opens the source, reads the table and closes the source again.
func (r *runner) load(ctx context.Context) (*table.Table, error) {
	var t *table.Table
	err := r.tracer.Trace(ctx, "load", func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeTimeout, "run deadline exceeded before load")
		}
		src := r.source
		if src == nil {
			var err error
			src, err = registry.CreateSource(r.cfg.Source.Type, r.cfg)
			if err != nil {
				return err
			}
		}
		if err := src.Open(ctx); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "failed to open source").
				WithDetail("source", src.Name())
		}
		defer func() {
			if err := src.Close(ctx); err != nil {
				r.logger.Warn("failed to close source", zap.Error(err))
			}
		}()

		var err error
		t, err = src.Read(ctx)
		if err != nil {
			return err
		}
		metrics.SourceRows.WithLabelValues(src.Name()).Add(float64(t.NumRows()))
		r.logger.Info("table loaded",
			zap.String("table", t.Name()),
			zap.Int("rows", t.NumRows()),
			zap.Int("columns", t.NumColumns()))
		return nil
	})
	return t, err
}

// writeOutput writes t to cfg.Output.Path. It returns nil stats when no
// output is configured.
func (r *runner) writeOutput(ctx context.Context, t *table.Table) (*columnar.WriteStats, error) {
	oc := r.cfg.Output
	if !oc.IsEnabled() {
		return nil, nil
	}
	var stats *columnar.WriteStats
	err := r.tracer.Trace(ctx, "output", func(ctx context.Context) error {
		format, err := columnar.ParseFormat(oc.Format)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "invalid output format")
		}
		timer := metrics.NewTimer("write_output")
		stats, err = writeFile(oc.Path, func(w io.Writer) (*columnar.WriteStats, error) {
			return columnar.WriteTable(w, t, &columnar.WriterConfig{
				Format:         format,
				Compression:    oc.Compression,
				BatchSize:      oc.BatchSize,
				NarrowIntegers: oc.NarrowIntegers,
			})
		})
		timer.ObserveResult(err)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write output").
				WithDetail("path", oc.Path)
		}
		metrics.RowsWritten.WithLabelValues(string(format)).Add(float64(stats.Rows))
		metrics.BytesWritten.WithLabelValues("output").Add(float64(stats.Bytes))
		r.logger.Info("output written",
			zap.String("path", oc.Path),
			zap.String("format", string(format)),
			zap.Int64("rows", stats.Rows),
			zap.Int64("bytes", stats.Bytes))
		return nil
	})
	return stats, err
}

func writeFile[T any](path string, write func(io.Writer) (T, error)) (T, error) {
	var zero T
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return zero, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return zero, err
	}
	v, err := write(f)
	if err != nil {
		_ = f.Close()
		return zero, err
	}
	return v, f.Close()
}

// openSink returns the configured sink or nil when none is configured.
func (r *runner) openSink() (core.Sink, error) {
	if r.sink != nil {
		return r.sink, nil
	}
	if r.cfg.Sink.Type == "" {
		return nil, nil
	}
	sink, err := registry.CreateSink(r.cfg.Sink.Type, r.cfg)
	if err != nil {
		return nil, err
	}
	r.sink = sink
	return sink, nil
}

// artifact is a file to store through the sink. Either path or data is set.
type artifact struct {
	name string
	path string
	data []byte
}

// store uploads every artifact under "<prefix>/<run name>/<timestamp>/".
func (r *runner) store(ctx context.Context, started time.Time, items []artifact) ([]string, error) {
	sink, err := r.openSink()
	if err != nil || sink == nil || len(items) == 0 {
		return nil, err
	}
	var locations []string
	err = r.tracer.Trace(ctx, "store", func(ctx context.Context) error {
		for _, it := range items {
			key := core.ObjectKey(r.cfg.Sink.Prefix, r.cfg.Name, started, it.name)
			loc, err := r.put(ctx, sink, key, it)
			if err != nil {
				return err
			}
			locations = append(locations, loc)
		}
		return nil
	})
	return locations, err
}

func (r *runner) put(ctx context.Context, sink core.Sink, key string, it artifact) (string, error) {
	var body io.Reader = bytes.NewReader(it.data)
	if it.path != "" {
		f, err := os.Open(it.path)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to open artifact").
				WithDetail("path", it.path)
		}
		defer f.Close()
		body = f
	}
	return sink.Put(ctx, key, body, core.ContentType(it.name))
}

func (r *runner) closeSink(ctx context.Context) {
	if r.sink == nil {
		return
	}
	if err := r.sink.Close(ctx); err != nil {
		r.logger.Warn("failed to close sink", zap.Error(err))
	}
}

func (r *runner) finish(res *Result, start time.Time) {
	res.Duration = since(start, r.now)
	res.ResidentMemory = residentMemory(r.logger)
	logStats(r.logger, res)
}
