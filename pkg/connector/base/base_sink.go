package base

import (
	"context"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/concord/pkg/clients"
	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/errors"
	"github.com/ajitpratap0/concord/pkg/logger"
	"github.com/ajitpratap0/concord/pkg/metrics"
	"github.com/ajitpratap0/concord/pkg/observability"
)

// BaseSink holds what every sink needs besides its storage client.
type BaseSink struct {
	name   string
	config *config.Config
	logger *zap.Logger
	tracer *observability.StageTracer
	retry  *clients.RetryPolicy
}

// NewBaseSink creates the shared part of sink name.
func NewBaseSink(name string, cfg *config.Config) *BaseSink {
	if cfg == nil {
		cfg = config.NewConfig(name)
	}
	return &BaseSink{
		name:   name,
		config: cfg,
		logger: logger.Get().With(zap.String("component", "sink"), zap.String("connector", name)),
		tracer: observability.NewStageTracer("sink", observability.Attr("connector", name)),
		retry:  clients.RetryPolicyFromConfig(cfg.Reliability),
	}
}

// Name returns the connector name
func (bs *BaseSink) Name() string {
	return bs.name
}

// SinkConfig returns the sink section of the run configuration
func (bs *BaseSink) SinkConfig() config.SinkConfig {
	return bs.config.Sink
}

// GetLogger returns the connector logger
func (bs *BaseSink) GetLogger() *zap.Logger {
	return bs.logger
}

// RetryPolicy returns the policy built from the reliability settings
func (bs *BaseSink) RetryPolicy() *clients.RetryPolicy {
	return bs.retry
}

// ValidateKey rejects empty keys and keys that climb out of the sink root.
func ValidateKey(key string) error {
	if key == "" {
		return errors.New(errors.ErrorTypeValidation, "object key is required")
	}
	for _, seg := range strings.FieldsFunc(key, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return errors.New(errors.ErrorTypeValidation, "object key must not contain ..").
				WithDetail("key", key)
		}
	}
	return nil
}

// Upload validates key, runs store inside a traced stage and records the
// outcome. store receives a reader that counts the bytes it yields.
func (bs *BaseSink) Upload(ctx context.Context, key string, r io.Reader,
	store func(ctx context.Context, r io.Reader) (string, error)) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	start := time.Now()
	cr := &CountingReader{Reader: r}

	var location string
	err := bs.tracer.Trace(ctx, "put", func(ctx context.Context) error {
		var err error
		location, err = store(ctx, cr)
		return err
	})
	metrics.SinkUploads.WithLabelValues(bs.name, metrics.Status(err)).Inc()
	if err != nil {
		bs.logger.Error("upload failed", zap.String("key", key), zap.Error(err))
		return "", err
	}
	metrics.BytesWritten.WithLabelValues("upload").Add(float64(cr.N()))
	bs.logger.Info("object stored",
		zap.String("location", location),
		zap.Int64("bytes", cr.N()),
		zap.Duration("duration", time.Since(start)))
	return location, nil
}

// CountingReader counts the bytes read through it.
type CountingReader struct {
	io.Reader
	n atomic.Int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.Reader.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// N returns the number of bytes read so far.
func (c *CountingReader) N() int64 {
	return c.n.Load()
}
