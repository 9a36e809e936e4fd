// Package columnar reads Arrow, Parquet and Avro files as a source.
package columnar

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/connector/base"
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/errors"
	formats "github.com/ajitpratap0/concord/pkg/formats/columnar"
	"github.com/ajitpratap0/concord/pkg/table"
)

// ColumnarSource reads a whole columnar file. Narrowed integer columns come
// back as int64. A table name stored in the file is kept unless the
// "table_name" setting is present.
type ColumnarSource struct {
	*base.BaseSource

	format formats.Format
}

// NewColumnarSource creates a columnar source. The "format" setting wins
// over the file extension.
func NewColumnarSource(cfg *config.Config) (core.Source, error) {
	s := &ColumnarSource{BaseSource: base.NewBaseSource("columnar", cfg)}
	if f := s.Settings().String("format", ""); f != "" {
		format, err := formats.ParseFormat(f)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid columnar format")
		}
		s.format = format
	}
	return s, nil
}

// Open resolves the file format.
func (s *ColumnarSource) Open(ctx context.Context) error {
	location := s.Settings().String("path", s.Settings().String("url", ""))
	if location == "" {
		return errors.New(errors.ErrorTypeConfig, "columnar source requires a path or url setting")
	}
	if s.format == "" {
		format, err := formats.DetectFormat(location)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "set the format setting").
				WithDetail("location", location)
		}
		s.format = format
	}
	return s.MarkOpen()
}

// Read decodes the file.
func (s *ColumnarSource) Read(ctx context.Context) (*table.Table, error) {
	if err := s.EnsureOpen(); err != nil {
		return nil, err
	}
	start := time.Now()

	var t *table.Table
	err := s.Tracer().Trace(ctx, "read", func(ctx context.Context) error {
		ctx, cancel := s.WithTimeout(ctx)
		defer cancel()

		in, err := s.OpenInput(ctx)
		if err != nil {
			return err
		}
		defer in.Close()

		file := filepath.Base(in.Name)
		res, err := formats.Read(in.Reader, s.format, s.TableName(strings.TrimSuffix(file, filepath.Ext(file))))
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to decode columnar file").
				WithDetail("location", in.Location).
				WithDetail("format", string(s.format))
		}
		s.GetLogger().Debug("columnar file decoded",
			zap.String("format", string(s.format)),
			zap.Int("batches", res.Batches),
			zap.Stringer("schema", res.Schema))
		t = res.Table
		if name := s.Settings().String("table_name", ""); name != "" {
			t = t.Renamed(name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Finish(t, start), nil
}

// Close releases the source.
func (s *ColumnarSource) Close(ctx context.Context) error {
	s.MarkClosed()
	return nil
}
