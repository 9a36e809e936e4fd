// Package jsonl reads newline-delimited JSON objects, or a single JSON array
// of objects, from a local file or an HTTP URL.
package jsonl

import (
	"bufio"
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/connector/base"
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/errors"
	"github.com/ajitpratap0/concord/pkg/json"
	"github.com/ajitpratap0/concord/pkg/table"
)

// Layout of the input document.
type Layout string

const (
	// LayoutAuto detects an array by its leading '['
	LayoutAuto Layout = ""
	// LayoutLines is one object per line (JSONL/NDJSON)
	LayoutLines Layout = "lines"
	// LayoutArray is a single array of objects
	LayoutArray Layout = "array"
)

// JSONLSource reads JSON objects into a table. Keys of the first object
// come first in sorted order, later keys are appended as they appear.
type JSONLSource struct {
	*base.BaseSource

	layout  Layout
	flatten bool
}

// NewJSONLSource creates a JSON source from cfg.
func NewJSONLSource(cfg *config.Config) (core.Source, error) {
	s := &JSONLSource{BaseSource: base.NewBaseSource("jsonl", cfg)}
	switch l := Layout(strings.ToLower(s.Settings().String("format", ""))); l {
	case LayoutAuto, LayoutLines, LayoutArray:
		s.layout = l
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown json format %q, expected lines or array", l)
	}
	s.flatten = s.Settings().Bool("flatten", false)
	return s, nil
}

// Open checks that an input location is configured.
func (s *JSONLSource) Open(ctx context.Context) error {
	if s.Settings().String("path", "") == "" && s.Settings().String("url", "") == "" {
		return errors.New(errors.ErrorTypeConfig, "jsonl source requires a path or url setting")
	}
	return s.MarkOpen()
}

// Read decodes every object of the input.
func (s *JSONLSource) Read(ctx context.Context) (*table.Table, error) {
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

		name := filepath.Base(in.Name)
		if i := strings.IndexByte(name, '?'); i >= 0 {
			name = name[:i]
		}
		b := table.NewBuilder(s.TableName(strings.TrimSuffix(name, filepath.Ext(name))))
		n, err := Decode(in, s.layout, func(rec map[string]any) error {
			if s.flatten {
				rec = table.Flatten(rec)
			}
			b.Append(rec)
			return ctx.Err()
		})
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to decode json").
				WithDetail("location", in.Location).
				WithDetail("record", n+1)
		}
		t = b.Build()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Finish(t, start), nil
}

// Decode calls fn for every object in r and returns the number of objects
// decoded. Numbers are kept as json.Number so integers stay exact. Blank
// lines are skipped and a null object is an error.
func Decode(r io.Reader, layout Layout, fn func(map[string]any) error) (int, error) {
	br := bufio.NewReader(r)
	if layout == LayoutAuto {
		layout = LayoutLines
		if c, err := firstByte(br); err == nil && c == '[' {
			layout = LayoutArray
		}
	}

	dec := json.NewDecoder(br)
	if layout == LayoutArray {
		if tok, err := dec.Token(); err != nil {
			if err == io.EOF {
				return 0, nil
			}
			return 0, err
		} else if d, ok := tok.(json.Delim); !ok || d != '[' {
			return 0, errors.New(errors.ErrorTypeData, "expected a json array")
		}
	}

	n := 0
	for {
		if layout == LayoutArray && !dec.More() {
			_, err := dec.Token()
			return n, err
		}
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF && layout == LayoutLines {
				return n, nil
			}
			return n, err
		}
		if rec == nil {
			return n, errors.New(errors.ErrorTypeData, "record is not a json object")
		}
		if err := fn(rec); err != nil {
			return n, err
		}
		n++
	}
}

func firstByte(br *bufio.Reader) (byte, error) {
	for {
		c, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return c, br.UnreadByte()
	}
}

// Close releases the source.
func (s *JSONLSource) Close(ctx context.Context) error {
	s.MarkClosed()
	s.GetLogger().Debug("jsonl source closed", zap.String("layout", string(s.layout)))
	return nil
}
