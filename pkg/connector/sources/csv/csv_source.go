// Package csv reads delimited text from a local file or an HTTP URL.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/connector/base"
	"github.com/ajitpratap0/concord/pkg/connector/core"
	"github.com/ajitpratap0/concord/pkg/errors"
	"github.com/ajitpratap0/concord/pkg/table"
)

// CSVSource reads a whole delimited file into a table.
type CSVSource struct {
	*base.BaseSource

	header    bool
	delimiter rune
	comment   rune
	lazy      bool
}

// NewCSVSource creates a CSV source from the source section of cfg.
func NewCSVSource(cfg *config.Config) (core.Source, error) {
	delim, err := parseRune(cfg.Source.Delimiter, ',')
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid delimiter")
	}
	s := &CSVSource{
		BaseSource: base.NewBaseSource("csv", cfg),
		header:     cfg.Source.Header,
		delimiter:  delim,
	}
	s.comment, err = parseRune(s.Settings().String("comment", ""), 0)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid comment character")
	}
	s.lazy = s.Settings().Bool("lazy_quotes", false)
	return s, nil
}

func parseRune(s string, def rune) (rune, error) {
	switch s {
	case "":
		return def, nil
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%q must be a single character", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// Open checks that an input location is configured.
func (s *CSVSource) Open(ctx context.Context) error {
	if s.Settings().String("path", "") == "" && s.Settings().String("url", "") == "" {
		return errors.New(errors.ErrorTypeConfig, "csv source requires a path or url setting")
	}
	return s.MarkOpen()
}

// Read parses the input. Every column gets one kind chosen from its
// non-missing cells; missing markers become nil.
func (s *CSVSource) Read(ctx context.Context) (*table.Table, error) {
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

		header, records, err := s.parse(in)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to parse csv").
				WithDetail("location", in.Location)
		}
		inf := s.Inferrer()
		t, err = table.FromStrings(s.TableName(stem(in.Name)), header, records, inf)
		if p := inf.Interner(); p != nil {
			hits, misses := p.Stats()
			s.GetLogger().Debug("strings interned",
				zap.Int("distinct", p.Len()),
				zap.Int64("hits", hits),
				zap.Int64("misses", misses))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Finish(t, start), nil
}

func (s *CSVSource) parse(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = s.delimiter
	cr.Comment = s.comment
	cr.LazyQuotes = s.lazy
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return []string{}, nil, nil
	}

	var header []string
	if s.header {
		header, records = dedupe(records[0]), records[1:]
	} else {
		width := 0
		for _, rec := range records {
			width = max(width, len(rec))
		}
		header = make([]string, width)
		for i := range header {
			header[i] = fmt.Sprintf("column_%d", i+1)
		}
	}
	for i, rec := range records {
		if len(rec) > len(header) {
			return nil, nil, fmt.Errorf("record %d has %d fields, header has %d", i+1, len(rec), len(header))
		}
	}
	s.GetLogger().Debug("csv parsed",
		zap.Int("columns", len(header)),
		zap.Int("records", len(records)))
	return header, records, nil
}

// dedupe trims header names and suffixes repeated ones with _2, _3 and so on.
func dedupe(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h = fmt.Sprintf("%s_%d", h, n)
		}
		out[i] = h
	}
	return out
}

func stem(name string) string {
	file := filepath.Base(name)
	if i := strings.IndexByte(file, '?'); i >= 0 {
		file = file[:i]
	}
	return strings.TrimSuffix(file, filepath.Ext(file))
}

// Close releases the source.
func (s *CSVSource) Close(ctx context.Context) error {
	s.MarkClosed()
	return nil
}
