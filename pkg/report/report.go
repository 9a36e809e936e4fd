// Package report describes the outcome of a consistency check and encodes
// it as JSON or YAML, optionally compressed.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/concord/pkg/compression"
	"github.com/ajitpratap0/concord/pkg/consistency"
	"github.com/ajitpratap0/concord/pkg/errors"
	"github.com/ajitpratap0/concord/pkg/json"
)

// Format is the encoding of a report file.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", errors.Newf(errors.ErrorTypeConfig, "unsupported report format %q", s)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == YAML {
		return "application/yaml"
	}
	return "application/json"
}

// KeyReport lists the values observed for one inconsistent key.
type KeyReport struct {
	Key string `json:"key" yaml:"key"`
	// Values are the distinct non-missing values in sorted order. They are
	// empty when the check only recorded which keys disagree.
	Values []string `json:"values,omitempty" yaml:"values,omitempty"`
	// Missing is set when at least one row had no value for the key
	Missing bool `json:"missing,omitempty" yaml:"missing,omitempty"`
}

// FieldReport is the result for one value field.
type FieldReport struct {
	ValueField       string      `json:"value_field" yaml:"value_field"`
	DistinctKeys     int         `json:"distinct_keys" yaml:"distinct_keys"`
	Consistent       bool        `json:"consistent" yaml:"consistent"`
	InconsistentKeys []KeyReport `json:"inconsistent_keys" yaml:"inconsistent_keys"`
}

// Report is the outcome of checking one key field against one or more
// value fields of a table.
type Report struct {
	Name       string        `json:"name" yaml:"name"`
	RunID      string        `json:"run_id" yaml:"run_id"`
	Source     string        `json:"source" yaml:"source"`
	Table      string        `json:"table" yaml:"table"`
	KeyField   string        `json:"key_field" yaml:"key_field"`
	Strategy   string        `json:"strategy" yaml:"strategy"`
	Policy     string        `json:"missing_policy" yaml:"missing_policy"`
	Rows       int           `json:"rows" yaml:"rows"`
	Consistent bool          `json:"consistent" yaml:"consistent"`
	Fields     []FieldReport `json:"fields" yaml:"fields"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	Duration   string        `json:"duration" yaml:"duration"`
}

// Add appends a field result and updates the overall verdict.
func (r *Report) Add(f FieldReport) {
	r.Fields = append(r.Fields, f)
	r.Consistent = true
	for _, f := range r.Fields {
		r.Consistent = r.Consistent && f.Consistent
	}
}

// InconsistentCount returns the number of inconsistent keys over all fields.
func (r *Report) InconsistentCount() int {
	n := 0
	for _, f := range r.Fields {
		n += len(f.InconsistentKeys)
	}
	return n
}

// FromValueSets builds a field report from the value sets of every key.
// isMissing identifies the missing marker inside a set; it may be nil.
func FromValueSets(field string, sets map[any]consistency.Set[any], policy consistency.MissingPolicy, isMissing func(any) bool) FieldReport {
	opts := []consistency.Option[any]{consistency.WithPolicy[any](policy)}
	if isMissing != nil {
		opts = append(opts, consistency.WithMissing(isMissing))
	}
	bad := consistency.KeysWithMultipleValues(sets, opts...)

	keys := make([]KeyReport, 0, len(bad))
	for k, s := range bad {
		kr := KeyReport{Key: FormatValue(k)}
		for v := range s {
			if isMissing != nil && isMissing(v) {
				kr.Missing = true
				continue
			}
			kr.Values = append(kr.Values, FormatValue(v))
		}
		sort.Strings(kr.Values)
		keys = append(keys, kr)
	}
	sortKeys(keys)
	return FieldReport{
		ValueField:       field,
		DistinctKeys:     len(sets),
		Consistent:       len(keys) == 0,
		InconsistentKeys: keys,
	}
}

// FromKeys builds a field report from a set of inconsistent keys, as
// produced by the first-seen scan, which does not keep values.
func FromKeys(field string, bad consistency.Set[any], distinct int) FieldReport {
	keys := make([]KeyReport, 0, bad.Len())
	for k := range bad {
		keys = append(keys, KeyReport{Key: FormatValue(k)})
	}
	sortKeys(keys)
	return FieldReport{
		ValueField:       field,
		DistinctKeys:     distinct,
		Consistent:       len(keys) == 0,
		InconsistentKeys: keys,
	}
}

func sortKeys(keys []KeyReport) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Key < keys[j].Key })
}

// FormatValue renders a table cell. Missing cells render as the empty
// string and times use RFC 3339 in UTC.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}

// Encode writes r to w in the given format.
func (r *Report) Encode(w io.Writer, format Format) error {
	switch format {
	case JSON, "":
		return json.MarshalToWriter(w, r)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unsupported report format %q", format)
	}
}

// Write encodes r through the compressor for alg and returns the number of
// bytes written to w.
func Write(w io.Writer, r *Report, format Format, alg compression.Algorithm) (int64, error) {
	comp, err := compression.NewCompressor(&compression.Config{Algorithm: alg, Level: compression.Default})
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeConfig, "invalid report compression")
	}
	cw := &countingWriter{w: w}
	zw, err := comp.NewWriter(cw)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create report writer")
	}
	if err := r.Encode(zw, format); err != nil {
		_ = zw.Close()
		return cw.n, errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode report")
	}
	if err := zw.Close(); err != nil {
		return cw.n, errors.Wrap(err, errors.ErrorTypeFile, "failed to flush report")
	}
	return cw.n, nil
}

// Read decodes a report written by Write.
func Read(rd io.Reader, format Format, alg compression.Algorithm) (*Report, error) {
	comp, err := compression.NewCompressor(&compression.Config{Algorithm: alg})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid report compression")
	}
	zr, err := comp.NewReader(rd)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to open report")
	}
	defer zr.Close()

	var r Report
	switch format {
	case YAML:
		err = yaml.NewDecoder(zr).Decode(&r)
	default:
		err = json.NewDecoder(zr).Decode(&r)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode report")
	}
	return &r, nil
}

// FileName returns "report.<format><compression suffix>".
func FileName(format Format, alg compression.Algorithm) string {
	if format == "" {
		format = JSON
	}
	return "report." + string(format) + alg.Extension()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
