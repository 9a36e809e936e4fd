package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config is the configuration of a single check or convert run.
type Config struct {
	// Name identifies the run in logs, reports and sink keys
	Name string `yaml:"name" json:"name"`

	Source        SourceConfig        `yaml:"source" json:"source"`
	Check         CheckConfig         `yaml:"check" json:"check"`
	Output        OutputConfig        `yaml:"output" json:"output"`
	Sink          SinkConfig          `yaml:"sink" json:"sink"`
	Report        ReportConfig        `yaml:"report" json:"report"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
	Timeouts      TimeoutConfig       `yaml:"timeouts" json:"timeouts"`
	Reliability   ReliabilityConfig   `yaml:"reliability" json:"reliability"`
}

// SourceConfig selects and configures the table source.
type SourceConfig struct {
	// Type is the registered source name (csv, jsonl, columnar, postgresql, ...)
	Type string `yaml:"type" json:"type"`
	// Settings holds connector-specific options such as path, url or query
	Settings Settings `yaml:"settings" json:"settings"`
	// MissingMarkers are the strings read as missing values
	MissingMarkers []string `yaml:"missing_markers" json:"missing_markers"`
	// Header reports whether delimited input starts with a header row
	Header bool `yaml:"header" json:"header"`
	// Delimiter separates fields in delimited input
	Delimiter string `yaml:"delimiter" json:"delimiter"`
}

// CheckConfig describes the consistency check.
type CheckConfig struct {
	KeyField    string   `yaml:"key_field" json:"key_field"`
	ValueFields []string `yaml:"value_fields" json:"value_fields"`
	// MissingPolicy is "skip" or "value"
	MissingPolicy string `yaml:"missing_policy" json:"missing_policy"`
	// Strategy is "first_seen" or "value_sets"
	Strategy string `yaml:"strategy" json:"strategy"`
	// Partitions > 1 collects value sets concurrently
	Partitions         int  `yaml:"partitions" json:"partitions"`
	FailOnInconsistent bool `yaml:"fail_on_inconsistent" json:"fail_on_inconsistent"`
}

// OutputConfig controls the columnar copy of the table.
type OutputConfig struct {
	// Format is arrow, arrow_stream, parquet or avro; empty disables output
	Format string `yaml:"format" json:"format"`
	Path   string `yaml:"path" json:"path"`
	// Compression is the codec used inside the file (lz4, zstd, snappy, gzip, deflate)
	Compression    string `yaml:"compression" json:"compression"`
	NarrowIntegers bool   `yaml:"narrow_integers" json:"narrow_integers"`
	BatchSize      int    `yaml:"batch_size" json:"batch_size"`
}

// SinkConfig configures where output and report files are stored.
type SinkConfig struct {
	// Type is local, s3 or gcs; empty stores nothing beyond the local paths
	Type   string `yaml:"type" json:"type"`
	Bucket string `yaml:"bucket" json:"bucket"`
	Prefix string `yaml:"prefix" json:"prefix"`
	Region string `yaml:"region" json:"region"`
	// Directory is the root for the local sink
	Directory string `yaml:"directory" json:"directory"`
	// CredentialsFile is used by the gcs sink
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`
	// Endpoint overrides the s3 endpoint for compatible stores
	Endpoint string `yaml:"endpoint" json:"endpoint"`
}

// ReportConfig controls the consistency report.
type ReportConfig struct {
	Path string `yaml:"path" json:"path"`
	// Format is json or yaml
	Format string `yaml:"format" json:"format"`
	// Compression is none, gzip, zstd, snappy, s2 or lz4
	Compression string `yaml:"compression" json:"compression"`
}

// ObservabilityConfig contains logging, metrics and tracing settings.
type ObservabilityConfig struct {
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogEncoding is json or console
	LogEncoding string `yaml:"log_encoding" json:"log_encoding"`
	// MetricsAddr exposes /metrics when set, e.g. ":9090"
	MetricsAddr       string  `yaml:"metrics_addr" json:"metrics_addr"`
	EnableTracing     bool    `yaml:"enable_tracing" json:"enable_tracing"`
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate"`
}

// TimeoutConfig contains all timeout-related settings.
type TimeoutConfig struct {
	// Request timeout for individual HTTP or query operations
	Request time.Duration `yaml:"request" json:"request"`
	// Connection timeout for establishing connections
	Connection time.Duration `yaml:"connection" json:"connection"`
	// Run bounds the whole pipeline; zero means no limit
	Run time.Duration `yaml:"run" json:"run"`
}

// ReliabilityConfig contains retry settings for network operations.
type ReliabilityConfig struct {
	RetryAttempts   int           `yaml:"retry_attempts" json:"retry_attempts"`
	RetryDelay      time.Duration `yaml:"retry_delay" json:"retry_delay"`
	RetryMultiplier float64       `yaml:"retry_multiplier" json:"retry_multiplier"`
	MaxRetryDelay   time.Duration `yaml:"max_retry_delay" json:"max_retry_delay"`
}

// DefaultMissingMarkers are the strings read as missing when none are configured.
var DefaultMissingMarkers = []string{"", "NA", "N/A", "NaN", "null", "None"}

// NewConfig creates a Config with defaults for every section.
func NewConfig(name string) *Config {
	return &Config{
		Name: name,
		Source: SourceConfig{
			Settings:       make(Settings),
			MissingMarkers: append([]string(nil), DefaultMissingMarkers...),
			Header:         true,
			Delimiter:      ",",
		},
		Check: CheckConfig{
			MissingPolicy: "skip",
			Strategy:      "value_sets",
			Partitions:    1,
		},
		Output: OutputConfig{
			NarrowIntegers: true,
			BatchSize:      10000,
		},
		Sink: SinkConfig{
			Directory: ".",
		},
		Report: ReportConfig{
			Format:      "json",
			Compression: "none",
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogEncoding:       "json",
			TracingSampleRate: 1.0,
		},
		Timeouts: TimeoutConfig{
			Request:    30 * time.Second,
			Connection: 10 * time.Second,
		},
		Reliability: ReliabilityConfig{
			RetryAttempts:   3,
			RetryDelay:      500 * time.Millisecond,
			RetryMultiplier: 2.0,
			MaxRetryDelay:   30 * time.Second,
		},
	}
}

var (
	outputFormats = []string{"", "arrow", "arrow_stream", "parquet", "avro"}
	sinkTypes     = []string{"", "local", "s3", "gcs"}
	reportFormats = []string{"", "json", "yaml"}
	strategies    = []string{"", "first_seen", "value_sets"}
	policies      = []string{"", "skip", "value", "sentinel"}
)

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Source.Type == "" {
		return fmt.Errorf("source.type is required")
	}
	if c.Check.KeyField == "" && len(c.Check.ValueFields) > 0 {
		return fmt.Errorf("check.key_field is required when value_fields are set")
	}
	for _, f := range c.Check.ValueFields {
		if f == c.Check.KeyField {
			return fmt.Errorf("check.value_fields must not contain the key field %q", f)
		}
	}
	if !oneOf(c.Check.MissingPolicy, policies) {
		return fmt.Errorf("check.missing_policy %q must be skip or value", c.Check.MissingPolicy)
	}
	if !oneOf(c.Check.Strategy, strategies) {
		return fmt.Errorf("check.strategy %q must be first_seen or value_sets", c.Check.Strategy)
	}
	if c.Check.Partitions < 0 {
		return fmt.Errorf("check.partitions cannot be negative")
	}
	if !oneOf(c.Output.Format, outputFormats) {
		return fmt.Errorf("output.format %q is not supported", c.Output.Format)
	}
	if c.Output.Format != "" && c.Output.Path == "" {
		return fmt.Errorf("output.path is required when output.format is set")
	}
	if c.Output.BatchSize < 0 {
		return fmt.Errorf("output.batch_size cannot be negative")
	}
	if !oneOf(c.Sink.Type, sinkTypes) {
		return fmt.Errorf("sink.type %q must be local, s3 or gcs", c.Sink.Type)
	}
	if (c.Sink.Type == "s3" || c.Sink.Type == "gcs") && c.Sink.Bucket == "" {
		return fmt.Errorf("sink.bucket is required for %s", c.Sink.Type)
	}
	if !oneOf(c.Report.Format, reportFormats) {
		return fmt.Errorf("report.format %q must be json or yaml", c.Report.Format)
	}
	if r := c.Observability.TracingSampleRate; r < 0 || r > 1 {
		return fmt.Errorf("observability.tracing_sample_rate must be within [0, 1]")
	}
	if c.Reliability.RetryAttempts < 0 {
		return fmt.Errorf("reliability.retry_attempts cannot be negative")
	}
	return nil
}

// GetPartitions returns the partition count, at least 1. Zero selects one
// partition per CPU.
func (c *CheckConfig) GetPartitions() int {
	if c.Partitions == 0 {
		return runtime.NumCPU()
	}
	return c.Partitions
}

// IsCheckEnabled reports whether any value field is configured.
func (c *CheckConfig) IsCheckEnabled() bool {
	return c.KeyField != "" && len(c.ValueFields) > 0
}

// IsEnabled reports whether a columnar copy should be written.
func (o *OutputConfig) IsEnabled() bool {
	return o.Format != ""
}

func oneOf(v string, allowed []string) bool {
	v = strings.ToLower(v)
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
