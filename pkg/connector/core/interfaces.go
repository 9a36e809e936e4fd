package core

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/ajitpratap0/concord/pkg/table"
)

// ConnectorType represents the type of connector
type ConnectorType string

const (
	ConnectorTypeSource ConnectorType = "source"
	ConnectorTypeSink   ConnectorType = "sink"
)

// Source produces a table snapshot. Open must be called before Read and
// Close releases any connection. Read may be called once per Open.
type Source interface {
	Name() string
	Open(ctx context.Context) error
	Read(ctx context.Context) (*table.Table, error)
	Close(ctx context.Context) error
}

// Sink stores named objects such as columnar output files and reports.
type Sink interface {
	Name() string
	// Put stores the content of r under key and returns the location of
	// the stored object (a path or URL).
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Close(ctx context.Context) error
}

// KeyTimeFormat is the timestamp layout used in object keys.
const KeyTimeFormat = "20060102T150405Z"

// ObjectKey builds "<prefix>/<run>/<timestamp>/<file>". Empty segments are
// dropped and the result never starts with a slash.
func ObjectKey(prefix, run string, at time.Time, file string) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{prefix, run, at.UTC().Format(KeyTimeFormat), file} {
		p = strings.Trim(p, "/")
		if p != "" {
			parts = append(parts, p)
		}
	}
	return path.Join(parts...)
}

// ContentType returns the media type for a file name.
func ContentType(file string) string {
	name := strings.ToLower(file)
	for _, suffix := range []string{".gz", ".zst", ".sz", ".s2", ".lz4"} {
		if strings.HasSuffix(name, suffix) {
			return "application/octet-stream"
		}
	}
	switch path.Ext(name) {
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".csv":
		return "text/csv"
	case ".parquet":
		return "application/vnd.apache.parquet"
	case ".arrow", ".arrows", ".feather":
		return "application/vnd.apache.arrow.file"
	case ".avro":
		return "application/avro"
	default:
		return "application/octet-stream"
	}
}
