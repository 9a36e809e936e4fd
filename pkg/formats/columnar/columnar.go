// Package columnar reads and writes tables in Arrow, Parquet and Avro.
package columnar

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/concord/pkg/table"
)

// Format represents a columnar storage format
type Format string

const (
	// Arrow is the Arrow IPC file format (Feather v2)
	Arrow Format = "arrow"
	// ArrowStream is the Arrow IPC stream format
	ArrowStream Format = "arrow_stream"
	// Parquet is Apache Parquet format
	Parquet Format = "parquet"
	// Avro is an Avro object container file
	Avro Format = "avro"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if GetFormatInfo(f) == nil {
		return "", fmt.Errorf("unsupported columnar format: %s", s)
	}
	return f, nil
}

// WriterConfig configures columnar writers
type WriterConfig struct {
	Format Format
	// Compression is lz4 or zstd for Arrow, snappy, zstd, gzip, lz4 or
	// brotli for Parquet and snappy or deflate for Avro. Empty or "none"
	// writes uncompressed data.
	Compression string
	// BatchSize is the number of rows per record batch or row group
	BatchSize int
	// NarrowIntegers stores integer columns in the smallest lossless type
	NarrowIntegers bool
}

// DefaultWriterConfig returns default writer configuration
func DefaultWriterConfig() *WriterConfig {
	return &WriterConfig{
		Format:         Parquet,
		Compression:    "snappy",
		BatchSize:      10000,
		NarrowIntegers: true,
	}
}

// WriteStats reports what a write produced.
type WriteStats struct {
	Format  Format
	Rows    int64
	Batches int
	Bytes   int64
	Schema  *arrow.Schema
}

// ReadResult is a decoded file.
type ReadResult struct {
	Table *table.Table
	// Schema is the storage schema found in the file
	Schema  *arrow.Schema
	Batches int
}

// WriteTable encodes t to w.
func WriteTable(w io.Writer, t *table.Table, cfg *WriterConfig) (*WriteStats, error) {
	if cfg == nil {
		cfg = DefaultWriterConfig()
	}
	cw := &countingWriter{w: w}

	var (
		stats *WriteStats
		err   error
	)
	switch cfg.Format {
	case Arrow, ArrowStream:
		stats, err = writeArrow(cw, t, cfg)
	case Parquet:
		stats, err = writeParquet(cw, t, cfg)
	case Avro:
		stats, err = writeAvro(cw, t, cfg)
	default:
		return nil, fmt.Errorf("unsupported columnar format: %s", cfg.Format)
	}
	if err != nil {
		return nil, err
	}
	stats.Format = cfg.Format
	stats.Bytes = cw.n
	return stats, nil
}

// Read decodes a whole file. name becomes the table name when the file
// does not carry one. Arrow and Parquet files are read in place when r
// implements io.ReaderAt and io.Seeker.
func Read(r io.Reader, format Format, name string) (*ReadResult, error) {
	switch format {
	case Arrow:
		return readArrowFile(r, name)
	case ArrowStream:
		return readArrowStream(r, name)
	case Parquet:
		return readParquet(r, name)
	case Avro:
		return readAvro(r, name)
	default:
		return nil, fmt.Errorf("unsupported columnar format: %s", format)
	}
}

type readAtSeeker interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

// randomAccess returns r itself when it supports ReadAt and Seek, such as a
// memory-mapped file, and a buffered copy otherwise.
func randomAccess(r io.Reader) (readAtSeeker, error) {
	if rs, ok := r.(readAtSeeker); ok {
		return rs, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// ReadTable decodes a whole file into a table.
func ReadTable(r io.Reader, format Format, name string) (*table.Table, error) {
	res, err := Read(r, format, name)
	if err != nil {
		return nil, err
	}
	return res.Table, nil
}

// DetectFormat picks a format from the file extension. Compression
// suffixes such as .gz or .zst are ignored.
func DetectFormat(path string) (Format, error) {
	base := strings.ToLower(filepath.Base(path))
	for _, suffix := range []string{".gz", ".zst", ".lz4", ".sz"} {
		base = strings.TrimSuffix(base, suffix)
	}
	switch filepath.Ext(base) {
	case ".arrow", ".feather", ".ipc":
		return Arrow, nil
	case ".arrows":
		return ArrowStream, nil
	case ".parquet", ".pq":
		return Parquet, nil
	case ".avro":
		return Avro, nil
	default:
		return "", fmt.Errorf("cannot detect columnar format of %s", path)
	}
}

// FormatInfo provides information about columnar formats
type FormatInfo struct {
	Format        Format
	Name          string
	Description   string
	FileExtension string
	MIMEType      string
	Compressions  []string
}

var formatInfos = map[Format]*FormatInfo{
	Arrow: {
		Format:        Arrow,
		Name:          "Apache Arrow IPC file",
		Description:   "Random-access Arrow IPC file, also known as Feather v2",
		FileExtension: ".arrow",
		MIMEType:      "application/vnd.apache.arrow.file",
		Compressions:  []string{"none", "lz4", "zstd"},
	},
	ArrowStream: {
		Format:        ArrowStream,
		Name:          "Apache Arrow IPC stream",
		Description:   "Sequential Arrow IPC stream of record batches",
		FileExtension: ".arrows",
		MIMEType:      "application/vnd.apache.arrow.stream",
		Compressions:  []string{"none", "lz4", "zstd"},
	},
	Parquet: {
		Format:        Parquet,
		Name:          "Apache Parquet",
		Description:   "Columnar storage format optimized for analytics",
		FileExtension: ".parquet",
		MIMEType:      "application/vnd.apache.parquet",
		Compressions:  []string{"none", "snappy", "gzip", "zstd", "lz4", "brotli"},
	},
	Avro: {
		Format:        Avro,
		Name:          "Apache Avro",
		Description:   "Row-oriented object container file",
		FileExtension: ".avro",
		MIMEType:      "application/avro",
		Compressions:  []string{"none", "snappy", "deflate"},
	},
}

// GetFormatInfo returns information about a columnar format
func GetFormatInfo(format Format) *FormatInfo {
	return formatInfos[format]
}

// Formats lists the supported formats in name order.
func Formats() []Format {
	out := make([]Format, 0, len(formatInfos))
	for f := range formatInfos {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
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

func isUncompressed(s string) bool {
	switch strings.ToLower(s) {
	case "", "none", "uncompressed", "null":
		return true
	}
	return false
}
