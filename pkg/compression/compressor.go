// Package compression wraps the codecs used for report files, sink uploads
// and compressed source files.
//
// Every algorithm is exposed both in memory (Compress, Decompress) and as a
// stream (NewWriter, NewReader). Output of Compress can always be read back
// with NewReader and the other way round, so a file written by one path can
// be consumed by the other.
//
//	comp, err := compression.NewCompressor(&compression.Config{
//	    Algorithm: compression.Zstd,
//	    Level:     compression.Better,
//	})
//	w, err := comp.NewWriter(f)
//	defer w.Close()
package compression

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None leaves data untouched
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents framed snappy compression
	Snappy Algorithm = "snappy"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
)

// Level controls the trade-off between speed and ratio.
type Level int

const (
	Fastest Level = 1
	Default Level = 5
	Better  Level = 7
	Best    Level = 9
)

func (l Level) String() string {
	switch l {
	case Fastest:
		return "fastest"
	case Default:
		return "default"
	case Better:
		return "better"
	case Best:
		return "best"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

var extensions = map[Algorithm]string{
	None:   "",
	Gzip:   ".gz",
	Snappy: ".sz",
	S2:     ".s2",
	LZ4:    ".lz4",
	Zstd:   ".zst",
}

// ParseAlgorithm maps a configuration value onto an Algorithm. The empty
// string means None.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(name))); a {
	case "", "uncompressed":
		return None, nil
	case "gz":
		return Gzip, nil
	case "zst", "zstandard":
		return Zstd, nil
	case None, Gzip, Snappy, S2, LZ4, Zstd:
		return a, nil
	default:
		return "", fmt.Errorf("unsupported compression algorithm: %s", name)
	}
}

// Extension returns the file suffix for a, including the dot.
func (a Algorithm) Extension() string {
	return extensions[a]
}

// FromPath returns the algorithm implied by the suffix of path and the path
// with that suffix removed.
func FromPath(path string) (Algorithm, string) {
	ext := strings.ToLower(filepath.Ext(path))
	for a, e := range extensions {
		if e != "" && e == ext {
			return a, path[:len(path)-len(ext)]
		}
	}
	return None, path
}

// Compressor compresses and decompresses data. Implementations are safe for
// concurrent use.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)

	// NewWriter returns a writer that compresses into w. Closing it flushes
	// the stream but does not close w.
	NewWriter(w io.Writer) (io.WriteCloser, error)
	// NewReader returns a reader that decompresses r.
	NewReader(r io.Reader) (io.ReadCloser, error)

	Algorithm() Algorithm
	Level() Level
}

// Config represents compressor configuration.
type Config struct {
	Algorithm Algorithm
	Level     Level
}

// DefaultConfig returns a zstd compressor configuration at the default level.
func DefaultConfig() *Config {
	return &Config{Algorithm: Zstd, Level: Default}
}

// NewCompressor creates a compressor. If config is nil, DefaultConfig is used.
func NewCompressor(config *Config) (Compressor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	level := config.Level
	if level == 0 {
		level = Default
	}
	base := baseCompressor{algorithm: config.Algorithm, level: level}

	switch config.Algorithm {
	case None, "":
		base.algorithm = None
		return &noneCompressor{base}, nil
	case Gzip:
		return &gzipCompressor{baseCompressor: base, gzipLevel: mapGzipLevel(level)}, nil
	case Snappy:
		return &snappyCompressor{base}, nil
	case S2:
		return &s2Compressor{baseCompressor: base, opts: mapS2Level(level)}, nil
	case LZ4:
		return &lz4Compressor{baseCompressor: base, lz4Level: mapLZ4Level(level)}, nil
	case Zstd:
		return newZstdCompressor(base)
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", config.Algorithm)
	}
}

type baseCompressor struct {
	algorithm Algorithm
	level     Level
}

func (bc *baseCompressor) Algorithm() Algorithm { return bc.algorithm }
func (bc *baseCompressor) Level() Level         { return bc.level }

// compressWith runs data through a stream writer.
func compressWith(c Compressor, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := c.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompressWith drains a stream reader over data.
func decompressWith(c Compressor, data []byte) ([]byte, error) {
	r, err := c.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// None compressor
type noneCompressor struct {
	baseCompressor
}

func (nc *noneCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (nc *noneCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }

func (nc *noneCompressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

func (nc *noneCompressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

// Gzip compressor
type gzipCompressor struct {
	baseCompressor
	gzipLevel int
}

func (gc *gzipCompressor) Compress(data []byte) ([]byte, error)   { return compressWith(gc, data) }
func (gc *gzipCompressor) Decompress(data []byte) ([]byte, error) { return decompressWith(gc, data) }

func (gc *gzipCompressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(w, gc.gzipLevel)
}

func (gc *gzipCompressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// Snappy compressor, framed format
type snappyCompressor struct {
	baseCompressor
}

func (sc *snappyCompressor) Compress(data []byte) ([]byte, error)   { return compressWith(sc, data) }
func (sc *snappyCompressor) Decompress(data []byte) ([]byte, error) { return decompressWith(sc, data) }

func (sc *snappyCompressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return snappy.NewBufferedWriter(w), nil
}

func (sc *snappyCompressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(snappy.NewReader(r)), nil
}

// S2 compressor
type s2Compressor struct {
	baseCompressor
	opts []s2.WriterOption
}

func (sc *s2Compressor) Compress(data []byte) ([]byte, error)   { return compressWith(sc, data) }
func (sc *s2Compressor) Decompress(data []byte) ([]byte, error) { return decompressWith(sc, data) }

func (sc *s2Compressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return s2.NewWriter(w, sc.opts...), nil
}

func (sc *s2Compressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(s2.NewReader(r)), nil
}

// LZ4 compressor, frame format
type lz4Compressor struct {
	baseCompressor
	lz4Level lz4.CompressionLevel
}

func (lc *lz4Compressor) Compress(data []byte) ([]byte, error)   { return compressWith(lc, data) }
func (lc *lz4Compressor) Decompress(data []byte) ([]byte, error) { return decompressWith(lc, data) }

func (lc *lz4Compressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	zw := lz4.NewWriter(w)
	if err := zw.Apply(lz4.CompressionLevelOption(lc.lz4Level)); err != nil {
		return nil, err
	}
	return zw, nil
}

func (lc *lz4Compressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

// Zstd compressor. In-memory calls share pooled encoders and decoders.
type zstdCompressor struct {
	baseCompressor
	encoderLevel zstd.EncoderLevel
	encoderPool  sync.Pool
	decoderPool  sync.Pool
}

func newZstdCompressor(base baseCompressor) (*zstdCompressor, error) {
	zc := &zstdCompressor{baseCompressor: base, encoderLevel: mapZstdLevel(base.level)}
	zc.encoderPool.New = func() interface{} {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zc.encoderLevel))
		return enc
	}
	zc.decoderPool.New = func() interface{} {
		dec, _ := zstd.NewReader(nil)
		return dec
	}
	return zc, nil
}

func (zc *zstdCompressor) Compress(data []byte) ([]byte, error) {
	enc := zc.encoderPool.Get().(*zstd.Encoder)
	defer zc.encoderPool.Put(enc)
	return enc.EncodeAll(data, nil), nil
}

func (zc *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	dec := zc.decoderPool.Get().(*zstd.Decoder)
	defer zc.decoderPool.Put(dec)
	return dec.DecodeAll(data, nil)
}

func (zc *zstdCompressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w, zstd.WithEncoderLevel(zc.encoderLevel))
}

func (zc *zstdCompressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}

// Helper functions to map compression levels

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func mapS2Level(level Level) []s2.WriterOption {
	switch level {
	case Better:
		return []s2.WriterOption{s2.WriterBetterCompression()}
	case Best:
		return []s2.WriterOption{s2.WriterBestCompression()}
	default:
		return nil
	}
}
