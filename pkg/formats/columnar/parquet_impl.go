package columnar

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/concord/pkg/schema"
	"github.com/ajitpratap0/concord/pkg/table"
)

func getParquetCompression(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "lz4", "lz4_raw":
		return compress.Codecs.Lz4Raw, nil
	case "brotli":
		return compress.Codecs.Brotli, nil
	default:
		if isUncompressed(name) {
			return compress.Codecs.Uncompressed, nil
		}
		return compress.Codecs.Uncompressed, fmt.Errorf("unsupported Parquet compression: %s", name)
	}
}

func writeParquet(w io.Writer, t *table.Table, cfg *WriterConfig) (*WriteStats, error) {
	codec, err := getParquetCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}

	mem := memory.NewGoAllocator()
	as, s := schema.ArrowSchema(t, cfg.NarrowIntegers)

	props := parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithDictionaryDefault(true),
		parquet.WithAllocator(mem),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(mem),
		pqarrow.WithStoreSchema(),
	)

	fw, err := pqarrow.NewFileWriter(as, w, props, arrowProps)
	if err != nil {
		return nil, fmt.Errorf("failed to create Parquet writer: %w", err)
	}

	batches, err := buildRecords(mem, t, s, as, cfg.BatchSize, func(rec arrow.Record) error {
		if err := fw.Write(rec); err != nil {
			return fmt.Errorf("failed to write row group: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = fw.Close()
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close Parquet writer: %w", err)
	}

	return &WriteStats{Rows: int64(t.NumRows()), Batches: batches, Schema: as}, nil
}

func readParquet(r io.Reader, name string) (*ReadResult, error) {
	// Parquet keeps its metadata in the footer, so it needs random access.
	rs, err := randomAccess(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read Parquet data: %w", err)
	}

	fr, err := file.NewParquetReader(rs)
	if err != nil {
		return nil, fmt.Errorf("failed to create Parquet reader: %w", err)
	}
	defer fr.Close()

	mem := memory.NewGoAllocator()
	ar, err := pqarrow.NewFileReader(fr, pqarrow.ArrowReadProperties{BatchSize: 64 * 1024}, mem)
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow reader: %w", err)
	}

	as, err := ar.Schema()
	if err != nil {
		return nil, fmt.Errorf("failed to get Arrow schema: %w", err)
	}

	tbl, err := ar.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to read Parquet table: %w", err)
	}
	defer tbl.Release()

	sink := newColumnSink(as)
	tr := array.NewTableReader(tbl, 64*1024)
	defer tr.Release()
	for tr.Next() {
		sink.add(tr.Record())
	}

	out, err := sink.build(tableName(as, name))
	if err != nil {
		return nil, err
	}
	return &ReadResult{Table: out, Schema: as, Batches: fr.NumRowGroups()}, nil
}
