package columnar

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/concord/pkg/schema"
	"github.com/ajitpratap0/concord/pkg/table"
)

// ipcWriter is the part shared by ipc.FileWriter and ipc.Writer.
type ipcWriter interface {
	Write(rec arrow.Record) error
	Close() error
}

func arrowCompressionOption(name string) (ipc.Option, error) {
	switch strings.ToLower(name) {
	case "lz4", "lz4_frame":
		return ipc.WithLZ4(), nil
	case "zstd":
		return ipc.WithZstd(), nil
	default:
		if isUncompressed(name) {
			return nil, nil
		}
		return nil, fmt.Errorf("unsupported Arrow compression: %s", name)
	}
}

func writeArrow(w io.Writer, t *table.Table, cfg *WriterConfig) (*WriteStats, error) {
	mem := memory.NewGoAllocator()
	as, s := schema.ArrowSchema(t, cfg.NarrowIntegers)

	opts := []ipc.Option{ipc.WithSchema(as), ipc.WithAllocator(mem)}
	codec, err := arrowCompressionOption(cfg.Compression)
	if err != nil {
		return nil, err
	}
	if codec != nil {
		opts = append(opts, codec)
	}

	var iw ipcWriter
	if cfg.Format == ArrowStream {
		iw = ipc.NewWriter(w, opts...)
	} else {
		fw, err := ipc.NewFileWriter(w, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Arrow writer: %w", err)
		}
		iw = fw
	}

	batches, err := buildRecords(mem, t, s, as, cfg.BatchSize, func(rec arrow.Record) error {
		if err := iw.Write(rec); err != nil {
			return fmt.Errorf("failed to write record batch: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = iw.Close()
		return nil, err
	}
	if err := iw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close Arrow writer: %w", err)
	}

	return &WriteStats{Rows: int64(t.NumRows()), Batches: batches, Schema: as}, nil
}

func readArrowFile(r io.Reader, name string) (*ReadResult, error) {
	// The file format keeps its footer at the end, so it needs random access.
	rs, err := randomAccess(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read Arrow data: %w", err)
	}

	fr, err := ipc.NewFileReader(rs, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow reader: %w", err)
	}
	defer fr.Close()

	as := fr.Schema()
	sink := newColumnSink(as)
	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read record batch %d: %w", i, err)
		}
		sink.add(rec)
	}

	tbl, err := sink.build(tableName(as, name))
	if err != nil {
		return nil, err
	}
	return &ReadResult{Table: tbl, Schema: as, Batches: fr.NumRecords()}, nil
}

func readArrowStream(r io.Reader, name string) (*ReadResult, error) {
	sr, err := ipc.NewReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow stream reader: %w", err)
	}
	defer sr.Release()

	as := sr.Schema()
	sink := newColumnSink(as)
	batches := 0
	for sr.Next() {
		sink.add(sr.Record())
		batches++
	}
	if err := sr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read Arrow stream: %w", err)
	}

	tbl, err := sink.build(tableName(as, name))
	if err != nil {
		return nil, err
	}
	return &ReadResult{Table: tbl, Schema: as, Batches: batches}, nil
}
