package columnar

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/concord/pkg/schema"
	"github.com/ajitpratap0/concord/pkg/table"
)

// buildRecords slices t into record batches of at most batchSize rows and
// hands each one to emit. The record is released after emit returns.
func buildRecords(mem memory.Allocator, t *table.Table, s *schema.Schema, as *arrow.Schema, batchSize int, emit func(arrow.Record) error) (int, error) {
	n := t.NumRows()
	if batchSize <= 0 {
		batchSize = max(n, 1)
	}
	cols := make([][]any, t.NumColumns())
	for i := range cols {
		cols[i] = t.ColumnAt(i)
	}

	b := array.NewRecordBuilder(mem, as)
	defer b.Release()

	batches := 0
	for start := 0; start < n; start += batchSize {
		end := min(start+batchSize, n)
		for c, field := range s.Fields {
			fb := b.Field(c)
			fb.Reserve(end - start)
			for r := start; r < end; r++ {
				v, err := schema.Convert(cols[c][r], field.Type)
				if err != nil {
					return batches, fmt.Errorf("column %q row %d: %w", field.Name, r, err)
				}
				if err := appendValue(fb, v); err != nil {
					return batches, fmt.Errorf("column %q row %d: %w", field.Name, r, err)
				}
			}
		}
		rec := b.NewRecord()
		err := emit(rec)
		rec.Release()
		if err != nil {
			return batches, err
		}
		batches++
	}
	return batches, nil
}

// appendValue appends a converted cell to the builder of its column.
func appendValue(builder array.Builder, v any) error {
	if v == nil {
		builder.AppendNull()
		return nil
	}
	switch b := builder.(type) {
	case *array.Int8Builder:
		b.Append(int8(v.(int64)))
	case *array.Int16Builder:
		b.Append(int16(v.(int64)))
	case *array.Int32Builder:
		b.Append(int32(v.(int64)))
	case *array.Int64Builder:
		b.Append(v.(int64))
	case *array.Uint8Builder:
		b.Append(uint8(v.(int64)))
	case *array.Uint16Builder:
		b.Append(uint16(v.(int64)))
	case *array.Uint32Builder:
		b.Append(uint32(v.(int64)))
	case *array.Uint64Builder:
		b.Append(uint64(v.(int64)))
	case *array.Float64Builder:
		b.Append(v.(float64))
	case *array.BooleanBuilder:
		b.Append(v.(bool))
	case *array.StringBuilder:
		b.Append(v.(string))
	case *array.TimestampBuilder:
		b.Append(arrow.Timestamp(v.(time.Time).UnixMicro()))
	default:
		return fmt.Errorf("unsupported builder type: %T", builder)
	}
	return nil
}

// columnSink accumulates decoded arrow batches column by column.
type columnSink struct {
	names []string
	cols  [][]any
}

func newColumnSink(as *arrow.Schema) *columnSink {
	cs := &columnSink{
		names: make([]string, as.NumFields()),
		cols:  make([][]any, as.NumFields()),
	}
	for i, f := range as.Fields() {
		cs.names[i] = f.Name
	}
	return cs
}

func (cs *columnSink) add(rec arrow.Record) {
	for c := 0; c < int(rec.NumCols()); c++ {
		col := rec.Column(c)
		for r := 0; r < col.Len(); r++ {
			cs.cols[c] = append(cs.cols[c], readValue(col, r))
		}
	}
}

func (cs *columnSink) build(name string) (*table.Table, error) {
	b := table.NewBuilder(name)
	for i, n := range cs.names {
		values := cs.cols[i]
		if values == nil {
			values = []any{}
		}
		if err := b.AppendColumn(n, values); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// readValue returns cell i of col as a normalized table value. Narrowed
// integers widen back to int64.
func readValue(col arrow.Array, i int) any {
	if col.IsNull(i) {
		return nil
	}
	switch c := col.(type) {
	case *array.Int8:
		return int64(c.Value(i))
	case *array.Int16:
		return int64(c.Value(i))
	case *array.Int32:
		return int64(c.Value(i))
	case *array.Int64:
		return c.Value(i)
	case *array.Uint8:
		return int64(c.Value(i))
	case *array.Uint16:
		return int64(c.Value(i))
	case *array.Uint32:
		return int64(c.Value(i))
	case *array.Uint64:
		return table.Normalize(c.Value(i))
	case *array.Float32:
		return table.Normalize(c.Value(i))
	case *array.Float64:
		return table.Normalize(c.Value(i))
	case *array.Boolean:
		return c.Value(i)
	case *array.String:
		return c.Value(i)
	case *array.LargeString:
		return c.Value(i)
	case *array.Binary:
		return string(c.Value(i))
	case *array.LargeBinary:
		return string(c.Value(i))
	case *array.Timestamp:
		unit := c.DataType().(*arrow.TimestampType).Unit
		return c.Value(i).ToTime(unit).UTC()
	case *array.Date32:
		return c.Value(i).ToTime().UTC()
	case *array.Date64:
		return c.Value(i).ToTime().UTC()
	default:
		return col.ValueStr(i)
	}
}

func tableName(as *arrow.Schema, fallback string) string {
	md := as.Metadata()
	if i := md.FindKey("table"); i >= 0 && md.Values()[i] != "" {
		return md.Values()[i]
	}
	return fallback
}
