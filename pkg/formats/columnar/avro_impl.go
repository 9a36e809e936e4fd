package columnar

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/concord/pkg/json"
	"github.com/ajitpratap0/concord/pkg/schema"
	"github.com/ajitpratap0/concord/pkg/table"
)

// columnsAttr is the record attribute that keeps the original column names
// when they are not valid Avro names.
const columnsAttr = "concord.columns"

const timestampType = "long.timestamp-micros"

func getAvroCompression(name string) (string, error) {
	switch strings.ToLower(name) {
	case "snappy":
		return goavro.CompressionSnappyLabel, nil
	case "deflate":
		return goavro.CompressionDeflateLabel, nil
	default:
		if isUncompressed(name) {
			return goavro.CompressionNullLabel, nil
		}
		return "", fmt.Errorf("unsupported Avro compression: %s", name)
	}
}

// avroColumn describes how one table column is stored in Avro.
type avroColumn struct {
	name     string // avro field name
	typeName string // primitive or logical branch name
	nullable bool
	field    schema.Field
}

func avroTypeName(f schema.Field, narrow bool) string {
	switch f.Type {
	case schema.TypeInt:
		if narrow {
			dt := schema.ArrowType(f, true)
			switch dt.ID() {
			case arrow.INT8, arrow.INT16, arrow.INT32, arrow.UINT8, arrow.UINT16:
				return "int"
			}
		}
		return "long"
	case schema.TypeFloat:
		return "double"
	case schema.TypeBool:
		return "boolean"
	case schema.TypeTimestamp:
		return timestampType
	default:
		return "string"
	}
}

func avroTypeJSON(typeName string) interface{} {
	if typeName == timestampType {
		return map[string]interface{}{"type": "long", "logicalType": "timestamp-micros"}
	}
	return typeName
}

// avroName turns s into a valid Avro name.
func avroName(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

func avroColumns(s *schema.Schema, narrow bool) []avroColumn {
	cols := make([]avroColumn, len(s.Fields))
	used := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		base := avroName(f.Name)
		name := base
		for n := 1; used[name]; n++ {
			name = base + "_" + strconv.Itoa(n)
		}
		used[name] = true
		cols[i] = avroColumn{
			name:     name,
			typeName: avroTypeName(f, narrow),
			nullable: f.Nullable || f.Type == schema.TypeNull,
			field:    f,
		}
	}
	return cols
}

func avroSchemaJSON(tableName string, cols []avroColumn) (string, error) {
	fields := make([]map[string]interface{}, 0, len(cols))
	originals := make([]string, 0, len(cols))
	for _, c := range cols {
		var typ interface{} = avroTypeJSON(c.typeName)
		if c.nullable {
			typ = []interface{}{"null", typ}
		}
		fields = append(fields, map[string]interface{}{"name": c.name, "type": typ})
		originals = append(originals, c.field.Name)
	}
	if tableName == "" {
		tableName = "table"
	}
	data, err := json.Marshal(map[string]interface{}{
		"type":      "record",
		"name":      avroName(tableName),
		"fields":    fields,
		columnsAttr: originals,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func avroNative(c avroColumn, v any) (interface{}, error) {
	v, err := schema.Convert(v, c.field.Type)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	if c.typeName == "int" {
		v = int32(v.(int64))
	}
	if c.nullable {
		return goavro.Union(c.typeName, v), nil
	}
	return v, nil
}

func writeAvro(w io.Writer, t *table.Table, cfg *WriterConfig) (*WriteStats, error) {
	compression, err := getAvroCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}

	s := schema.Infer(t)
	cols := avroColumns(s, cfg.NarrowIntegers)
	schemaJSON, err := avroSchemaJSON(t.Name(), cols)
	if err != nil {
		return nil, fmt.Errorf("failed to build Avro schema: %w", err)
	}
	codec, err := goavro.NewCodec(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to create Avro codec: %w", err)
	}

	ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           codec,
		CompressionName: compression,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Avro writer: %w", err)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = max(t.NumRows(), 1)
	}
	columns := make([][]any, len(cols))
	for i := range columns {
		columns[i] = t.ColumnAt(i)
	}

	batches := 0
	block := make([]interface{}, 0, min(batchSize, t.NumRows()))
	for r := 0; r < t.NumRows(); r++ {
		native := make(map[string]interface{}, len(cols))
		for i, c := range cols {
			v, err := avroNative(c, columns[i][r])
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", c.field.Name, r, err)
			}
			native[c.name] = v
		}
		block = append(block, native)
		if len(block) == batchSize {
			if err := ocfWriter.Append(block); err != nil {
				return nil, fmt.Errorf("failed to write Avro block: %w", err)
			}
			block = block[:0]
			batches++
		}
	}
	if len(block) > 0 {
		if err := ocfWriter.Append(block); err != nil {
			return nil, fmt.Errorf("failed to write Avro block: %w", err)
		}
		batches++
	}

	return &WriteStats{Rows: int64(t.NumRows()), Batches: batches, Schema: avroArrowSchema(t.Name(), cols)}, nil
}

func avroArrowSchema(name string, cols []avroColumn) *arrow.Schema {
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c.field.Name, Type: avroArrowType(c.typeName), Nullable: c.nullable}
	}
	md := arrow.NewMetadata([]string{"table"}, []string{name})
	return arrow.NewSchema(fields, &md)
}

func avroArrowType(typeName string) arrow.DataType {
	switch typeName {
	case "int":
		return arrow.PrimitiveTypes.Int32
	case "long":
		return arrow.PrimitiveTypes.Int64
	case "float":
		return arrow.PrimitiveTypes.Float32
	case "double":
		return arrow.PrimitiveTypes.Float64
	case "boolean":
		return arrow.FixedWidthTypes.Boolean
	case timestampType, "long.timestamp-millis":
		return arrow.FixedWidthTypes.Timestamp_us
	case "bytes":
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.String
	}
}

// avroFileSchema is the subset of a record schema needed to read a file.
type avroFileSchema struct {
	Name    string            `json:"name"`
	Fields  []json.RawMessage `json:"fields"`
	Columns []string          `json:"concord.columns"`
}

type avroFileField struct {
	Name string      `json:"name"`
	Type interface{} `json:"type"`
}

// branchName returns the goavro name of a field type and whether it is a
// union with null.
func branchName(t interface{}) (string, bool) {
	switch x := t.(type) {
	case string:
		return x, false
	case map[string]interface{}:
		base, _ := x["type"].(string)
		if lt, ok := x["logicalType"].(string); ok {
			return base + "." + lt, false
		}
		return base, false
	case []interface{}:
		name, nullable := "", false
		for _, branch := range x {
			if s, ok := branch.(string); ok && s == "null" {
				nullable = true
				continue
			}
			name, _ = branchName(branch)
		}
		return name, nullable
	}
	return "string", false
}

func readAvro(r io.Reader, name string) (*ReadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read Avro data: %w", err)
	}
	ocfReader, err := goavro.NewOCFReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create Avro reader: %w", err)
	}

	var fs avroFileSchema
	if err := json.Unmarshal([]byte(ocfReader.Codec().Schema()), &fs); err != nil {
		return nil, fmt.Errorf("failed to parse Avro schema: %w", err)
	}
	cols := make([]avroColumn, len(fs.Fields))
	for i, raw := range fs.Fields {
		var ff avroFileField
		if err := json.Unmarshal(raw, &ff); err != nil {
			return nil, fmt.Errorf("failed to parse Avro field: %w", err)
		}
		typeName, nullable := branchName(ff.Type)
		original := ff.Name
		if len(fs.Columns) == len(fs.Fields) {
			original = fs.Columns[i]
		}
		cols[i] = avroColumn{
			name:     ff.Name,
			typeName: typeName,
			nullable: nullable,
			field:    schema.Field{Name: original},
		}
	}

	values := make([][]any, len(cols))
	for i := range values {
		values[i] = []any{}
	}
	for ocfReader.Scan() {
		datum, err := ocfReader.Read()
		if err != nil {
			return nil, fmt.Errorf("failed to read Avro record: %w", err)
		}
		rec, ok := datum.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected Avro datum %T", datum)
		}
		for i, c := range cols {
			values[i] = append(values[i], table.Normalize(unwrapUnion(rec[c.name])))
		}
	}
	if err := ocfReader.Err(); err != nil {
		return nil, fmt.Errorf("failed to read Avro file: %w", err)
	}

	if fs.Name != "" {
		name = fs.Name
	}
	b := table.NewBuilder(name)
	for i, c := range cols {
		if err := b.AppendColumn(c.field.Name, values[i]); err != nil {
			return nil, err
		}
	}
	return &ReadResult{Table: b.Build(), Schema: avroArrowSchema(name, cols)}, nil
}

// unwrapUnion returns the value inside a decoded union.
func unwrapUnion(v interface{}) interface{} {
	if m, ok := v.(map[string]interface{}); ok && len(m) == 1 {
		for _, inner := range m {
			return inner
		}
	}
	return v
}
