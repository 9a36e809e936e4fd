package schema

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/concord/pkg/table"
)

// ToArrow maps s to an Arrow schema. With narrow set, integer columns use
// the smallest type that holds their extrema. Columns without any value are
// stored as nullable strings.
func ToArrow(s *Schema, narrow bool) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		fields = append(fields, arrow.Field{
			Name:     f.Name,
			Type:     ArrowType(f, narrow),
			Nullable: f.Nullable || f.Type == TypeNull,
		})
	}
	md := arrow.NewMetadata([]string{"table"}, []string{s.Name})
	return arrow.NewSchema(fields, &md)
}

// ArrowSchema infers the schema of t and maps it to Arrow.
func ArrowSchema(t *table.Table, narrow bool) (*arrow.Schema, *Schema) {
	s := Infer(t)
	return ToArrow(s, narrow), s
}

// ArrowType returns the Arrow type used to store f.
func ArrowType(f Field, narrow bool) arrow.DataType {
	switch f.Type {
	case TypeInt:
		if narrow && f.Count > f.NullCount {
			return NarrowInt(f.Min, f.Max)
		}
		return arrow.PrimitiveTypes.Int64
	case TypeFloat:
		return arrow.PrimitiveTypes.Float64
	case TypeBool:
		return arrow.FixedWidthTypes.Boolean
	case TypeTimestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

// FromArrowType maps an Arrow type back to a logical type.
func FromArrowType(dt arrow.DataType) (FieldType, error) {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return TypeInt, nil
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return TypeFloat, nil
	case arrow.BOOL:
		return TypeBool, nil
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return TypeTimestamp, nil
	case arrow.STRING, arrow.LARGE_STRING, arrow.BINARY, arrow.LARGE_BINARY:
		return TypeString, nil
	case arrow.NULL:
		return TypeNull, nil
	default:
		return "", fmt.Errorf("unsupported arrow type %s", dt)
	}
}

// FromArrow converts an Arrow schema to a Schema without statistics.
func FromArrow(as *arrow.Schema) (*Schema, error) {
	s := &Schema{Fields: make([]Field, 0, len(as.Fields()))}
	if md := as.Metadata(); md.Len() > 0 {
		if i := md.FindKey("table"); i >= 0 {
			s.Name = md.Values()[i]
		}
	}
	for _, af := range as.Fields() {
		ft, err := FromArrowType(af.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", af.Name, err)
		}
		s.Fields = append(s.Fields, Field{Name: af.Name, Type: ft, Nullable: af.Nullable})
	}
	return s, nil
}
