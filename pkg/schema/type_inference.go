// Package schema infers column types of a table and maps them to Arrow.
package schema

import (
	"fmt"
	"math"
	"time"

	"github.com/ajitpratap0/concord/pkg/table"
)

// FieldType is the logical type of a column.
type FieldType string

const (
	TypeNull      FieldType = "null"
	TypeInt       FieldType = "int"
	TypeFloat     FieldType = "float"
	TypeBool      FieldType = "bool"
	TypeString    FieldType = "string"
	TypeTimestamp FieldType = "timestamp"
)

// Field describes one column.
type Field struct {
	Name     string    `json:"name" yaml:"name"`
	Type     FieldType `json:"type" yaml:"type"`
	Nullable bool      `json:"nullable" yaml:"nullable"`
	// Min and Max are the integer extrema; valid when Type is TypeInt and
	// the column has at least one value.
	Min       int64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       int64 `json:"max,omitempty" yaml:"max,omitempty"`
	Count     int   `json:"count" yaml:"count"`
	NullCount int   `json:"null_count" yaml:"null_count"`
}

// Schema is the ordered list of fields of a table.
type Schema struct {
	Name   string  `json:"name" yaml:"name"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// Field returns the named field.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// InferColumn scans normalized cells and returns the column's field
// description. Mixed int and float cells become float; any other mix
// becomes string.
func InferColumn(name string, values []any) Field {
	f := Field{Name: name, Type: TypeNull, Count: len(values), Min: math.MaxInt64, Max: math.MinInt64}
	for _, v := range values {
		var t FieldType
		switch x := v.(type) {
		case nil:
			f.NullCount++
			continue
		case int64:
			t = TypeInt
			f.Min = min(f.Min, x)
			f.Max = max(f.Max, x)
		case float64:
			t = TypeFloat
		case bool:
			t = TypeBool
		case time.Time:
			t = TypeTimestamp
		default:
			t = TypeString
		}
		f.Type = merge(f.Type, t)
	}
	f.Nullable = f.NullCount > 0
	if f.Type != TypeInt || f.NullCount == f.Count {
		f.Min, f.Max = 0, 0
	}
	return f
}

func merge(a, b FieldType) FieldType {
	switch {
	case a == b:
		return a
	case a == TypeNull:
		return b
	case b == TypeNull:
		return a
	case (a == TypeInt && b == TypeFloat) || (a == TypeFloat && b == TypeInt):
		return TypeFloat
	default:
		return TypeString
	}
}

// Infer returns the schema of every column of t.
func Infer(t *table.Table) *Schema {
	s := &Schema{Name: t.Name(), Fields: make([]Field, 0, t.NumColumns())}
	for i, name := range t.Columns() {
		s.Fields = append(s.Fields, InferColumn(name, t.ColumnAt(i)))
	}
	return s
}

// Convert coerces a normalized cell to the column type. Cells that do not
// fit become their string form when the column is a string column, and an
// error otherwise.
func Convert(v any, t FieldType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case TypeInt:
		if n, ok := v.(int64); ok {
			return n, nil
		}
	case TypeFloat:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int64:
			return float64(x), nil
		}
	case TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TypeTimestamp:
		if ts, ok := v.(time.Time); ok {
			return ts, nil
		}
	case TypeString:
		switch x := v.(type) {
		case string:
			return x, nil
		case time.Time:
			return x.Format(time.RFC3339Nano), nil
		default:
			return fmt.Sprint(x), nil
		}
	case TypeNull:
		return nil, nil
	}
	return nil, fmt.Errorf("cannot store %T value in %s column", v, t)
}
