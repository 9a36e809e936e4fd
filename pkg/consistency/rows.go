package consistency

import (
	"fmt"

	cerrors "github.com/ajitpratap0/concord/pkg/errors"
)

// Row is a record exposing its values by field name.
type Row interface {
	Field(name string) (any, bool)
}

// MapRow adapts a plain map to Row.
type MapRow map[string]any

// Field returns the value stored under name.
func (r MapRow) Field(name string) (any, bool) {
	v, ok := r[name]
	return v, ok
}

// ColumnPair extracts the positional key and value sequences from rows.
// It fails with ErrFieldNotFound on the first row missing either field.
func ColumnPair(rows []Row, keyField, valueField string) ([]any, []any, error) {
	keys := make([]any, len(rows))
	values := make([]any, len(rows))
	for i, row := range rows {
		k, ok := row.Field(keyField)
		if !ok {
			return nil, nil, fieldNotFound(keyField, i)
		}
		v, ok := row.Field(valueField)
		if !ok {
			return nil, nil, fieldNotFound(valueField, i)
		}
		keys[i] = k
		values[i] = v
	}
	return keys, values, nil
}

func fieldNotFound(field string, row int) error {
	return cerrors.Wrap(ErrFieldNotFound, cerrors.ErrorTypeNotFound,
		fmt.Sprintf("row %d has no field %q", row, field)).
		WithDetail("field", field).
		WithDetail("row", row)
}

// FindInconsistentKeysInRows runs FindInconsistentKeys over the named fields of rows.
func FindInconsistentKeysInRows(rows []Row, keyField, valueField string, opts ...Option[any]) (Set[any], error) {
	keys, values, err := ColumnPair(rows, keyField, valueField)
	if err != nil {
		return nil, err
	}
	return FindInconsistentKeys(keys, values, opts...)
}

// IsConsistentRows runs IsConsistent over the named fields of rows.
func IsConsistentRows(rows []Row, keyField, valueField string, opts ...Option[any]) (bool, error) {
	keys, values, err := ColumnPair(rows, keyField, valueField)
	if err != nil {
		return false, err
	}
	return IsConsistent(keys, values, opts...)
}

// CollectValueSetsFromRows runs CollectValueSets over the named fields of rows.
func CollectValueSetsFromRows(rows []Row, keyField, valueField string, opts ...Option[any]) (map[any]Set[any], error) {
	keys, values, err := ColumnPair(rows, keyField, valueField)
	if err != nil {
		return nil, err
	}
	return CollectValueSets(keys, values, opts...)
}
