package table

import (
	"fmt"
	"sort"
)

// Builder accumulates rows and produces an immutable Table.
// A Builder is not safe for concurrent use.
type Builder struct {
	name    string
	columns []string
	index   map[string]int
	data    [][]any
	rows    int
}

// NewBuilder creates a builder with an optional initial column order.
func NewBuilder(name string, columns ...string) *Builder {
	b := &Builder{name: name, index: make(map[string]int)}
	for _, c := range columns {
		b.addColumn(c)
	}
	return b
}

func (b *Builder) addColumn(name string) int {
	if i, ok := b.index[name]; ok {
		return i
	}
	i := len(b.columns)
	b.index[name] = i
	b.columns = append(b.columns, name)
	// earlier rows have no value for the new column
	b.data = append(b.data, make([]any, b.rows, max(b.rows, 16)))
	return i
}

// Append adds a row given as a map. Keys not seen before become new columns
// in sorted order of first appearance; columns absent from rec get nil.
func (b *Builder) Append(rec map[string]any) {
	for _, name := range sortedKeys(rec) {
		if _, ok := b.index[name]; !ok {
			b.addColumn(name)
		}
	}
	for c, name := range b.columns {
		b.data[c] = append(b.data[c], Normalize(rec[name]))
	}
	b.rows++
}

// AppendValues adds a row given positionally in column order.
func (b *Builder) AppendValues(values ...any) error {
	if len(values) != len(b.columns) {
		return fmt.Errorf("row %d has %d values, table %q has %d columns",
			b.rows, len(values), b.name, len(b.columns))
	}
	for c, v := range values {
		b.data[c] = append(b.data[c], Normalize(v))
	}
	b.rows++
	return nil
}

// AppendColumn adds a whole column. Its length must match the rows already
// appended, unless the builder is still empty.
func (b *Builder) AppendColumn(name string, values []any) error {
	if _, ok := b.index[name]; ok {
		return fmt.Errorf("column %q already exists", name)
	}
	if len(b.columns) > 0 && len(values) != b.rows {
		return fmt.Errorf("column %q has %d values, table %q has %d rows",
			name, len(values), b.name, b.rows)
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = Normalize(v)
	}
	b.index[name] = len(b.columns)
	b.columns = append(b.columns, name)
	b.data = append(b.data, cells)
	b.rows = len(values)
	return nil
}

// Len returns the number of rows appended so far.
func (b *Builder) Len() int { return b.rows }

// Build returns the table and resets the builder. A column holding both
// int64 and float64 cells and nothing else but nil is stored as float64.
func (b *Builder) Build() *Table {
	for _, col := range b.data {
		widenMixed(col)
	}
	t := &Table{
		name:    b.name,
		columns: b.columns,
		index:   b.index,
		data:    b.data,
		rows:    b.rows,
	}
	if t.columns == nil {
		t.columns = []string{}
	}
	b.columns = nil
	b.index = make(map[string]int)
	b.data = nil
	b.rows = 0
	return t
}

// FromStrings builds a table from delimited text, choosing one kind per
// column with the inferrer.
func FromStrings(name string, header []string, records [][]string, in *Inferrer) (*Table, error) {
	b := NewBuilder(name)
	for c, col := range header {
		present := make([]string, 0, len(records))
		for _, rec := range records {
			if c < len(rec) {
				present = append(present, rec[c])
			}
		}
		kind := in.ColumnKind(present)
		values := make([]any, len(records))
		for r, rec := range records {
			if c < len(rec) {
				values[r] = in.Convert(rec[c], kind)
			}
		}
		if err := b.AppendColumn(col, values); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// FromRecords builds a table from map records.
func FromRecords(name string, records []map[string]any) *Table {
	b := NewBuilder(name)
	for _, rec := range records {
		b.Append(rec)
	}
	return b.Build()
}

// widenMixed rewrites the int64 cells of col as float64 when col also holds
// float64 cells, so 1 and 1.0 compare equal.
func widenMixed(col []any) {
	var ints, floats bool
	for _, v := range col {
		switch v.(type) {
		case nil:
		case int64:
			ints = true
		case float64:
			floats = true
		default:
			return
		}
	}
	if !ints || !floats {
		return
	}
	for i, v := range col {
		if n, ok := v.(int64); ok {
			col[i] = float64(n)
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
