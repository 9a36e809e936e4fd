// Package table provides the immutable in-memory table that sources produce
// and checks consume.
//
// A Table is built once through a Builder and never changes afterwards. Its
// cells are normalized on the way in (see Normalize), so any two cells can be
// compared with == and used as map keys.
package table

import (
	"fmt"

	"github.com/ajitpratap0/concord/pkg/consistency"
	cerrors "github.com/ajitpratap0/concord/pkg/errors"
)

// Table is an immutable, column-major snapshot of tabular data.
type Table struct {
	name    string
	columns []string
	index   map[string]int
	data    [][]any
	rows    int
}

// Name returns the table name, usually the source it was read from.
func (t *Table) Name() string { return t.name }

// Renamed returns a table sharing t's data under another name.
func (t *Table) Renamed(name string) *Table {
	c := *t
	c.name = name
	return &c
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return t.rows }

// WithColumns returns a table that also holds an empty column for every
// name t lacks. Only a table without rows can gain columns; any other table
// is returned unchanged.
func (t *Table) WithColumns(names ...string) *Table {
	if t.rows > 0 {
		return t
	}
	out := &Table{
		name:    t.name,
		columns: append([]string{}, t.columns...),
		index:   make(map[string]int, len(t.columns)+len(names)),
		data:    append([][]any(nil), t.data...),
	}
	for name, i := range t.index {
		out.index[name] = i
	}
	for _, name := range names {
		if _, ok := out.index[name]; ok || name == "" {
			continue
		}
		out.index[name] = len(out.columns)
		out.columns = append(out.columns, name)
		out.data = append(out.data, []any{})
	}
	return out
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.columns) }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// HasColumn reports whether the table has a column called name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a copy of the named column's cells.
func (t *Table) Column(name string) ([]any, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, columnNotFound(t.name, name)
	}
	return append([]any(nil), t.data[i]...), nil
}

// ColumnAt returns a copy of the i-th column's cells.
func (t *Table) ColumnAt(i int) []any {
	return append([]any(nil), t.data[i]...)
}

// Value returns the cell at row, column index col.
func (t *Table) Value(row, col int) any {
	return t.data[col][row]
}

// Record returns row i as a map from column name to cell.
func (t *Table) Record(i int) map[string]any {
	rec := make(map[string]any, len(t.columns))
	for c, name := range t.columns {
		rec[name] = t.data[c][i]
	}
	return rec
}

// Rows returns a view of every row for use with the consistency package.
func (t *Table) Rows() []consistency.Row {
	rows := make([]consistency.Row, t.rows)
	for i := range rows {
		rows[i] = row{t: t, i: i}
	}
	return rows
}

// Pair returns the key and value columns for a consistency scan.
func (t *Table) Pair(keyField, valueField string) ([]any, []any, error) {
	keys, err := t.Column(keyField)
	if err != nil {
		return nil, nil, err
	}
	values, err := t.Column(valueField)
	if err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

// Select returns a new table holding only the named columns, in that order.
func (t *Table) Select(names ...string) (*Table, error) {
	out := &Table{
		name:  t.name,
		index: make(map[string]int, len(names)),
		rows:  t.rows,
	}
	for _, name := range names {
		i, ok := t.index[name]
		if !ok {
			return nil, columnNotFound(t.name, name)
		}
		if _, dup := out.index[name]; dup {
			continue
		}
		out.index[name] = len(out.columns)
		out.columns = append(out.columns, name)
		out.data = append(out.data, t.data[i])
	}
	return out, nil
}

// String returns a short description of the table.
func (t *Table) String() string {
	return fmt.Sprintf("table %q (%d rows x %d columns)", t.name, t.rows, len(t.columns))
}

type row struct {
	t *Table
	i int
}

func (r row) Field(name string) (any, bool) {
	c, ok := r.t.index[name]
	if !ok {
		return nil, false
	}
	return r.t.data[c][r.i], true
}

func columnNotFound(table, column string) error {
	return cerrors.Wrap(consistency.ErrFieldNotFound, cerrors.ErrorTypeNotFound,
		fmt.Sprintf("table %q has no column %q", table, column)).
		WithDetail("column", column)
}
