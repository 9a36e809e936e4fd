package table

import (
	stderrors "errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/concord/pkg/consistency"
	"github.com/ajitpratap0/concord/pkg/json"
	"github.com/ajitpratap0/concord/pkg/pool"
)

func TestNormalize(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	s := "ptr"
	var nilPtr *int

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"bytes", []byte("abc"), "abc"},
		{"int", 7, int64(7)},
		{"int8", int8(-3), int64(-3)},
		{"uint32", uint32(9), int64(9)},
		{"huge uint64", uint64(math.MaxUint64), float64(math.MaxUint64)},
		{"float32", float32(1.5), 1.5},
		{"nan", math.NaN(), nil},
		{"bool", true, true},
		{"time to utc", ts, ts.UTC()},
		{"json int", json.Number("42"), int64(42)},
		{"json float", json.Number("4.25"), 4.25},
		{"pointer", &s, "ptr"},
		{"nil pointer", nilPtr, nil},
		{"map", map[string]any{"b": 1, "a": "x"}, `{"a":"x","b":1}`},
		{"slice", []int{1, 2}, "[1,2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestColumnKind(t *testing.T) {
	in := NewInferrer([]string{"", "NA"}, true)

	assert.Equal(t, KindInt, in.ColumnKind([]string{"1", " 2 ", "NA"}))
	assert.Equal(t, KindFloat, in.ColumnKind([]string{"1", "2.5"}))
	assert.Equal(t, KindBool, in.ColumnKind([]string{"true", "False", ""}))
	assert.Equal(t, KindString, in.ColumnKind([]string{"1", "x"}))
	assert.Equal(t, KindString, in.ColumnKind([]string{"true", "1"}))
	assert.Equal(t, KindNull, in.ColumnKind([]string{"NA", ""}))
	assert.Equal(t, "float", KindFloat.String())
}

func TestInfer(t *testing.T) {
	in := NewInferrer([]string{"", "NA", "None"}, false)

	assert.Equal(t, int64(12), in.Infer("12"))
	assert.Equal(t, 0.5, in.Infer("0.5"))
	assert.Equal(t, true, in.Infer("TRUE"))
	assert.Equal(t, "M", in.Infer("M"))
	assert.Nil(t, in.Infer("NA"))
	assert.Nil(t, in.Infer("None"))
	assert.Nil(t, in.Infer("NaN"), "NaN parses as a float and is stored as missing")
	assert.Equal(t, " 1", in.Convert(" 1", KindString))
}

func TestFromStrings(t *testing.T) {
	in := NewInferrer([]string{"", "NA"}, true)
	tbl, err := FromStrings("subjects",
		[]string{"subject", "age", "smoker"},
		[][]string{
			{"s1", "31", "true"},
			{"s1", "NA", "false"},
			{"s2", "40"},
		}, in)
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, []string{"subject", "age", "smoker"}, tbl.Columns())

	age, err := tbl.Column("age")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(31), nil, int64(40)}, age)

	smoker, err := tbl.Column("smoker")
	require.NoError(t, err)
	assert.Equal(t, []any{true, false, nil}, smoker)

	_, err = FromStrings("dup", []string{"a", "a"}, nil, in)
	assert.Error(t, err)
}

func TestBuilderAppend(t *testing.T) {
	b := NewBuilder("events", "id")
	b.Append(map[string]any{"id": 1, "kind": "a"})
	b.Append(map[string]any{"id": 2, "extra": []byte("x")})
	require.NoError(t, b.AppendValues(3, "c", nil))
	assert.Error(t, b.AppendValues(4))
	assert.Equal(t, 3, b.Len())

	tbl := b.Build()
	assert.Equal(t, 0, b.Len(), "builder resets after Build")
	assert.Equal(t, []string{"id", "kind", "extra"}, tbl.Columns())
	assert.Equal(t, map[string]any{"id": int64(2), "kind": nil, "extra": "x"}, tbl.Record(1))
	assert.Equal(t, "c", tbl.Value(2, 1))
	assert.Contains(t, tbl.String(), "3 rows x 3 columns")
}

func TestBuildWidensMixedNumbers(t *testing.T) {
	tbl := FromRecords("t", []map[string]any{
		{"k": "a", "n": 1, "s": 1},
		{"k": "a", "n": 1.0, "s": "one"},
		{"k": "b", "n": 2, "s": 2},
		{"k": "b", "n": 2.5, "s": 2},
		{"k": "c", "n": nil},
	})
	n, err := tbl.Column("n")
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 1.0, 2.0, 2.5, nil}, n)
	s, err := tbl.Column("s")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), "one", int64(2), int64(2), nil}, s)

	keys, values, err := tbl.Pair("k", "n")
	require.NoError(t, err)
	bad, err := consistency.FindInconsistentKeys(keys, values, consistency.WithMissing(consistency.IsNil))
	require.NoError(t, err)
	assert.Equal(t, []any{"b"}, bad.Members())
}

func TestTableImmutable(t *testing.T) {
	tbl := FromRecords("t", []map[string]any{{"k": 1}, {"k": 2}})

	col, err := tbl.Column("k")
	require.NoError(t, err)
	col[0] = "changed"

	again, err := tbl.Column("k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), again[0])

	cols := tbl.Columns()
	cols[0] = "renamed"
	assert.True(t, tbl.HasColumn("k"))
}

func TestWithColumns(t *testing.T) {
	empty := NewBuilder("t").Build()
	got := empty.WithColumns("id", "site", "id", "")
	assert.Equal(t, []string{"id", "site"}, got.Columns())
	assert.Equal(t, 0, got.NumRows())
	keys, values, err := got.Pair("id", "site")
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Empty(t, values)
	assert.Empty(t, empty.Columns())

	full := FromRecords("t", []map[string]any{{"k": 1}})
	assert.Same(t, full, full.WithColumns("v"))
}

func TestColumnNotFound(t *testing.T) {
	tbl := FromRecords("t", []map[string]any{{"k": 1}})

	_, err := tbl.Column("v")
	assert.True(t, stderrors.Is(err, consistency.ErrFieldNotFound))
	_, _, err = tbl.Pair("k", "v")
	assert.True(t, stderrors.Is(err, consistency.ErrFieldNotFound))
	_, err = tbl.Select("k", "v")
	assert.True(t, stderrors.Is(err, consistency.ErrFieldNotFound))
}

func TestRowsFeedConsistency(t *testing.T) {
	tbl := FromRecords("subjects", []map[string]any{
		{"subject": "s1", "sex": "M"},
		{"subject": "s1", "sex": "F"},
		{"subject": "s2", "sex": "F"},
	})

	bad, err := consistency.FindInconsistentKeysInRows(tbl.Rows(), "subject", "sex")
	require.NoError(t, err)
	assert.True(t, consistency.NewSet[any]("s1").Equal(bad))

	keys, values, err := tbl.Pair("subject", "sex")
	require.NoError(t, err)
	ok, err := consistency.IsConsistent(keys, values)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelect(t *testing.T) {
	tbl := FromRecords("t", []map[string]any{{"a": 1, "b": 2, "c": 3}})
	sel, err := tbl.Select("c", "a", "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, sel.Columns())
	assert.Equal(t, 1, sel.NumRows())
	assert.Equal(t, int64(3), sel.Value(0, 0))
}

func TestFlatten(t *testing.T) {
	got := Flatten(map[string]any{
		"id":   1,
		"meta": map[string]any{"site": "A", "visit": map[string]any{"n": 2}},
		"tags": []any{"x"},
		"none": map[string]any{},
	})
	assert.Equal(t, map[string]any{
		"id":           1,
		"meta.site":    "A",
		"meta.visit.n": 2,
		"tags":         []any{"x"},
		"none":         map[string]any{},
	}, got)
}

func TestRenamed(t *testing.T) {
	b := NewBuilder("a", "k")
	require.NoError(t, b.AppendValues(1))
	orig := b.Build()
	c := orig.Renamed("b")
	assert.Equal(t, "a", orig.Name())
	assert.Equal(t, "b", c.Name())
	assert.Equal(t, orig.Record(0), c.Record(0))
}

func TestFromStringsInterned(t *testing.T) {
	strs := pool.NewInterner(0)
	in := NewInferrer([]string{""}, true).WithInterner(strs)
	tbl, err := FromStrings("visits",
		[]string{"site"},
		[][]string{{"A"}, {"B"}, {"A"}, {""}, {"A"}},
		in)
	require.NoError(t, err)

	sites, err := tbl.Column("site")
	require.NoError(t, err)
	assert.Equal(t, []any{"A", "B", "A", nil, "A"}, sites)
	assert.Equal(t, 2, strs.Len())
	hits, _ := strs.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Same(t, in.Interner(), strs)
}
