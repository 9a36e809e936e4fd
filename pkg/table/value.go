package table

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/ajitpratap0/concord/pkg/json"
	"github.com/ajitpratap0/concord/pkg/pool"
)

// Normalize converts v to one of the cell types a Table stores: string,
// int64, float64, bool, time.Time or nil. Every result is comparable with
// ==, so cells can be used as keys and values in consistency scans.
//
// Byte slices become strings, integers and floats widen, NaN becomes nil,
// times move to UTC and nested values are JSON-encoded.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		return t
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case uint:
		return normalizeUint(uint64(t))
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return normalizeUint(t)
	case float32:
		return normalizeFloat(float64(t))
	case float64:
		return normalizeFloat(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return normalizeFloat(f)
		}
		return t.String()
	case time.Time:
		return t.UTC()
	case fmt.Stringer:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil
		}
		if isComposite(v) {
			return encode(v)
		}
		return t.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return Normalize(rv.Elem().Interface())
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return normalizeUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return normalizeFloat(rv.Float())
	default:
		return encode(v)
	}
}

func normalizeUint(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}

func normalizeFloat(f float64) any {
	if math.IsNaN(f) {
		return nil
	}
	return f
}

func isComposite(v any) bool {
	switch reflect.Indirect(reflect.ValueOf(v)).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	}
	return false
}

func encode(v any) any {
	data, err := json.MarshalCompact(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// Inferrer converts delimited text to typed cells.
type Inferrer struct {
	missing map[string]struct{}
	trim    bool
	strs    *pool.Interner
}

// NewInferrer returns an Inferrer treating markers as missing values.
func NewInferrer(markers []string, trim bool) *Inferrer {
	m := make(map[string]struct{}, len(markers))
	for _, s := range markers {
		m[s] = struct{}{}
	}
	return &Inferrer{missing: m, trim: trim}
}

// WithInterner makes string cells share storage through p.
func (in *Inferrer) WithInterner(p *pool.Interner) *Inferrer {
	in.strs = p
	return in
}

// Interner returns the interner set by WithInterner, or nil.
func (in *Inferrer) Interner() *pool.Interner {
	return in.strs
}

// IsMissing reports whether s is one of the missing markers.
func (in *Inferrer) IsMissing(s string) bool {
	if in.trim {
		s = strings.TrimSpace(s)
	}
	_, ok := in.missing[s]
	return ok
}

// Kind is the cell type chosen for a text column.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// ColumnKind returns the narrowest kind that parses every non-missing cell,
// trying int, then float, then bool, then string.
func (in *Inferrer) ColumnKind(cells []string) Kind {
	kind := KindNull
	for _, raw := range cells {
		if in.IsMissing(raw) {
			continue
		}
		s := in.clean(raw)
		kind = widen(kind, cellKind(s))
		if kind == KindString {
			break
		}
	}
	return kind
}

// Convert parses s as kind. Missing markers and unparsable text become nil
// except for KindString, which keeps the text.
func (in *Inferrer) Convert(s string, kind Kind) any {
	if in.IsMissing(s) {
		return nil
	}
	s = in.clean(s)
	switch kind {
	case KindInt:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case KindFloat:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return normalizeFloat(f)
		}
	case KindBool:
		if b, ok := parseBool(s); ok {
			return b
		}
	case KindString:
		if in.strs != nil {
			return in.strs.Intern(s)
		}
		return s
	}
	return nil
}

// Infer converts a single cell on its own, using the same order as
// ColumnKind.
func (in *Inferrer) Infer(s string) any {
	if in.IsMissing(s) {
		return nil
	}
	return in.Convert(s, cellKind(in.clean(s)))
}

func (in *Inferrer) clean(s string) string {
	if in.trim {
		return strings.TrimSpace(s)
	}
	return s
}

func cellKind(s string) Kind {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return KindInt
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return KindFloat
	}
	if _, ok := parseBool(s); ok {
		return KindBool
	}
	return KindString
}

// widen merges two kinds; int and float meet at float, anything else at string.
func widen(a, b Kind) Kind {
	switch {
	case a == b:
		return a
	case a == KindNull:
		return b
	case b == KindNull:
		return a
	case (a == KindInt && b == KindFloat) || (a == KindFloat && b == KindInt):
		return KindFloat
	default:
		return KindString
	}
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}
