package consistency

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"

	cerrors "github.com/ajitpratap0/concord/pkg/errors"
)

var (
	// ErrLengthMismatch is returned when the key and value sequences differ in length.
	ErrLengthMismatch = stderrors.New("length mismatch")
	// ErrFieldNotFound is returned when a row lacks a requested field.
	ErrFieldNotFound = stderrors.New("field not found")
	// ErrUndefinedComparison is returned when a key or value cannot be compared or hashed.
	ErrUndefinedComparison = stderrors.New("undefined comparison")
)

func checkLengths(nKeys, nValues int) error {
	if nKeys == nValues {
		return nil
	}
	return cerrors.Wrap(ErrLengthMismatch, cerrors.ErrorTypeValidation,
		fmt.Sprintf("keys has %d rows but values has %d", nKeys, nValues)).
		WithDetail("keys", nKeys).
		WithDetail("values", nValues)
}

// protect runs fn and converts a comparison panic into an error.
func protect(fn func()) (err error) {
	defer guardComparison(&err)
	fn()
	return nil
}

// guardComparison turns the runtime panic raised by comparing or hashing an
// incomparable dynamic value into ErrUndefinedComparison.
func guardComparison(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if re, ok := r.(runtime.Error); ok {
		msg := re.Error()
		if strings.Contains(msg, "uncomparable") || strings.Contains(msg, "unhashable") {
			*err = cerrors.Wrap(ErrUndefinedComparison, cerrors.ErrorTypeData, msg)
			return
		}
	}
	panic(r)
}

// scan walks the rows once, keeping the first defined value per key, and
// calls mismatch for every row that disagrees with it. Returning false from
// mismatch stops the scan.
func scan[K comparable, V any](keys []K, values []V, o options[V], mismatch func(K) bool) {
	first := make(map[K]V)
	for i, k := range keys {
		v := values[i]
		if o.policy == SkipMissing && o.isMissing(v) {
			continue
		}
		recorded, seen := first[k]
		if !seen {
			first[k] = v
			continue
		}
		if !o.same(recorded, v) && !mismatch(k) {
			return
		}
	}
}

// FindInconsistentKeys returns every key observed with at least two
// differing values. The scan compares each row against the first value seen
// for its key, so a key stays flagged even if a later row reverts to the
// original value. The result is empty, never nil, for consistent input.
//
// Values are compared with ==. For V = any that includes the dynamic type,
// so int64(1) and float64(1) differ; the table package stores a column that
// mixes the two as float64.
func FindInconsistentKeys[K comparable, V any](keys []K, values []V, opts ...Option[V]) (Set[K], error) {
	if err := checkLengths(len(keys), len(values)); err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	result := make(Set[K])
	err := protect(func() {
		scan(keys, values, o, func(k K) bool {
			result.Add(k)
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// IsConsistent reports whether every key maps to a single value. It stops at
// the first disagreement. Empty input is consistent.
func IsConsistent[K comparable, V any](keys []K, values []V, opts ...Option[V]) (bool, error) {
	if err := checkLengths(len(keys), len(values)); err != nil {
		return false, err
	}

	o := buildOptions(opts)
	consistent := true
	err := protect(func() {
		scan(keys, values, o, func(K) bool {
			consistent = false
			return false
		})
	})
	if err != nil {
		return false, err
	}
	return consistent, nil
}

// CollectValueSets returns the complete set of distinct values observed for
// every key. Missing values are kept as ordinary members; when a missing
// predicate is given, only the first missing value per key is stored so
// markers that never compare equal (NaN) count once.
func CollectValueSets[K comparable, V comparable](keys []K, values []V, opts ...Option[V]) (map[K]Set[V], error) {
	if err := checkLengths(len(keys), len(values)); err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	sets := make(map[K]Set[V])
	if err := protect(func() { accumulate(sets, nil, keys, values, o) }); err != nil {
		return nil, err
	}
	return sets, nil
}

func accumulate[K comparable, V comparable](sets map[K]Set[V], hasMissing map[K]bool, keys []K, values []V, o options[V]) map[K]bool {
	if hasMissing == nil && o.missing != nil {
		hasMissing = make(map[K]bool)
	}
	for i, k := range keys {
		v := values[i]
		s, ok := sets[k]
		if !ok {
			s = make(Set[V], 1)
			sets[k] = s
		}
		if o.isMissing(v) {
			if hasMissing[k] {
				continue
			}
			hasMissing[k] = true
		}
		s.Add(v)
	}
	return hasMissing
}

// KeysWithMultipleValues keeps the entries of m whose value set holds more
// than one value. Under SkipMissing missing members are not counted. The
// returned map shares its sets with m.
func KeysWithMultipleValues[K comparable, V comparable](m map[K]Set[V], opts ...Option[V]) map[K]Set[V] {
	o := buildOptions(opts)
	out := make(map[K]Set[V])
	for k, s := range m {
		if distinctCount(s, o) > 1 {
			out[k] = s
		}
	}
	return out
}

func distinctCount[V comparable](s Set[V], o options[V]) int {
	if o.missing == nil {
		return s.Len()
	}
	n, missing := 0, false
	for v := range s {
		if o.isMissing(v) {
			missing = true
			continue
		}
		n++
	}
	if missing && o.policy == MissingAsValue {
		n++
	}
	return n
}

// InconsistentKeys returns the keys of a value-set mapping that hold more
// than one value, as a set.
func InconsistentKeys[K comparable, V comparable](m map[K]Set[V], opts ...Option[V]) Set[K] {
	filtered := KeysWithMultipleValues(m, opts...)
	out := make(Set[K], len(filtered))
	for k := range filtered {
		out.Add(k)
	}
	return out
}
