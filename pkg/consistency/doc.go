// Package consistency detects keys that map to more than one value in
// key/value data.
//
// A key is inconsistent when two or more differing values are observed
// for it across the dataset. The package offers three scans over two
// positional sequences of equal length:
//
//   - FindInconsistentKeys records the first value seen per key and returns
//     every key that later disagrees with it.
//   - IsConsistent runs the same scan and stops at the first disagreement.
//   - CollectValueSets gathers the complete set of distinct values per key;
//     KeysWithMultipleValues then filters it down to the inconsistent keys.
//
// # Missing values
//
// Equality against a missing value is not well defined, so callers choose a
// policy. With SkipMissing (the default) a missing value carries no
// information and never flags a key. With MissingAsValue a missing value is
// a distinct sentinel: it disagrees with any defined value and agrees with
// another missing value. What counts as missing is set with WithMissing;
// without it nothing is missing.
//
//	keys := []int{1, 1, 2, 2}
//	sex := []any{"M", nil, "F", "M"}
//	bad, err := consistency.FindInconsistentKeys(keys, sex,
//	    consistency.WithMissing(consistency.IsNil))
//	// bad == {2}
//
// CollectValueSets stores a missing value as an ordinary member and defers
// the policy to KeysWithMultipleValues, which makes it the safe variant
// when values may be missing. It is also the only variant whose
// accumulation is order independent, so CollectValueSetsParallel can split
// the rows across goroutines and union the partial results.
//
// # Rows with named fields
//
// Records that expose named fields (table rows, decoded JSON objects) are
// reduced to the positional form with ColumnPair, which fails with
// ErrFieldNotFound when a row lacks the requested field.
//
// All state is local to a call. Every function is safe for concurrent use
// on distinct or shared read-only inputs.
package consistency
