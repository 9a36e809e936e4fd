package consistency

import (
	"context"
	stderrors "errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/ajitpratap0/concord/pkg/errors"
)

func TestScenarios(t *testing.T) {
	tests := []struct {
		name       string
		keys       []int
		values     []string
		wantKeys   Set[int]
		consistent bool
	}{
		{
			name:       "A consistent repeated keys",
			keys:       []int{1, 1, 2, 2, 3},
			values:     []string{"M", "M", "F", "F", "M"},
			wantKeys:   NewSet[int](),
			consistent: true,
		},
		{
			name:       "B one key disagrees",
			keys:       []int{1, 1, 2, 2},
			values:     []string{"M", "F", "F", "F"},
			wantKeys:   NewSet(1),
			consistent: false,
		},
		{
			name:       "C revert to first value still flagged",
			keys:       []int{1, 1, 1},
			values:     []string{"M", "F", "M"},
			wantKeys:   NewSet(1),
			consistent: false,
		},
		{
			name:       "D empty input",
			keys:       []int{},
			values:     []string{},
			wantKeys:   NewSet[int](),
			consistent: true,
		},
		{
			name:       "E all distinct keys",
			keys:       []int{1, 2, 3},
			values:     []string{"A", "B", "C"},
			wantKeys:   NewSet[int](),
			consistent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindInconsistentKeys(tt.keys, tt.values)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, tt.wantKeys.Equal(got), "got %v", got.Members())

			ok, err := IsConsistent(tt.keys, tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.consistent, ok)

			sets, err := CollectValueSets(tt.keys, tt.values)
			require.NoError(t, err)
			assert.True(t, tt.wantKeys.Equal(InconsistentKeys(sets)))
		})
	}
}

func TestEmptyCollectValueSets(t *testing.T) {
	sets, err := CollectValueSets([]int{}, []string{})
	require.NoError(t, err)
	assert.NotNil(t, sets)
	assert.Empty(t, sets)
}

func TestCollectValueSetsKeepsEveryValue(t *testing.T) {
	sets, err := CollectValueSets([]string{"a", "a", "a", "b"}, []int{1, 2, 1, 7})
	require.NoError(t, err)

	assert.True(t, NewSet(1, 2).Equal(sets["a"]))
	assert.True(t, NewSet(7).Equal(sets["b"]))

	multi := KeysWithMultipleValues(sets)
	assert.Len(t, multi, 1)
	assert.Contains(t, multi, "a")
}

func TestLengthMismatch(t *testing.T) {
	keys := []int{1, 2}
	values := []int{1}

	_, err := FindInconsistentKeys(keys, values)
	assert.True(t, stderrors.Is(err, ErrLengthMismatch))
	assert.True(t, cerrors.IsType(err, cerrors.ErrorTypeValidation))

	_, err = IsConsistent(keys, values)
	assert.True(t, stderrors.Is(err, ErrLengthMismatch))

	_, err = CollectValueSets(keys, values)
	assert.True(t, stderrors.Is(err, ErrLengthMismatch))

	_, err = CollectValueSetsParallel(context.Background(), keys, values, 4)
	assert.True(t, stderrors.Is(err, ErrLengthMismatch))
}

func TestSkipMissingPolicy(t *testing.T) {
	keys := []int{1, 1, 2, 2, 3, 3}
	values := []any{nil, "M", "F", nil, nil, nil}

	got, err := FindInconsistentKeys(keys, values, WithMissing(IsNil))
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())

	ok, err := IsConsistent(keys, values, WithMissing(IsNil))
	require.NoError(t, err)
	assert.True(t, ok)

	// the first defined value is the one recorded
	got, err = FindInconsistentKeys([]int{1, 1, 1}, []any{nil, "M", "F"}, WithMissing(IsNil))
	require.NoError(t, err)
	assert.True(t, NewSet(1).Equal(got))
}

func TestMissingAsValuePolicy(t *testing.T) {
	keys := []int{1, 1, 2, 2, 3, 3}
	values := []any{nil, "M", "F", "F", nil, math.NaN()}
	opts := []Option[any]{WithMissing(IsNil), WithPolicy[any](MissingAsValue)}

	got, err := FindInconsistentKeys(keys, values, opts...)
	require.NoError(t, err)
	assert.True(t, NewSet(1).Equal(got), "got %v", got.Members())

	ok, err := IsConsistent(keys, values, opts...)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValueSetsDeferMissingPolicy(t *testing.T) {
	keys := []int{1, 1, 2, 2, 2}
	values := []any{nil, "M", math.NaN(), math.NaN(), "F"}

	sets, err := CollectValueSets(keys, values, WithMissing(IsNil))
	require.NoError(t, err)
	assert.Equal(t, 2, sets[1].Len())
	assert.Equal(t, 2, sets[2].Len(), "NaN markers collapse to one member")

	skip := InconsistentKeys(sets, WithMissing(IsNil))
	assert.Equal(t, 0, skip.Len())

	asValue := InconsistentKeys(sets, WithMissing(IsNil), WithPolicy[any](MissingAsValue))
	assert.True(t, NewSet(1, 2).Equal(asValue))
}

func TestUndefinedComparison(t *testing.T) {
	keys := []int{1, 1}
	values := []any{[]int{1}, []int{2}}

	_, err := FindInconsistentKeys(keys, values)
	assert.True(t, stderrors.Is(err, ErrUndefinedComparison))

	_, err = CollectValueSets([]any{[]byte("k")}, []any{"v"})
	assert.True(t, stderrors.Is(err, ErrUndefinedComparison))
}

func TestParseMissingPolicy(t *testing.T) {
	p, err := ParseMissingPolicy("value")
	require.NoError(t, err)
	assert.Equal(t, MissingAsValue, p)

	p, err = ParseMissingPolicy("")
	require.NoError(t, err)
	assert.Equal(t, SkipMissing, p)
	assert.Equal(t, "skip", p.String())

	_, err = ParseMissingPolicy("ignore")
	assert.Error(t, err)
}

func randomDataset(r *rand.Rand, n, nKeys, nValues int) ([]int, []string) {
	labels := []string{"M", "F", "X", "U"}[:nValues]
	keys := make([]int, n)
	values := make([]string, n)
	for i := range keys {
		keys[i] = r.Intn(nKeys)
		values[i] = labels[r.Intn(len(labels))]
	}
	return keys, values
}

// bruteForce returns the keys whose first value differs from a later one.
func bruteForce(keys []int, values []string) Set[int] {
	out := NewSet[int]()
	for i := range keys {
		for j := i + 1; j < len(keys); j++ {
			if keys[i] == keys[j] && values[i] != values[j] {
				out.Add(keys[i])
			}
		}
	}
	return out
}

func TestStrategiesAgree(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		keys, values := randomDataset(r, r.Intn(60), 1+r.Intn(10), 1+r.Intn(4))

		found, err := FindInconsistentKeys(keys, values)
		require.NoError(t, err)
		assert.True(t, bruteForce(keys, values).Equal(found))

		ok, err := IsConsistent(keys, values)
		require.NoError(t, err)
		assert.Equal(t, found.Len() == 0, ok)

		sets, err := CollectValueSets(keys, values)
		require.NoError(t, err)
		assert.True(t, found.Equal(InconsistentKeys(sets)))

		// idempotence
		again, err := FindInconsistentKeys(keys, values)
		require.NoError(t, err)
		assert.True(t, found.Equal(again))
	}
}

func TestRowOrderIndependence(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 100; round++ {
		keys, values := randomDataset(r, 40, 6, 3)
		want, err := FindInconsistentKeys(keys, values)
		require.NoError(t, err)
		wantSets, err := CollectValueSets(keys, values)
		require.NoError(t, err)

		perm := r.Perm(len(keys))
		pk := make([]int, len(keys))
		pv := make([]string, len(values))
		for i, j := range perm {
			pk[i], pv[i] = keys[j], values[j]
		}

		got, err := FindInconsistentKeys(pk, pv)
		require.NoError(t, err)
		assert.True(t, want.Equal(got))

		gotSets, err := CollectValueSets(pk, pv)
		require.NoError(t, err)
		require.Len(t, gotSets, len(wantSets))
		for k, s := range wantSets {
			assert.True(t, s.Equal(gotSets[k]))
		}
	}
}

func TestInputsNotMutated(t *testing.T) {
	keys := []int{3, 1, 3}
	values := []string{"b", "a", "c"}

	_, err := FindInconsistentKeys(keys, values)
	require.NoError(t, err)
	_, err = CollectValueSets(keys, values)
	require.NoError(t, err)

	assert.Equal(t, []int{3, 1, 3}, keys)
	assert.Equal(t, []string{"b", "a", "c"}, values)
}
