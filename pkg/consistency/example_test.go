package consistency_test

import (
	"fmt"
	"sort"

	"github.com/ajitpratap0/concord/pkg/consistency"
)

// ExampleFindInconsistentKeys flags a subject recorded with two sexes.
func ExampleFindInconsistentKeys() {
	subjects := []int{1, 1, 2, 2}
	sex := []string{"M", "F", "F", "F"}

	bad, err := consistency.FindInconsistentKeys(subjects, sex)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(bad.Members())

	// Output:
	// [1]
}

// ExampleIsConsistent shows the short-circuiting check.
func ExampleIsConsistent() {
	ok, _ := consistency.IsConsistent([]int{1, 1, 2, 2, 3}, []string{"M", "M", "F", "F", "M"})
	fmt.Println(ok)

	_, err := consistency.IsConsistent([]int{1, 2}, []int{1})
	fmt.Println(err != nil)

	// Output:
	// true
	// true
}

// ExampleCollectValueSets treats a missing value as one more member and
// applies the missing policy only when filtering.
func ExampleCollectValueSets() {
	subjects := []string{"a", "a", "b", "b"}
	smoker := []any{true, nil, false, true}

	sets, _ := consistency.CollectValueSets(subjects, smoker, consistency.WithMissing(consistency.IsNil))

	multi := consistency.KeysWithMultipleValues(sets, consistency.WithMissing(consistency.IsNil))
	keys := make([]string, 0, len(multi))
	for k := range multi {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Println(keys)

	sentinel := consistency.KeysWithMultipleValues(sets,
		consistency.WithMissing(consistency.IsNil),
		consistency.WithPolicy[any](consistency.MissingAsValue))
	fmt.Println(len(sentinel))

	// Output:
	// [b]
	// 2
}
