package consistency

// Set is an unordered collection of distinct comparable values.
type Set[T comparable] map[T]struct{}

// NewSet returns a set holding the given members.
func NewSet[T comparable](members ...T) Set[T] {
	s := make(Set[T], len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

// Add inserts v. Adding a present member is a no-op.
func (s Set[T]) Add(v T) {
	s[v] = struct{}{}
}

// Has reports whether v is a member.
func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of members.
func (s Set[T]) Len() int {
	return len(s)
}

// Members returns the members in no particular order.
func (s Set[T]) Members() []T {
	out := make([]T, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	return out
}

// Union adds every member of other to s and returns s.
func (s Set[T]) Union(other Set[T]) Set[T] {
	for m := range other {
		s[m] = struct{}{}
	}
	return s
}

// Clone returns an independent copy of s.
func (s Set[T]) Clone() Set[T] {
	out := make(Set[T], len(s))
	for m := range s {
		out[m] = struct{}{}
	}
	return out
}

// Equal reports whether s and other hold the same members.
func (s Set[T]) Equal(other Set[T]) bool {
	if len(s) != len(other) {
		return false
	}
	for m := range s {
		if _, ok := other[m]; !ok {
			return false
		}
	}
	return true
}
