package consistency

import (
	"fmt"
	"math"
	"strings"
)

// MissingPolicy decides how a missing value takes part in comparisons.
type MissingPolicy int

const (
	// SkipMissing treats a missing value as no observation.
	SkipMissing MissingPolicy = iota
	// MissingAsValue treats missing as a distinct sentinel value.
	MissingAsValue
)

// String returns the configuration name of the policy.
func (p MissingPolicy) String() string {
	switch p {
	case SkipMissing:
		return "skip"
	case MissingAsValue:
		return "value"
	default:
		return fmt.Sprintf("MissingPolicy(%d)", int(p))
	}
}

// ParseMissingPolicy parses "skip" or "value".
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return SkipMissing, nil
	case "value", "sentinel":
		return MissingAsValue, nil
	default:
		return SkipMissing, fmt.Errorf("unknown missing policy %q (want skip or value)", s)
	}
}

type options[V any] struct {
	policy  MissingPolicy
	missing func(V) bool
}

// Option configures a scan.
type Option[V any] func(*options[V])

// WithPolicy selects the missing-value policy.
func WithPolicy[V any](p MissingPolicy) Option[V] {
	return func(o *options[V]) {
		o.policy = p
	}
}

// WithMissing sets the predicate that identifies missing values.
func WithMissing[V any](isMissing func(V) bool) Option[V] {
	return func(o *options[V]) {
		o.missing = isMissing
	}
}

func buildOptions[V any](opts []Option[V]) options[V] {
	o := options[V]{policy: SkipMissing}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func (o options[V]) isMissing(v V) bool {
	return o.missing != nil && o.missing(v)
}

// same reports whether two observations agree under the active policy.
// Both arguments are defined under SkipMissing.
func (o options[V]) same(a, b V) bool {
	if o.missing != nil {
		am, bm := o.missing(a), o.missing(b)
		if am || bm {
			return am == bm
		}
	}
	return any(a) == any(b)
}

// IsNil reports whether v is nil or a NaN float, the missing markers
// produced by the table package.
func IsNil(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(t)
	case float32:
		return math.IsNaN(float64(t))
	default:
		return false
	}
}
