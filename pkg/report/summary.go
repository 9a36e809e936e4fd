package report

import (
	"fmt"
	"io"
	"strings"
)

// maxListed bounds the keys printed per field by Summary.
const maxListed = 20

// Summary writes a short human readable account of r.
func (r *Report) Summary(w io.Writer) error {
	var b strings.Builder
	verdict := "consistent"
	if !r.Consistent {
		verdict = "INCONSISTENT"
	}
	fmt.Fprintf(&b, "%s: %s (%d rows, key %q, strategy %s, missing %s)\n",
		r.Table, verdict, r.Rows, r.KeyField, r.Strategy, r.Policy)

	for _, f := range r.Fields {
		fmt.Fprintf(&b, "  %s: %d of %d keys inconsistent\n",
			f.ValueField, len(f.InconsistentKeys), f.DistinctKeys)
		for i, k := range f.InconsistentKeys {
			if i == maxListed {
				fmt.Fprintf(&b, "    ... %d more\n", len(f.InconsistentKeys)-maxListed)
				break
			}
			fmt.Fprintf(&b, "    %s", k.Key)
			if len(k.Values) > 0 {
				fmt.Fprintf(&b, ": %s", strings.Join(k.Values, ", "))
			}
			if k.Missing {
				b.WriteString(" (+missing)")
			}
			b.WriteByte('\n')
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
