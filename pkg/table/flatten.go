package table

// Flatten lifts nested objects into dotted top-level keys, so
// {"a": {"b": 1}} becomes {"a.b": 1}. Arrays are left in place.
func Flatten(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	flattenInto("", rec, out)
	return out
}

func flattenInto(prefix string, in map[string]any, out map[string]any) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok && len(nested) > 0 {
			flattenInto(key, nested, out)
			continue
		}
		out[key] = v
	}
}
