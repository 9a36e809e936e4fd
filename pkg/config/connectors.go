package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Settings holds connector-specific options. Values come from YAML so they
// may be strings, numbers, booleans or lists.
type Settings map[string]interface{}

// String returns the setting as a string, or def when unset.
func (s Settings) String(key, def string) string {
	v, ok := s[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// Require returns a non-empty string setting or an error naming the key.
func (s Settings) Require(key string) (string, error) {
	v := s.String(key, "")
	if v == "" {
		return "", fmt.Errorf("setting %q is required", key)
	}
	return v, nil
}

// Int returns the setting as an int, or def when unset or unparsable.
func (s Settings) Int(key string, def int) int {
	switch t := s[key].(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

// Bool returns the setting as a bool, or def when unset or unparsable.
func (s Settings) Bool(key string, def bool) bool {
	switch t := s[key].(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
	}
	return def
}

// Duration returns the setting as a duration ("30s" or seconds), or def.
func (s Settings) Duration(key string, def time.Duration) time.Duration {
	switch t := s[key].(type) {
	case time.Duration:
		return t
	case int:
		return time.Duration(t) * time.Second
	case float64:
		return time.Duration(t * float64(time.Second))
	case string:
		if d, err := time.ParseDuration(strings.TrimSpace(t)); err == nil {
			return d
		}
	}
	return def
}

// Strings returns a list setting. A comma-separated string is split.
func (s Settings) Strings(key string) []string {
	switch t := s[key].(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, v := range t {
			out = append(out, fmt.Sprint(v))
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		parts := strings.Split(t, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return nil
}

// StringMap returns a map setting with string values.
func (s Settings) StringMap(key string) map[string]string {
	out := make(map[string]string)
	switch t := s[key].(type) {
	case map[string]string:
		for k, v := range t {
			out[k] = v
		}
	case map[string]interface{}:
		for k, v := range t {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}
