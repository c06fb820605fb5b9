// Package config holds the flat key/value model shared by the config store
// adapters. Settings are addressed by dot-separated keys such as
// "chunking.size" and stored on disk as nested tables.
package config

import (
	"sort"
	"strings"
)

// Values is a flat settings map keyed by dot-separated paths.
// It is not safe for concurrent use; stores guard it with their own lock.
type Values map[string]any

// String returns the string stored at key, or "" when missing or not a string.
func (v Values) String(key string) string {
	s, _ := v[key].(string)
	return s
}

// Int returns the integer stored at key, or 0. TOML decodes integers to
// int64, YAML to int and JSON to float64; all three are accepted.
func (v Values) Int(key string) int {
	switch n := v[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// Bool returns the bool stored at key, or false.
func (v Values) Bool(key string) bool {
	b, _ := v[key].(bool)
	return b
}

// Keys returns the stored keys, sorted.
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flatten turns decoded nested tables into dot-keyed Values:
// {"chunking": {"size": 300}} becomes {"chunking.size": 300}.
func Flatten(nested map[string]any) Values {
	out := make(Values)
	flattenInto(out, nested, "")
	return out
}

func flattenInto(out Values, m map[string]any, prefix string) {
	for key, value := range m {
		if prefix != "" {
			key = prefix + "." + key
		}
		if table, ok := value.(map[string]any); ok {
			flattenInto(out, table, key)
			continue
		}
		out[key] = value
	}
}

// Nest is the inverse of Flatten. When a key is both a value and the
// parent of other keys, the table wins.
func (v Values) Nest() map[string]any {
	root := make(map[string]any)
	for _, key := range v.Keys() {
		parts := strings.Split(key, ".")
		node := root
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		leaf := parts[len(parts)-1]
		if _, isTable := node[leaf].(map[string]any); isTable {
			continue
		}
		node[leaf] = v[key]
	}
	return root
}
