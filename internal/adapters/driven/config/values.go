// Package config holds the flat key space shared by the config stores.
// Keys use dot notation: "databases.crm.dsn" is the dsn entry of the
// [databases.crm] table.
package config

import (
	"sort"
	"strings"
)

// Values maps dotted keys to scalar or list values.
type Values map[string]any

// String returns the string at key, or "" when absent or of another type.
func (v Values) String(key string) string {
	s, _ := v[key].(string)
	return s
}

// Int returns the integer at key. TOML decodes integers as int64 and
// JSON-like sources as float64; both are accepted.
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

// Bool returns the boolean at key.
func (v Values) Bool(key string) bool {
	b, _ := v[key].(bool)
	return b
}

// Strings returns the string list at key. Non-string entries are dropped.
func (v Values) Strings(key string) []string {
	switch list := v[key].(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// SubKeys returns the sorted distinct segments directly below prefix.
func (v Values) SubKeys(prefix string) []string {
	prefix = strings.TrimSuffix(prefix, ".") + "."
	seen := make(map[string]bool)
	var keys []string
	for key := range v {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok || rest == "" {
			continue
		}
		segment, _, _ := strings.Cut(rest, ".")
		if !seen[segment] {
			seen[segment] = true
			keys = append(keys, segment)
		}
	}
	sort.Strings(keys)
	return keys
}

// Flatten turns nested tables into dotted keys.
func Flatten(tables map[string]any) Values {
	out := make(Values)
	flattenInto(out, tables, "")
	return out
}

func flattenInto(out Values, tables map[string]any, prefix string) {
	for key, value := range tables {
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flattenInto(out, nested, key)
			continue
		}
		out[key] = value
	}
}

// Nest turns dotted keys back into tables. A scalar that shares its key
// with a table prefix is dropped in favour of the table.
func (v Values) Nest() map[string]any {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	// Shorter keys first so deeper tables replace conflicting scalars.
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) < len(keys[j]) })

	root := make(map[string]any)
	for _, key := range keys {
		parts := strings.Split(key, ".")
		table := root
		for _, part := range parts[:len(parts)-1] {
			next, ok := table[part].(map[string]any)
			if !ok {
				next = make(map[string]any)
				table[part] = next
			}
			table = next
		}
		leaf := parts[len(parts)-1]
		if _, isTable := table[leaf].(map[string]any); isTable {
			continue
		}
		table[leaf] = v[key]
	}
	return root
}
