package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Key canonically identifies a cached query: an operation tag plus its
// parameters. Two logically identical requests always collide to the same
// key regardless of the order their parameters were supplied in.
type Key string

// NewKey builds a canonical key from an operation tag and its parameters.
// Parameter names are sorted before encoding.
func NewKey(op string, params map[string]any) Key {
	if len(params) == 0 {
		return Key(op)
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, fmt.Sprintf("%s=%v", name, params[name]))
	}

	return Key(op + "?" + strings.Join(pairs, "&"))
}

// Child returns a key nested under k, mirroring the dependency between a
// query and its sub-queries (e.g. property/<id>/reviews).
func (k Key) Child(segment string) Key {
	return Key(string(k) + "/" + segment)
}

// Matches reports whether k falls under prefix for invalidation purposes:
// an exact match, a nested path (prefix + "/..."), or a parameterized form
// of the same operation (prefix + "?...").
func (k Key) Matches(prefix Key) bool {
	if k == prefix {
		return true
	}
	s, p := string(k), string(prefix)
	return strings.HasPrefix(s, p+"/") || strings.HasPrefix(s, p+"?")
}
