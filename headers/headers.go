// Package headers parses raw response header blocks and builds the
// outgoing request header set for a single exchange.
package headers

import (
	"iter"
	"strings"
)

// Map is an ordered, read-only view of parsed response headers.
// Names are stored lower-cased.
type Map struct {
	keys []string
	vals map[string]string
}

// Parse turns a raw header block, as returned by a transport's
// AllResponseHeaders, into a Map. Lines without a name are skipped and
// repeated names are joined with ", ".
func Parse(raw string) Map {
	m := Map{vals: make(map[string]string)}

	for line := range strings.Lines(raw) {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		value = strings.TrimSpace(value)

		if prev, exists := m.vals[name]; exists {
			m.vals[name] = prev + ", " + value
			continue
		}

		m.keys = append(m.keys, name)
		m.vals[name] = value
	}

	return m
}

// Get returns the value for name, matched case-insensitively.
func (m Map) Get(name string) string {
	return m.vals[strings.ToLower(name)]
}

// Lookup is like Get but reports whether the header was present.
func (m Map) Lookup(name string) (string, bool) {
	v, ok := m.vals[strings.ToLower(name)]
	return v, ok
}

// Len returns the number of distinct header names.
func (m Map) Len() int { return len(m.keys) }

// Keys returns the header names in the order they were first seen.
func (m Map) Keys() []string {
	return append([]string(nil), m.keys...)
}

// All iterates the headers in order.
func (m Map) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, k := range m.keys {
			if !yield(k, m.vals[k]) {
				return
			}
		}
	}
}
