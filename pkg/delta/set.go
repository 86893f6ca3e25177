// Package delta computes incremental identifier deltas between a freshly
// observed extraction and previously persisted state.
package delta

import "sort"

// Set is a deduplicated collection of entity identifiers.
// Empty identifiers are never stored; construction and insertion drop them.
type Set map[string]struct{}

// New creates a Set from the given identifiers, skipping empty ones.
func New(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts an identifier. Empty identifiers are ignored.
func (s Set) Add(id string) {
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

// Contains reports whether the identifier is in the set.
func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of identifiers in the set.
func (s Set) Len() int {
	return len(s)
}

// Values returns the identifiers in sorted order.
func (s Set) Values() []string {
	values := make([]string, 0, len(s))
	for id := range s {
		values = append(values, id)
	}
	sort.Strings(values)
	return values
}

// Union returns a new set containing the identifiers of both sets.
func Union(a, b Set) Set {
	out := make(Set, len(a)+len(b))
	for id := range a {
		out[id] = struct{}{}
	}
	for id := range b {
		out[id] = struct{}{}
	}
	return out
}

// Diff returns the identifiers present in fresh but absent from persisted.
// It is a pure set difference: deterministic, side-effect free, and safe to
// call repeatedly with the same inputs.
func Diff(fresh, persisted Set) Set {
	out := make(Set)
	for id := range fresh {
		if _, seen := persisted[id]; !seen {
			out[id] = struct{}{}
		}
	}
	return out
}
