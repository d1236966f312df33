// Package variables holds the per-run key->value bindings used for
// templating and condition evaluation. Names are case-sensitive; dotted
// names (contact.name) traverse nested maps.
package variables

import "strings"

type Store struct {
	data map[string]any
}

func New() *Store {
	return &Store{data: make(map[string]any)}
}

// FromBindings wraps an existing binding map without copying, so that
// mutations flow back into the run state it came from.
func FromBindings(bindings map[string]any) *Store {
	if bindings == nil {
		bindings = make(map[string]any)
	}
	return &Store{data: bindings}
}

// Get resolves name, traversing nested maps for dotted names. Missing
// variables are not an error; the caller applies its unresolved policy.
func (s *Store) Get(name string) (any, bool) {
	if v, ok := s.data[name]; ok {
		return v, true
	}
	if !strings.Contains(name, ".") {
		return nil, false
	}
	parts := strings.Split(name, ".")
	var current any = s.data
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Set binds name to value. Dotted names create the intermediate maps.
func (s *Store) Set(name string, value any) {
	if !strings.Contains(name, ".") {
		s.data[name] = value
		return
	}
	parts := strings.Split(name, ".")
	current := s.data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

func (s *Store) Merge(bindings map[string]any) {
	for k, v := range bindings {
		s.data[k] = v
	}
}

// Snapshot returns a deep copy of the bindings for logging.
func (s *Store) Snapshot() map[string]any {
	return copyMap(s.data)
}

// Bindings returns the live binding map, used to persist run state.
func (s *Store) Bindings() map[string]any {
	return s.data
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if m, ok := v.(map[string]any); ok {
			out[k] = copyMap(m)
		} else {
			out[k] = v
		}
	}
	return out
}
