package memory

import (
	"slices"
	"sync"
)

// InMemoryStore is a thread-safe, in-memory implementation of Store.
type InMemoryStore struct {
	mu      sync.RWMutex
	scopes  map[Scope]map[string]any
	version uint64 // bumped on every mutation
}

// NewInMemoryStore creates a new empty memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		scopes: make(map[Scope]map[string]any),
	}
}

// Compile-time interface check.
var _ Store = (*InMemoryStore)(nil)

// Get returns the value stored under key.
func (s *InMemoryStore) Get(scope Scope, key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.scopes[scope][key]
	return v, ok
}

// Set stores value under key.
func (s *InMemoryStore) Set(scope Scope, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(scope, key, value)
}

// Unset removes key from scope.
func (s *InMemoryStore) Unset(scope Scope, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsetLocked(scope, key)
}

// Keys lists the keys of scope in lexical order.
func (s *InMemoryStore) Keys(scope Scope) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := s.scopes[scope]
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Update runs fn under the write lock.
func (s *InMemoryStore) Update(scope Scope, key string, fn func(old any, ok bool) any) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.scopes[scope][key]
	next := fn(old, ok)
	if next == nil {
		s.unsetLocked(scope, key)
		return nil
	}
	s.setLocked(scope, key, next)
	return next
}

func (s *InMemoryStore) setLocked(scope Scope, key string, value any) {
	m, ok := s.scopes[scope]
	if !ok {
		m = make(map[string]any)
		s.scopes[scope] = m
	}
	m[key] = value
	s.version++
}

func (s *InMemoryStore) unsetLocked(scope Scope, key string) {
	m, ok := s.scopes[scope]
	if !ok {
		return
	}
	if _, exists := m[key]; !exists {
		return
	}
	delete(m, key)
	if len(m) == 0 {
		delete(s.scopes, scope)
	}
	s.version++
}

// Version returns a counter that changes whenever the store is mutated.
func (s *InMemoryStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns every entry ordered by scope then key.
func (s *InMemoryStore) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []Entry
	for scope, m := range s.scopes {
		for k, v := range m {
			entries = append(entries, Entry{Scope: scope, Key: k, Value: v})
		}
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := compareScope(a.Scope, b.Scope); c != 0 {
			return c
		}
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return entries
}

// Restore replaces the store contents with entries.
func (s *InMemoryStore) Restore(entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scopes = make(map[Scope]map[string]any)
	for _, e := range entries {
		s.setLocked(e.Scope, e.Key, e.Value)
	}
}

func compareScope(a, b Scope) int {
	if a.Kind != b.Kind {
		return int(a.Kind) - int(b.Kind)
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}
