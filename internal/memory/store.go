// Package memory provides the bot's keyed memory: a process-wide key/value
// store partitioned into a global scope and per-user and per-room scopes.
// Values are arbitrary; a Persister can snapshot them to durable storage.
package memory

import "context"

// Store is the bot memory. Implementations must be safe for concurrent use
// at the single-operation level.
type Store interface {
	// Get returns the value stored under key and whether it exists.
	Get(scope Scope, key string) (any, bool)

	// Set stores value under key, replacing any previous value.
	Set(scope Scope, key string, value any)

	// Unset removes key. Removing a missing key is a no-op.
	Unset(scope Scope, key string)

	// Keys lists the keys of a scope in lexical order.
	Keys(scope Scope) []string

	// Update atomically replaces the value under key with fn(old, ok).
	// A nil result removes the key. The new value is returned.
	Update(scope Scope, key string, fn func(old any, ok bool) any) any
}

// Entry is one persisted value.
type Entry struct {
	Scope Scope
	Key   string
	Value any
}

// Persister saves and restores full memory snapshots.
type Persister interface {
	Load(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, entries []Entry) error
}
