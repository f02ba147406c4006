package memory

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidScope indicates a scope string that cannot be parsed.
var ErrInvalidScope = errors.New("memory: invalid scope")

// ScopeKind partitions the store.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeUser
	ScopeRoom
)

// Scope addresses one partition of the store. User and room scopes carry the
// user or room ID.
type Scope struct {
	Kind ScopeKind
	ID   string
}

// Global returns the process-wide scope.
func Global() Scope { return Scope{Kind: ScopeGlobal} }

// User returns the scope private to one user.
func User(id string) Scope { return Scope{Kind: ScopeUser, ID: id} }

// Room returns the scope private to one room.
func Room(id string) Scope { return Scope{Kind: ScopeRoom, ID: id} }

// String renders the scope as "global", "user:<id>" or "room:<id>".
func (s Scope) String() string {
	switch s.Kind {
	case ScopeUser:
		return "user:" + s.ID
	case ScopeRoom:
		return "room:" + s.ID
	default:
		return "global"
	}
}

// ParseScope is the inverse of Scope.String.
func ParseScope(s string) (Scope, error) {
	if s == "global" || s == "" {
		return Global(), nil
	}
	kind, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, s)
	}
	switch kind {
	case "user":
		return User(id), nil
	case "room":
		return Room(id), nil
	}
	return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, s)
}
