// Package bot holds the per-cycle State handed to branch callbacks and
// middleware, and the ordered Registry of branches.
package bot

import (
	"context"

	"github.com/flemzord/sbot/internal/match"
	"github.com/flemzord/sbot/pkg/message"
)

// Scope restricts which messages a branch considers.
type Scope int

const (
	// ScopeGlobal branches consider every message.
	ScopeGlobal Scope = iota
	// ScopeDirect branches only consider messages addressed to the bot.
	ScopeDirect
)

func (s Scope) String() string {
	if s == ScopeDirect {
		return "direct"
	}
	return "global"
}

// Callback runs when a branch fires. It may block; ctx is cancelled when the
// caller of the cycle gives up.
type Callback func(ctx context.Context, s *State) error

// Branch pairs a match specification with a callback. Branches are
// immutable once registered.
type Branch struct {
	ID       string
	Spec     match.Spec
	Callback Callback

	// Force lets the branch fire even after another branch fired.
	Force bool
	Scope Scope
}

// Option customises a branch at construction.
type Option func(*Branch)

// Forced marks the branch as forced.
func Forced() Option {
	return func(b *Branch) { b.Force = true }
}

// Directed restricts the branch to addressed messages.
func Directed() Option {
	return func(b *Branch) { b.Scope = ScopeDirect }
}

// NewBranch builds a branch.
func NewBranch(id string, spec match.Spec, cb Callback, opts ...Option) Branch {
	b := Branch{ID: id, Spec: spec, Callback: cb}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Evaluate matches msg against the branch. Direct branches never match
// unaddressed messages.
func (b Branch) Evaluate(msg message.Message) match.Result {
	if b.Scope == ScopeDirect && !msg.Addressed {
		return match.NoMatch
	}
	return b.Spec.Evaluate(msg)
}

// Info is a serialisable description of a branch.
type Info struct {
	ID    string `json:"id"`
	Spec  string `json:"spec"`
	Force bool   `json:"force,omitempty"`
	Scope string `json:"scope"`
}

// Info describes the branch.
func (b Branch) Info() Info {
	return Info{ID: b.ID, Spec: b.Spec.String(), Force: b.Force, Scope: b.Scope.String()}
}
