package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/flemzord/sbot/internal/match"
	"github.com/flemzord/sbot/pkg/message"
)

// ErrNilCallback is returned when registering a branch without a callback.
var ErrNilCallback = errors.New("bot: branch callback must not be nil")

// Match is a branch that matched a message, with its result.
type Match struct {
	Branch Branch
	Result match.Result
}

// Registry is an ordered, concurrency-safe collection of branches.
type Registry struct {
	mu       sync.RWMutex
	branches []Branch
	ids      map[string]int
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		ids:    make(map[string]int),
		logger: logger.With("component", "registry"),
	}
}

// Register validates and appends a branch. A branch without an ID gets a
// generated one. Duplicate IDs are accepted and logged.
func (r *Registry) Register(b Branch) error {
	if err := b.Spec.Validate(); err != nil {
		return fmt.Errorf("branch %q: %w", b.ID, err)
	}
	if b.Callback == nil {
		return fmt.Errorf("branch %q: %w", b.ID, ErrNilCallback)
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ids[b.ID] > 0 {
		r.logger.Warn("duplicate branch id", "branch", b.ID)
	}
	r.ids[b.ID]++
	r.branches = append(r.branches, b)
	r.logger.Debug("branch registered", "branch", b.ID, "spec", b.Spec.String(), "force", b.Force, "scope", b.Scope.String())
	return nil
}

// Len returns the number of registered branches.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.branches)
}

// Branches returns a copy of the registered branches in order.
func (r *Registry) Branches() []Branch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Branch, len(r.branches))
	copy(out, r.branches)
	return out
}

// MatchAll evaluates every branch in registration order and returns those
// that matched.
func (r *Registry) MatchAll(msg message.Message) []Match {
	var matches []Match
	for _, b := range r.Branches() {
		if res := b.Evaluate(msg); res.Matched {
			matches = append(matches, Match{Branch: b, Result: res})
		}
	}
	return matches
}
