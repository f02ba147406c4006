package bot

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/flemzord/sbot/internal/match"
	"github.com/flemzord/sbot/internal/memory"
	"github.com/flemzord/sbot/internal/settings"
	"github.com/flemzord/sbot/pkg/message"
)

// Deps are the shared services a State exposes to callbacks.
type Deps struct {
	Memory   memory.Store
	Settings *settings.Settings
	Logger   *slog.Logger
}

// State is the per-cycle context. It is created by the dispatcher for one
// message and discarded once the cycle completes.
type State struct {
	Message message.Message

	Memory   memory.Store
	Settings *settings.Settings
	Logger   *slog.Logger

	mu sync.Mutex
	// branch and match describe the branch currently being processed. Both
	// are zero during the hear and respond stages.
	branch    *Branch
	match     match.Result
	envelopes []*message.Envelope
	pending   *message.Envelope
	done      bool
}

// NewState creates the state for one cycle.
func NewState(msg message.Message, deps Deps) *State {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store := deps.Memory
	if store == nil {
		store = memory.NewInMemoryStore()
	}
	return &State{
		Message:  msg,
		Memory:   store,
		Settings: deps.Settings,
		Logger:   logger.With("message", msg.ID),
	}
}

// Envelope returns the pending envelope, creating one addressed to the
// message's user and room when none is pending.
func (s *State) Envelope() *message.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked()
}

func (s *State) pendingLocked() *message.Envelope {
	if s.pending == nil {
		s.pending = message.NewEnvelope(s.Message)
	}
	return s.pending
}

// Respond adds content to the pending envelope and commits it to the batch.
// Content may be strings, string slices, attachments or anything printable.
func (s *State) Respond(content ...any) *message.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()

	env := s.pendingLocked()
	addContent(env, content)
	s.commitLocked()
	return env
}

// RespondVia is Respond with a custom delivery method (e.g. "react").
func (s *State) RespondVia(method string, content ...any) *message.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()

	env := s.pendingLocked().Via(method)
	addContent(env, content)
	s.commitLocked()
	return env
}

// Reply is Respond with the first string prefixed by a mention of the sender.
func (s *State) Reply(content ...any) *message.Envelope {
	mention := "@" + s.Message.User.Name
	if s.Message.User.Name == "" {
		mention = "@" + s.Message.User.ID
	}
	out := make([]any, 0, len(content))
	prefixed := false
	for _, c := range content {
		if str, ok := c.(string); ok && !prefixed {
			c = mention + " " + str
			prefixed = true
		}
		out = append(out, c)
	}
	if !prefixed {
		out = append([]any{mention}, out...)
	}
	return s.Respond(out...)
}

// Commit moves a non-empty pending envelope into the batch. It reports
// whether an envelope was committed.
func (s *State) Commit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil || s.pending.IsEmpty() {
		return false
	}
	s.commitLocked()
	return true
}

// DiscardPending drops the pending envelope without committing it.
func (s *State) DiscardPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

func (s *State) commitLocked() {
	if s.pending == nil {
		return
	}
	s.envelopes = append(s.envelopes, s.pending)
	s.pending = nil
}

// Envelopes returns the committed batch in commit order. The envelopes are
// shared, so respond middleware may alter them in place.
func (s *State) Envelopes() []*message.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*message.Envelope, len(s.envelopes))
	copy(out, s.envelopes)
	return out
}

// SetEnvelopes replaces the committed batch.
func (s *State) SetEnvelopes(envs []*message.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envelopes = append([]*message.Envelope(nil), envs...)
}

// Finish marks the cycle as done. Middleware returning Stop finishes the
// state implicitly.
func (s *State) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
}

// Done reports whether the cycle was finished.
func (s *State) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// SetBranch records the branch being processed and its match. The
// dispatcher calls it before listen and clears it with SetBranch(nil,
// match.NoMatch) once the branches have run.
func (s *State) SetBranch(b *Branch, m match.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branch = b
	s.match = m
}

// Branch returns the branch being processed, or nil outside the listen
// stage and callbacks.
func (s *State) Branch() *Branch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.branch
}

// Match returns the match result of the current branch.
func (s *State) Match() match.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.match
}

// Capture returns the i-th capture of the current match.
func (s *State) Capture(i int) string {
	return s.Match().Capture(i)
}

// Value returns a named capture of the current match.
func (s *State) Value(name string) string {
	return s.Match().Value(name)
}

// BranchID returns the current branch ID, or "" outside the listen stage
// and callbacks.
func (s *State) BranchID() string {
	if b := s.Branch(); b != nil {
		return b.ID
	}
	return ""
}

func addContent(env *message.Envelope, content []any) {
	for _, c := range content {
		switch v := c.(type) {
		case nil:
		case string:
			env.Write(v)
		case []string:
			env.Write(v...)
		case message.Attachment:
			env.Attach(v)
		case []message.Attachment:
			env.Attach(v...)
		case fmt.Stringer:
			env.Write(v.String())
		default:
			env.Write(fmt.Sprint(v))
		}
	}
}
