// Package channeltest provides test doubles for the channel package.
package channeltest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/flemzord/sbot/internal/channel"
	"github.com/flemzord/sbot/internal/core"
	"github.com/flemzord/sbot/pkg/message"
)

// MockChannel is a test double that implements channel.MethodChannel. It
// records sent envelopes and allows simulating inbound messages via
// SimulateMessage.
type MockChannel struct {
	name      string
	methods   []string
	allowList *channel.AllowList

	mu    sync.Mutex
	inbox channel.Inbox
	sent  []*message.Envelope

	// SendFunc, if set, is called instead of the default recording behavior.
	SendFunc func(ctx context.Context, env *message.Envelope) error
}

// Compile-time interface guards.
var _ channel.MethodChannel = (*MockChannel)(nil)

// NewMockChannel creates a MockChannel with the given name, an optional
// allow-list and the custom delivery methods it accepts. Pass nil for
// allowList to deny all simulated messages.
func NewMockChannel(name string, allowList *channel.AllowList, methods ...string) *MockChannel {
	return &MockChannel{
		name:      name,
		methods:   methods,
		allowList: allowList,
	}
}

// ModuleInfo implements core.Module.
func (m *MockChannel) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID: core.ModuleID("channel." + m.name),
		New: func() core.Module {
			return NewMockChannel(m.name, m.allowList, m.methods...)
		},
	}
}

// Send records the envelope. If SendFunc is set, it delegates to it.
func (m *MockChannel) Send(ctx context.Context, env *message.Envelope) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, env)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, env.Clone())
	return nil
}

// SendMethod records the envelope when method is one of the configured
// methods.
func (m *MockChannel) SendMethod(ctx context.Context, method string, env *message.Envelope) error {
	if !slices.Contains(m.methods, method) {
		return fmt.Errorf("%w: %s", channel.ErrUnknownMethod, method)
	}
	return m.Send(ctx, env)
}

// SetInbox stores the inbox callback.
func (m *MockChannel) SetInbox(fn channel.Inbox) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox = fn
}

// SimulateMessage pushes an inbound message through the allow-list and into
// the inbox. It returns ErrDenied if the sender is not allowed, and ErrNoInbox
// if SetInbox has not been called.
func (m *MockChannel) SimulateMessage(ctx context.Context, msg message.Message) error {
	m.mu.Lock()
	al := m.allowList
	inbox := m.inbox
	m.mu.Unlock()

	if !al.IsAllowed(msg) {
		return channel.ErrDenied
	}
	if inbox == nil {
		return channel.ErrNoInbox
	}

	msg.Channel = m.name
	return inbox(ctx, msg)
}

// Sent returns a copy of all envelopes recorded by Send and SendMethod.
func (m *MockChannel) Sent() []*message.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]*message.Envelope, len(m.sent))
	copy(cp, m.sent)
	return cp
}

// SentTexts returns the plain-text rendering of every recorded envelope.
func (m *MockChannel) SentTexts() []string {
	sent := m.Sent()
	texts := make([]string, len(sent))
	for i, env := range sent {
		texts[i] = env.Text()
	}
	return texts
}

// Reset clears recorded envelopes.
func (m *MockChannel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
