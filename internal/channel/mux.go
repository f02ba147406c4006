package channel

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/flemzord/sbot/pkg/message"
)

// Mux routes envelopes to the registered channel named by env.Channel.
// It is the transport the dispatcher delivers through.
type Mux struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewMux creates an empty Mux.
func NewMux() *Mux {
	return &Mux{
		channels: make(map[string]Channel),
	}
}

// Register adds a channel under the given name.
// Returns ErrDuplicateChannel if the name is already taken.
func (m *Mux) Register(name string, ch Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.channels[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateChannel, name)
	}
	m.channels[name] = ch
	return nil
}

// Get returns the channel registered under name, or false if none.
func (m *Mux) Get(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ch, ok := m.channels[name]
	return ch, ok
}

// Send delivers env through the channel identified by env.Channel, using
// the envelope's delivery method. It returns ErrNoChannel if no channel is
// registered under that name and ErrUnknownMethod when a custom method is
// not supported.
func (m *Mux) Send(ctx context.Context, env *message.Envelope) error {
	m.mu.RLock()
	ch, ok := m.channels[env.Channel]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNoChannel, env.Channel)
	}

	method := env.DeliveryMethod()
	if method == message.MethodSend {
		return ch.Send(ctx, env)
	}

	mc, ok := ch.(MethodChannel)
	if !ok {
		return fmt.Errorf("%w: %s does not support %q", ErrUnknownMethod, env.Channel, method)
	}
	return mc.SendMethod(ctx, method, env)
}

// Channels returns the names of all registered channels, sorted.
func (m *Mux) Channels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
