// Package mcpbridge exposes the bot to MCP clients. It is a channel module:
// the send_message tool pushes a message through the dispatcher and returns
// whatever the bot sent back while handling it.
package mcpbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/flemzord/sbot/internal/channel"
	"github.com/flemzord/sbot/internal/core"
	"github.com/flemzord/sbot/internal/dispatch"
	"github.com/flemzord/sbot/internal/settings"
	"github.com/flemzord/sbot/pkg/message"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Bridge{})
}

// ChannelName is the module ID and the channel of bridged messages.
const ChannelName = "channel.mcp"

// ErrNoRecipient is returned by Send outside of a tool call.
var ErrNoRecipient = errors.New("mcpbridge: no tool call in flight")

var (
	_ channel.MethodChannel = (*Bridge)(nil)
	_ core.Configurable     = (*Bridge)(nil)
	_ core.Provisioner      = (*Bridge)(nil)
	_ core.Starter          = (*Bridge)(nil)
)

// Config holds the bridge configuration.
type Config struct {
	// User is the sender of bridged messages when the caller names none.
	User string `yaml:"user"`
	// Room is the direct room bridged messages arrive in.
	Room string `yaml:"room"`
}

func (c *Config) defaults() {
	if c.User == "" {
		c.User = "mcp"
	}
	if c.Room == "" {
		c.Room = "mcp"
	}
}

// Bridge is the MCP channel module.
type Bridge struct {
	config   Config
	logger   *slog.Logger
	appCtx   *core.AppContext
	bot      *dispatch.Dispatcher
	settings *settings.Settings

	// calls serializes tool calls; replies of one cycle go to one caller.
	calls sync.Mutex

	mu      sync.Mutex
	inbox   channel.Inbox
	pending []*message.Envelope
	active  bool
}

// ModuleInfo implements core.Module.
func (b *Bridge) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ChannelName,
		New: func() core.Module { return &Bridge{} },
	}
}

// Configure implements core.Configurable.
func (b *Bridge) Configure(node *yaml.Node) error {
	if err := node.Decode(&b.config); err != nil {
		return fmt.Errorf("mcpbridge: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (b *Bridge) Provision(ctx *core.AppContext) error {
	b.config.defaults()
	b.appCtx = ctx
	b.logger = ctx.Logger.With("component", "mcpbridge")
	return nil
}

// Start implements core.Starter.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inbox == nil {
		return fmt.Errorf("mcpbridge: %w", channel.ErrNoInbox)
	}
	if d, ok := core.Service[*dispatch.Dispatcher](b.appCtx, "bot.dispatcher"); ok {
		b.bot = d
	}
	if s, ok := core.Service[*settings.Settings](b.appCtx, "bot.settings"); ok {
		b.settings = s
	}
	return nil
}

// SetInbox implements channel.Channel.
func (b *Bridge) SetInbox(fn channel.Inbox) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inbox = fn
}

// Send implements channel.Channel.
func (b *Bridge) Send(_ context.Context, env *message.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return ErrNoRecipient
	}
	b.pending = append(b.pending, env.Clone())
	return nil
}

// SendMethod implements channel.MethodChannel. Every method is accepted and
// reported with the reply.
func (b *Bridge) SendMethod(ctx context.Context, method string, env *message.Envelope) error {
	env = env.Clone().Via(method)
	return b.Send(ctx, env)
}

// exchange dispatches msg and returns the envelopes sent during its cycle.
func (b *Bridge) exchange(ctx context.Context, msg message.Message) ([]*message.Envelope, error) {
	b.calls.Lock()
	defer b.calls.Unlock()

	b.mu.Lock()
	inbox := b.inbox
	b.active = true
	b.pending = nil
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.active = false
		b.pending = nil
		b.mu.Unlock()
	}()

	if inbox == nil {
		return nil, channel.ErrNoInbox
	}
	if err := inbox(ctx, msg); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending, nil
}

func (b *Bridge) botNames() (name, alias string) {
	if b.settings == nil {
		return "sbot", ""
	}
	return b.settings.String("name"), b.settings.String("alias")
}

// formatReplies renders envelopes as plain text, one line per string.
// Envelopes sent through a method are prefixed with it.
func formatReplies(envs []*message.Envelope) string {
	var lines []string
	for _, env := range envs {
		text := env.Text()
		if text == "" {
			continue
		}
		if m := env.DeliveryMethod(); m != message.MethodSend {
			text = "(" + m + ") " + text
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n")
}
