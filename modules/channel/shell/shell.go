// Package shell implements an interactive terminal channel. Each line read
// from standard input becomes a message in a single room; envelopes are
// printed with lipgloss styles.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/flemzord/sbot/internal/channel"
	"github.com/flemzord/sbot/internal/core"
	"github.com/flemzord/sbot/internal/settings"
	"github.com/flemzord/sbot/pkg/message"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Shell{})
}

// ChannelName is the channel name shell messages carry.
const ChannelName = "channel.shell"

// MethodReact renders an envelope as a reaction.
const MethodReact = "react"

// Compile-time interface guards.
var (
	_ channel.MethodChannel = (*Shell)(nil)
	_ core.Configurable     = (*Shell)(nil)
	_ core.Provisioner      = (*Shell)(nil)
	_ core.Validator        = (*Shell)(nil)
	_ core.Starter          = (*Shell)(nil)
	_ core.Stopper          = (*Shell)(nil)
)

// Config holds the shell channel configuration.
type Config struct {
	UserID   string `yaml:"user_id"`
	UserName string `yaml:"user_name"`
	Room     string `yaml:"room"`
	Prompt   string `yaml:"prompt"`
}

func (c *Config) defaults() {
	if c.UserID == "" {
		c.UserID = "111"
	}
	if c.UserName == "" {
		c.UserName = "user"
	}
	if c.Room == "" {
		c.Room = "shell"
	}
	if c.Prompt == "" {
		c.Prompt = "> "
	}
}

// Shell is the terminal channel module.
type Shell struct {
	config   Config
	logger   *slog.Logger
	appCtx   *core.AppContext
	settings *settings.Settings

	in  io.Reader
	out io.Writer

	mu     sync.Mutex
	styles styles
	inbox  channel.Inbox
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a shell channel reading from in and writing to out.
func New(in io.Reader, out io.Writer) *Shell {
	return &Shell{in: in, out: out}
}

// ModuleInfo implements core.Module.
func (s *Shell) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ChannelName,
		New: func() core.Module { return &Shell{} },
	}
}

// Configure implements core.Configurable.
func (s *Shell) Configure(node *yaml.Node) error {
	if err := node.Decode(&s.config); err != nil {
		return fmt.Errorf("shell: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (s *Shell) Provision(ctx *core.AppContext) error {
	s.config.defaults()
	s.appCtx = ctx
	s.logger = ctx.Logger.With("component", "shell")
	if s.in == nil {
		s.in = os.Stdin
	}
	if s.out == nil {
		s.out = os.Stdout
	}
	s.styles = newStyles(s.out)
	s.done = make(chan struct{})
	return nil
}

// Validate implements core.Validator.
func (s *Shell) Validate() error {
	if strings.TrimSpace(s.config.Room) == "" {
		return errors.New("shell: room must not be empty")
	}
	return nil
}

// SetInbox implements channel.Channel.
func (s *Shell) SetInbox(fn channel.Inbox) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbox = fn
}

// Start implements core.Starter. It begins reading input lines.
func (s *Shell) Start() error {
	s.mu.Lock()
	inbox := s.inbox
	s.mu.Unlock()
	if inbox == nil {
		return fmt.Errorf("shell: %w", channel.ErrNoInbox)
	}

	if st, ok := core.Service[*settings.Settings](s.appCtx, "bot.settings"); ok {
		s.settings = st
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.loop(ctx, inbox)
	return nil
}

// Stop implements core.Stopper. A read blocked on input is abandoned.
func (s *Shell) Stop(_ context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// Done is closed when the input ends or the user types exit.
func (s *Shell) Done() <-chan struct{} {
	return s.done
}

func (s *Shell) loop(ctx context.Context, inbox channel.Inbox) {
	defer close(s.done)

	scanner := bufio.NewScanner(s.in)
	s.prompt()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		text := strings.TrimSpace(scanner.Text())
		switch text {
		case "":
			s.prompt()
			continue
		case "exit", "quit":
			return
		}

		msg := message.NewMessage(ChannelName,
			message.User{ID: s.config.UserID, Name: s.config.UserName},
			message.Room{ID: s.config.Room, Type: message.RoomGroup, Name: s.config.Room},
			text,
		)
		name, alias := s.botNames()
		channel.Address(&msg, name, alias)

		if err := inbox(ctx, msg); err != nil {
			s.logger.Warn("shell message failed", "error", err)
			s.print(s.styles.err.Render("error: " + err.Error()))
		}
		s.prompt()
	}
	if err := scanner.Err(); err != nil {
		s.logger.Error("shell input failed", "error", err)
	}
}

func (s *Shell) botNames() (name, alias string) {
	if s.settings == nil {
		return "sbot", ""
	}
	return s.settings.String("name"), s.settings.String("alias")
}

// Send implements channel.Channel.
func (s *Shell) Send(_ context.Context, env *message.Envelope) error {
	name, _ := s.botNames()
	s.print(s.styles.render(name, env))
	return nil
}

// SendMethod implements channel.MethodChannel.
func (s *Shell) SendMethod(_ context.Context, method string, env *message.Envelope) error {
	if method != MethodReact {
		return fmt.Errorf("%w: %s", channel.ErrUnknownMethod, method)
	}
	name, _ := s.botNames()
	s.print(s.styles.reaction(name, env))
	return nil
}

func (s *Shell) prompt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.out, s.styles.prompt.Render(s.config.Prompt))
}

func (s *Shell) print(text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintln(s.out, text)
}
