package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/sbot/internal/channel"
	"github.com/flemzord/sbot/internal/core"
	"github.com/flemzord/sbot/internal/settings"
	"github.com/flemzord/sbot/pkg/message"
	"gopkg.in/yaml.v3"
)

// syncBuffer is a bytes.Buffer safe for the loop goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newShell(t *testing.T, input string) (*Shell, *syncBuffer, *core.AppContext) {
	t.Helper()
	out := &syncBuffer{}
	s := New(strings.NewReader(input), out)
	appCtx := core.NewAppContext(slog.New(slog.NewTextHandler(io.Discard, nil)), t.TempDir())
	if err := s.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	return s, out, appCtx
}

func waitDone(t *testing.T, s *Shell) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("shell loop did not finish")
	}
}

func TestShell_ModuleInfo(t *testing.T) {
	t.Parallel()

	info := (&Shell{}).ModuleInfo()
	if info.ID != ChannelName {
		t.Errorf("ID = %q, want %q", info.ID, ChannelName)
	}
	if _, ok := info.New().(*Shell); !ok {
		t.Error("New() should return *Shell")
	}
}

func TestShell_ConfigureDefaults(t *testing.T) {
	t.Parallel()

	s := &Shell{}
	var node yaml.Node
	if err := yaml.Unmarshal([]byte("room: ops\n"), &node); err != nil {
		t.Fatal(err)
	}
	if err := s.Configure(node.Content[0]); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	s.config.defaults()

	want := Config{UserID: "111", UserName: "user", Room: "ops", Prompt: "> "}
	if s.config != want {
		t.Errorf("config = %+v, want %+v", s.config, want)
	}
}

func TestShell_StartWithoutInbox(t *testing.T) {
	t.Parallel()

	s, _, _ := newShell(t, "")
	if err := s.Start(); !errors.Is(err, channel.ErrNoInbox) {
		t.Errorf("Start err = %v, want ErrNoInbox", err)
	}
}

func TestShell_ReadsLinesUntilExit(t *testing.T) {
	t.Parallel()

	s, _, appCtx := newShell(t, "hello\n\nsbot ping\nexit\nignored\n")
	appCtx.RegisterService("bot.settings", settings.New("sbot", "").WithLookup(func(string) (string, bool) { return "", false }))

	var mu sync.Mutex
	var got []message.Message
	s.SetInbox(func(_ context.Context, msg message.Message) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, msg)
		return nil
	})

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, s)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("messages = %d, want 2", len(got))
	}
	if got[0].Text != "hello" || got[0].Addressed {
		t.Errorf("first = %+v, want unaddressed hello", got[0])
	}
	if !got[1].Addressed {
		t.Error("message naming the bot should be addressed")
	}
	for _, m := range got {
		if m.Channel != ChannelName || m.User.ID != "111" || m.Room.ID != "shell" {
			t.Errorf("message = %+v", m)
		}
	}
}

func TestShell_InboxErrorPrinted(t *testing.T) {
	t.Parallel()

	s, out, _ := newShell(t, "boom\n")
	s.SetInbox(func(context.Context, message.Message) error { return errors.New("kaput") })

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, s)

	if !strings.Contains(out.String(), "error: kaput") {
		t.Errorf("output = %q, want error line", out.String())
	}
}

func TestShell_Send(t *testing.T) {
	t.Parallel()

	s, out, _ := newShell(t, "")
	env := message.NewEnvelope(message.Message{Channel: ChannelName})
	env.Write("Choose your fate!")
	env.Attach(message.Attachment{
		Title:    &message.Title{Text: "Laws", Link: "https://example.com"},
		Fallback: "The three laws",
		Image:    "https://example.com/laws.png",
	})
	env.Payload().QuickReply(message.QuickReply{Text: "door 1"}).QuickReply(message.QuickReply{Text: "door 2"})

	if err := s.Send(context.Background(), env); err != nil {
		t.Fatalf("Send: %v", err)
	}

	for _, want := range []string{
		"sbot: Choose your fate!",
		"Laws (https://example.com)",
		"The three laws",
		"https://example.com/laws.png",
		"[door 1] [door 2]",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestShell_SendMethod(t *testing.T) {
	t.Parallel()

	s, out, _ := newShell(t, "")
	env := message.NewEnvelope(message.Message{Channel: ChannelName}).Write(":wave:")

	if err := s.SendMethod(context.Background(), MethodReact, env); err != nil {
		t.Fatalf("react: %v", err)
	}
	if !strings.Contains(out.String(), "sbot reacts :wave:") {
		t.Errorf("output = %q", out.String())
	}
	if err := s.SendMethod(context.Background(), "topic", env); !errors.Is(err, channel.ErrUnknownMethod) {
		t.Errorf("topic err = %v, want ErrUnknownMethod", err)
	}
}
