package mcpbridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/flemzord/sbot/internal/bot"
	"github.com/flemzord/sbot/internal/channel"
	"github.com/flemzord/sbot/internal/core"
	"github.com/flemzord/sbot/internal/dispatch"
	"github.com/flemzord/sbot/internal/match"
	"github.com/flemzord/sbot/internal/settings"
	"github.com/flemzord/sbot/pkg/message"
	"github.com/mark3labs/mcp-go/mcp"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newBridge returns a started bridge wired to a dispatcher with a few
// branches.
func newBridge(t *testing.T) *Bridge {
	t.Helper()

	b := &Bridge{}
	appCtx := core.NewAppContext(testLogger(), t.TempDir())
	if err := b.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	mux := channel.NewMux()
	if err := mux.Register(ChannelName, b); err != nil {
		t.Fatal(err)
	}
	st := settings.New("sbot", "").WithLookup(func(string) (string, bool) { return "", false })
	d := dispatch.New(dispatch.Config{Sender: mux, Settings: st, Logger: testLogger()})

	must(t, d.Text("greet", match.Contains("hello"), func(_ context.Context, s *bot.State) error {
		s.Respond("hi " + s.Message.User.Name)
		return nil
	}))
	must(t, d.Text("wave", match.Contains("hello"), func(_ context.Context, s *bot.State) error {
		s.RespondVia("react", ":wave:")
		return nil
	}, bot.Forced()))
	must(t, d.Direct("whoami", match.Contains("who"), func(_ context.Context, s *bot.State) error {
		s.Reply("you are " + s.Message.User.ID)
		return nil
	}))

	appCtx.RegisterService("bot.dispatcher", d)
	appCtx.RegisterService("bot.settings", st)
	b.SetInbox(func(ctx context.Context, msg message.Message) error {
		_, err := d.Receive(ctx, msg)
		return err
	})
	if err := b.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return b
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content = %+v", res.Content)
	}
	tc, ok := mcp.AsTextContent(res.Content[0])
	if !ok {
		t.Fatalf("content is %T, want text", res.Content[0])
	}
	return tc.Text
}

func TestBridge_ModuleInfo(t *testing.T) {
	t.Parallel()

	info := (&Bridge{}).ModuleInfo()
	if info.ID != ChannelName {
		t.Errorf("ID = %q", info.ID)
	}
	if _, ok := info.New().(*Bridge); !ok {
		t.Error("New() should return *Bridge")
	}
}

func TestBridge_StartWithoutInbox(t *testing.T) {
	t.Parallel()

	b := &Bridge{}
	if err := b.Provision(core.NewAppContext(testLogger(), t.TempDir())); err != nil {
		t.Fatal(err)
	}
	if err := b.Start(); !errors.Is(err, channel.ErrNoInbox) {
		t.Errorf("Start err = %v, want ErrNoInbox", err)
	}
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	b := newBridge(t)
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"direct with replies", map[string]any{"text": "hello", "user": "ada"}, "hi ada\n(react) :wave:"},
		{"default user", map[string]any{"text": "who"}, "@mcp you are mcp"},
		{"group not addressed", map[string]any{"text": "who", "room": "lab"}, "(no reply)"},
		{"group addressed", map[string]any{"text": "sbot who", "room": "lab", "user": "7"}, "@7 you are 7"},
		{"nothing matches", map[string]any{"text": "bye"}, "(no reply)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := b.handleSendMessage(context.Background(), call(tt.args))
			if err != nil {
				t.Fatalf("handler: %v", err)
			}
			if res.IsError {
				t.Fatalf("tool error: %s", resultText(t, res))
			}
			if got := resultText(t, res); got != tt.want {
				t.Errorf("reply = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSendMessage_MissingText(t *testing.T) {
	t.Parallel()

	b := newBridge(t)
	res, err := b.handleSendMessage(context.Background(), call(map[string]any{}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !res.IsError {
		t.Error("expected a tool error without text")
	}
}

func TestSendMessage_NoInbox(t *testing.T) {
	t.Parallel()

	b := &Bridge{}
	if err := b.Provision(core.NewAppContext(testLogger(), t.TempDir())); err != nil {
		t.Fatal(err)
	}
	res, err := b.handleSendMessage(context.Background(), call(map[string]any{"text": "hello"}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "not running") {
		t.Errorf("result = %+v", res)
	}
}

func TestSend_OutsideToolCall(t *testing.T) {
	t.Parallel()

	b := newBridge(t)
	env := message.NewEnvelope(message.Message{Channel: ChannelName}).Write("late")
	if err := b.Send(context.Background(), env); !errors.Is(err, ErrNoRecipient) {
		t.Errorf("Send err = %v, want ErrNoRecipient", err)
	}
}

func TestListBranches(t *testing.T) {
	t.Parallel()

	b := newBridge(t)
	res, err := b.handleListBranches(context.Background(), call(nil))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	var infos []bot.Info
	if err := json.Unmarshal([]byte(resultText(t, res)), &infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(infos) != 3 || infos[0].ID != "greet" || infos[2].Scope != "direct" {
		t.Errorf("infos = %+v", infos)
	}
}

func TestNewServer_RegistersTools(t *testing.T) {
	t.Parallel()

	s := newBridge(t).NewServer("test")
	tools := s.ListTools()
	for _, name := range []string{ToolSendMessage, ToolListBranches} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %q not registered", name)
		}
	}
}
