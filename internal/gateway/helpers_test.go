package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/sbot/internal/bot"
	"github.com/flemzord/sbot/internal/channel"
	"github.com/flemzord/sbot/internal/core"
	"github.com/flemzord/sbot/internal/dispatch"
	"github.com/flemzord/sbot/internal/match"
	"github.com/flemzord/sbot/internal/settings"
	"github.com/flemzord/sbot/pkg/message"
	"gopkg.in/yaml.v3"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// freeAddr returns a free TCP address on localhost.
func freeAddr(t *testing.T) string {
	t.Helper()
	var lc net.ListenConfig
	ln, err := lc.Listen(t.Context(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		t.Fatal(err)
	}
	return addr
}

// doGet makes a GET request with context.
func doGet(t *testing.T, url string) *http.Response {
	t.Helper()
	return doRequest(t, http.MethodGet, url, "", "")
}

// doGetWithBearer makes a GET request with a bearer token.
func doGetWithBearer(t *testing.T, url, token string) *http.Response {
	t.Helper()
	return doRequest(t, http.MethodGet, url, token, "")
}

func doRequest(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

// newTestGateway builds a provisioned gateway that is not yet started.
func newTestGateway(t *testing.T, addr string, auth AuthConfig) *Gateway {
	t.Helper()
	appCtx := core.NewAppContext(testLogger(), t.TempDir())

	g := &Gateway{}
	g.config = Config{
		Bind:            addr,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 2 * time.Second,
		Auth:            auth,
	}
	if err := g.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	return g
}

// wireBot attaches a dispatcher with a few branches to g, the way the
// application wires channel modules.
func wireBot(t *testing.T, g *Gateway) *dispatch.Dispatcher {
	t.Helper()

	mux := channel.NewMux()
	if err := mux.Register(ChannelName, g); err != nil {
		t.Fatal(err)
	}
	st := settings.New("sbot", "sb").WithLookup(func(string) (string, bool) { return "", false })
	d := dispatch.New(dispatch.Config{Sender: mux, Settings: st, Logger: testLogger()})

	mustBranch(t, d.Text("greet", match.Contains("hello"), func(_ context.Context, s *bot.State) error {
		s.Respond("hi " + s.Message.User.Name)
		return nil
	}))
	mustBranch(t, d.Text("wave", match.Contains("wave"), func(_ context.Context, s *bot.State) error {
		s.RespondVia(MethodReact, ":wave:")
		return nil
	}))
	mustBranch(t, d.Direct("whoami", match.Contains("who"), func(_ context.Context, s *bot.State) error {
		s.Reply("you are " + s.Message.User.ID)
		return nil
	}))

	g.appCtx.RegisterService("bot.dispatcher", d)
	g.appCtx.RegisterService("bot.settings", st)
	g.SetInbox(func(ctx context.Context, msg message.Message) error {
		_, err := d.Receive(ctx, msg)
		return err
	})
	return d
}

func mustBranch(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func startGateway(t *testing.T, g *Gateway) {
	t.Helper()
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = g.Stop(context.Background()) })
}

// mustYAMLNode parses YAML text into a *yaml.Node for Configure calls.
func mustYAMLNode(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		t.Fatalf("YAML parse: %v", err)
	}
	if len(node.Content) > 0 {
		return node.Content[0]
	}
	return &node
}
