package app

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/sbot/internal/channel/channeltest"
	"github.com/flemzord/sbot/internal/config"
	"github.com/flemzord/sbot/internal/core"
	"github.com/flemzord/sbot/internal/dispatch"
	"github.com/flemzord/sbot/internal/memory"
	"github.com/flemzord/sbot/internal/scripts"
	"github.com/flemzord/sbot/internal/settings"
	"github.com/flemzord/sbot/pkg/message"
	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/flemzord/sbot/modules/memory/sqlite"
)

func init() {
	core.RegisterModule(channeltest.NewMockChannel("apptest", nil, "react"))
	core.RegisterModule(channeltest.NewMockChannel("other", nil))
}

func parseConfig(t *testing.T, raw string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return cfg
}

func build(t *testing.T, raw, dataDir string) (*Bot, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	b, err := Build(context.Background(), Params{
		Config:    parseConfig(t, raw),
		DataDir:   dataDir,
		LogWriter: &logs,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return b, &logs
}

func mockChannel(t *testing.T, b *Bot, id string) *channeltest.MockChannel {
	t.Helper()
	mod, ok := b.App.Module(id)
	if !ok {
		t.Fatalf("module %s not loaded", id)
	}
	return mod.(*channeltest.MockChannel)
}

func say(t *testing.T, b *Bot, text string) dispatch.Result {
	t.Helper()
	msg := message.NewMessage("channel.apptest",
		message.User{ID: "42", Name: "ada"},
		message.Room{ID: "lab", Type: message.RoomGroup},
		text,
	)
	res, err := b.Dispatcher.Receive(context.Background(), msg)
	if err != nil {
		t.Fatalf("Receive(%q): %v", text, err)
	}
	return res
}

const examplesConfig = `
version: "1"
bot:
  name: robbie
  examples: true
log:
  format: json
modules:
  channel.apptest: {}
`

func TestBuild_PublishesServices(t *testing.T) {
	t.Parallel()

	b, _ := build(t, examplesConfig, t.TempDir())
	t.Cleanup(func() { _ = b.Stop(context.Background()) })

	if d, ok := core.Service[*dispatch.Dispatcher](b.Context, ServiceDispatcher); !ok || d != b.Dispatcher {
		t.Error("dispatcher service missing")
	}
	if s, ok := core.Service[*settings.Settings](b.Context, ServiceSettings); !ok || s.String("name") != "robbie" {
		t.Error("settings service missing or wrong name")
	}
	if _, ok := core.Service[*prometheus.Registry](b.Context, ServiceMetrics); !ok {
		t.Error("metrics registry missing")
	}
	if _, ok := b.Context.GetService(ServiceReload); !ok {
		t.Error("reload handler missing")
	}
	if _, ok := b.Context.GetService(ServiceConfigPath); ok {
		t.Error("config path published without a file")
	}
	if b.Dispatcher.Registry().Len() != 11 {
		t.Errorf("branches = %d, want the 11 example branches", b.Dispatcher.Registry().Len())
	}
}

func TestBuild_RoutesRepliesToChannel(t *testing.T) {
	t.Parallel()

	b, _ := build(t, examplesConfig, t.TempDir())
	t.Cleanup(func() { _ = b.Stop(context.Background()) })

	res := say(t, b, "Hello bots!")
	if res.Status != dispatch.StatusDelivered {
		t.Fatalf("status = %s, want delivered", res.Status)
	}
	got := mockChannel(t, b, "channel.apptest").SentTexts()
	if !slices.Contains(got, "Hello 👋") {
		t.Errorf("sent = %v", got)
	}
}

func TestBuild_NoExamples(t *testing.T) {
	t.Parallel()

	b, _ := build(t, "version: \"1\"\nmodules:\n  channel.apptest: {}\n", t.TempDir())
	t.Cleanup(func() { _ = b.Stop(context.Background()) })

	if n := b.Dispatcher.Registry().Len(); n != 0 {
		t.Errorf("branches = %d, want 0", n)
	}
	if res := say(t, b, "hello bots"); res.Status != dispatch.StatusUnmatched {
		t.Errorf("status = %s, want unmatched", res.Status)
	}
}

func TestBuild_AllowList(t *testing.T) {
	t.Parallel()

	raw := examplesConfig + "middleware:\n  allow:\n    users: [\"7\"]\n"
	b, _ := build(t, raw, t.TempDir())
	t.Cleanup(func() { _ = b.Stop(context.Background()) })

	if res := say(t, b, "Hello bots!"); res.Status != dispatch.StatusDiscarded {
		t.Errorf("status = %s, want discarded for a user off the list", res.Status)
	}

	// Reloading with an empty list lets everyone through again.
	cfg := parseConfig(t, examplesConfig)
	if err := b.Reload.HandleReloadFromConfig(context.Background(), cfg); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if res := say(t, b, "Hello bots!"); res.Status != dispatch.StatusDelivered {
		t.Errorf("status after reload = %s, want delivered", res.Status)
	}
}

func TestBuild_ReloadRefreshesSettings(t *testing.T) {
	t.Parallel()

	b, _ := build(t, examplesConfig, t.TempDir())
	t.Cleanup(func() { _ = b.Stop(context.Background()) })

	cfg := parseConfig(t, examplesConfig+"settings:\n  flag: \"🇧🇪\"\n")
	if err := b.Reload.HandleReloadFromConfig(context.Background(), cfg); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := b.Settings.String(scripts.SettingFlag); got != "🇧🇪" {
		t.Errorf("flag = %q after reload", got)
	}
}

func TestBuild_RedactsSecretSettings(t *testing.T) {
	t.Parallel()

	b, logs := build(t, examplesConfig+"settings:\n  omdb-api-key: abcd1234secret\n", t.TempDir())
	t.Cleanup(func() { _ = b.Stop(context.Background()) })

	b.Logger.Info("calling omdb", "key", b.Settings.String(scripts.SettingOMDbAPIKey))
	if strings.Contains(logs.String(), "abcd1234secret") {
		t.Errorf("secret leaked into logs: %s", logs.String())
	}
}

func TestBuild_AuditLog(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	b, _ := build(t, examplesConfig+"middleware:\n  audit: true\n", dir)

	say(t, b, "Hello bots!")
	if err := b.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "audit.jsonl"))
	if err != nil {
		t.Fatalf("reading audit log: %v", err)
	}
	if !strings.Contains(string(data), `"inbound_text":"Hello bots!"`) {
		t.Errorf("audit = %s", data)
	}
}

func TestBuild_PersistsMemory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	raw := examplesConfig + "memory:\n  autosave: \"off\"\n"
	raw = strings.Replace(raw, "modules:\n", "modules:\n  memory.sqlite: {}\n", 1)

	b, _ := build(t, raw, dir)
	if err := b.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	say(t, b, "beetlejuice")
	say(t, b, "beetlejuice")
	if err := b.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	again, _ := build(t, raw, dir)
	if err := again.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = again.Stop(context.Background()) })
	// Persisted numbers come back as float64.
	if v, _ := again.Memory.Get(memory.Global(), scripts.KeyBeetles); v != float64(2) {
		t.Errorf("restored beetles = %v (%T), want 2", v, v)
	}
}

func TestBuild_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := Build(context.Background(), Params{
		Config:  &config.Config{Version: "2"},
		DataDir: t.TempDir(),
	})
	if err == nil {
		t.Error("expected validation error")
	}
}

func TestModuleIDs(t *testing.T) {
	t.Parallel()

	cfg := parseConfig(t, "version: \"1\"\nmodules:\n  channel.apptest: {}\n  memory.sqlite: {}\n")
	tests := []struct {
		name     string
		channels []string
		want     []string
	}{
		{"configured", nil, []string{"channel.apptest", "memory.sqlite"}},
		{"swapped", []string{"channel.other"}, []string{"channel.other", "memory.sqlite"}},
		{"duplicate", []string{"channel.apptest", "channel.apptest"}, []string{"channel.apptest", "memory.sqlite"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := moduleIDs(cfg, tt.channels); !slices.Equal(got, tt.want) {
				t.Errorf("moduleIDs = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSettingsValues(t *testing.T) {
	t.Parallel()

	cfg := parseConfig(t, "version: \"1\"\nbot:\n  name: robbie\n  alias: rb\nsettings:\n  flag: x\n")
	got := settingsValues(cfg)
	if got["name"] != "robbie" || got["alias"] != "rb" || got["flag"] != "x" {
		t.Errorf("values = %v", got)
	}
	if _, ok := cfg.Settings["name"]; ok {
		t.Error("settingsValues mutated the config")
	}
}

func TestBot_DoneWithoutInteractiveChannel(t *testing.T) {
	t.Parallel()

	b, _ := build(t, examplesConfig, t.TempDir())
	t.Cleanup(func() { _ = b.Stop(context.Background()) })
	if b.Done() != nil {
		t.Error("Done should be nil without a module that ends the process")
	}
}

func TestRunContext_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- RunContext(ctx, Params{
			Config:    parseConfig(t, examplesConfig),
			DataDir:   t.TempDir(),
			LogWriter: io.Discard,
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("RunContext: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("RunContext did not return after cancel")
	}
}
