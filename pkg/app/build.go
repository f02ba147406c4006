// Package app wires configuration, the dispatcher and the configured
// modules into a runnable bot. It is the shared entry point of the sbot
// commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sync/atomic"

	"github.com/flemzord/sbot/internal/bot"
	"github.com/flemzord/sbot/internal/channel"
	"github.com/flemzord/sbot/internal/config"
	"github.com/flemzord/sbot/internal/core"
	"github.com/flemzord/sbot/internal/dispatch"
	"github.com/flemzord/sbot/internal/hook"
	"github.com/flemzord/sbot/internal/logger"
	"github.com/flemzord/sbot/internal/memory"
	"github.com/flemzord/sbot/internal/reload"
	"github.com/flemzord/sbot/internal/scripts"
	"github.com/flemzord/sbot/internal/settings"
	"github.com/flemzord/sbot/internal/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Service names published on the AppContext.
const (
	ServiceDispatcher = "bot.dispatcher"
	ServiceSettings   = "bot.settings"
	ServiceMetrics    = "metrics.registry"
	ServiceConfigPath = "config.path"
	ServiceReload     = "reload.handler"
	ServicePersister  = "memory.persister"
)

// ServiceName is reported to the tracing backend.
const ServiceName = "sbot"

// secretSetting matches setting names whose values are kept out of logs.
var secretSetting = regexp.MustCompile(`(?i)(key|token|secret|password)`)

// Params configures Build and Run.
type Params struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Config is used as is when set; ConfigPath is then only published for
	// reloads.
	Config *config.Config

	// AllowMissingConfig starts from DefaultConfig when no file is found.
	AllowMissingConfig bool

	// Channels replaces the configured channel modules with these IDs.
	// Other modules still load; IDs absent from the configuration load with
	// their defaults.
	Channels []string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the default persistent data directory.
	DataDir string

	// LogWriter receives log output. Defaults to stderr.
	LogWriter io.Writer
}

// Bot is a wired application, ready to start.
type Bot struct {
	App        *core.App
	Context    *core.AppContext
	Config     *config.Config
	ConfigPath string
	Dispatcher *dispatch.Dispatcher
	Settings   *settings.Settings
	Memory     *memory.InMemoryStore
	Registry   *prometheus.Registry
	Reload     *reload.Handler
	Logger     *slog.Logger

	tracing  *tracing.Provider
	redactor *logger.Redactor
	allow    atomic.Pointer[channel.AllowList]
	closers  []io.Closer
}

// DefaultConfig is used by commands that can run without a file.
func DefaultConfig() *config.Config {
	cfg := &config.Config{Version: "1"}
	cfg.ApplyDefaults()
	return cfg
}

// Build loads the configuration and wires every component. Modules are
// loaded but not started.
func Build(ctx context.Context, p Params) (*Bot, error) {
	cfg, cfgPath, err := loadConfig(p)
	if err != nil {
		return nil, err
	}

	redactor := logger.NewRedactor()
	log, err := logger.New(cfg.Log, logger.Options{Writer: p.LogWriter, Redactor: redactor})
	if err != nil {
		return nil, err
	}

	dataDir := p.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("app: creating data dir: %w", err)
	}

	b := &Bot{
		Config:     cfg,
		ConfigPath: cfgPath,
		Logger:     log,
		Memory:     memory.NewInMemoryStore(),
		Registry:   prometheus.NewRegistry(),
		redactor:   redactor,
	}
	b.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	b.tracing, err = tracing.Setup(ctx, cfg.Tracing, ServiceName, p.Version)
	if err != nil {
		return nil, err
	}

	b.Settings = settings.New(cfg.Bot.Name, cfg.Bot.Alias)
	b.Settings.LoadConfig(settingsValues(cfg))

	mux := channel.NewMux()
	b.Dispatcher = dispatch.New(dispatch.Config{
		Pipeline: hook.NewPipeline(
			hook.WithLogger(log),
			hook.WithStallTimeout(cfg.Middleware.StallTimeout),
		),
		Sender:   mux,
		Memory:   b.Memory,
		Settings: b.Settings,
		Logger:   log,
		Metrics:  dispatch.NewMetrics(b.Registry),
		Tracer:   b.tracing.Tracer(dispatch.TracerName),
	})

	if err := b.wireMiddleware(dataDir); err != nil {
		b.close()
		return nil, err
	}
	b.redactSettings()

	b.Context = core.NewAppContext(log, dataDir).WithModuleConfigs(cfg.Modules)
	b.Context.RegisterService(ServiceDispatcher, b.Dispatcher)
	b.Context.RegisterService(ServiceSettings, b.Settings)
	b.Context.RegisterService(ServiceMetrics, b.Registry)
	if cfgPath != "" {
		b.Context.RegisterService(ServiceConfigPath, cfgPath)
	}

	b.App = core.NewApp(b.Context)
	b.Reload = reload.NewHandler(b.App, b.Context, log)
	b.Reload.Observe(b.applyConfig)
	b.Context.RegisterService(ServiceReload, b.Reload)

	if err := b.App.LoadModules(moduleIDs(cfg, p.Channels)); err != nil {
		b.close()
		return nil, err
	}

	if n := wireChannels(b.App, mux, b.Dispatcher, log); n == 0 {
		log.Warn("no channel modules configured, the bot cannot hear anything")
	}

	if err := b.wireMemory(ctx); err != nil {
		b.App.Stop()
		b.close()
		return nil, err
	}

	return b, nil
}

// wireMiddleware registers the allow-list, the example scripts and the
// audit log, in that order, so the audit sees the final batch.
func (b *Bot) wireMiddleware(dataDir string) error {
	allow := b.Config.Middleware.Allow
	b.allow.Store(channel.NewAllowList(allow.Users, allow.Rooms))
	b.Dispatcher.Hear("allow-list", func(ctx context.Context, s *bot.State) (hook.Outcome, error) {
		al := b.allow.Load()
		if al.Empty() {
			return hook.Continue, nil
		}
		return hook.Allow(al)(ctx, s)
	})

	if b.Config.Bot.Examples {
		if err := scripts.Register(b.Dispatcher, scripts.Options{}); err != nil {
			return fmt.Errorf("app: registering example scripts: %w", err)
		}
		b.Logger.Info("example scripts registered", "branches", b.Dispatcher.Registry().Len())
	}

	if b.Config.Middleware.Audit {
		f, err := os.OpenFile(filepath.Join(dataDir, "audit.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("app: opening audit log: %w", err)
		}
		b.closers = append(b.closers, f)
		b.Dispatcher.Pipeline().Register(hook.StageRespond, "audit", hook.NewAuditInterceptor(f))
	}
	return nil
}

// applyConfig refreshes the runtime components that follow the config file.
func (b *Bot) applyConfig(cfg *config.Config) error {
	b.Settings.LoadConfig(settingsValues(cfg))
	b.redactSettings()
	b.Dispatcher.Pipeline().SetStallTimeout(cfg.Middleware.StallTimeout)
	b.allow.Store(channel.NewAllowList(cfg.Middleware.Allow.Users, cfg.Middleware.Allow.Rooms))
	return nil
}

// redactSettings keeps secret setting values out of the logs.
func (b *Bot) redactSettings() {
	for _, opt := range b.Settings.Describe() {
		if !secretSetting.MatchString(opt.Name) {
			continue
		}
		if v, ok := opt.Value.(string); ok {
			b.redactor.AddLiteral(v)
		}
	}
}

// Start starts every module.
func (b *Bot) Start() error {
	return b.App.Start()
}

// Stop stops the modules in reverse order, then flushes traces.
func (b *Bot) Stop(ctx context.Context) error {
	b.App.Stop()
	err := b.tracing.Shutdown(ctx)
	return errors.Join(err, b.close())
}

func (b *Bot) close() error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c.Close())
	}
	b.closers = nil
	return errors.Join(errs...)
}

// Done returns a channel closed when a module asks the process to end,
// such as the shell channel reaching the end of its input. It is nil when
// no module does.
func (b *Bot) Done() <-chan struct{} {
	for _, id := range b.App.Modules() {
		mod, _ := b.App.Module(string(id))
		if d, ok := mod.(interface{ Done() <-chan struct{} }); ok {
			return d.Done()
		}
	}
	return nil
}

func loadConfig(p Params) (*config.Config, string, error) {
	if p.Config != nil {
		return p.Config, p.ConfigPath, config.Validate(p.Config)
	}

	path := p.ConfigPath
	if path == "" {
		resolved, err := ResolveConfigPath()
		switch {
		case errors.Is(err, ErrNoConfig) && p.AllowMissingConfig:
			return DefaultConfig(), "", nil
		case err != nil:
			return nil, "", err
		}
		path = resolved
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// moduleIDs returns the configured module IDs. When channels is set, the
// configured channel modules are swapped for it.
func moduleIDs(cfg *config.Config, channels []string) []string {
	ids := config.Resolve(cfg)
	if len(channels) == 0 {
		return ids
	}
	ids = slices.DeleteFunc(ids, isChannelModule)
	ids = append(ids, channels...)
	slices.Sort(ids)
	return slices.Compact(ids)
}

func isChannelModule(id string) bool {
	info, ok := core.GetModule(id)
	if !ok {
		return false
	}
	_, isChannel := info.New().(channel.Channel)
	return isChannel
}

// settingsValues merges the settings section with the bot identity.
func settingsValues(cfg *config.Config) map[string]any {
	values := maps.Clone(cfg.Settings)
	if values == nil {
		values = make(map[string]any)
	}
	if cfg.Bot.Name != "" {
		values["name"] = cfg.Bot.Name
	}
	if cfg.Bot.Alias != "" {
		values["alias"] = cfg.Bot.Alias
	}
	return values
}
