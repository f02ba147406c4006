package reload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flemzord/sbot/internal/config"
	"github.com/flemzord/sbot/internal/core"
)

// Observer applies a freshly loaded config to a runtime component, such as
// the settings provider or the middleware pipeline.
type Observer func(cfg *config.Config) error

// Handler reloads application configuration and notifies observers and
// modules.
type Handler struct {
	app       *core.App
	appCtx    *core.AppContext
	logger    *slog.Logger
	observers []Observer
}

// NewHandler creates a reload handler. appCtx is the context modules were
// loaded with; reloaded modules share its services.
func NewHandler(app *core.App, appCtx *core.AppContext, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		app:    app,
		appCtx: appCtx,
		logger: logger.With("component", "reload"),
	}
}

// Observe registers fn to run on every successful config load, before
// modules are reloaded.
func (h *Handler) Observe(fn Observer) {
	h.observers = append(h.observers, fn)
}

// HandleReload loads a fresh config from disk, validates it, and applies it.
func (h *Handler) HandleReload(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return h.handleReload(ctx, cfg)
}

// HandleReloadFromConfig applies a pre-loaded config. The caller is
// responsible for calling config.Validate first.
func (h *Handler) HandleReloadFromConfig(ctx context.Context, cfg *config.Config) error {
	return h.handleReload(ctx, cfg)
}

func (h *Handler) handleReload(ctx context.Context, cfg *config.Config) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before reload: %w", err)
	}

	var errs []error
	for _, fn := range h.observers {
		if err := fn(cfg); err != nil {
			errs = append(errs, err)
		}
	}

	if err := h.app.ReloadModules(h.appCtx.WithModuleConfigs(cfg.Modules)); err != nil {
		errs = append(errs, fmt.Errorf("reloading modules: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	h.logger.Info("configuration reloaded successfully")
	return nil
}
