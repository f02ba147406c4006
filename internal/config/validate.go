package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/flemzord/sbot/internal/core"
	"github.com/flemzord/sbot/internal/cron"
)

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"text", "json"}
)

// Validate checks the structural validity of a Config.
// It verifies the version field, the bot identity, the log settings and
// that all referenced module IDs exist in the registry.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if strings.TrimSpace(cfg.Bot.Name) == "" {
		errs = append(errs, errors.New("config: bot.name must not be empty"))
	}
	if cfg.Bot.Alias != "" && strings.EqualFold(cfg.Bot.Alias, cfg.Bot.Name) {
		errs = append(errs, fmt.Errorf("config: bot.alias %q duplicates bot.name", cfg.Bot.Alias))
	}

	if cfg.Log.Level != "" && !slices.Contains(validLevels, strings.ToLower(cfg.Log.Level)) {
		errs = append(errs, fmt.Errorf("config: log.level %q is not one of %v", cfg.Log.Level, validLevels))
	}
	if cfg.Log.Format != "" && !slices.Contains(validFormats, strings.ToLower(cfg.Log.Format)) {
		errs = append(errs, fmt.Errorf("config: log.format %q is not one of %v", cfg.Log.Format, validFormats))
	}

	if cfg.Middleware.StallTimeout < 0 {
		errs = append(errs, fmt.Errorf("config: middleware.stall_timeout must be non-negative, got %s", cfg.Middleware.StallTimeout))
	}
	if r := cfg.Tracing.SampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("config: tracing.sample_ratio must be within [0,1], got %v", r))
	}

	if cfg.Memory.AutosaveEnabled() {
		if err := cron.Validate(cfg.Memory.Autosave); err != nil {
			errs = append(errs, fmt.Errorf("config: memory.autosave: %w", err))
		}
	}

	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	return errors.Join(errs...)
}
