// Package config handles YAML configuration loading, environment variable
// expansion, defaults and structural validation for sbot.
package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Config.ApplyDefaults.
const (
	DefaultBotName   = "sbot"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultAutosave  = "@every 1m"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Bot        BotConfig        `yaml:"bot"`
	Log        LogConfig        `yaml:"log"`
	Memory     MemoryConfig     `yaml:"memory"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Middleware MiddlewareConfig `yaml:"middleware"`

	// Settings seeds values for the settings provider, keyed by option name.
	Settings map[string]any `yaml:"settings,omitempty"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "channel.shell").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// BotConfig identifies the bot.
type BotConfig struct {
	// Name is the name users address the bot by.
	Name string `yaml:"name"`

	// Alias is an optional second name.
	Alias string `yaml:"alias,omitempty"`

	// Examples registers the demonstration scripts.
	Examples bool `yaml:"examples"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// MemoryConfig controls memory persistence.
type MemoryConfig struct {
	// Autosave is the cron expression (or descriptor such as "@every 30s")
	// on which memory is flushed to the persister. "off" disables it.
	Autosave string `yaml:"autosave"`
}

// AutosaveEnabled reports whether periodic saves are configured.
func (m MemoryConfig) AutosaveEnabled() bool {
	return m.Autosave != "" && m.Autosave != "off"
}

// TracingConfig configures the OTLP/HTTP span exporter. Tracing is disabled
// when Endpoint is empty.
type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// MiddlewareConfig configures the built-in interceptors.
type MiddlewareConfig struct {
	Allow AllowConfig `yaml:"allow"`

	// StallTimeout bounds each interceptor call. Zero disables the guard.
	StallTimeout time.Duration `yaml:"stall_timeout"`

	// Audit appends one JSON Lines record per responded cycle to
	// audit.jsonl in the data directory.
	Audit bool `yaml:"audit"`
}

// AllowConfig restricts which users and rooms the bot listens to. Empty
// lists allow everyone.
type AllowConfig struct {
	Users []string `yaml:"users,omitempty"`
	Rooms []string `yaml:"rooms,omitempty"`
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Bot.Name == "" {
		c.Bot.Name = DefaultBotName
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Memory.Autosave == "" {
		c.Memory.Autosave = DefaultAutosave
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1
	}
}
