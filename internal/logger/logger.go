// Package logger builds the root slog.Logger from the log section of the
// configuration. Text output goes through charmbracelet/log, JSON output
// through slog's JSON handler. Both are wrapped in a RedactingHandler so
// secrets never reach the log sink.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	charmLog "github.com/charmbracelet/log"
	"github.com/flemzord/sbot/internal/config"
)

const (
	// EnvLevel overrides log.level.
	EnvLevel = "SBOT_LOG_LEVEL"
	// EnvFormat overrides log.format.
	EnvFormat = "SBOT_LOG_FORMAT"

	defaultLevel  = "info"
	defaultFormat = "text"
)

var (
	// ErrFormat is returned for a format other than text or json.
	ErrFormat = errors.New("logger: unsupported format")
	// ErrLevel is returned for an unknown level name.
	ErrLevel = errors.New("logger: unsupported level")
)

// Options tune New. The zero value logs to stderr with a fresh Redactor and
// reads overrides from the process environment.
type Options struct {
	Writer   io.Writer
	Redactor *Redactor
	Getenv   func(string) string
}

// New returns a logger configured by cfg, with SBOT_LOG_LEVEL and
// SBOT_LOG_FORMAT taking precedence.
func New(cfg config.LogConfig, opts Options) (*slog.Logger, error) {
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}
	if opts.Redactor == nil {
		opts.Redactor = NewRedactor()
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	format := pick(opts.Getenv(EnvFormat), cfg.Format, defaultFormat)
	level, err := ParseLevel(pick(opts.Getenv(EnvLevel), cfg.Level, defaultLevel))
	if err != nil {
		return nil, err
	}

	var inner slog.Handler
	switch format {
	case "text":
		inner = charmLog.NewWithOptions(opts.Writer, charmLog.Options{
			Level:           charmLevel(level),
			ReportTimestamp: true,
			Formatter:       charmLog.TextFormatter,
		})
	case "json":
		inner = slog.NewJSONHandler(opts.Writer, &slog.HandlerOptions{Level: level})
	default:
		return nil, fmt.Errorf("%w: %q", ErrFormat, format)
	}

	return slog.New(NewRedactingHandler(inner, opts.Redactor)), nil
}

// ParseLevel maps debug, info, warn (or warning) and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrLevel, s)
	}
}

func charmLevel(level slog.Level) charmLog.Level {
	switch {
	case level <= slog.LevelDebug:
		return charmLog.DebugLevel
	case level <= slog.LevelInfo:
		return charmLog.InfoLevel
	case level <= slog.LevelWarn:
		return charmLog.WarnLevel
	default:
		return charmLog.ErrorLevel
	}
}

// pick returns the first non-blank value, lowercased.
func pick(values ...string) string {
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			return v
		}
	}
	return ""
}
