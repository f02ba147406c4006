// Package settings is the bot's settings provider. Options are declared with
// Extend and resolved, highest priority first, from runtime Set calls,
// BOT_<NAME> environment variables, the config file and option defaults.
package settings

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cast"
)

// ErrUnknownOption is returned when reading or writing an undeclared option.
var ErrUnknownOption = errors.New("settings: unknown option")

// Type names the coercion applied to a value.
type Type string

const (
	TypeString   Type = "string"
	TypeBoolean  Type = "boolean"
	TypeNumber   Type = "number"
	TypeDuration Type = "duration"
	TypeArray    Type = "array"
)

// Option declares a setting.
type Option struct {
	Type        Type
	Description string
	Default     any
}

// Settings holds declared options and their values. Safe for concurrent use.
type Settings struct {
	mu      sync.RWMutex
	options map[string]Option
	runtime map[string]any
	config  map[string]any
	lookup  func(string) (string, bool)
}

// New creates a provider with the built-in name and alias options.
func New(name, alias string) *Settings {
	s := &Settings{
		options: make(map[string]Option),
		runtime: make(map[string]any),
		config:  make(map[string]any),
		lookup:  os.LookupEnv,
	}
	s.Extend(map[string]Option{
		"name":  {Type: TypeString, Description: "Name the bot answers to", Default: name},
		"alias": {Type: TypeString, Description: "Alternate name for the bot", Default: alias},
	})
	return s
}

// WithLookup replaces the environment lookup. Intended for tests.
func (s *Settings) WithLookup(fn func(string) (string, bool)) *Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookup = fn
	return s
}

// Extend declares options. Redeclaring an option replaces its definition.
func (s *Settings) Extend(opts map[string]Option) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, opt := range opts {
		if opt.Type == "" {
			opt.Type = TypeString
		}
		s.options[name] = opt
	}
}

// LoadConfig replaces the config-file layer. Keys for options not yet
// declared are kept and apply once the option is extended.
func (s *Settings) LoadConfig(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = make(map[string]any, len(values))
	for k, v := range values {
		s.config[k] = v
	}
}

// Set overrides an option at runtime.
func (s *Settings) Set(name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	opt, ok := s.options[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOption, name)
	}
	v, err := coerce(opt.Type, value)
	if err != nil {
		return fmt.Errorf("settings: %s: %w", name, err)
	}
	s.runtime[name] = v
	return nil
}

// Reset drops a runtime override.
func (s *Settings) Reset(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runtime, name)
}

// Get resolves an option, coerced to its declared type.
func (s *Settings) Get(name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	opt, ok := s.options[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOption, name)
	}
	if v, ok := s.runtime[name]; ok {
		return v, nil
	}
	if raw, ok := s.lookup(EnvName(name)); ok {
		return coerce(opt.Type, raw)
	}
	if v, ok := s.config[name]; ok {
		return coerce(opt.Type, v)
	}
	if opt.Default == nil {
		return zero(opt.Type), nil
	}
	return coerce(opt.Type, opt.Default)
}

// String resolves an option as a string. Unknown options and coercion
// failures yield "".
func (s *Settings) String(name string) string {
	v, err := s.Get(name)
	if err != nil {
		return ""
	}
	return cast.ToString(v)
}

// Bool resolves an option as a bool.
func (s *Settings) Bool(name string) bool {
	v, err := s.Get(name)
	if err != nil {
		return false
	}
	return cast.ToBool(v)
}

// Number resolves an option as a float64.
func (s *Settings) Number(name string) float64 {
	v, err := s.Get(name)
	if err != nil {
		return 0
	}
	return cast.ToFloat64(v)
}

// Duration resolves an option as a time.Duration.
func (s *Settings) Duration(name string) time.Duration {
	v, err := s.Get(name)
	if err != nil {
		return 0
	}
	return cast.ToDuration(v)
}

// Strings resolves an option as a string slice.
func (s *Settings) Strings(name string) []string {
	v, err := s.Get(name)
	if err != nil {
		return nil
	}
	return cast.ToStringSlice(v)
}

// Describe returns the declared options sorted by name.
func (s *Settings) Describe() []Described {
	s.mu.RLock()
	names := make([]string, 0, len(s.options))
	for name := range s.options {
		names = append(names, name)
	}
	s.mu.RUnlock()
	slices.Sort(names)

	out := make([]Described, 0, len(names))
	for _, name := range names {
		s.mu.RLock()
		opt := s.options[name]
		s.mu.RUnlock()
		v, _ := s.Get(name)
		out = append(out, Described{Name: name, Option: opt, Value: v})
	}
	return out
}

// Described is an option with its resolved value.
type Described struct {
	Name string
	Option
	Value any
}

// EnvName maps an option name to its environment variable, e.g.
// "omdb-api-key" → "BOT_OMDB_API_KEY".
func EnvName(name string) string {
	r := strings.NewReplacer("-", "_", ".", "_", " ", "_")
	return "BOT_" + strings.ToUpper(r.Replace(name))
}

func coerce(t Type, v any) (any, error) {
	switch t {
	case TypeBoolean:
		return cast.ToBoolE(v)
	case TypeNumber:
		return cast.ToFloat64E(v)
	case TypeDuration:
		return cast.ToDurationE(v)
	case TypeArray:
		if s, ok := v.(string); ok {
			return splitList(s), nil
		}
		return cast.ToStringSliceE(v)
	default:
		return cast.ToStringE(v)
	}
}

func zero(t Type) any {
	switch t {
	case TypeBoolean:
		return false
	case TypeNumber:
		return float64(0)
	case TypeDuration:
		return time.Duration(0)
	case TypeArray:
		return []string(nil)
	default:
		return ""
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
