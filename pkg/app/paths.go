package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoConfig is returned when no configuration file exists in any of the
// standard locations.
var ErrNoConfig = errors.New("app: no configuration file found")

// ConfigFile is the configuration file name searched for.
const ConfigFile = "sbot.yaml"

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/sbot/sbot.yaml → ~/.config/sbot/sbot.yaml → ./sbot.yaml
func ResolveConfigPath() (string, error) {
	candidates := ConfigCandidates()
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w (searched: %v)", ErrNoConfig, candidates)
}

// ConfigCandidates lists the config locations in search order.
func ConfigCandidates() []string {
	var candidates []string
	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "sbot", ConfigFile))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "sbot", ConfigFile))
	}
	return append(candidates, ConfigFile)
}

// DefaultDataDir returns the persistent data directory:
// $XDG_DATA_HOME/sbot, otherwise ~/.local/share/sbot.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "sbot")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "sbot")
}
