package config

import (
	"maps"
	"slices"
)

// Resolve lists the module IDs named under `modules:` in ID order, which is
// the order the bot provisions and starts them.
func Resolve(cfg *Config) []string {
	return slices.Sorted(maps.Keys(cfg.Modules))
}
