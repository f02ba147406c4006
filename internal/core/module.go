package core

import "strings"

// ModuleID identifies a module, namespaced with dots (e.g. "channel.shell").
type ModuleID string

// Namespace returns the part of the ID before the first dot, or "" when the
// ID has no dot.
func (id ModuleID) Namespace() string {
	ns, _, ok := strings.Cut(string(id), ".")
	if !ok {
		return ""
	}
	return ns
}

// Name returns the part of the ID after the first dot. An ID without a
// namespace is its own name.
func (id ModuleID) Name() string {
	_, name, ok := strings.Cut(string(id), ".")
	if !ok {
		return string(id)
	}
	return name
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	// ID is the unique module identifier.
	ID ModuleID

	// New returns a fresh, unconfigured instance.
	New func() Module
}

// Module is implemented by every pluggable component. The remaining
// lifecycle interfaces are optional.
type Module interface {
	ModuleInfo() ModuleInfo
}
