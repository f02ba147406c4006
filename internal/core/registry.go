package core

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// The catalog holds every module compiled into the binary. Channel, gateway
// and memory packages add themselves from init; the bot picks the ones its
// configuration names.
var (
	catalog   = make(map[ModuleID]ModuleInfo)
	catalogMu sync.RWMutex
)

// RegisterModule adds instance to the catalog under the ID it reports.
// Registration happens at init time, so a bad or duplicate ID is a
// programming error and panics.
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	switch {
	case info.ID == "":
		panic("sbot: cannot register a module without an ID")
	case info.New == nil:
		panic(fmt.Sprintf("sbot: module %q has no constructor", info.ID))
	}

	catalogMu.Lock()
	defer catalogMu.Unlock()
	if _, dup := catalog[info.ID]; dup {
		panic(fmt.Sprintf("sbot: module %q registered twice", info.ID))
	}
	catalog[info.ID] = info
}

// GetModule looks up a compiled module by its full ID.
func GetModule(id string) (ModuleInfo, bool) {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	info, ok := catalog[ModuleID(id)]
	return info, ok
}

// GetModules lists the catalog ordered by ID.
func GetModules() []ModuleInfo {
	return collect(func(ModuleID) bool { return true })
}

// GetModulesByNamespace lists the modules under namespace, so "channel"
// yields channel.shell and channel.mcp but not gateway.http.
func GetModulesByNamespace(namespace string) []ModuleInfo {
	prefix := namespace + "."
	return collect(func(id ModuleID) bool {
		return strings.HasPrefix(string(id), prefix)
	})
}

func collect(keep func(ModuleID) bool) []ModuleInfo {
	catalogMu.RLock()
	out := make([]ModuleInfo, 0, len(catalog))
	for id, info := range catalog {
		if keep(id) {
			out = append(out, info)
		}
	}
	catalogMu.RUnlock()

	slices.SortFunc(out, func(a, b ModuleInfo) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// resetRegistry empties the catalog between tests.
func resetRegistry() {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	catalog = make(map[ModuleID]ModuleInfo)
}
