package main

// Compiled-in modules. Each registers itself with the core module registry.
import (
	_ "github.com/flemzord/sbot/internal/gateway"
	_ "github.com/flemzord/sbot/internal/mcpbridge"
	_ "github.com/flemzord/sbot/modules/channel/shell"
	_ "github.com/flemzord/sbot/modules/memory/sqlite"
)

const (
	shellChannel = "channel.shell"
	mcpChannel   = "channel.mcp"
)
