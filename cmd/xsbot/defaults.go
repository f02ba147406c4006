package main

// DefaultModules lists the import paths of the first-party sbot modules.
// xsbot includes these by default unless --only restricts the selection.
var DefaultModules = []string{
	"github.com/flemzord/sbot/internal/gateway",
	"github.com/flemzord/sbot/internal/mcpbridge",
	"github.com/flemzord/sbot/modules/channel/shell",
	"github.com/flemzord/sbot/modules/memory/sqlite",
}
