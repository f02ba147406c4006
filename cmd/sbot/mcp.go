package main

import (
	"context"
	"fmt"

	"github.com/flemzord/sbot/internal/mcpbridge"
	"github.com/flemzord/sbot/pkg/app"
	"github.com/spf13/cobra"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the bot to MCP clients over stdio",
		Long: `Start sbot with the MCP bridge as its only channel and serve the
send_message and list_branches tools on stdin and stdout.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serveMCP(cmd.Context(), standalone(runParams(cmd), mcpChannel))
		},
	}
}

func serveMCP(ctx context.Context, p app.Params) error {
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := app.Build(ctx, p)
	if err != nil {
		return err
	}
	if err := b.Start(); err != nil {
		_ = b.Stop(context.WithoutCancel(ctx))
		return err
	}
	defer func() { _ = b.Stop(context.WithoutCancel(ctx)) }()

	mod, _ := b.App.Module(mcpChannel)
	bridge, ok := mod.(*mcpbridge.Bridge)
	if !ok {
		return fmt.Errorf("module %s is not loaded", mcpChannel)
	}
	return bridge.Serve(version)
}
