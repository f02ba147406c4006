// Package main is the entry point for the xsbot build tool. xsbot composes
// custom sbot binaries with selected modules and third-party script
// packages, similar to how xcaddy works for Caddy.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "xsbot",
		Short:         "Build custom sbot binaries with extra script packages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(buildCmd(), versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print xsbot version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "xsbot %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func buildCmd() *cobra.Command {
	var (
		scripts     []string
		onlyIDs     []string
		output      string
		goPath      string
		sbotVersion string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a custom sbot binary",
		Long: `Build a custom sbot binary with the specified script packages and modules.

Script packages are Go module paths with optional versions
(e.g. github.com/example/sbot-scripts@v1.0.0). Each package registers a
module from init(); enable it under "modules:" in sbot.yaml. The --only flag
restricts the build to the matching first-party modules.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := parseScripts(scripts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			return Build(ctx, BuildRequest{
				Scripts:     parsed,
				OnlyIDs:     onlyIDs,
				OutputPath:  output,
				GoPath:      goPath,
				SbotVersion: sbotVersion,
				Stdout:      cmd.OutOrStdout(),
				Stderr:      cmd.ErrOrStderr(),
			})
		},
	}

	cmd.Flags().StringSliceVarP(&scripts, "script", "s", nil, "Script package module@version to include (repeatable)")
	cmd.Flags().StringSliceVar(&onlyIDs, "only", nil, "Restrict to these first-party modules (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "sbot", "Output binary path")
	cmd.Flags().StringVar(&goPath, "go", "go", "Path to the go binary")
	cmd.Flags().StringVar(&sbotVersion, "sbot-version", "latest", "sbot module version (e.g. v0.1.0)")

	return cmd
}
