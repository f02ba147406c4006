// Package main is the entry point for the sbot CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/flemzord/sbot/internal/core"
	"github.com/flemzord/sbot/pkg/app"
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
		Use:           "sbot",
		Short:         "A chat bot framework with hear, listen and respond middleware",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.PersistentFlags().String("data-dir", "", "Persistent data directory")
	root.AddCommand(versionCmd(), startCmd(), shellCmd(), configCmd(), initCmd(), serviceCmd(), mcpCmd())
	return root
}

// runParams collects the flags shared by the commands that run the bot.
func runParams(cmd *cobra.Command) app.Params {
	cfgPath, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	return app.Params{
		ConfigPath: cfgPath,
		DataDir:    dataDir,
		Version:    version,
		Commit:     commit,
		Date:       date,
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "sbot %s (commit: %s, built: %s)\n", version, commit, date)
	mods := core.GetModules()
	if len(mods) == 0 {
		fmt.Fprintln(w, "\nNo compiled modules.")
		return
	}
	fmt.Fprintln(w, "\nCompiled modules:")
	for _, mod := range mods {
		fmt.Fprintf(w, "  %s\n", mod.ID)
	}
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start sbot with all configured modules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(runParams(cmd))
		},
	}
}

func shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Chat with the bot in the terminal",
		Long: `Start sbot with the shell channel instead of the configured channels.
Other configured modules, such as memory persistence, still load. Without a
configuration file the bot starts with the defaults and the example scripts.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := standalone(runParams(cmd), shellChannel)
			return app.Run(p)
		},
	}
}

// standalone swaps the configured channels for channelID. Without a
// configuration file the bot runs with the example scripts and quiet logs.
func standalone(p app.Params, channelID string) app.Params {
	p.Channels = []string{channelID}
	if p.ConfigPath == "" {
		if _, err := app.ResolveConfigPath(); err != nil {
			cfg := app.DefaultConfig()
			cfg.Bot.Examples = true
			cfg.Log.Level = "warn"
			p.Config = cfg
		}
	}
	return p
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration and load its modules",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := runParams(cmd)
			if len(args) == 1 {
				p.ConfigPath = args[0]
			}
			return checkConfig(cmd.OutOrStdout(), p)
		},
	})
	return cmd
}

// checkConfig builds the bot without starting it, which validates the file
// and provisions every module.
func checkConfig(w io.Writer, p app.Params) error {
	p.LogWriter = io.Discard
	if p.DataDir == "" {
		dir, err := os.MkdirTemp("", "sbot-check-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		p.DataDir = dir
	}

	b, err := app.Build(context.Background(), p)
	if err != nil {
		return err
	}
	defer func() { _ = b.Stop(context.Background()) }()

	ids := b.App.Modules()
	fmt.Fprintf(w, "Configuration OK (%d modules, %d branches)\n", len(ids), b.Dispatcher.Registry().Len())
	for _, id := range ids {
		fmt.Fprintf(w, "  %s\n", id)
	}
	return nil
}
