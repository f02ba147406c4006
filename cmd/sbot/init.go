package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/flemzord/sbot/internal/config"
	"github.com/flemzord/sbot/pkg/app"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// envFile holds the secrets referenced by the generated configuration.
const envFile = ".env"

// Environment variables written to envFile.
const (
	envGatewayToken = "SBOT_GATEWAY_TOKEN"
	envOMDbAPIKey   = "BOT_OMDB_API_KEY"
)

var botNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// errExists is returned when init would overwrite an existing file.
var errExists = errors.New("file already exists (use --force to overwrite)")

// initAnswers are the choices collected by the init wizard.
type initAnswers struct {
	Name     string
	Alias    string
	LogLevel string
	Examples bool
	Memory   bool
	Gateway  bool
	Bind     string
	Token    string
	OMDbKey  string
}

func defaultAnswers() initAnswers {
	return initAnswers{
		Name:     config.DefaultBotName,
		LogLevel: config.DefaultLogLevel,
		Examples: true,
		Memory:   true,
		Bind:     "127.0.0.1:8080",
	}
}

func initCmd() *cobra.Command {
	var (
		dir         string
		force       bool
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter configuration",
		Long: `Ask a few questions and write sbot.yaml plus a .env file holding the
secrets it references. Source the .env file before starting the bot.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := defaultAnswers()
			if interactive {
				if err := askAnswers(&a); err != nil {
					return err
				}
			}
			written, err := writeScaffold(dir, a, force)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, path := range written {
				fmt.Fprintf(out, "Wrote %s\n", path)
			}
			if len(written) > 1 {
				fmt.Fprintf(out, "\nLoad the secrets with: set -a; . %s; set +a\n", written[1])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write the configuration into")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&interactive, "interactive", true, "Prompt for values instead of using defaults")
	return cmd
}

func askAnswers(a *initAnswers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bot name").
				Description("Users address the bot by this name.").
				Value(&a.Name).
				Validate(validateBotName),
			huh.NewInput().
				Title("Alias").
				Description("Optional short name, such as /.").
				Value(&a.Alias),
			huh.NewSelect[string]().
				Title("Log level").
				Options(huh.NewOptions("debug", "info", "warn", "error")...).
				Value(&a.LogLevel),
			huh.NewConfirm().
				Title("Enable the example scripts?").
				Value(&a.Examples),
			huh.NewConfirm().
				Title("Persist memory to SQLite?").
				Value(&a.Memory),
			huh.NewConfirm().
				Title("Enable the HTTP gateway?").
				Value(&a.Gateway),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Gateway address").
				Value(&a.Bind),
			huh.NewInput().
				Title("Gateway bearer token").
				Description("Leave empty to disable the admin API.").
				EchoMode(huh.EchoModePassword).
				Value(&a.Token),
		).WithHideFunc(func() bool { return !a.Gateway }),
		huh.NewGroup(
			huh.NewInput().
				Title("OMDb API key").
				Description("Used by the movie awards script. Optional.").
				EchoMode(huh.EchoModePassword).
				Value(&a.OMDbKey),
		).WithHideFunc(func() bool { return !a.Examples }),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("init aborted")
		}
		return err
	}
	return nil
}

func validateBotName(s string) error {
	if !botNamePattern.MatchString(s) {
		return errors.New("use letters, digits, '-' or '_', starting with a letter")
	}
	return nil
}

type scaffoldBot struct {
	Name     string `yaml:"name"`
	Alias    string `yaml:"alias,omitempty"`
	Examples bool   `yaml:"examples"`
}

type scaffoldLog struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type scaffoldMemory struct {
	Autosave string `yaml:"autosave"`
}

type scaffold struct {
	Version string         `yaml:"version"`
	Bot     scaffoldBot    `yaml:"bot"`
	Log     scaffoldLog    `yaml:"log"`
	Memory  scaffoldMemory `yaml:"memory"`
	Modules map[string]any `yaml:"modules"`
}

// renderConfig returns the YAML configuration for a. Secrets are referenced
// through environment variables and never written inline.
func renderConfig(a initAnswers) ([]byte, error) {
	if err := validateBotName(a.Name); err != nil {
		return nil, fmt.Errorf("bot name %q: %w", a.Name, err)
	}
	s := scaffold{
		Version: "1",
		Bot:     scaffoldBot{Name: a.Name, Alias: strings.TrimSpace(a.Alias), Examples: a.Examples},
		Log:     scaffoldLog{Level: a.LogLevel, Format: config.DefaultLogFormat},
		Memory:  scaffoldMemory{Autosave: config.DefaultAutosave},
		Modules: map[string]any{shellChannel: map[string]any{}},
	}
	if a.Memory {
		s.Modules["memory.sqlite"] = map[string]any{}
	}
	if a.Gateway {
		gw := map[string]any{"bind": a.Bind}
		if a.Token != "" {
			gw["auth"] = map[string]any{"bearer_token": "${" + envGatewayToken + "}"}
		}
		s.Modules["gateway.http"] = gw
	}
	return yaml.Marshal(s)
}

// renderEnv returns the .env content for a, or nil when there is no secret
// to store.
func renderEnv(a initAnswers) []byte {
	var b strings.Builder
	if a.Gateway && a.Token != "" {
		fmt.Fprintf(&b, "%s=%s\n", envGatewayToken, a.Token)
	}
	if a.Examples && a.OMDbKey != "" {
		fmt.Fprintf(&b, "%s=%s\n", envOMDbAPIKey, a.OMDbKey)
	}
	if b.Len() == 0 {
		return nil
	}
	return []byte(b.String())
}

// writeScaffold writes the configuration and, when secrets were given, the
// .env file into dir. It returns the written paths.
func writeScaffold(dir string, a initAnswers, force bool) ([]string, error) {
	cfg, err := renderConfig(a)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	cfgPath := filepath.Join(dir, app.ConfigFile)
	if err := writeFile(cfgPath, cfg, 0o644, force); err != nil {
		return nil, err
	}
	written := []string{cfgPath}

	if env := renderEnv(a); env != nil {
		envPath := filepath.Join(dir, envFile)
		if err := writeFile(envPath, env, 0o600, force); err != nil {
			return written, err
		}
		written = append(written, envPath)
	}
	return written, nil
}

func writeFile(path string, data []byte, perm os.FileMode, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, perm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", path, errExists)
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
