package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNoModules is returned when --only filtered out every module and no
// script package was given.
var ErrNoModules = errors.New("xsbot: nothing to build")

// Script identifies a third-party Go package of bot scripts.
type Script struct {
	ModulePath string
	Version    string
}

// String returns the module@version representation.
func (s Script) String() string {
	if s.Version != "" {
		return s.ModulePath + "@" + s.Version
	}
	return s.ModulePath
}

// BuildRequest contains all parameters for building a custom sbot binary.
type BuildRequest struct {
	Scripts     []Script
	OnlyIDs     []string
	OutputPath  string
	GoPath      string
	SbotVersion string // Go module version for sbot (e.g. "v0.1.0", "latest")

	// Stdout and Stderr receive the go toolchain output. Both default to
	// the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Build generates and compiles a custom sbot binary including the given
// script packages.
func Build(ctx context.Context, req BuildRequest) error {
	firstParty := DefaultModules
	if len(req.OnlyIDs) > 0 {
		firstParty = filterModules(DefaultModules, req.OnlyIDs)
	}
	if len(firstParty) == 0 && len(req.Scripts) == 0 {
		return ErrNoModules
	}

	tmpDir, err := os.MkdirTemp("", "xsbot-build-*")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	if err := writeSources(tmpDir, req, firstParty); err != nil {
		return err
	}

	outputAbs, err := filepath.Abs(req.OutputPath)
	if err != nil {
		return fmt.Errorf("resolving output path: %w", err)
	}

	for _, args := range [][]string{
		{"mod", "tidy"},
		{"build", "-ldflags", "-s -w", "-o", outputAbs, "."},
	} {
		cmd := exec.CommandContext(ctx, req.goPath(), args...)
		cmd.Dir = tmpDir
		cmd.Stdout = req.stdout()
		cmd.Stderr = req.stderr()
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("go %s failed: %w", args[0], err)
		}
	}

	fmt.Fprintf(req.stdout(), "Built %s with %d modules and %d script packages\n",
		outputAbs, len(firstParty), len(req.Scripts))
	return nil
}

// writeSources writes main.go and go.mod into dir.
func writeSources(dir string, req BuildRequest, firstParty []string) error {
	pkgs := make([]string, len(req.Scripts))
	for i, s := range req.Scripts {
		pkgs[i] = s.ModulePath
	}

	f, err := os.Create(filepath.Join(dir, "main.go"))
	if err != nil {
		return fmt.Errorf("creating main.go: %w", err)
	}
	if err := GenerateMain(f, CodegenParams{FirstPartyPkgs: firstParty, ScriptPkgs: pkgs}); err != nil {
		_ = f.Close()
		return fmt.Errorf("generating main.go: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing main.go: %w", err)
	}

	version := req.SbotVersion
	if version == "" {
		version = "latest"
	}
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), generateGoMod(req.Scripts, version), 0o644); err != nil {
		return fmt.Errorf("generating go.mod: %w", err)
	}
	return nil
}

func generateGoMod(scripts []Script, sbotVersion string) []byte {
	var b strings.Builder
	b.WriteString("module sbot-custom\n\n")
	b.WriteString("go 1.25.0\n\n")
	b.WriteString("require (\n")
	fmt.Fprintf(&b, "\tgithub.com/flemzord/sbot %s\n", sbotVersion)
	for _, s := range scripts {
		if s.Version != "" {
			fmt.Fprintf(&b, "\t%s %s\n", s.ModulePath, s.Version)
		}
	}
	b.WriteString(")\n")
	return []byte(b.String())
}

// parseScripts converts "module@version" strings into Script values.
func parseScripts(raw []string) ([]Script, error) {
	scripts := make([]Script, len(raw))
	for i, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" || strings.HasPrefix(s, "@") {
			return nil, fmt.Errorf("invalid script package %q", raw[i])
		}
		if idx := strings.LastIndex(s, "@"); idx > 0 {
			scripts[i] = Script{ModulePath: s[:idx], Version: s[idx+1:]}
		} else {
			scripts[i] = Script{ModulePath: s}
		}
	}
	return scripts, nil
}

// filterModules returns only modules whose import paths contain one of the
// given IDs, so --only accepts partial names such as "shell".
func filterModules(all []string, onlyIDs []string) []string {
	var result []string
	for _, mod := range all {
		for _, id := range onlyIDs {
			if strings.Contains(mod, id) {
				result = append(result, mod)
				break
			}
		}
	}
	return result
}

func (r BuildRequest) goPath() string {
	if r.GoPath == "" {
		return "go"
	}
	return r.GoPath
}

func (r BuildRequest) stdout() io.Writer {
	if r.Stdout == nil {
		return os.Stdout
	}
	return r.Stdout
}

func (r BuildRequest) stderr() io.Writer {
	if r.Stderr == nil {
		return os.Stderr
	}
	return r.Stderr
}
