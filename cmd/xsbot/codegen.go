package main

import (
	"io"
	"text/template"
)

// CodegenParams controls the generated main.go template.
type CodegenParams struct {
	// FirstPartyPkgs are first-party module import paths, included via
	// blank imports.
	FirstPartyPkgs []string

	// ScriptPkgs are third-party script packages. Each registers a core
	// module that adds its branches to the dispatcher when provisioned.
	ScriptPkgs []string
}

var mainTmpl = template.Must(template.New("main").Parse(`// Code generated by xsbot. DO NOT EDIT.

package main

import (
	"fmt"
	"os"

	"github.com/flemzord/sbot/pkg/app"
{{- range .FirstPartyPkgs}}
	_ "{{.}}"
{{- end}}
{{- range .ScriptPkgs}}
	_ "{{.}}"
{{- end}}
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := app.Run(app.Params{
		ConfigPath: os.Getenv("SBOT_CONFIG"),
		Version:    version,
		Commit:     commit,
		Date:       date,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
`))

// GenerateMain writes the generated main.go to w.
func GenerateMain(w io.Writer, params CodegenParams) error {
	return mainTmpl.Execute(w, params)
}
