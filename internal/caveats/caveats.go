// Package caveats renders the post-install guidance printed after the daemon
// is installed.
package caveats

import (
	_ "embed"
	"fmt"
	"io"
	"strings"
	"text/template"

	"lightsd-formula/internal/deps"
	"lightsd-formula/internal/layout"
)

//go:embed caveats.tmpl
var caveatsTemplate string

var tmpl = template.Must(template.New("caveats").Parse(caveatsTemplate))

// Text holds the values the caveats template is parameterized by.
type Text struct {
	Name          string
	Prefix        string
	ExampleClient string
	Python        deps.Toggle
}

// New builds caveats for the daemon laid out by l.
func New(l layout.Layout, python deps.Toggle) Text {
	return Text{
		Name:          l.Name,
		Prefix:        l.Prefix,
		ExampleClient: l.ExampleClient(),
		Python:        python,
	}
}

// PythonEnabled is used by the template.
func (t Text) PythonEnabled() bool {
	return t.Python == deps.Enabled
}

// Render writes the caveats to w, newline terminated.
func (t Text) Render(w io.Writer) error {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, t); err != nil {
		return fmt.Errorf("render caveats: %w", err)
	}
	out := strings.TrimRight(sb.String(), "\n") + "\n"
	_, err := io.WriteString(w, out)
	return err
}

// String renders the caveats, returning an empty string on failure.
func (t Text) String() string {
	var sb strings.Builder
	if err := t.Render(&sb); err != nil {
		return ""
	}
	return sb.String()
}
