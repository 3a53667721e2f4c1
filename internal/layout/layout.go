// Package layout derives every install location of the daemon from the host
// prefix. The build configurator and the service descriptor share one Layout
// value so the runtime directory they bake in can never diverge.
package layout

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidPrefix reports an empty, relative, or malformed prefix.
	ErrInvalidPrefix = errors.New("invalid install prefix")
	// ErrInvalidName reports a daemon name that cannot be a single path element.
	ErrInvalidName = errors.New("invalid daemon name")
)

// Layout is the set of resolved filesystem locations for one prefix.
type Layout struct {
	Name       string
	Prefix     string
	KegDir     string
	BinDir     string
	ShareDir   string
	VarDir     string
	RuntimeDir string
	LogDir     string
	LogFile    string
}

// Resolve derives the layout for daemon name under prefix.
func Resolve(name, prefix string) (Layout, error) {
	if err := checkName(name); err != nil {
		return Layout{}, err
	}
	if err := checkPrefix(prefix); err != nil {
		return Layout{}, err
	}

	prefix = filepath.Clean(prefix)
	keg := filepath.Join(prefix, "opt", name)
	varDir := filepath.Join(prefix, "var")
	logDir := filepath.Join(varDir, "log")
	return Layout{
		Name:       name,
		Prefix:     prefix,
		KegDir:     keg,
		BinDir:     filepath.Join(keg, "bin"),
		ShareDir:   filepath.Join(keg, "share", name),
		VarDir:     varDir,
		RuntimeDir: filepath.Join(varDir, "run", name),
		LogDir:     logDir,
		LogFile:    filepath.Join(logDir, name+".log"),
	}, nil
}

func checkName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case name != strings.TrimSpace(name):
		return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidName, name)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q must be a single path element", ErrInvalidName, name)
	}
	return nil
}

func checkPrefix(prefix string) error {
	switch {
	case strings.TrimSpace(prefix) == "":
		return fmt.Errorf("%w: empty", ErrInvalidPrefix)
	case strings.ContainsRune(prefix, 0):
		return fmt.Errorf("%w: contains NUL byte", ErrInvalidPrefix)
	case !filepath.IsAbs(prefix):
		return fmt.Errorf("%w: %q is not absolute", ErrInvalidPrefix, prefix)
	}
	return nil
}

// Binary returns the absolute path of the installed daemon binary.
func (l Layout) Binary() string {
	return filepath.Join(l.BinDir, l.Name)
}

// SocketPath returns the control socket location inside the runtime directory.
func (l Layout) SocketPath() string {
	return filepath.Join(l.RuntimeDir, "socket")
}

// PipePath returns the command pipe location inside the runtime directory.
func (l Layout) PipePath() string {
	return filepath.Join(l.RuntimeDir, "pipe")
}

// ExampleClient returns the path of the bundled Python example client.
func (l Layout) ExampleClient() string {
	return filepath.Join(l.ShareDir, "examples", "lightsc.py")
}

// Validate re-checks the containment rules: runtime and log locations live
// under the var directory, the binary lives under the keg.
func (l Layout) Validate() error {
	if err := checkName(l.Name); err != nil {
		return err
	}
	if err := checkPrefix(l.Prefix); err != nil {
		return err
	}
	checks := []struct {
		label  string
		path   string
		parent string
	}{
		{"keg dir", l.KegDir, l.Prefix},
		{"var dir", l.VarDir, l.Prefix},
		{"bin dir", l.BinDir, l.KegDir},
		{"share dir", l.ShareDir, l.KegDir},
		{"runtime dir", l.RuntimeDir, l.VarDir},
		{"log dir", l.LogDir, l.VarDir},
		{"log file", l.LogFile, l.VarDir},
	}
	for _, check := range checks {
		if !Within(check.path, check.parent) {
			return fmt.Errorf("%w: %s %q is not under %q", ErrInvalidPrefix, check.label, check.path, check.parent)
		}
	}
	return nil
}

// Within reports whether path is strictly below parent.
func Within(path, parent string) bool {
	if path == "" || parent == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(parent), filepath.Clean(path))
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Rows returns label/path pairs in display order.
func (l Layout) Rows() [][2]string {
	return [][2]string{
		{"prefix", l.Prefix},
		{"keg", l.KegDir},
		{"bin", l.BinDir},
		{"binary", l.Binary()},
		{"share", l.ShareDir},
		{"var", l.VarDir},
		{"runtime", l.RuntimeDir},
		{"socket", l.SocketPath()},
		{"pipe", l.PipePath()},
		{"log dir", l.LogDir},
		{"log file", l.LogFile},
		{"example client", l.ExampleClient()},
	}
}
