// Package launchd generates the launchd property list that keeps the daemon
// running under the OS service supervisor.
//
// A Descriptor is plain data built from a layout.Layout; encoding goes through
// howett.net/plist so keys and strings are escaped by the encoder rather than
// by string templates. The restart policy is fixed: the supervisor restarts
// the daemon on every exit, clean or not, and starts it at load.
package launchd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"howett.net/plist"

	"lightsd-formula/internal/layout"
)

// DefaultVerbosity is the log level passed to the daemon with -v.
const DefaultVerbosity = "warning"

// ErrInvalidDescriptor reports a descriptor that would not behave as a
// long-running service.
var ErrInvalidDescriptor = errors.New("invalid service descriptor")

// KeepAlive is the launchd restart policy dictionary.
type KeepAlive struct {
	SuccessfulExit bool `plist:"SuccessfulExit"`
}

// Descriptor is a launchd job definition.
type Descriptor struct {
	Label             string    `plist:"Label"`
	ProgramArguments  []string  `plist:"ProgramArguments"`
	KeepAlive         KeepAlive `plist:"KeepAlive"`
	RunAtLoad         bool      `plist:"RunAtLoad"`
	WorkingDirectory  string    `plist:"WorkingDirectory"`
	StandardErrorPath string    `plist:"StandardErrorPath"`
	StandardOutPath   string    `plist:"StandardOutPath"`
}

// DefaultLabel returns the Homebrew service label for name.
func DefaultLabel(name string) string {
	return "homebrew.mxcl." + name
}

// Generate builds the descriptor for the daemon laid out by l. An empty
// label falls back to DefaultLabel.
func Generate(label string, l layout.Layout) Descriptor {
	if label == "" {
		label = DefaultLabel(l.Name)
	}
	return Descriptor{
		Label:             label,
		ProgramArguments:  ProgramArguments(l),
		KeepAlive:         KeepAlive{SuccessfulExit: false},
		RunAtLoad:         true,
		WorkingDirectory:  l.VarDir,
		StandardErrorPath: l.LogFile,
		StandardOutPath:   l.LogFile,
	}
}

// ProgramArguments returns the daemon command line for l.
func ProgramArguments(l layout.Layout) []string {
	return []string{
		l.Binary(),
		"-v", DefaultVerbosity,
		"-s", l.SocketPath(),
		"-c", l.PipePath(),
	}
}

// FileName is the conventional file name for the descriptor.
func (d Descriptor) FileName() string {
	return d.Label + ".plist"
}

// Validate rejects descriptors that would not restart the daemon, would not
// start it at load, or are missing required keys.
func (d Descriptor) Validate() error {
	switch {
	case d.Label == "":
		return fmt.Errorf("%w: empty label", ErrInvalidDescriptor)
	case len(d.ProgramArguments) == 0:
		return fmt.Errorf("%w: no program arguments", ErrInvalidDescriptor)
	case !filepath.IsAbs(d.ProgramArguments[0]):
		return fmt.Errorf("%w: program %q is not absolute", ErrInvalidDescriptor, d.ProgramArguments[0])
	case d.KeepAlive.SuccessfulExit:
		return fmt.Errorf("%w: KeepAlive.SuccessfulExit must be false so every exit restarts the daemon", ErrInvalidDescriptor)
	case !d.RunAtLoad:
		return fmt.Errorf("%w: RunAtLoad must be true", ErrInvalidDescriptor)
	case d.WorkingDirectory == "":
		return fmt.Errorf("%w: empty working directory", ErrInvalidDescriptor)
	case d.StandardErrorPath == "" || d.StandardOutPath == "":
		return fmt.Errorf("%w: log paths must be set", ErrInvalidDescriptor)
	}
	return nil
}

// Matches reports whether d was generated for l.
func (d Descriptor) Matches(l layout.Layout) error {
	want := ProgramArguments(l)
	if len(d.ProgramArguments) != len(want) {
		return fmt.Errorf("%w: program arguments %q, want %q", ErrInvalidDescriptor, d.ProgramArguments, want)
	}
	for i := range want {
		if d.ProgramArguments[i] != want[i] {
			return fmt.Errorf("%w: program argument %d is %q, want %q", ErrInvalidDescriptor, i, d.ProgramArguments[i], want[i])
		}
	}
	if d.WorkingDirectory != l.VarDir || d.StandardOutPath != l.LogFile || d.StandardErrorPath != l.LogFile {
		return fmt.Errorf("%w: paths do not match layout rooted at %s", ErrInvalidDescriptor, l.Prefix)
	}
	return nil
}

// Encode writes d as an XML property list.
func (d Descriptor) Encode(w io.Writer) error {
	if err := d.Validate(); err != nil {
		return err
	}
	enc := plist.NewEncoderForFormat(w, plist.XMLFormat)
	enc.Indent("\t")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode plist: %w", err)
	}
	return nil
}

// Marshal returns d as XML property list bytes with a trailing newline.
func (d Descriptor) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Decode parses a property list into a Descriptor. Any plist format launchd
// accepts is read.
func Decode(r io.Reader) (Descriptor, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Descriptor{}, fmt.Errorf("read plist: %w", err)
	}
	var d Descriptor
	if _, err := plist.Unmarshal(data, &d); err != nil {
		return Descriptor{}, fmt.Errorf("decode plist: %w", err)
	}
	return d, nil
}
