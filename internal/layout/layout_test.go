package layout_test

import (
	"errors"
	"strings"
	"testing"

	"lightsd-formula/internal/layout"
)

func TestResolveUsrLocal(t *testing.T) {
	l, err := layout.Resolve("lightsd", "/usr/local")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := map[string]string{
		"var":     "/usr/local/var",
		"runtime": "/usr/local/var/run/lightsd",
		"binary":  "/usr/local/opt/lightsd/bin/lightsd",
		"socket":  "/usr/local/var/run/lightsd/socket",
		"pipe":    "/usr/local/var/run/lightsd/pipe",
		"log":     "/usr/local/var/log/lightsd.log",
		"example": "/usr/local/opt/lightsd/share/lightsd/examples/lightsc.py",
	}
	got := map[string]string{
		"var":     l.VarDir,
		"runtime": l.RuntimeDir,
		"binary":  l.Binary(),
		"socket":  l.SocketPath(),
		"pipe":    l.PipePath(),
		"log":     l.LogFile,
		"example": l.ExampleClient(),
	}
	for key, value := range want {
		if got[key] != value {
			t.Fatalf("%s: got %q want %q", key, got[key], value)
		}
	}
	if err := l.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestResolveCleansPrefix(t *testing.T) {
	l, err := layout.Resolve("lightsd", "/opt/homebrew/")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if l.Prefix != "/opt/homebrew" || l.RuntimeDir != "/opt/homebrew/var/run/lightsd" {
		t.Fatalf("unexpected layout: %#v", l)
	}
}

func TestRuntimeDirAlwaysUnderVarDir(t *testing.T) {
	for _, prefix := range []string{"/", "/usr/local", "/opt/homebrew", "/home/u/.linuxbrew", "/a/../b"} {
		l, err := layout.Resolve("lightsd", prefix)
		if err != nil {
			t.Fatalf("Resolve(%q) returned error: %v", prefix, err)
		}
		if !layout.Within(l.RuntimeDir, l.VarDir) {
			t.Fatalf("runtime dir %q not under var dir %q", l.RuntimeDir, l.VarDir)
		}
		if !layout.Within(l.LogFile, l.VarDir) {
			t.Fatalf("log file %q not under var dir %q", l.LogFile, l.VarDir)
		}
		if !strings.HasSuffix(l.RuntimeDir, "/var/run/lightsd") {
			t.Fatalf("unexpected runtime dir %q", l.RuntimeDir)
		}
	}
}

func TestResolveRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		daemon string
		prefix string
		want   error
	}{
		{"empty prefix", "lightsd", "", layout.ErrInvalidPrefix},
		{"blank prefix", "lightsd", "   ", layout.ErrInvalidPrefix},
		{"relative prefix", "lightsd", "usr/local", layout.ErrInvalidPrefix},
		{"nul prefix", "lightsd", "/usr/\x00local", layout.ErrInvalidPrefix},
		{"empty name", "", "/usr/local", layout.ErrInvalidName},
		{"nested name", "bin/lightsd", "/usr/local", layout.ErrInvalidName},
		{"dot name", "..", "/usr/local", layout.ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := layout.Resolve(tt.daemon, tt.prefix)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateCatchesTamperedLayout(t *testing.T) {
	l, err := layout.Resolve("lightsd", "/usr/local")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	l.RuntimeDir = "/run/lightsd"
	if err := l.Validate(); err == nil {
		t.Fatal("expected runtime dir outside var dir to fail validation")
	}
}

func TestWithin(t *testing.T) {
	if layout.Within("/usr/local/var", "/usr/local/var") {
		t.Fatal("a directory is not strictly within itself")
	}
	if layout.Within("/usr/local/variable", "/usr/local/var") {
		t.Fatal("sibling with shared prefix is not within")
	}
	if !layout.Within("/usr/local/var/run/x", "/usr/local/var") {
		t.Fatal("expected nested path within")
	}
}
