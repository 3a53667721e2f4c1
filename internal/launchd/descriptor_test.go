package launchd_test

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"lightsd-formula/internal/launchd"
	"lightsd-formula/internal/layout"
)

func resolve(t *testing.T, prefix string) layout.Layout {
	t.Helper()
	l, err := layout.Resolve("lightsd", prefix)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	return l
}

func TestGenerateUsrLocal(t *testing.T) {
	d := launchd.Generate("", resolve(t, "/usr/local"))
	want := []string{
		"/usr/local/opt/lightsd/bin/lightsd",
		"-v", "warning",
		"-s", "/usr/local/var/run/lightsd/socket",
		"-c", "/usr/local/var/run/lightsd/pipe",
	}
	if !slices.Equal(d.ProgramArguments, want) {
		t.Fatalf("unexpected program arguments:\n got %q\nwant %q", d.ProgramArguments, want)
	}
	if d.Label != "homebrew.mxcl.lightsd" {
		t.Fatalf("unexpected label %q", d.Label)
	}
	if d.KeepAlive.SuccessfulExit || !d.RunAtLoad {
		t.Fatalf("descriptor must restart on every exit and run at load: %#v", d)
	}
	if d.WorkingDirectory != "/usr/local/var" {
		t.Fatalf("unexpected working directory %q", d.WorkingDirectory)
	}
	if d.StandardErrorPath != "/usr/local/var/log/lightsd.log" || d.StandardOutPath != d.StandardErrorPath {
		t.Fatalf("unexpected log paths: %q %q", d.StandardOutPath, d.StandardErrorPath)
	}
	if d.FileName() != "homebrew.mxcl.lightsd.plist" {
		t.Fatalf("unexpected file name %q", d.FileName())
	}
}

func TestGeneratePolicyIsFixedForAnyPrefix(t *testing.T) {
	for _, prefix := range []string{"/", "/opt/homebrew", "/home/u/.linuxbrew"} {
		l := resolve(t, prefix)
		d := launchd.Generate("org.example.lightsd", l)
		if err := d.Validate(); err != nil {
			t.Fatalf("Validate(%s) returned error: %v", prefix, err)
		}
		if err := d.Matches(l); err != nil {
			t.Fatalf("Matches(%s) returned error: %v", prefix, err)
		}
		if d.ProgramArguments[0] != l.Binary() {
			t.Fatalf("program %q does not match layout binary %q", d.ProgramArguments[0], l.Binary())
		}
	}
}

func TestEncodeProducesXMLPlist(t *testing.T) {
	d := launchd.Generate("", resolve(t, "/usr/local"))
	data, err := d.Marshal()
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	text := string(data)
	for _, fragment := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<plist version="1.0">`,
		"<key>SuccessfulExit</key>",
		"<false/>",
		"<key>RunAtLoad</key>",
		"<true/>",
		"<string>/usr/local/var/run/lightsd/socket</string>",
	} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("expected %q in plist:\n%s", fragment, text)
		}
	}

	decoded, err := launchd.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if decoded.Label != d.Label || !slices.Equal(decoded.ProgramArguments, d.ProgramArguments) {
		t.Fatalf("decoded descriptor differs: %#v", decoded)
	}
	if decoded.KeepAlive.SuccessfulExit || !decoded.RunAtLoad {
		t.Fatalf("decoded policy differs: %#v", decoded)
	}
}

func TestEncodeEscapesSpecialCharacters(t *testing.T) {
	d := launchd.Generate("org.example.<lightsd>&co", resolve(t, "/opt/a&b"))
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if strings.Contains(buf.String(), "a&b") {
		t.Fatalf("ampersand must be escaped:\n%s", buf.String())
	}
	decoded, err := launchd.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if decoded.Label != "org.example.<lightsd>&co" || decoded.WorkingDirectory != "/opt/a&b/var" {
		t.Fatalf("special characters did not survive: %#v", decoded)
	}
}

func TestValidateRejectsOneShotDescriptors(t *testing.T) {
	base := launchd.Generate("", resolve(t, "/usr/local"))

	restartOnFailureOnly := base
	restartOnFailureOnly.KeepAlive.SuccessfulExit = true
	if err := restartOnFailureOnly.Validate(); !errors.Is(err, launchd.ErrInvalidDescriptor) {
		t.Fatalf("expected invalid descriptor, got %v", err)
	}
	if err := restartOnFailureOnly.Encode(&bytes.Buffer{}); err == nil {
		t.Fatal("Encode must refuse an invalid descriptor")
	}

	manual := base
	manual.RunAtLoad = false
	if err := manual.Validate(); !errors.Is(err, launchd.ErrInvalidDescriptor) {
		t.Fatalf("expected invalid descriptor, got %v", err)
	}

	relative := base
	relative.ProgramArguments = append([]string{"lightsd"}, base.ProgramArguments[1:]...)
	if err := relative.Validate(); !errors.Is(err, launchd.ErrInvalidDescriptor) {
		t.Fatalf("expected invalid descriptor, got %v", err)
	}
}

func TestMatchesDetectsForeignLayout(t *testing.T) {
	d := launchd.Generate("", resolve(t, "/usr/local"))
	if err := d.Matches(resolve(t, "/opt/homebrew")); err == nil {
		t.Fatal("expected mismatch for a different prefix")
	}
}
