package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lightsd-formula/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrBuild, "install", "configure", "cmake failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrBuild) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"install", "configure", "cmake failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrBuild) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "recipe failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrDependency, "deps", "", "", nil), "dependency"},
		{services.Wrap(services.ErrConfiguration, "layout", "", "", nil), "configuration"},
		{services.Wrap(services.ErrBuild, "install", "", "", nil), "build"},
		{services.Wrap(services.ErrVerification, "smoke_test", "", "", nil), "verification"},
		{errors.New("other"), "internal"},
	}
	for _, tt := range tests {
		if got := services.Kind(tt.err); got != tt.want {
			t.Fatalf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestExitCodeFromChildProcess(t *testing.T) {
	err := services.CommandExecutor{}.Run(context.Background(), services.Launch{
		Binary: "/bin/sh",
		Args:   []string{"-c", "exit 3"},
	})
	wrapped := services.Wrap(services.ErrBuild, "install", "make", "", err)
	code, ok := services.ExitCode(wrapped)
	if !ok || code != 3 {
		t.Fatalf("expected exit code 3, got %d ok=%v", code, ok)
	}
	if _, ok := services.ExitCode(errors.New("plain")); ok {
		t.Fatal("plain errors carry no exit code")
	}
}
