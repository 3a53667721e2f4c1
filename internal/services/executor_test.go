package services_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lightsd-formula/internal/services"
)

func TestCommandExecutorUsesExplicitLaunch(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	err := services.CommandExecutor{}.Run(context.Background(), services.Launch{
		Binary: "/bin/sh",
		Args:   []string{"-c", `pwd; echo "$MARKER"; echo oops >&2`},
		Dir:    dir,
		Env:    []string{"MARKER=explicit", "PATH=/usr/bin:/bin"},
		Stdout: &stdout,
		Stderr: &stderr,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	resolved, _ := filepath.EvalSymlinks(dir)
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("unexpected stdout %q", stdout.String())
	}
	if lines[0] != dir && lines[0] != resolved {
		t.Fatalf("expected working dir %q, got %q", dir, lines[0])
	}
	if lines[1] != "explicit" {
		t.Fatalf("expected explicit env, got %q", lines[1])
	}
	if stderr.String() != "oops\n" {
		t.Fatalf("expected stderr passthrough, got %q", stderr.String())
	}
	if _, ok := os.LookupEnv("MARKER"); ok {
		t.Fatal("launch env must not leak into the process environment")
	}
}

func TestCommandExecutorKillsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := services.CommandExecutor{}.Run(ctx, services.Launch{
		Binary: "/bin/sh",
		Args:   []string{"-c", "sleep 30 & wait"},
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline in chain, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("process group was not killed promptly: %s", elapsed)
	}
}

func TestCommandExecutorRequiresBinary(t *testing.T) {
	if err := (services.CommandExecutor{}).Run(context.Background(), services.Launch{}); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestCommandExecutorResolvesBinaryAgainstLaunchPath(t *testing.T) {
	dir := t.TempDir()
	tool := filepath.Join(dir, "prefixed-tool")
	if err := os.WriteFile(tool, []byte("#!/bin/sh\necho from-prefix\n"), 0o755); err != nil {
		t.Fatalf("write tool: %v", err)
	}

	var stdout bytes.Buffer
	err := services.CommandExecutor{}.Run(context.Background(), services.Launch{
		Binary: "prefixed-tool",
		Env:    services.EnvWithPathPrefix([]string{"PATH=/usr/bin:/bin"}, dir),
		Stdout: &stdout,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "from-prefix" {
		t.Fatalf("expected tool from launch PATH, got %q", got)
	}
}

func TestCommandExecutorIgnoresProcessPathWhenEnvIsExplicit(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "host-only-tool"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write tool: %v", err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	err := services.CommandExecutor{}.Run(context.Background(), services.Launch{
		Binary: "host-only-tool",
		Env:    []string{"PATH=" + t.TempDir()},
	})
	if !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEnvWithPathPrefix(t *testing.T) {
	base := []string{"HOME=/home/u", "PATH=/opt/bin:/bin"}
	env := services.EnvWithPathPrefix(base, "/usr/bin", " ")
	if base[1] != "PATH=/opt/bin:/bin" {
		t.Fatalf("base env mutated: %v", base)
	}
	want := []string{"HOME=/home/u", "PATH=/usr/bin:/opt/bin:/bin"}
	if strings.Join(env, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected env %v", env)
	}

	empty := services.EnvWithPathPrefix(nil, "/usr/bin")
	if len(empty) != 1 || empty[0] != "PATH=/usr/bin" {
		t.Fatalf("unexpected env without PATH: %v", empty)
	}
}
