package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Launch is the complete, explicit description of one subprocess. Nothing
// about it is read from or written to the recipe's own process state except
// what the caller copies in.
type Launch struct {
	Binary string
	Args   []string
	Dir    string
	// Env is the full child environment. Nil inherits the recipe's environment.
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, launch Launch) error
}

// CommandExecutor runs launches with os/exec. Each child leads its own process
// group; when ctx ends the whole group is killed so helpers spawned by the
// child do not outlive the step.
type CommandExecutor struct {
	// WaitDelay bounds how long Run waits for output pipes after the child
	// exits or is killed. Zero means one second.
	WaitDelay time.Duration
}

// Run starts the launch and blocks until the child exits.
func (e CommandExecutor) Run(ctx context.Context, launch Launch) error {
	if strings.TrimSpace(launch.Binary) == "" {
		return errors.New("launch binary required")
	}
	binary, err := lookPath(launch.Binary, launch.Env)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, binary, launch.Args...) //nolint:gosec
	cmd.Dir = launch.Dir
	cmd.Env = launch.Env
	cmd.Stdout = writerOr(launch.Stdout, os.Stdout)
	cmd.Stderr = writerOr(launch.Stderr, os.Stderr)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = e.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = time.Second
	}

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s killed: %w: %w", launch.Binary, ctxErr, err)
		}
		return err
	}
	return nil
}

// lookPath resolves a bare binary name against the PATH in env rather than
// the recipe's own PATH. Paths and launches that inherit the environment are
// left for os/exec to resolve.
func lookPath(binary string, env []string) (string, error) {
	if env == nil || strings.ContainsRune(binary, os.PathSeparator) {
		return binary, nil
	}
	var pathList string
	for _, entry := range env {
		if value, ok := strings.CutPrefix(entry, "PATH="); ok {
			pathList = value
		}
	}
	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, binary)
		info, err := os.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if unix.Access(candidate, unix.X_OK) == nil {
			return candidate, nil
		}
	}
	return "", &exec.Error{Name: binary, Err: exec.ErrNotFound}
}

func writerOr(w io.Writer, fallback io.Writer) io.Writer {
	if w == nil {
		return fallback
	}
	return w
}

// EnvWithPathPrefix returns a copy of base whose PATH starts with dirs. The
// base slice is not modified.
func EnvWithPathPrefix(base []string, dirs ...string) []string {
	out := make([]string, 0, len(base)+1)
	current := ""
	for _, entry := range base {
		if value, ok := strings.CutPrefix(entry, "PATH="); ok {
			current = value
			continue
		}
		out = append(out, entry)
	}
	parts := make([]string, 0, len(dirs)+1)
	for _, dir := range dirs {
		if dir = strings.TrimSpace(dir); dir != "" {
			parts = append(parts, dir)
		}
	}
	if current != "" {
		parts = append(parts, current)
	}
	return append(out, "PATH="+strings.Join(parts, string(os.PathListSeparator)))
}
