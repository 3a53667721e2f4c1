package smoketest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lightsd-formula/internal/logging"
	"lightsd-formula/internal/services"
)

const step = "smoke_test"

// Result captures one verification run.
type Result struct {
	Binary     string
	Args       []string
	ScratchDir string
	ExitCode   int
	Stdout     string
	Stderr     string
	Duration   time.Duration
}

// Option configures the runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec services.Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithTimeout bounds the run. Zero or negative means no bound beyond ctx.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Runner) {
		r.timeout = timeout
	}
}

// WithScratchRoot sets the directory scratch directories are created in.
func WithScratchRoot(dir string) Option {
	return func(r *Runner) {
		r.scratchRoot = dir
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner executes smoke tests for one daemon name.
type Runner struct {
	name        string
	timeout     time.Duration
	scratchRoot string
	exec        services.Executor
	logger      *slog.Logger
}

// New constructs a runner for daemon name.
func New(name string, opts ...Option) (*Runner, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, "/\\") {
		return nil, fmt.Errorf("invalid daemon name %q", name)
	}
	r := &Runner{
		name:   name,
		exec:   services.CommandExecutor{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "smoketest")
	return r, nil
}

// Run invokes binary with the default spec inside a fresh scratch directory.
// The scratch directory is gone when Run returns, whatever the outcome.
func (r *Runner) Run(ctx context.Context, binary string) (result Result, err error) {
	result.Binary = binary
	if info, statErr := os.Stat(binary); statErr != nil || info.IsDir() {
		if statErr == nil {
			statErr = errors.New("is a directory")
		}
		return result, services.Wrap(services.ErrVerification, step, "locate binary", binary, statErr)
	}

	scratch, err := os.MkdirTemp(r.scratchRoot, r.name+"-test-*")
	if err != nil {
		return result, services.Wrap(services.ErrVerification, step, "scratch directory", "", err)
	}
	result.ScratchDir = scratch
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil && err == nil {
			err = services.Wrap(services.ErrVerification, step, "cleanup", scratch, rmErr)
		}
	}()

	spec := NewSpec(r.name, scratch)
	if err := spec.Validate(); err != nil {
		return result, services.Wrap(services.ErrConfiguration, step, "spec", "", err)
	}
	result.Args = spec.Args()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	logger := logging.WithContext(ctx, r.logger)
	logger.Info("smoke test started",
		logging.String(logging.FieldEventType, "smoke_test_start"),
		logging.String("binary", binary),
		logging.Strings("argv", result.Args),
	)

	var stdout, stderr bytes.Buffer
	start := time.Now()
	runErr := r.exec.Run(ctx, services.Launch{
		Binary: binary,
		Args:   result.Args,
		Dir:    scratch,
		Stdout: &stdout,
		Stderr: &stderr,
	})
	result.Duration = time.Since(start)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		return result, services.Wrap(services.ErrVerification, step, "run", fmt.Sprintf("%s did not exit", filepath.Base(binary)), errors.Join(ctxErr, runErr))
	}
	if runErr != nil {
		code, ok := services.ExitCode(runErr)
		if !ok {
			result.ExitCode = -1
			return result, services.Wrap(services.ErrVerification, step, "run", "", runErr)
		}
		result.ExitCode = code
	}
	if result.ExitCode != spec.ExpectedExitCode {
		return result, services.Wrap(services.ErrVerification, step, "run",
			fmt.Sprintf("%s exited with status %d, want %d", filepath.Base(binary), result.ExitCode, spec.ExpectedExitCode), runErr)
	}

	logger.Debug("smoke test output",
		logging.String("stdout", strings.TrimSpace(result.Stdout)),
		logging.String("stderr", strings.TrimSpace(result.Stderr)),
	)
	logger.Info("smoke test passed",
		logging.String(logging.FieldEventType, "smoke_test_complete"),
		logging.Duration("duration", result.Duration),
	)
	return result, nil
}
