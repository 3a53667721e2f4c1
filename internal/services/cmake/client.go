package cmake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"lightsd-formula/internal/buildconf"
	"lightsd-formula/internal/logging"
	"lightsd-formula/internal/services"
)

// Step names reported in build errors.
const (
	StepConfigure = "configure"
	StepInstall   = "install"
)

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec services.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithJobs sets the make parallelism. Zero leaves it to make.
func WithJobs(jobs int) Option {
	return func(c *Client) {
		if jobs > 0 {
			c.jobs = jobs
		}
	}
}

// WithPathPrefix sets the directories prepended to PATH for every step.
func WithPathPrefix(dirs []string) Option {
	return func(c *Client) {
		c.pathPrefix = append([]string(nil), dirs...)
	}
}

// WithBaseEnv replaces the environment the launch env is derived from.
func WithBaseEnv(env []string) Option {
	return func(c *Client) {
		c.baseEnv = append([]string(nil), env...)
	}
}

// WithOutput routes tool stdout and stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(c *Client) {
		c.stdout = stdout
		c.stderr = stderr
	}
}

// WithLogger attaches a logger for step start/finish lines.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client wraps the cmake and make command line tools.
type Client struct {
	cmake      string
	make       string
	jobs       int
	pathPrefix []string
	baseEnv    []string
	stdout     io.Writer
	stderr     io.Writer
	exec       services.Executor
	logger     *slog.Logger
}

// New constructs a build client.
func New(cmakeBinary, makeBinary string, opts ...Option) (*Client, error) {
	cmakeBinary = strings.TrimSpace(cmakeBinary)
	if cmakeBinary == "" {
		return nil, errors.New("cmake binary required")
	}
	makeBinary = strings.TrimSpace(makeBinary)
	if makeBinary == "" {
		return nil, errors.New("make binary required")
	}
	client := &Client{
		cmake:      cmakeBinary,
		make:       makeBinary,
		pathPrefix: []string{"/usr/bin"},
		baseEnv:    os.Environ(),
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		exec:       services.CommandExecutor{},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "installer")
	return client, nil
}

// Env returns the environment every build step runs with.
func (c *Client) Env() []string {
	return services.EnvWithPathPrefix(c.baseEnv, c.pathPrefix...)
}

// ConfigureArgs returns the cmake argument vector for cfg.
func ConfigureArgs(cfg buildconf.Configuration) []string {
	args := make([]string, 0, len(cfg.Args)+1)
	args = append(args, cfg.Args...)
	return append(args, ".")
}

// InstallArgs returns the make argument vector.
func (c *Client) InstallArgs() []string {
	args := []string{"install"}
	if c.jobs > 0 {
		args = append(args, "-j", strconv.Itoa(c.jobs))
	}
	return args
}

// Install configures the source tree in place and runs make install. The
// first failing step aborts; nothing already installed is removed.
func (c *Client) Install(ctx context.Context, cfg buildconf.Configuration, sourceDir string) error {
	if strings.TrimSpace(sourceDir) == "" {
		return services.Wrap(services.ErrConfiguration, StepInstall, "source", "source directory required", nil)
	}
	info, err := os.Stat(sourceDir)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, StepInstall, "source", "", err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrConfiguration, StepInstall, "source", fmt.Sprintf("%s is not a directory", sourceDir), nil)
	}
	if len(cfg.Args) == 0 {
		return services.Wrap(services.ErrConfiguration, StepConfigure, "arguments", "empty configuration", nil)
	}

	env := c.Env()
	if err := c.run(ctx, StepConfigure, c.cmake, ConfigureArgs(cfg), sourceDir, env); err != nil {
		return err
	}
	return c.run(ctx, StepInstall, c.make, c.InstallArgs(), sourceDir, env)
}

func (c *Client) run(ctx context.Context, step, binary string, args []string, dir string, env []string) error {
	logger := logging.WithContext(ctx, c.logger)
	logger.Info("build step started",
		logging.String("build_step", step),
		logging.String(logging.FieldEventType, "build_step_start"),
		logging.String("binary", binary),
		logging.Int("args", len(args)),
	)
	logger.Debug("build step command", logging.String("build_step", step), logging.Strings("argv", args))

	start := time.Now()
	err := c.exec.Run(ctx, services.Launch{
		Binary: binary,
		Args:   args,
		Dir:    dir,
		Env:    env,
		Stdout: c.stdout,
		Stderr: c.stderr,
	})
	if err != nil {
		message := fmt.Sprintf("%s failed", binary)
		if code, ok := services.ExitCode(err); ok {
			message = fmt.Sprintf("%s exited with status %d", binary, code)
		}
		return services.Wrap(services.ErrBuild, StepInstall, step, message, err)
	}
	logger.Info("build step completed",
		logging.String("build_step", step),
		logging.String(logging.FieldEventType, "build_step_complete"),
		logging.Duration("duration", time.Since(start)),
	)
	return nil
}
