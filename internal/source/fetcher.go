package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lightsd-formula/internal/logging"
	"lightsd-formula/internal/services"
)

const (
	step               = "fetch"
	defaultHTTPTimeout = 10 * time.Minute
)

// Option configures the fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client used for archive downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.http = client
		}
	}
}

// WithExecutor injects a custom executor for git (primarily for tests).
func WithExecutor(exec services.Executor) Option {
	return func(f *Fetcher) {
		if exec != nil {
			f.exec = exec
		}
	}
}

// WithGitBinary overrides the git binary.
func WithGitBinary(binary string) Option {
	return func(f *Fetcher) {
		if strings.TrimSpace(binary) != "" {
			f.git = binary
		}
	}
}

// WithOutput routes git output.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(f *Fetcher) {
		f.stdout = stdout
		f.stderr = stderr
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Fetcher materializes origins on disk.
type Fetcher struct {
	buildRoot   string
	downloadDir string
	git         string
	http        *http.Client
	exec        services.Executor
	stdout      io.Writer
	stderr      io.Writer
	logger      *slog.Logger
}

// NewFetcher constructs a fetcher that unpacks into buildRoot and caches
// archives in downloadDir.
func NewFetcher(buildRoot, downloadDir string, opts ...Option) *Fetcher {
	f := &Fetcher{
		buildRoot:   buildRoot,
		downloadDir: downloadDir,
		git:         "git",
		http:        &http.Client{Timeout: defaultHTTPTimeout},
		exec:        services.CommandExecutor{},
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.NewComponentLogger(f.logger, "source")
	return f
}

// Fetch returns the directory holding the source tree for origin.
func (f *Fetcher) Fetch(ctx context.Context, name string, origin Origin) (string, error) {
	if err := origin.Validate(); err != nil {
		return "", services.Wrap(services.ErrConfiguration, step, string(origin.Kind), "", err)
	}
	logger := logging.WithContext(ctx, f.logger)
	logger.Info("fetching source",
		logging.String(logging.FieldEventType, "fetch_start"),
		logging.String("origin", origin.String()),
	)

	var (
		dir string
		err error
	)
	switch origin.Kind {
	case KindArchive:
		dir, err = f.fetchArchive(ctx, name, origin)
	case KindHead:
		dir, err = f.fetchHead(ctx, name, origin)
	case KindLocal:
		dir, err = fetchLocal(origin)
	}
	if err != nil {
		return "", err
	}
	logger.Info("source ready",
		logging.String(logging.FieldEventType, "fetch_complete"),
		logging.String("source_dir", dir),
	)
	return dir, nil
}

func (f *Fetcher) fetchArchive(ctx context.Context, name string, origin Origin) (string, error) {
	archivePath, err := f.download(ctx, origin)
	if err != nil {
		return "", err
	}
	dest, err := f.freshDir(name, origin.Version)
	if err != nil {
		return "", err
	}
	if err := Extract(archivePath, dest); err != nil {
		return "", services.Wrap(services.ErrBuild, step, "extract", filepath.Base(archivePath), err)
	}
	return dest, nil
}

func (f *Fetcher) fetchHead(ctx context.Context, name string, origin Origin) (string, error) {
	dest, err := f.freshDir(name, "HEAD")
	if err != nil {
		return "", err
	}
	// git clone wants to create the final directory itself.
	if err := os.Remove(dest); err != nil {
		return "", services.Wrap(services.ErrBuild, step, "clone", "", err)
	}
	args := []string{"clone", "--depth", "1"}
	if origin.Ref != "" {
		args = append(args, "--branch", origin.Ref)
	}
	args = append(args, origin.URL, dest)
	err = f.exec.Run(ctx, services.Launch{
		Binary: f.git,
		Args:   args,
		Dir:    f.buildRoot,
		Stdout: f.stdout,
		Stderr: f.stderr,
	})
	if err != nil {
		return "", services.Wrap(services.ErrBuild, step, "clone", origin.URL, err)
	}
	return dest, nil
}

func fetchLocal(origin Origin) (string, error) {
	dir, err := filepath.Abs(origin.Path)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, step, "local", "", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, step, "local", "", err)
	}
	if !info.IsDir() {
		return "", services.Wrap(services.ErrConfiguration, step, "local", fmt.Sprintf("%s is not a directory", dir), nil)
	}
	if _, err := os.Stat(filepath.Join(dir, "CMakeLists.txt")); err != nil {
		return "", services.Wrap(services.ErrConfiguration, step, "local", fmt.Sprintf("%s has no CMakeLists.txt", dir), err)
	}
	return dir, nil
}

// freshDir returns an empty directory for one checkout, replacing any leftover
// from an earlier run.
func (f *Fetcher) freshDir(name, version string) (string, error) {
	label := name
	if version = strings.TrimSpace(version); version != "" {
		label = name + "-" + version
	}
	dest := filepath.Join(f.buildRoot, label)
	if err := os.RemoveAll(dest); err != nil {
		return "", services.Wrap(services.ErrBuild, step, "prepare", dest, err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", services.Wrap(services.ErrBuild, step, "prepare", dest, err)
	}
	return dest, nil
}
