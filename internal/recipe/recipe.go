package recipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"lightsd-formula/internal/config"
	"lightsd-formula/internal/fileutil"
	"lightsd-formula/internal/logging"
	"lightsd-formula/internal/preflight"
	"lightsd-formula/internal/receipts"
	"lightsd-formula/internal/services"
	"lightsd-formula/internal/services/cmake"
	"lightsd-formula/internal/smoketest"
	"lightsd-formula/internal/source"
)

// Option configures a Recipe.
type Option func(*Recipe)

// WithLogger sets the logger used for step events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recipe) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithStore records each run in store.
func WithStore(store *receipts.Store) Option {
	return func(r *Recipe) {
		r.store = store
	}
}

// WithOutput sets where build tool output and caveats are written.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Recipe) {
		if stdout != nil {
			r.stdout = stdout
		}
		if stderr != nil {
			r.stderr = stderr
		}
	}
}

// WithExecutor overrides how subprocesses are launched.
func WithExecutor(exec services.Executor) Option {
	return func(r *Recipe) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithHTTPClient overrides the client used to download release archives.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Recipe) {
		r.httpClient = client
	}
}

// WithSkipTest disables the smoke test step.
func WithSkipTest(skip bool) Option {
	return func(r *Recipe) {
		r.skipTest = skip
	}
}

// WithServiceDir writes the launchd descriptor into dir instead of the keg.
func WithServiceDir(dir string) Option {
	return func(r *Recipe) {
		r.serviceDir = strings.TrimSpace(dir)
	}
}

// Recipe runs the install pipeline for one configuration.
type Recipe struct {
	cfg        *config.Config
	base       *slog.Logger
	logger     *slog.Logger
	store      *receipts.Store
	stdout     io.Writer
	stderr     io.Writer
	exec       services.Executor
	httpClient *http.Client
	skipTest   bool
	serviceDir string
}

// Result summarizes a completed run.
type Result struct {
	RunID       string
	Plan        Plan
	SourceDir   string
	ServicePath string
	SmokeTest   *smoketest.Result
	Duration    time.Duration
}

// New constructs a recipe for cfg.
func New(cfg *config.Config, opts ...Option) (*Recipe, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	r := &Recipe{
		cfg:    cfg,
		logger: logging.NewNop(),
		stdout: os.Stdout,
		stderr: os.Stderr,
		exec:   services.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.base = r.logger
	r.logger = logging.NewComponentLogger(r.base, "recipe")
	return r, nil
}

// Run executes every step in order and returns at the first failure.
func (r *Recipe) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	result := Result{RunID: uuid.NewString()}
	ctx = services.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, r.logger)

	if err := r.cfg.EnsureDirectories(); err != nil {
		return result, services.Wrap(services.ErrConfiguration, StepPreflight, "work directory", "", err)
	}

	formula := FormulaFromConfig(r.cfg)
	if r.store != nil {
		if _, err := r.store.Begin(ctx, receipts.Receipt{
			RunID:      result.RunID,
			Formula:    formula.Name,
			Version:    formula.PkgVersion(),
			SourceKind: r.cfg.Formula.Source,
			Prefix:     r.cfg.Paths.Prefix,
			BuildType:  r.cfg.Build.BuildType,
			StartedAt:  start,
		}); err != nil {
			return result, fmt.Errorf("record receipt: %w", err)
		}
	}

	logger.Info("install started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("formula", formula.Name),
		logging.String("version", formula.PkgVersion()),
		logging.String("prefix", r.cfg.Paths.Prefix),
	)

	failedStep, err := r.run(ctx, &result)
	result.Duration = time.Since(start)
	r.finishReceipt(ctx, result.RunID, failedStep, err)
	if err != nil {
		logging.ErrorWithContext(logger, "install failed", "run_failure",
			logging.String("failed_step", failedStep),
			logging.Duration("duration", result.Duration),
			logging.Error(err),
		)
		return result, err
	}
	logger.Info("install completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("binary", result.Plan.Layout.Binary()),
		logging.Duration("duration", result.Duration),
	)
	return result, nil
}

// run returns the name of the failing step alongside its error.
func (r *Recipe) run(ctx context.Context, result *Result) (string, error) {
	plan := &result.Plan
	plan.Formula = FormulaFromConfig(r.cfg)

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StepDeclare, func(context.Context) error {
			python, requirements, err := declare(r.cfg)
			plan.Python, plan.Requirements = python, requirements
			return err
		}},
		{StepPreflight, func(ctx context.Context) error {
			return preflight.Err(preflight.RunAll(ctx, r.cfg))
		}},
		{StepLayout, func(context.Context) error {
			l, err := resolveLayout(r.cfg)
			plan.Layout = l
			return err
		}},
		{StepConfigure, func(ctx context.Context) error {
			conf, err := assemble(r.cfg, plan.Layout)
			if err != nil {
				return err
			}
			plan.Configuration = conf
			if r.store != nil {
				if err := r.store.SetConfigureArgs(ctx, result.RunID, cmake.ConfigureArgs(conf)); err != nil {
					logging.WithContext(ctx, r.logger).Warn("failed to record configure args", logging.Error(err))
				}
			}
			return nil
		}},
	}
	for _, step := range steps {
		if err := r.step(ctx, step.name, step.fn); err != nil {
			return step.name, err
		}
	}

	// The lock spans fetch through smoke test so two runs never share a keg.
	var lock *flock.Flock
	if err := r.step(ctx, StepLock, func(context.Context) error {
		var err error
		lock, err = acquireLock(r.cfg.LockPath(), plan.Formula.Name)
		return err
	}); err != nil {
		return StepLock, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logging.WithContext(ctx, r.logger).Warn("failed to release install lock", logging.Error(err))
		}
	}()

	steps = []struct {
		name string
		fn   func(context.Context) error
	}{
		{StepFetch, func(ctx context.Context) error {
			origin, err := OriginFromConfig(r.cfg.Formula)
			if err != nil {
				return err
			}
			plan.Origin = origin
			result.SourceDir, err = r.fetcher().Fetch(ctx, plan.Formula.Name, origin)
			return err
		}},
		{StepInstall, func(ctx context.Context) error {
			client, err := cmake.New(r.cfg.Build.CMake, r.cfg.Build.Make,
				cmake.WithExecutor(r.exec),
				cmake.WithJobs(r.cfg.Build.Jobs),
				cmake.WithPathPrefix(r.cfg.Build.PathPrefix),
				cmake.WithOutput(r.stdout, r.stderr),
				cmake.WithLogger(r.base),
			)
			if err != nil {
				return services.Wrap(services.ErrConfiguration, StepInstall, "build tools", "", err)
			}
			return client.Install(ctx, plan.Configuration, result.SourceDir)
		}},
		{StepService, func(context.Context) error {
			path, err := r.writeDescriptor(plan)
			result.ServicePath = path
			return err
		}},
		{StepCaveats, func(context.Context) error {
			plan.Caveats = newCaveats(plan)
			if err := plan.Caveats.Render(r.stdout); err != nil {
				return services.Wrap(services.ErrConfiguration, StepCaveats, "render", "", err)
			}
			return nil
		}},
		{StepSmokeTest, func(ctx context.Context) error {
			if r.skipTest {
				logging.WithContext(ctx, r.logger).Info("smoke test skipped",
					logging.String(logging.FieldEventType, "step_skipped"),
				)
				return nil
			}
			res, err := r.smokeTest(ctx, plan)
			result.SmokeTest = &res
			return err
		}},
	}
	for _, step := range steps {
		if err := r.step(ctx, step.name, step.fn); err != nil {
			return step.name, err
		}
	}
	return "", nil
}

func (r *Recipe) step(ctx context.Context, name string, fn func(context.Context) error) error {
	stepCtx := services.WithStep(ctx, name)
	logger := logging.WithContext(stepCtx, r.logger)
	logger.Info("step started", logging.String(logging.FieldEventType, "step_start"))

	start := time.Now()
	if err := fn(stepCtx); err != nil {
		logger.Error("step failed",
			logging.String(logging.FieldEventType, "step_failure"),
			logging.Duration("duration", time.Since(start)),
			logging.String("error_kind", services.Kind(err)),
			logging.Error(err),
		)
		return err
	}
	logger.Info("step completed",
		logging.String(logging.FieldEventType, "step_complete"),
		logging.Duration("duration", time.Since(start)),
	)
	return nil
}

func (r *Recipe) finishReceipt(ctx context.Context, runID, failedStep string, runErr error) {
	if r.store == nil {
		return
	}
	status := receipts.StatusSucceeded
	if runErr != nil {
		status = receipts.StatusFailed
	}
	// The run context may already be cancelled; the receipt still lands.
	if err := r.store.Finish(context.WithoutCancel(ctx), runID, status, failedStep, runErr); err != nil {
		logging.WithContext(ctx, r.logger).Warn("failed to finish receipt", logging.Error(err))
	}
}

func (r *Recipe) fetcher() *source.Fetcher {
	opts := []source.Option{
		source.WithExecutor(r.exec),
		source.WithOutput(r.stdout, r.stderr),
		source.WithLogger(r.base),
	}
	if r.httpClient != nil {
		opts = append(opts, source.WithHTTPClient(r.httpClient))
	}
	return source.NewFetcher(r.cfg.BuildRoot(), r.cfg.DownloadDir(), opts...)
}

func (r *Recipe) writeDescriptor(plan *Plan) (string, error) {
	plan.Descriptor = newDescriptor(r.cfg, plan)
	if err := plan.Descriptor.Matches(plan.Layout); err != nil {
		return "", services.Wrap(services.ErrConfiguration, StepService, "descriptor", "", err)
	}
	data, err := plan.Descriptor.Marshal()
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, StepService, "encode", "", err)
	}
	dir := r.serviceDir
	if dir == "" {
		dir = plan.Layout.KegDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrBuild, StepService, "service directory", dir, err)
	}
	path := filepath.Join(dir, plan.Descriptor.FileName())
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", services.Wrap(services.ErrBuild, StepService, "write", path, err)
	}
	return path, nil
}

func (r *Recipe) smokeTest(ctx context.Context, plan *Plan) (smoketest.Result, error) {
	runner, err := smoketest.New(plan.Formula.Name,
		smoketest.WithExecutor(r.exec),
		smoketest.WithTimeout(time.Duration(r.cfg.SmokeTest.TimeoutSeconds)*time.Second),
		smoketest.WithLogger(r.base),
	)
	if err != nil {
		return smoketest.Result{}, services.Wrap(services.ErrConfiguration, StepSmokeTest, "runner", "", err)
	}
	return runner.Run(ctx, plan.Layout.Binary())
}

func acquireLock(path, name string) (*flock.Flock, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, StepLock, "acquire", path, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, StepLock, "acquire",
			fmt.Sprintf("another %s install holds %s", name, path), nil)
	}
	return lock, nil
}
