package preflight

import (
	"context"
	"fmt"
	"strings"

	"lightsd-formula/internal/config"
	"lightsd-formula/internal/deps"
	"lightsd-formula/internal/services"
)

// Category groups results by the error class a failure maps to.
type Category string

const (
	CategoryDependency Category = "dependency"
	CategoryFilesystem Category = "filesystem"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Category Category
	Passed   bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckSystemDeps(ctx, cfg) {
		results = append(results, fromStatus(status))
	}
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckCreatable("Install prefix", cfg.Paths.Prefix))
	return results
}

// CheckSystemDeps evaluates the declared dependencies plus the tools the
// configured build and source origin invoke directly.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	python := deps.Disabled
	if cfg.PythonEnabled() {
		python = deps.Enabled
	}
	requirements := deps.WithCommand(deps.Declare(python), "cmake", cfg.Build.CMake)
	requirements = append(requirements, deps.Requirement{
		Name:        "make",
		Command:     cfg.Build.Make,
		Description: "Runs the generated install target",
		Phase:       deps.PhaseBuild,
		Enabled:     true,
	})
	if cfg.Formula.Source == config.SourceHead {
		requirements = append(requirements, deps.Requirement{
			Name:        "git",
			Command:     "git",
			Description: "Clones the head checkout",
			Phase:       deps.PhaseBuild,
			Enabled:     true,
		})
	}
	return deps.CheckBinaries(requirements)
}

func fromStatus(status deps.Status) Result {
	detail := status.Detail
	switch {
	case status.Skipped:
		detail = "skipped (disabled)"
	case status.Available && detail == "":
		detail = fmt.Sprintf("%s found", status.Command)
	}
	return Result{
		Name:     status.Name,
		Category: CategoryDependency,
		Passed:   status.Satisfied(),
		Detail:   detail,
	}
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, result := range results {
		if !result.Passed {
			out = append(out, result)
		}
	}
	return out
}

// Err converts failed results into one classified error, or nil when every
// check passed. Dependency failures take precedence.
func Err(results []Result) error {
	failed := Failed(results)
	if len(failed) == 0 {
		return nil
	}
	marker := services.ErrConfiguration
	parts := make([]string, 0, len(failed))
	for _, result := range failed {
		if result.Category == CategoryDependency {
			marker = services.ErrDependency
		}
		parts = append(parts, fmt.Sprintf("%s: %s", result.Name, result.Detail))
	}
	return services.Wrap(marker, "preflight", "", strings.Join(parts, "; "), nil)
}
