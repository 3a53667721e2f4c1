package services

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	ErrDependency    = errors.New("dependency error")
	ErrConfiguration = errors.New("configuration error")
	ErrBuild         = errors.New("build error")
	ErrVerification  = errors.New("verification error")
)

// Wrap builds an error message that names the failing step while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above; the underlying tool error stays in
// the chain.
func Wrap(marker error, step, operation, message string, err error) error {
	detail := buildDetail(step, operation, message)
	if marker == nil {
		marker = ErrBuild
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short classification label for err, or "" for nil.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDependency):
		return "dependency"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrBuild):
		return "build"
	case errors.Is(err, ErrVerification):
		return "verification"
	default:
		return "internal"
	}
}

// ExitCode recovers the exit status of a child process from err.
func ExitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return 0, false
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "recipe failure"
	}
	return strings.Join(parts, ": ")
}
