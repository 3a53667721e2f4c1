// Package deps declares the lightsd build and runtime dependencies and probes
// the ones that ship a binary.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Phase names when a dependency is needed.
type Phase string

const (
	PhaseBuild   Phase = "build"
	PhaseRuntime Phase = "runtime"
)

// Toggle is the two-valued switch for an optional dependency. It is resolved
// once from configuration and passed down, never re-read per step.
type Toggle bool

const (
	Enabled  Toggle = true
	Disabled Toggle = false
)

// ParseToggle converts a configuration value into a Toggle.
func ParseToggle(value string) (Toggle, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "enabled", "true", "on", "yes":
		return Enabled, nil
	case "disabled", "false", "off", "no", "":
		return Disabled, nil
	default:
		return Disabled, fmt.Errorf("invalid toggle %q", value)
	}
}

func (t Toggle) String() string {
	if t {
		return "enabled"
	}
	return "disabled"
}

// Requirement defines an external dependency the recipe relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Phase       Phase
	Optional    bool
	// Enabled is false only for optional requirements switched off by their toggle.
	Enabled bool
}

// Probed reports whether the requirement names a binary that can be looked up.
func (r Requirement) Probed() bool {
	return strings.TrimSpace(r.Command) != ""
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Phase       Phase
	Optional    bool
	Available   bool
	Skipped     bool
	Detail      string
}

// Satisfied reports whether the status allows the recipe to proceed.
func (s Status) Satisfied() bool {
	return s.Available || s.Skipped || s.Optional
}

// Declare returns the recipe's dependencies in declaration order. python
// gates the optional runtime dependency used by the example client.
func Declare(python Toggle) []Requirement {
	return []Requirement{
		{
			Name:        "cmake",
			Command:     "cmake",
			Description: "Build system generator",
			Phase:       PhaseBuild,
			Enabled:     true,
		},
		{
			Name:        "libevent",
			Description: "Event notification library linked by the daemon",
			Phase:       PhaseBuild,
			Enabled:     true,
		},
		{
			Name:        "python3",
			Command:     "python3",
			Description: "Runs the lightsc.py example client",
			Phase:       PhaseRuntime,
			Optional:    true,
			Enabled:     bool(python),
		},
	}
}

// Index maps each requirement name to its declaration.
func Index(requirements []Requirement) map[string]Requirement {
	out := make(map[string]Requirement, len(requirements))
	for _, req := range requirements {
		out[req.Name] = req
	}
	return out
}

// WithCommand returns a copy of requirements with the named requirement's
// probe command replaced. Unknown names are ignored.
func WithCommand(requirements []Requirement, name, command string) []Requirement {
	out := make([]Requirement, len(requirements))
	copy(out, requirements)
	command = strings.TrimSpace(command)
	for i := range out {
		if out[i].Name == name && out[i].Probed() && command != "" {
			out[i].Command = command
		}
	}
	return out
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Phase:       req.Phase,
			Optional:    req.Optional,
		}
		switch {
		case req.Optional && !req.Enabled:
			status.Skipped = true
			status.Detail = "disabled"
		case cmd == "":
			status.Available = true
			status.Detail = "declared, not probed"
		default:
			if _, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the statuses that block the recipe.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, status := range statuses {
		if !status.Satisfied() {
			out = append(out, status)
		}
	}
	return out
}
