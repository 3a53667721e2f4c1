// Package buildconf assembles the CMake configure invocation for the daemon.
//
// Assembly is pure: it turns a layout and a handful of options into an
// ordered argument vector without touching the filesystem or running
// anything. Host defaults come first and recipe overrides are appended after
// them, so the later definition wins when CMake parses the command line.
// Nothing a caller supplies is dropped; flags that contradict the build type
// are rejected instead.
package buildconf

import (
	"fmt"
	"strings"

	"lightsd-formula/internal/layout"
	"lightsd-formula/internal/services"
)

// BuildType selects the CMake configuration.
type BuildType string

const (
	Release BuildType = "release"
	Debug   BuildType = "debug"
)

// ParseBuildType converts a configuration value into a BuildType.
func ParseBuildType(value string) (BuildType, error) {
	switch BuildType(strings.ToLower(strings.TrimSpace(value))) {
	case Release, "":
		return Release, nil
	case Debug:
		return Debug, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, "configure", "build type", fmt.Sprintf("unsupported build type %q", value), nil)
	}
}

// cmakeName is the CMAKE_BUILD_TYPE spelling the daemon's CMakeLists expects.
func (b BuildType) cmakeName() string {
	return strings.ToUpper(string(b))
}

// ReleaseCFlags are the hardening and optimization flags for release builds.
var ReleaseCFlags = []string{
	"-fstack-protector-strong",
	"-D_FORTIFY_SOURCE=2",
	"-O3",
	"-DNDEBUG",
}

// DebugCFlags are the flags for debug builds.
var DebugCFlags = []string{"-O0", "-g"}

// RuntimeDirVar is the CMake cache variable the daemon reads its runtime
// directory from.
const RuntimeDirVar = "LGTD_RUNTIME_DIRECTORY"

// Options are the caller-controlled inputs to Assemble.
type Options struct {
	BuildType BuildType
	// HostArgs are appended after the standard host defaults.
	HostArgs []string
	// ExtraCFlags are appended after the build type's default flags.
	ExtraCFlags []string
}

// Configuration is the assembled configure invocation.
type Configuration struct {
	BuildType     BuildType
	InstallPrefix string
	RuntimeDir    string
	Args          []string
	CFlags        []string
}

// CFlagString renders the compiler flags as CMake expects them in a single
// cache variable.
func (c Configuration) CFlagString() string {
	return strings.Join(c.CFlags, " ")
}

// HostDefaults returns the standard configure arguments a package manager
// passes for an install into installPrefix.
func HostDefaults(installPrefix string) []string {
	return []string{
		"-DCMAKE_INSTALL_PREFIX=" + installPrefix,
		"-DCMAKE_BUILD_TYPE=Release",
		"-DCMAKE_FIND_FRAMEWORK=LAST",
		"-DCMAKE_VERBOSE_MAKEFILE=ON",
		"-Wno-dev",
	}
}

// Assemble builds the configure arguments for l. The keg directory is the
// install prefix and the runtime directory comes from the same layout the
// service descriptor uses.
func Assemble(l layout.Layout, opts Options) (Configuration, error) {
	if err := l.Validate(); err != nil {
		return Configuration{}, services.Wrap(services.ErrConfiguration, "configure", "layout", "", err)
	}
	buildType := opts.BuildType
	if buildType == "" {
		buildType = Release
	}
	var defaults []string
	switch buildType {
	case Release:
		defaults = ReleaseCFlags
	case Debug:
		defaults = DebugCFlags
	default:
		return Configuration{}, services.Wrap(services.ErrConfiguration, "configure", "build type", fmt.Sprintf("unsupported build type %q", buildType), nil)
	}

	cflags := make([]string, 0, len(defaults)+len(opts.ExtraCFlags))
	cflags = append(cflags, defaults...)
	// A single entry may hold several flags; each one is checked on its own.
	for _, entry := range opts.ExtraCFlags {
		cflags = append(cflags, strings.Fields(entry)...)
	}
	if err := checkFlags(buildType, cflags); err != nil {
		return Configuration{}, err
	}

	cfg := Configuration{
		BuildType:     buildType,
		InstallPrefix: l.KegDir,
		RuntimeDir:    l.RuntimeDir,
		CFlags:        cflags,
	}
	args := HostDefaults(l.KegDir)
	args = append(args, opts.HostArgs...)
	args = append(args,
		"-D"+RuntimeDirVar+"="+l.RuntimeDir,
		"-DCMAKE_BUILD_TYPE="+buildType.cmakeName(),
		"-DCMAKE_C_FLAGS_"+buildType.cmakeName()+"="+cfg.CFlagString(),
	)
	cfg.Args = args
	return cfg, nil
}

func checkFlags(buildType BuildType, flags []string) error {
	for _, flag := range flags {
		switch {
		case buildType == Release && IsDebugSymbolFlag(flag):
			return services.Wrap(services.ErrConfiguration, "configure", "cflags", fmt.Sprintf("debug-symbol flag %q conflicts with a release build", flag), nil)
		case buildType != Release && IsReleaseOnlyFlag(flag):
			return services.Wrap(services.ErrConfiguration, "configure", "cflags", fmt.Sprintf("release-only flag %q conflicts with a %s build", flag, buildType), nil)
		}
	}
	return nil
}

// IsDebugSymbolFlag reports whether flag asks the compiler for debug symbols.
// -g0 turns them off and is not counted.
func IsDebugSymbolFlag(flag string) bool {
	if flag == "-g" {
		return true
	}
	rest, ok := strings.CutPrefix(flag, "-g")
	if !ok || rest == "" {
		return false
	}
	switch rest {
	case "1", "2", "3":
		return true
	}
	for _, prefix := range []string{"gdb", "dwarf", "stabs", "xcoff", "line-tables-only"} {
		if strings.HasPrefix(rest, prefix) {
			return true
		}
	}
	return false
}

// IsReleaseOnlyFlag reports whether flag is an optimization, fortification or
// assertion switch that only belongs in release builds.
func IsReleaseOnlyFlag(flag string) bool {
	switch flag {
	case "-O1", "-O2", "-O3", "-Os", "-Oz", "-Ofast", "-DNDEBUG":
		return true
	}
	return strings.HasPrefix(flag, "-D_FORTIFY_SOURCE")
}
