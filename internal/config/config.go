package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Source kinds accepted by formula.source.
const (
	SourceArchive = "archive"
	SourceHead    = "head"
	SourceLocal   = "local"
)

// Build types accepted by build.build_type.
const (
	BuildRelease = "release"
	BuildDebug   = "debug"
)

// Toggle values accepted by optional dependency switches.
const (
	ToggleEnabled  = "enabled"
	ToggleDisabled = "disabled"
)

// Formula describes the package being built and where its source comes from.
type Formula struct {
	Name          string `toml:"name"`
	Description   string `toml:"description"`
	Homepage      string `toml:"homepage"`
	Source        string `toml:"source"`
	ArchiveURL    string `toml:"archive_url"`
	ArchiveSHA256 string `toml:"archive_sha256"`
	Version       string `toml:"version"`
	Revision      int    `toml:"revision"`
	HeadURL       string `toml:"head_url"`
	HeadRef       string `toml:"head_ref"`
	SourceDir     string `toml:"source_dir"`
}

// Paths contains the host prefix and the recipe's own working locations.
type Paths struct {
	Prefix     string `toml:"prefix"`
	WorkDir    string `toml:"work_dir"`
	ReceiptsDB string `toml:"receipts_db"`
}

// Build contains settings handed to the build configurator and installer.
type Build struct {
	BuildType   string   `toml:"build_type"`
	CMake       string   `toml:"cmake"`
	Make        string   `toml:"make"`
	Jobs        int      `toml:"jobs"`
	HostArgs    []string `toml:"host_args"`
	ExtraCFlags []string `toml:"extra_cflags"`
	PathPrefix  []string `toml:"path_prefix"`
	Python      string   `toml:"python"`
}

// Service contains launchd descriptor settings.
type Service struct {
	Label string `toml:"label"`
}

// SmokeTest contains post-install verification settings.
type SmokeTest struct {
	// TimeoutSeconds bounds the smoke test run. Zero leaves bounding to the
	// host package manager.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the recipe.
//
// Configuration sections by step:
//   - Formula: package metadata and source origin
//   - Paths: host prefix, work directory, receipts database
//   - Build: build type, tool binaries, compiler flags, optional python
//   - Service: launchd label
//   - SmokeTest: verification timeout
//   - Logging: log format and level
type Config struct {
	Formula   Formula   `toml:"formula"`
	Paths     Paths     `toml:"paths"`
	Build     Build     `toml:"build"`
	Service   Service   `toml:"service"`
	SmokeTest SmokeTest `toml:"smoke_test"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lightsd-formula/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lightsd-formula.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the recipe's working directories. The install
// prefix is left alone; the build system creates what it installs.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, filepath.Dir(c.Paths.ReceiptsDB)} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the install lock file guarding the keg for this formula.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.WorkDir, c.Formula.Name+".lock")
}

// BuildRoot returns the directory where fetched source trees are unpacked.
func (c *Config) BuildRoot() string {
	return filepath.Join(c.Paths.WorkDir, "build")
}

// DownloadDir returns the directory where release archives are cached.
func (c *Config) DownloadDir() string {
	return filepath.Join(c.Paths.WorkDir, "downloads")
}

// ServiceLabel returns the launchd label, falling back to the Homebrew
// convention for the formula name.
func (c *Config) ServiceLabel() string {
	if label := strings.TrimSpace(c.Service.Label); label != "" {
		return label
	}
	return "homebrew.mxcl." + c.Formula.Name
}

// PythonEnabled reports whether the optional python3 dependency is enabled.
func (c *Config) PythonEnabled() bool {
	return c.Build.Python == ToggleEnabled
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultWorkDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "lightsd-formula")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/lightsd-formula"
	}
	return filepath.Join(home, ".cache", "lightsd-formula")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
