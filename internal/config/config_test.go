package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"lightsd-formula/internal/config"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOMEBREW_PREFIX", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.Formula.Name != "lightsd" {
		t.Fatalf("unexpected formula name: %q", cfg.Formula.Name)
	}
	if cfg.Formula.Source != config.SourceHead {
		t.Fatalf("unexpected default source: %q", cfg.Formula.Source)
	}
	if cfg.Paths.Prefix != "/usr/local" {
		t.Fatalf("unexpected prefix: %q", cfg.Paths.Prefix)
	}
	wantWork := filepath.Join(tempHome, ".cache", "lightsd-formula")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.Paths.ReceiptsDB != filepath.Join(wantWork, "receipts.db") {
		t.Fatalf("unexpected receipts db: %q", cfg.Paths.ReceiptsDB)
	}
	if cfg.Build.BuildType != config.BuildRelease {
		t.Fatalf("unexpected build type: %q", cfg.Build.BuildType)
	}
	if len(cfg.Build.PathPrefix) != 1 || cfg.Build.PathPrefix[0] != "/usr/bin" {
		t.Fatalf("unexpected path prefix: %v", cfg.Build.PathPrefix)
	}
	if cfg.PythonEnabled() {
		t.Fatal("expected python disabled by default")
	}
	if cfg.ServiceLabel() != "homebrew.mxcl.lightsd" {
		t.Fatalf("unexpected service label: %q", cfg.ServiceLabel())
	}
	if cfg.SmokeTest.TimeoutSeconds != 0 {
		t.Fatalf("expected no smoke test timeout, got %d", cfg.SmokeTest.TimeoutSeconds)
	}
}

func TestLoadPrefixFromHomebrewEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("HOMEBREW_PREFIX", "/opt/homebrew/")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.Prefix != "/opt/homebrew" {
		t.Fatalf("expected prefix from env, got %q", cfg.Paths.Prefix)
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("HOMEBREW_PREFIX", "/opt/homebrew")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	payload := map[string]any{
		"formula": map[string]any{
			"source":         "ARCHIVE",
			"archive_url":    "https://example.com/lightsd-1.2.1.tar.gz",
			"archive_sha256": strings.Repeat("AB", 32),
			"version":        "1.2.1-rc2",
		},
		"paths": map[string]any{
			"prefix":   "~/brew",
			"work_dir": "~/work",
		},
		"build": map[string]any{
			"build_type":   " Debug ",
			"jobs":         4,
			"extra_cflags": []string{" -Wall ", ""},
			"python":       "enabled",
		},
		"service": map[string]any{
			"label": "org.example.lightsd",
		},
		"logging": map[string]any{
			"format": "JSON",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Formula.Source != config.SourceArchive {
		t.Fatalf("unexpected source: %q", cfg.Formula.Source)
	}
	if cfg.Formula.ArchiveSHA256 != strings.Repeat("ab", 32) {
		t.Fatalf("expected lowercased sha256, got %q", cfg.Formula.ArchiveSHA256)
	}
	if cfg.Paths.Prefix != filepath.Join(tempHome, "brew") {
		t.Fatalf("config prefix should win over env, got %q", cfg.Paths.Prefix)
	}
	if cfg.Paths.WorkDir != filepath.Join(tempHome, "work") {
		t.Fatalf("unexpected work dir: %q", cfg.Paths.WorkDir)
	}
	if cfg.Build.BuildType != config.BuildDebug {
		t.Fatalf("unexpected build type: %q", cfg.Build.BuildType)
	}
	if len(cfg.Build.ExtraCFlags) != 1 || cfg.Build.ExtraCFlags[0] != "-Wall" {
		t.Fatalf("unexpected extra cflags: %v", cfg.Build.ExtraCFlags)
	}
	if !cfg.PythonEnabled() {
		t.Fatal("expected python enabled")
	}
	if cfg.ServiceLabel() != "org.example.lightsd" {
		t.Fatalf("unexpected label: %q", cfg.ServiceLabel())
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
	if cfg.LockPath() != filepath.Join(tempHome, "work", "lightsd.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"build type", func(c *config.Config) { c.Build.BuildType = "profile" }, "build.build_type"},
		{"python toggle", func(c *config.Config) { c.Build.Python = "maybe" }, "build.python"},
		{"source kind", func(c *config.Config) { c.Formula.Source = "svn" }, "formula.source"},
		{"archive url", func(c *config.Config) { c.Formula.Source = config.SourceArchive }, "formula.archive_url"},
		{"archive sha", func(c *config.Config) {
			c.Formula.Source = config.SourceArchive
			c.Formula.ArchiveURL = "https://example.com/a.tar.gz"
			c.Formula.ArchiveSHA256 = "deadbeef"
		}, "formula.archive_sha256"},
		{"local dir", func(c *config.Config) { c.Formula.Source = config.SourceLocal }, "formula.source_dir"},
		{"timeout", func(c *config.Config) { c.SmokeTest.TimeoutSeconds = -1 }, "smoke_test.timeout_seconds"},
		{"jobs", func(c *config.Config) { c.Build.Jobs = -2 }, "build.jobs"},
		{"name", func(c *config.Config) { c.Formula.Name = "bin/lightsd" }, "formula.name"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.Prefix = "/usr/local"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Formula.HeadURL != "https://github.com/lopter/lightsd.git" {
		t.Fatalf("unexpected head url: %q", cfg.Formula.HeadURL)
	}
}

func TestEnsureDirectoriesCreatesWorkDir(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.ReceiptsDB = filepath.Join(base, "state", "receipts.db")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, filepath.Dir(cfg.Paths.ReceiptsDB)} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
