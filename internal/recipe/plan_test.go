package recipe_test

import (
	"errors"
	"path/filepath"
	"testing"

	"lightsd-formula/internal/config"
	"lightsd-formula/internal/deps"
	"lightsd-formula/internal/layout"
	"lightsd-formula/internal/recipe"
	"lightsd-formula/internal/services"
	"lightsd-formula/internal/source"
	"lightsd-formula/internal/testsupport"
)

func TestBuildPlanSharesLayout(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	plan, err := recipe.BuildPlan(cfg)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	if plan.Configuration.RuntimeDir != plan.Layout.RuntimeDir {
		t.Fatalf("runtime dir mismatch: %q vs %q", plan.Configuration.RuntimeDir, plan.Layout.RuntimeDir)
	}
	if plan.Descriptor.ProgramArguments[0] != plan.Layout.Binary() {
		t.Fatalf("descriptor program %q, want %q", plan.Descriptor.ProgramArguments[0], plan.Layout.Binary())
	}
	if err := plan.Descriptor.Matches(plan.Layout); err != nil {
		t.Fatalf("descriptor does not match layout: %v", err)
	}
	if plan.Configuration.InstallPrefix != filepath.Join(cfg.Paths.Prefix, "opt", "lightsd") {
		t.Fatalf("unexpected install prefix %q", plan.Configuration.InstallPrefix)
	}
	if plan.Origin.Kind != source.KindHead {
		t.Fatalf("expected head origin by default, got %q", plan.Origin.Kind)
	}
	if plan.Python != deps.Disabled || len(plan.Requirements) != 3 {
		t.Fatalf("unexpected requirements: python=%v reqs=%v", plan.Python, plan.Requirements)
	}
}

func TestBuildPlanRejectsRelativePrefix(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.Prefix = "usr/local"

	_, err := recipe.BuildPlan(cfg)
	if !errors.Is(err, layout.ErrInvalidPrefix) {
		t.Fatalf("expected ErrInvalidPrefix, got %v", err)
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
}

func TestBuildPlanRejectsDebugSymbolsInRelease(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Build.ExtraCFlags = []string{"-ggdb"}

	if _, err := recipe.BuildPlan(cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestOriginFromConfig(t *testing.T) {
	archive := config.Formula{
		Source:        config.SourceArchive,
		ArchiveURL:    "https://example.com/lightsd-1.2.0-rc1.tar.gz",
		ArchiveSHA256: "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		Version:       "1.2.0-rc1",
	}
	origin, err := recipe.OriginFromConfig(archive)
	if err != nil {
		t.Fatalf("OriginFromConfig failed: %v", err)
	}
	if origin.Kind != source.KindArchive || origin.Version != "1.2.0~rc1" {
		t.Fatalf("unexpected origin %#v", origin)
	}

	archive.ArchiveSHA256 = "short"
	if _, err := recipe.OriginFromConfig(archive); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for bad digest, got %v", err)
	}
	if _, err := recipe.OriginFromConfig(config.Formula{Source: "svn"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for unknown kind, got %v", err)
	}
}
