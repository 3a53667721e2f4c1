package recipe

import (
	"fmt"

	"lightsd-formula/internal/buildconf"
	"lightsd-formula/internal/caveats"
	"lightsd-formula/internal/config"
	"lightsd-formula/internal/deps"
	"lightsd-formula/internal/launchd"
	"lightsd-formula/internal/layout"
	"lightsd-formula/internal/services"
	"lightsd-formula/internal/source"
)

// Step names used in logs, errors, and receipts.
const (
	StepDeclare   = "declare"
	StepPreflight = "preflight"
	StepLayout    = "layout"
	StepConfigure = "configure"
	StepLock      = "lock"
	StepFetch     = "fetch"
	StepInstall   = "install"
	StepService   = "service"
	StepCaveats   = "caveats"
	StepSmokeTest = "smoke_test"
)

// Plan is everything the recipe derives from configuration before any
// subprocess runs. The configuration and the descriptor share one Layout.
type Plan struct {
	Formula       Formula
	Python        deps.Toggle
	Requirements  []deps.Requirement
	Layout        layout.Layout
	Configuration buildconf.Configuration
	Origin        source.Origin
	Descriptor    launchd.Descriptor
	Caveats       caveats.Text
}

// BuildPlan derives the plan for cfg without touching the filesystem.
func BuildPlan(cfg *config.Config) (Plan, error) {
	if cfg == nil {
		return Plan{}, services.Wrap(services.ErrConfiguration, StepDeclare, "config", "config is required", nil)
	}
	plan := Plan{Formula: FormulaFromConfig(cfg)}

	python, requirements, err := declare(cfg)
	if err != nil {
		return Plan{}, err
	}
	plan.Python = python
	plan.Requirements = requirements

	if plan.Layout, err = resolveLayout(cfg); err != nil {
		return Plan{}, err
	}
	if plan.Configuration, err = assemble(cfg, plan.Layout); err != nil {
		return Plan{}, err
	}
	if plan.Origin, err = OriginFromConfig(cfg.Formula); err != nil {
		return Plan{}, err
	}
	plan.Descriptor = newDescriptor(cfg, &plan)
	plan.Caveats = newCaveats(&plan)
	return plan, nil
}

// OriginFromConfig maps the formula source settings to a source.Origin.
func OriginFromConfig(f config.Formula) (source.Origin, error) {
	kind, err := source.ParseKind(f.Source)
	if err != nil {
		return source.Origin{}, services.Wrap(services.ErrConfiguration, StepFetch, "source", "", err)
	}
	var origin source.Origin
	switch kind {
	case source.KindArchive:
		origin = source.Archive(f.ArchiveURL, f.ArchiveSHA256, NormalizeVersion(f.Version))
	case source.KindHead:
		origin = source.Head(f.HeadURL, f.HeadRef)
	case source.KindLocal:
		origin = source.Local(f.SourceDir, NormalizeVersion(f.Version))
	}
	if err := origin.Validate(); err != nil {
		return source.Origin{}, services.Wrap(services.ErrConfiguration, StepFetch, "source", "", err)
	}
	return origin, nil
}

func declare(cfg *config.Config) (deps.Toggle, []deps.Requirement, error) {
	python, err := deps.ParseToggle(cfg.Build.Python)
	if err != nil {
		return deps.Disabled, nil, services.Wrap(services.ErrConfiguration, StepDeclare, "python toggle", "", err)
	}
	return python, deps.Declare(python), nil
}

func resolveLayout(cfg *config.Config) (layout.Layout, error) {
	l, err := layout.Resolve(cfg.Formula.Name, cfg.Paths.Prefix)
	if err != nil {
		return layout.Layout{}, services.Wrap(services.ErrConfiguration, StepLayout, "resolve", "", err)
	}
	return l, nil
}

func assemble(cfg *config.Config, l layout.Layout) (buildconf.Configuration, error) {
	buildType, err := buildconf.ParseBuildType(cfg.Build.BuildType)
	if err != nil {
		return buildconf.Configuration{}, err
	}
	conf, err := buildconf.Assemble(l, buildconf.Options{
		BuildType:   buildType,
		HostArgs:    cfg.Build.HostArgs,
		ExtraCFlags: cfg.Build.ExtraCFlags,
	})
	if err != nil {
		return buildconf.Configuration{}, err
	}
	if conf.RuntimeDir != l.RuntimeDir {
		return buildconf.Configuration{}, services.Wrap(services.ErrConfiguration, StepConfigure, "runtime dir",
			fmt.Sprintf("configured %s, layout %s", conf.RuntimeDir, l.RuntimeDir), nil)
	}
	return conf, nil
}

func newDescriptor(cfg *config.Config, plan *Plan) launchd.Descriptor {
	return launchd.Generate(cfg.ServiceLabel(), plan.Layout)
}

func newCaveats(plan *Plan) caveats.Text {
	return caveats.New(plan.Layout, plan.Python)
}
