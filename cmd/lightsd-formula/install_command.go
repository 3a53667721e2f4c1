package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lightsd-formula/internal/config"
	"lightsd-formula/internal/receipts"
	"lightsd-formula/internal/recipe"
)

type installFlags struct {
	head       bool
	sourceDir  string
	buildType  string
	skipTest   bool
	serviceDir string
}

func newInstallCommand(ctx *commandContext) *cobra.Command {
	var flags installFlags

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Fetch, build, and install lightsd, then verify it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyInstallFlags(cfg, flags); err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			return ctx.withStore(func(store *receipts.Store) error {
				r, err := recipe.New(cfg,
					recipe.WithLogger(logger),
					recipe.WithStore(store),
					recipe.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()),
					recipe.WithSkipTest(flags.skipTest),
					recipe.WithServiceDir(flags.serviceDir),
				)
				if err != nil {
					return err
				}
				result, err := r.Run(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Installed %s %s to %s\n", result.Plan.Formula.Name, result.Plan.Formula.PkgVersion(), result.Plan.Layout.KegDir)
				fmt.Fprintf(out, "Service descriptor: %s\n", result.ServicePath)
				if result.SmokeTest == nil {
					fmt.Fprintln(out, "Smoke test: skipped")
				} else {
					fmt.Fprintf(out, "Smoke test: passed in %s\n", result.SmokeTest.Duration.Round(time.Millisecond))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&flags.head, "head", false, "Build from the head checkout instead of the release archive")
	cmd.Flags().StringVar(&flags.sourceDir, "source-dir", "", "Build from an existing source tree")
	cmd.Flags().StringVar(&flags.buildType, "build-type", "", "Build type (release or debug)")
	cmd.Flags().BoolVar(&flags.skipTest, "skip-test", false, "Skip the post-install smoke test")
	cmd.Flags().StringVar(&flags.serviceDir, "service-dir", "", "Directory for the launchd descriptor (default: the keg)")
	return cmd
}

func applyInstallFlags(cfg *config.Config, flags installFlags) error {
	if flags.head && strings.TrimSpace(flags.sourceDir) != "" {
		return fmt.Errorf("--head and --source-dir are mutually exclusive")
	}
	if flags.head {
		cfg.Formula.Source = config.SourceHead
	}
	if dir := strings.TrimSpace(flags.sourceDir); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return fmt.Errorf("resolve source dir: %w", err)
		}
		cfg.Formula.Source = config.SourceLocal
		cfg.Formula.SourceDir = expanded
	}
	if bt := strings.ToLower(strings.TrimSpace(flags.buildType)); bt != "" {
		cfg.Build.BuildType = bt
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid install flags: %w", err)
	}
	return nil
}
