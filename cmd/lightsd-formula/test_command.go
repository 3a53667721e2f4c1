package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lightsd-formula/internal/smoketest"
)

func newTestCommand(ctx *commandContext) *cobra.Command {
	var binary string
	var showOutput bool

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run the smoke test against the installed daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			plan, err := ctx.plan()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			target := strings.TrimSpace(binary)
			if target == "" {
				target = plan.Layout.Binary()
			}

			runner, err := smoketest.New(plan.Formula.Name,
				smoketest.WithTimeout(time.Duration(cfg.SmokeTest.TimeoutSeconds)*time.Second),
				smoketest.WithLogger(logger),
			)
			if err != nil {
				return err
			}
			result, err := runner.Run(cmd.Context(), target)
			out := cmd.OutOrStdout()
			if showOutput {
				fmt.Fprint(out, result.Stdout)
				fmt.Fprint(cmd.ErrOrStderr(), result.Stderr)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %s: ok (%s)\n", target, strings.Join(result.Args, " "), result.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&binary, "binary", "", "Daemon binary to test (default: the installed keg binary)")
	cmd.Flags().BoolVar(&showOutput, "show-output", false, "Echo the daemon's captured output")
	return cmd
}
