package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"lightsd-formula/internal/deps"
	"lightsd-formula/internal/fileutil"
	"lightsd-formula/internal/preflight"
	"lightsd-formula/internal/services"
	"lightsd-formula/internal/services/cmake"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Show declared dependencies and whether they are available",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				state := "ok"
				switch {
				case status.Skipped:
					state = "skipped"
				case !status.Available:
					state = "missing"
				}
				detail := status.Detail
				if detail == "" {
					detail = status.Command
				}
				rows = append(rows, []string{status.Name, string(status.Phase), yesNo(status.Optional), state, detail})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Name", "Phase", "Optional", "Status", "Detail"},
				rows, nil, shouldColorize(out),
			))
			if missing := deps.Missing(statuses); len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, status := range missing {
					names = append(names, status.Name)
				}
				return services.Wrap(services.ErrDependency, "deps", "", "missing "+strings.Join(names, ", "), nil)
			}
			return nil
		},
	}
}

func newLayoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Show the resolved install paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := ctx.plan()
			if err != nil {
				return err
			}
			pairs := plan.Layout.Rows()
			rows := make([][]string, 0, len(pairs))
			for _, pair := range pairs {
				rows = append(rows, []string{pair[0], pair[1]})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Location", "Path"}, rows, nil, shouldColorize(out)))
			return nil
		},
	}
}

func newConfigureCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Print the cmake argument vector without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := ctx.plan()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, arg := range cmake.ConfigureArgs(plan.Configuration) {
				fmt.Fprintln(out, arg)
			}
			return nil
		},
	}
}

func newServiceCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "service",
		Short: "Print or write the launchd property list",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := ctx.plan()
			if err != nil {
				return err
			}
			data, err := plan.Descriptor.Marshal()
			if err != nil {
				return err
			}
			target := strings.TrimSpace(outputPath)
			if target == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if info, statErr := os.Stat(target); statErr == nil && info.IsDir() {
				target = filepath.Join(target, plan.Descriptor.FileName())
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create service directory: %w", err)
			}
			if err := fileutil.WriteFileAtomic(target, data, 0o644); err != nil {
				return fmt.Errorf("write service descriptor: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "File or directory to write the descriptor to")
	return cmd
}

func newCaveatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "caveats",
		Short: "Print post-install guidance",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := ctx.plan()
			if err != nil {
				return err
			}
			return plan.Caveats.Render(cmd.OutOrStdout())
		},
	}
}
