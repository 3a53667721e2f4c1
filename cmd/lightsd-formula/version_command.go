package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lightsd-formula/internal/recipe"
)

func newVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the formula name and version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			f := recipe.FormulaFromConfig(cfg)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", f.Name, f.PkgVersion())
			fmt.Fprintf(out, "class: %s\n", f.ClassName())
			if f.Homepage != "" {
				fmt.Fprintf(out, "homepage: %s\n", f.Homepage)
			}
			return nil
		},
	}
}
