package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lightsd-formula/internal/receipts"
)

func newReceiptsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var limit int

	cmd := &cobra.Command{
		Use:   "receipts [run-id]",
		Short: "List recorded install runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *receipts.Store) error {
				var list []receipts.Receipt
				if len(args) == 1 {
					r, err := store.Get(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					list = []receipts.Receipt{r}
				} else {
					var err error
					if list, err = store.List(cmd.Context(), limit); err != nil {
						return err
					}
				}

				if jsonOutput {
					if list == nil {
						list = []receipts.Receipt{}
					}
					return writeJSON(cmd, list)
				}

				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No receipts recorded")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, r := range list {
					rows = append(rows, []string{
						r.RunID,
						r.Version,
						r.SourceKind,
						string(r.Status),
						r.FailedStep,
						r.StartedAt.Local().Format(time.DateTime),
						formatDuration(r),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "Version", "Source", "Status", "Failed Step", "Started", "Duration"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
					shouldColorize(out),
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum receipts to list (0 for all)")
	return cmd
}

func formatDuration(r receipts.Receipt) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return r.Duration().Round(time.Second).String()
}
