package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"multichain-token-lab/internal/report"
)

func newReconcileCmd(root *rootOptions) *cobra.Command {
	var (
		format   string
		fixtures bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation and print the multichain tokens",
		Example: `  multichain reconcile --use-memory --fixtures
  multichain reconcile --indexer-endpoint https://indexer.example/graphql --chains 1,56,137 --format csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := root.app
			ctx := cmd.Context()

			s, cleanup, err := a.openStores(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			runner, err := a.newRunner(ctx, s, fixtures)
			if err != nil {
				return err
			}

			result, err := runner.Run(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "table":
				return report.WriteTable(out, result.Reconciled)
			case "csv":
				return report.WriteCSV(out, result.Reconciled)
			case "markdown":
				_, err := fmt.Fprint(out, report.RenderMarkdown(result.RunID, result.Reconciled))
				return err
			default:
				return fmt.Errorf("unknown format %q (table, csv, markdown)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "output format: table, csv or markdown")
	cmd.Flags().BoolVar(&fixtures, "fixtures", false, "reconcile the built-in demo token set")

	return cmd
}
