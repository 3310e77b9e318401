package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/profitfirst/internal/cli"
)

func statusCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show bucket balances and recent distributions",
		Long: `Load the ledger and print every account with its balance, target
percentage (TAPS) and current share of the allocated total (CAPS), followed by
the most recent profit distributions.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			session, err := a.session(ctx)
			if err != nil {
				return err
			}
			state := session.State()

			fmt.Fprintln(out, cli.FormatTitle("Profit First buckets"))
			if len(state.Accounts) == 0 {
				_, err := fmt.Fprintln(out, cli.FormatInfo("No accounts yet. Create them with: profitfirst accounts init"))
				return err
			}
			if err := cli.WriteBuckets(out, state); err != nil {
				return err
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, cli.FormatTitle("Profit distributions"))
			if err := cli.WriteDistributions(out, state.CurrencySymbol, state.ProfitDistributions, limit); err != nil {
				return err
			}

			_, err = fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("%d transactions recorded", len(state.Transactions))))
			return err
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Number of distributions to show (0 for all)")

	return cmd
}
