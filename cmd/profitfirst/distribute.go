package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/profitfirst/internal/cli"
	"github.com/Veraticus/profitfirst/internal/common"
	"github.com/Veraticus/profitfirst/internal/ledger"
	"github.com/Veraticus/profitfirst/internal/model"
)

func distributeCmd() *cobra.Command {
	var notes, date string

	cmd := &cobra.Command{
		Use:   "distribute",
		Short: "Record a quarterly profit distribution",
		Long: `Withdraw 50% of the PROFIT balance and split it evenly between the
owners and the company. The PROFIT account is debited by the withdrawn amount;
no other account changes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			at, err := parseDate(date, time.Now())
			if err != nil {
				return err
			}

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
			profit, ok := model.FindByType(state.Accounts, model.AccountTypeProfit)
			if !ok {
				return common.NewUserError("create a PROFIT account with: profitfirst accounts init", common.ErrNoProfitAccount)
			}

			dist, err := model.NewDistribution(profit.Balance, at, notes)
			if err != nil {
				return common.NewUserError("nothing to distribute", err)
			}
			if err := session.Dispatch(ctx, ledger.DistributionAdded{Distribution: dist}); err != nil {
				return err
			}

			symbol := state.CurrencySymbol
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Recorded %s distribution %s", dist.Quarter, dist.ID)))
			fmt.Fprintf(out, "  • Total profit: %s\n", cli.FormatMoney(symbol, dist.TotalProfit))
			fmt.Fprintf(out, "  • Distributed: %s\n", cli.FormatMoney(symbol, dist.DistributionAmount))
			fmt.Fprintf(out, "  • To owners: %s\n", cli.FormatMoney(symbol, dist.ToOwners))
			fmt.Fprintf(out, "  • To company: %s\n", cli.FormatMoney(symbol, dist.ToCompany))
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "Notes stored with the distribution")
	cmd.Flags().StringVar(&date, "date", "", "Distribution date (format: 2006-01-02, default today)")

	return cmd
}

func distributionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "distributions",
		Short: "List and complete profit distributions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every profit distribution",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

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
			return cli.WriteDistributions(cmd.OutOrStdout(), state.CurrencySymbol, state.ProfitDistributions, 0)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a distribution between pending and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			session, err := a.session(ctx)
			if err != nil {
				return err
			}
			if err := session.Dispatch(ctx, ledger.DistributionToggled{ID: args[0]}); err != nil {
				return err
			}

			status := "pending"
			for _, d := range session.State().ProfitDistributions {
				if d.ID == args[0] && d.IsCompleted {
					status = "completed"
				}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Distribution %s is now %s", args[0], status)))
			return err
		},
	})

	return cmd
}
