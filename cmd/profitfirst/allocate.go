package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/profitfirst/internal/cli"
	"github.com/Veraticus/profitfirst/internal/common"
	"github.com/Veraticus/profitfirst/internal/ledger"
	"github.com/Veraticus/profitfirst/internal/model"
)

func allocateCmd() *cobra.Command {
	var description, date string

	cmd := &cobra.Command{
		Use:   "allocate <amount>",
		Short: "Record income and split it across the buckets",
		Long: `Record an income transaction and credit every non-INCOME account with
amount x target / 100.`,
		Example: `  profitfirst allocate 2500 -d "March retainer"
  profitfirst allocate 1,200.50 --date 2026-03-15`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
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
			tx := model.NewIncomeTransaction(state.Accounts, amount, description, at)
			if len(tx.Allocations) == 0 {
				return common.NewUserError("no allocation accounts; run profitfirst accounts init first", common.ErrNotFound)
			}

			if err := session.Dispatch(ctx, ledger.TransactionAdded{Transaction: tx}); err != nil {
				return err
			}

			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Allocated %s", cli.FormatMoney(state.CurrencySymbol, amount))))
			for _, alloc := range tx.Allocations {
				acc, _ := state.Account(alloc.AccountID)
				fmt.Fprintf(out, "  • %s: %s\n", acc.Name, cli.FormatMoney(state.CurrencySymbol, alloc.Amount))
			}
			if !tx.Balanced() {
				fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Targets add up to %s, so %s of the income stays unallocated",
					cli.FormatPercent(model.TargetSum(state.Accounts)),
					cli.FormatMoney(state.CurrencySymbol, amount.Sub(tx.AllocationSum())))))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Transaction description")
	cmd.Flags().StringVar(&date, "date", "", "Transaction date (format: 2006-01-02, default today)")

	return cmd
}

// parseAmount reads a positive money amount, allowing thousands separators.
func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q", common.ErrInvalidConfig, s)
	}
	if !model.AmountInRange(amount) {
		return decimal.Zero, fmt.Errorf("%w: amount %q is out of range", common.ErrInvalidConfig, s)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive, got %s", common.ErrInvalidConfig, s)
	}
	return amount, nil
}

// parseDate reads a YYYY-MM-DD date as midnight UTC; empty means fallback.
func parseDate(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", common.ErrInvalidConfig, s)
	}
	return t, nil
}
