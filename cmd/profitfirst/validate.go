package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/profitfirst/internal/cli"
	"github.com/Veraticus/profitfirst/internal/model"
	"github.com/Veraticus/profitfirst/internal/service"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check an import file without writing anything",
		Long: `Parse and validate a JSON document or allocation spreadsheet CSV and
print every error and warning. Spreadsheet rows are matched against your
current accounts, or the default accounts when no owner is configured.

Exits non-zero when the file has errors.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			data, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			accounts, currency, err := validationAccounts(ctx)
			if err != nil {
				return err
			}

			p, report, err := decodePayload(args[0], data, accounts, currency)
			if err != nil {
				return err
			}
			if err := cli.WriteFindings(out, report); err != nil {
				return err
			}
			if err := report.Err(); err != nil {
				return err
			}

			_, err = fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d accounts, %d transactions, %d profit distributions",
				len(p.Accounts), len(p.Transactions), len(p.ProfitDistributions))))
			return err
		},
	}
}

// validationAccounts returns the signed-in owner's accounts without running a
// sync, or the default accounts for an anonymous run.
func validationAccounts(ctx context.Context) ([]model.Account, string, error) {
	a, err := openApp(ctx)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = a.Close() }()

	owner, err := a.identity.Owner(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve owner: %w", err)
	}
	if owner == "" {
		return model.DefaultAccounts(), a.cfg.DefaultCurrency, nil
	}

	records, err := a.store.ListAccounts(ctx, owner)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read accounts: %w", err)
	}
	if len(records) == 0 {
		return model.DefaultAccounts(), a.cfg.DefaultCurrency, nil
	}

	accounts := make([]model.Account, len(records))
	for i, r := range records {
		accounts[i] = service.AccountFromRecord(r)
	}

	currency := a.cfg.DefaultCurrency
	if profile, err := a.store.GetProfile(ctx, owner); err == nil && profile.CurrencySymbol != "" {
		currency = profile.CurrencySymbol
	}
	return accounts, currency, nil
}
