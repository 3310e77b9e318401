package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/profitfirst/internal/cli"
	"github.com/Veraticus/profitfirst/internal/ledger"
)

func currencyCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "currency <symbol>",
		Short:   "Set the currency symbol used for amounts",
		Example: `  profitfirst currency €`,
		Args:    cobra.ExactArgs(1),
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
			if err := session.Dispatch(ctx, ledger.CurrencySet{Symbol: args[0]}); err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Currency symbol set to %s", session.State().CurrencySymbol)))
			return err
		},
	}
}
