package main

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/profitfirst/internal/cli"
	"github.com/Veraticus/profitfirst/internal/common"
	"github.com/Veraticus/profitfirst/internal/ledger"
	"github.com/Veraticus/profitfirst/internal/model"
)

// errTargetSum is returned when new targets would not add up to 100.
var errTargetSum = errors.New("target percentages must add up to 100")

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage Profit First accounts",
	}

	cmd.AddCommand(accountsInitCmd())
	cmd.AddCommand(accountsSetTargetCmd())

	return cmd
}

func accountsInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the default accounts",
		Long: `Create the five default accounts for an owner with none, or add any of
PROFIT, OWNERS_COMP, TAX and OPEX that are missing.`,
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

			existing := session.State().Accounts
			var created []model.Account
			if len(existing) == 0 {
				created = model.DefaultAccounts()
			} else {
				created = model.MissingCoreAccounts(existing)
			}
			if len(created) == 0 {
				_, err := fmt.Fprintln(out, cli.FormatInfo("All core accounts already exist"))
				return err
			}

			if err := session.Dispatch(ctx, ledger.AccountsInitialized{Accounts: created}); err != nil {
				return err
			}

			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Created %d accounts", len(created))))
			return cli.WriteBuckets(out, session.State())
		},
	}
}

func accountsSetTargetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-target <type>=<percent>...",
		Short: "Change target allocation percentages",
		Long: `Set the target percentage (TAPS) of one or more accounts by type.

The targets of PROFIT, OWNERS_COMP, TAX and OPEX must add up to exactly 100
after the change, so adjust several at once.`,
		Example: `  profitfirst accounts set-target PROFIT=5 OWNERS_COMP=50 TAX=15 OPEX=30`,
		Args:    cobra.MinimumNArgs(1),
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

			events, err := targetEvents(session.State(), args)
			if err != nil {
				return err
			}
			for _, e := range events {
				if err := session.Dispatch(ctx, e); err != nil {
					return err
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated %d targets", len(events))))
			return cli.WriteBuckets(cmd.OutOrStdout(), session.State())
		},
	}
}

// targetEvents turns TYPE=PERCENT arguments into events and checks that the
// resulting targets sum to 100 before anything is saved.
func targetEvents(state ledger.State, args []string) ([]ledger.Event, error) {
	events := make([]ledger.Event, 0, len(args))
	next := state

	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("%w: expected TYPE=PERCENT, got %q", common.ErrInvalidConfig, arg)
		}

		accountType := model.AccountType(strings.ToUpper(strings.TrimSpace(name)))
		if !accountType.Valid() || accountType == model.AccountTypeIncome {
			return nil, fmt.Errorf("%w: %q is not an allocation account type", common.ErrInvalidConfig, name)
		}
		target, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: percentage %q: %v", common.ErrInvalidConfig, value, err)
		}

		acc, found := model.FindByType(next.Accounts, accountType)
		if !found {
			return nil, fmt.Errorf("%s account: %w", accountType, common.ErrNotFound)
		}

		e := ledger.AccountTargetSet{AccountID: acc.ID, Target: target}
		next, err = ledger.Apply(next, e)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if sum := model.TargetSum(next.Accounts); math.Abs(sum-100) > 1e-9 {
		return nil, common.NewUserError(
			fmt.Sprintf("targets would add up to %s", cli.FormatPercent(sum)),
			errTargetSum)
	}
	return events, nil
}
