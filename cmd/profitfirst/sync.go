package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/profitfirst/internal/cli"
	"github.com/Veraticus/profitfirst/internal/migration"
)

func syncCmd() *cobra.Command {
	var clearLocal, retry bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Migrate local data and load the ledger",
		Long: `Run the sync pass: resolve the owner, move a local snapshot into the
database if it has never been migrated and the database holds no accounts for
the owner, then load the full ledger.

If the pass fails you are asked whether to retry; --retry retries once
without asking.`,
		Example: `  # First run after upgrading from the local-only version
  profitfirst sync

  # Drop the local snapshot once it is safely in the database
  profitfirst sync --clear-local`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, clearLocal, retry)
		},
	}

	cmd.Flags().BoolVar(&clearLocal, "clear-local", false, "Remove local cache entries (except the migrated flag) after a successful sync")
	cmd.Flags().BoolVar(&retry, "retry", false, "Retry once without prompting if the sync fails")

	return cmd
}

func runSync(cmd *cobra.Command, clearLocal, retry bool) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	bar := cli.NewProgress(cmd.ErrOrStderr(), 100, string(migration.StatusIdle))
	a.sync.WithObserver(func(status migration.Status, percent int) {
		bar.Update(string(status), percent)
	})

	state, err := a.sync.Run(ctx)
	if err != nil {
		fmt.Fprintln(out, cli.FormatError(fmt.Sprintf("Sync failed: %v", err)))

		again := retry
		if !again {
			again, err = cli.NewNonBlockingReader(cmd.InOrStdin()).Confirm(ctx, out, "Retry sync?")
			if err != nil {
				return err
			}
		}
		if !again {
			return a.sync.Err()
		}

		state, err = a.sync.Retry(ctx)
		if err != nil {
			return err
		}
	}

	if state == nil {
		_, err := fmt.Fprintln(out, cli.FormatInfo("No owner signed in; nothing to sync"))
		return err
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Synced %d accounts, %d transactions, %d profit distributions",
		len(state.Accounts), len(state.Transactions), len(state.ProfitDistributions))))

	if clearLocal {
		removed, err := a.sync.ClearLocalCache(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Removed %d local cache entries", removed)))
	}
	return nil
}
