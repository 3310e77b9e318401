package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/profitfirst/internal/cli"
	"github.com/Veraticus/profitfirst/internal/common"
	"github.com/Veraticus/profitfirst/internal/config"
	"github.com/Veraticus/profitfirst/internal/importer"
	"github.com/Veraticus/profitfirst/internal/model"
	"github.com/Veraticus/profitfirst/internal/payload"
	"github.com/Veraticus/profitfirst/internal/sheets"
	"github.com/Veraticus/profitfirst/internal/spreadsheet"
)

type importOptions struct {
	sheetRange string
	useSheet   bool
	dryRun     bool
	checkpoint bool
}

func importCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a JSON export or an allocation spreadsheet",
		Long: `Import a JSON document (as written by export) or an allocation
spreadsheet, either as a CSV file or straight from Google Sheets.

The input is validated before anything is written. Accounts are matched to
your existing accounts by type, records are upserted by id, and the whole
import runs in one database transaction, so running it twice changes nothing.`,
		Example: `  # Import a backup
  profitfirst import profit-first-backup.json

  # Import the CSV download of the allocation sheet
  profitfirst import allocations.csv --checkpoint

  # Preview an import from Google Sheets
  profitfirst import --sheet "Allocations!A:I" --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.useSheet = cmd.Flags().Changed("sheet")
			return runImport(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.sheetRange, "sheet", "", "Read rows from Google Sheets in this A1 range (empty uses sheets.range)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate and resolve without writing")
	cmd.Flags().BoolVar(&opts.checkpoint, "checkpoint", false, "Create a database checkpoint before writing")

	return cmd
}

func runImport(cmd *cobra.Command, args []string, opts importOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if (len(args) == 0) == !opts.useSheet {
		return common.NewUserError("give either a file or --sheet", common.ErrUnsupportedInput)
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
	owner := session.Owner()

	var (
		p      payload.Payload
		report payload.Report
	)
	if opts.useSheet {
		rows, err := readSheetRows(ctx, opts.sheetRange)
		if err != nil {
			return err
		}
		p, report, err = payloadFromRows(rows, state.Accounts, state.CurrencySymbol)
		if err != nil {
			return err
		}
	} else {
		data, err := readInput(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		p, report, err = decodePayload(args[0], data, state.Accounts, state.CurrencySymbol)
		if err != nil {
			return err
		}
	}

	if len(report.Findings) > 0 {
		if err := cli.WriteFindings(out, report); err != nil {
			return err
		}
	}
	if err := report.Err(); err != nil {
		return err
	}

	merger := importer.NewMerger(a.store)
	plan, resolution, err := merger.Plan(ctx, owner, p)
	if err != nil {
		return err
	}
	if len(resolution.Findings) > 0 {
		if err := cli.WriteFindings(out, resolution); err != nil {
			return err
		}
	}
	if err := resolution.Err(); err != nil {
		return err
	}

	if opts.dryRun {
		fmt.Fprintln(out, cli.FormatWarning("Dry run mode - not saving to database"))
		fmt.Fprintf(out, "Would import %d accounts, %d bank accounts, %d transactions (%d allocations), %d profit distributions\n",
			len(plan.Accounts), len(plan.BankAccounts), len(plan.Transactions), len(plan.Allocations), len(plan.Distributions))
		return nil
	}

	if opts.checkpoint {
		manager, err := a.store.NewCheckpointManager()
		if err != nil {
			return fmt.Errorf("failed to create checkpoint manager: %w", err)
		}
		info, err := manager.AutoCheckpoint(ctx, "import")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Created checkpoint %s", info.ID)))
	}

	bar := cli.NewProgress(cmd.ErrOrStderr(), len(importer.Steps), "importing")
	merger.WithProgress(func(step string, _, _ int) {
		bar.Step(step)
	})

	result, err := merger.Apply(ctx, plan)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, cli.RenderImportResult(result))

	reloaded, err := a.sync.Load(ctx, owner)
	if err != nil {
		return fmt.Errorf("failed to reload state: %w", err)
	}
	return cli.WriteBuckets(out, reloaded)
}

// decodePayload turns file contents into a validated payload. Spreadsheet
// rows are parsed against accounts.
func decodePayload(path string, data []byte, accounts []model.Account, currency string) (payload.Payload, payload.Report, error) {
	if detectFormat(path, data) == formatJSON {
		return payload.Parse(data)
	}

	rows, err := spreadsheet.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return payload.Payload{}, payload.Report{}, err
	}
	return payloadFromRows(rows, accounts, currency)
}

// payloadFromRows parses spreadsheet rows and validates the result the same
// way a JSON document is validated.
func payloadFromRows(rows [][]string, accounts []model.Account, currency string) (payload.Payload, payload.Report, error) {
	p := spreadsheet.ParseRows(rows, accounts, currency)
	raw, err := p.Raw()
	if err != nil {
		return payload.Payload{}, payload.Report{}, err
	}
	return p, payload.Validate(raw), nil
}

// readSheetRows fetches rows from the configured spreadsheet.
func readSheetRows(ctx context.Context, readRange string) ([][]string, error) {
	cfg, err := config.LoadSheetsConfig()
	if err != nil {
		if errors.Is(err, sheets.ErrNoAuth) {
			return nil, common.NewUserError("Google Sheets is not configured; run profitfirst auth sheets", err)
		}
		return nil, err
	}
	if readRange == "" {
		readRange = cfg.Range
	}

	reader, err := sheets.NewReader(ctx, *cfg, slog.Default())
	if err != nil {
		return nil, err
	}
	return reader.ReadRows(ctx, readRange)
}
