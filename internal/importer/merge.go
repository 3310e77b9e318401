package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/profitfirst/internal/common"
	"github.com/Veraticus/profitfirst/internal/payload"
	"github.com/Veraticus/profitfirst/internal/service"
)

// ErrForeignRecord indicates an incoming id already belongs to another owner.
var ErrForeignRecord = errors.New("record belongs to another owner")

// Commit steps, in the order they run.
const (
	StepBankAccounts  = "bank accounts"
	StepAccounts      = "accounts"
	StepTransactions  = "transactions"
	StepAllocations   = "allocations"
	StepDistributions = "profit distributions"
	StepProfile       = "profile"
)

// Steps lists every commit step in order.
var Steps = []string{
	StepBankAccounts,
	StepAccounts,
	StepTransactions,
	StepAllocations,
	StepDistributions,
	StepProfile,
}

// ProgressFunc is called after each commit step finishes.
type ProgressFunc func(step string, done, total int)

// Result counts what a commit wrote.
type Result struct {
	BankAccounts    int
	Accounts        int
	Transactions    int
	Allocations     int
	Distributions   int
	CurrencyUpdated bool
}

// Merger commits payloads for an owner.
type Merger struct {
	store    service.Storage
	progress ProgressFunc
}

// NewMerger creates a merger over store.
func NewMerger(store service.Storage) *Merger {
	return &Merger{store: store}
}

// WithProgress registers a callback invoked after every commit step.
func (m *Merger) WithProgress(fn ProgressFunc) *Merger {
	m.progress = fn
	return m
}

// Plan reads the owner's current accounts and resolves p against them.
// Nothing is written.
func (m *Merger) Plan(ctx context.Context, owner string, p payload.Payload) (Plan, payload.Report, error) {
	if owner == "" {
		return Plan{}, payload.Report{}, common.ErrNoOwner
	}

	records, err := m.store.ListAccounts(ctx, owner)
	if err != nil {
		return Plan{}, payload.Report{}, fmt.Errorf("failed to read current accounts: %w", err)
	}

	plan, report := Resolve(owner, accountsFromRecords(records), p)
	return plan, report, nil
}

// Commit resolves p and writes it. Resolution errors block the commit and are
// returned wrapping common.ErrValidationFailed. Every step runs in a single
// store transaction; the first failing step rolls all of them back.
func (m *Merger) Commit(ctx context.Context, owner string, p payload.Payload) (Result, error) {
	plan, report, err := m.Plan(ctx, owner, p)
	if err != nil {
		return Result{}, err
	}
	if err := report.Err(); err != nil {
		return Result{}, err
	}
	return m.Apply(ctx, plan)
}

// Apply writes a resolved plan.
func (m *Merger) Apply(ctx context.Context, plan Plan) (Result, error) {
	tx, err := m.store.BeginTx(ctx)
	if err != nil {
		return Result{}, common.NewUserError("failed to start import", err)
	}
	defer func() { _ = tx.Rollback() }()

	var result Result
	for i, step := range Steps {
		if err := m.runStep(ctx, tx, plan, step, &result); err != nil {
			slog.Warn("Import step failed, rolling back", "step", step, "owner", plan.Owner, "error", err)
			return Result{}, common.NewUserError(fmt.Sprintf("failed to import %s", step), err)
		}
		if m.progress != nil {
			m.progress(step, i+1, len(Steps))
		}
	}

	if err := tx.Commit(); err != nil {
		return Result{}, common.NewUserError("failed to commit import", err)
	}

	slog.Info("Import committed",
		"owner", plan.Owner,
		"accounts", result.Accounts,
		"transactions", result.Transactions,
		"allocations", result.Allocations,
		"distributions", result.Distributions)
	return result, nil
}

func (m *Merger) runStep(ctx context.Context, tx service.Transaction, plan Plan, step string, result *Result) error {
	switch step {
	case StepBankAccounts:
		if len(plan.BankAccounts) == 0 {
			return nil
		}
		if err := tx.UpsertBankAccounts(ctx, plan.BankAccounts); err != nil {
			return err
		}
		owned, err := tx.ListBankAccounts(ctx, plan.Owner)
		if err != nil {
			return err
		}
		if err := checkOwned(step, bankAccountIDs(plan.BankAccounts), bankAccountIDs(owned)); err != nil {
			return err
		}
		result.BankAccounts = len(plan.BankAccounts)

	case StepAccounts:
		if len(plan.Accounts) == 0 {
			return nil
		}
		if err := tx.UpsertAccounts(ctx, plan.Accounts); err != nil {
			return err
		}
		owned, err := tx.ListAccounts(ctx, plan.Owner)
		if err != nil {
			return err
		}
		if err := checkOwned(step, accountIDs(plan.Accounts), accountIDs(owned)); err != nil {
			return err
		}
		result.Accounts = len(plan.Accounts)

	case StepTransactions:
		if len(plan.Transactions) == 0 {
			return nil
		}
		if err := tx.UpsertTransactions(ctx, plan.Transactions); err != nil {
			return err
		}
		owned, err := tx.ListTransactions(ctx, plan.Owner)
		if err != nil {
			return err
		}
		if err := checkOwned(step, plan.TransactionIDs(), transactionIDs(owned)); err != nil {
			return err
		}
		result.Transactions = len(plan.Transactions)

	case StepAllocations:
		if len(plan.Transactions) == 0 {
			return nil
		}
		// Replacing rather than merging keeps a re-run from duplicating rows
		if err := tx.DeleteAllocationsForTransactions(ctx, plan.TransactionIDs()); err != nil {
			return err
		}
		if len(plan.Allocations) == 0 {
			return nil
		}
		if err := tx.InsertAllocations(ctx, plan.Allocations); err != nil {
			return err
		}
		result.Allocations = len(plan.Allocations)

	case StepDistributions:
		if len(plan.Distributions) == 0 {
			return nil
		}
		if err := tx.UpsertDistributions(ctx, plan.Distributions); err != nil {
			return err
		}
		owned, err := tx.ListDistributions(ctx, plan.Owner)
		if err != nil {
			return err
		}
		if err := checkOwned(step, distributionIDs(plan.Distributions), distributionIDs(owned)); err != nil {
			return err
		}
		result.Distributions = len(plan.Distributions)

	case StepProfile:
		if plan.CurrencySymbol == "" {
			return nil
		}
		if err := tx.UpsertProfile(ctx, service.ProfileRecord{ID: plan.Owner, CurrencySymbol: plan.CurrencySymbol}); err != nil {
			return err
		}
		result.CurrencyUpdated = true
	}
	return nil
}

// checkOwned fails when an upserted id is not among the owner's rows, which
// means the conflict update was skipped because the row is someone else's.
func checkOwned(kind string, incoming, owned []string) error {
	have := make(map[string]bool, len(owned))
	for _, id := range owned {
		have[id] = true
	}
	for _, id := range incoming {
		if !have[id] {
			return fmt.Errorf("%s %s: %w", kind, id, ErrForeignRecord)
		}
	}
	return nil
}
