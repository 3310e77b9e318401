package migration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/profitfirst/internal/common"
	"github.com/Veraticus/profitfirst/internal/ledger"
	"github.com/Veraticus/profitfirst/internal/payload"
	"github.com/Veraticus/profitfirst/internal/service"
)

// envelope is the persisted form {"state": {...}, "version": n}.
type envelope struct {
	State   *payload.Payload `json:"state"`
	Version int              `json:"version"`
}

// DecodeSnapshot reads a local snapshot in either the enveloped or the bare
// form.
func DecodeSnapshot(data []byte) (ledger.State, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ledger.State{}, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ledger.State{}, fmt.Errorf("%w: local snapshot: %v", common.ErrUnsupportedInput, err)
	}

	p := env.State
	if p == nil {
		p = &payload.Payload{}
		if err := json.Unmarshal(data, p); err != nil {
			return ledger.State{}, fmt.Errorf("%w: local snapshot: %v", common.ErrUnsupportedInput, err)
		}
	}
	return ledger.FromPayload(*p)
}

// ValidateSnapshot runs the import validator over the document held in a
// local snapshot, enveloped or bare.
func ValidateSnapshot(data []byte) (payload.Report, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return payload.Report{}, nil
	}

	var env struct {
		State json.RawMessage `json:"state"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return payload.Report{}, fmt.Errorf("%w: local snapshot: %v", common.ErrUnsupportedInput, err)
	}

	doc := data
	if len(env.State) > 0 && !bytes.Equal(env.State, []byte("null")) {
		doc = env.State
	}
	raw, err := payload.DecodeRaw(doc)
	if err != nil {
		return payload.Report{}, err
	}
	return payload.Validate(raw), nil
}

// localSnapshot is a decoded snapshot along with the bytes it was read from.
type localSnapshot struct {
	state ledger.State
	data  []byte
}

// EncodeSnapshot renders state in the enveloped form.
func EncodeSnapshot(s ledger.State, version int) ([]byte, error) {
	p := s.Export(time.Time{})
	p.ExportDate = ""
	return json.Marshal(envelope{State: &p, Version: version})
}

func (o *Orchestrator) readSnapshot(ctx context.Context) (localSnapshot, error) {
	if o.cache == nil {
		return localSnapshot{}, nil
	}
	raw, ok, err := o.cache.Get(ctx, o.StorageKey())
	if err != nil {
		return localSnapshot{}, fmt.Errorf("failed to read local snapshot: %w", err)
	}
	if !ok {
		return localSnapshot{}, nil
	}
	state, err := DecodeSnapshot([]byte(raw))
	if err != nil {
		return localSnapshot{}, err
	}
	return localSnapshot{state: state, data: []byte(raw)}, nil
}

// SaveSnapshot writes s to the local cache under StorageKey.
func (o *Orchestrator) SaveSnapshot(ctx context.Context, s ledger.State) error {
	if o.cache == nil {
		return errors.New("no local cache configured")
	}
	data, err := EncodeSnapshot(s, 0)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return o.cache.Set(ctx, o.StorageKey(), string(data))
}

// migrate inserts the snapshot for owner. The store was just confirmed empty
// for this owner, so rows are inserted, not upserted. A snapshot with
// validation errors is never written.
func (o *Orchestrator) migrate(ctx context.Context, owner string, local localSnapshot) error {
	report, err := ValidateSnapshot(local.data)
	if err != nil {
		return err
	}
	for _, f := range report.Warnings() {
		slog.Warn("Local snapshot warning", "path", f.Path, "message", f.Message)
	}
	if err := report.Err(); err != nil {
		return common.NewUserError("local data is invalid and was not migrated", err)
	}

	tx, err := o.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertSnapshot(ctx, tx, owner, local.state); err != nil {
		return common.NewUserError("failed to migrate local data", err)
	}
	if err := tx.Commit(); err != nil {
		return common.NewUserError("failed to migrate local data", err)
	}

	if o.cache != nil {
		if err := o.cache.Set(ctx, o.MigratedKey(), "true"); err != nil {
			return fmt.Errorf("failed to set migration flag: %w", err)
		}
	}

	slog.Info("Migrated local data",
		"owner", owner,
		"accounts", len(local.state.Accounts),
		"bank_accounts", len(local.state.BankAccounts),
		"transactions", len(local.state.Transactions),
		"distributions", len(local.state.ProfitDistributions))
	return nil
}

func insertSnapshot(ctx context.Context, tx service.Transaction, owner string, local ledger.State) error {
	if len(local.Accounts) > 0 {
		records := make([]service.AccountRecord, len(local.Accounts))
		for i, acc := range local.Accounts {
			records[i] = service.AccountToRecord(owner, acc)
		}
		if err := tx.InsertAccounts(ctx, records); err != nil {
			return fmt.Errorf("accounts: %w", err)
		}
	}

	if len(local.BankAccounts) > 0 {
		records := make([]service.BankAccountRecord, len(local.BankAccounts))
		for i, ba := range local.BankAccounts {
			records[i] = service.BankAccountToRecord(owner, ba)
		}
		if err := tx.InsertBankAccounts(ctx, records); err != nil {
			return fmt.Errorf("bank accounts: %w", err)
		}
	}

	if len(local.Transactions) > 0 {
		records := make([]service.TransactionRecord, len(local.Transactions))
		var allocations []service.AllocationRecord
		for i, t := range local.Transactions {
			records[i] = service.TransactionToRecord(owner, t)
			allocations = append(allocations, service.AllocationsToRecords(t)...)
		}
		if err := tx.InsertTransactions(ctx, records); err != nil {
			return fmt.Errorf("transactions: %w", err)
		}
		if len(allocations) > 0 {
			if err := tx.InsertAllocations(ctx, allocations); err != nil {
				return fmt.Errorf("allocations: %w", err)
			}
		}
	}

	if len(local.ProfitDistributions) > 0 {
		records := make([]service.DistributionRecord, len(local.ProfitDistributions))
		for i, d := range local.ProfitDistributions {
			records[i] = service.DistributionToRecord(owner, d)
		}
		if err := tx.InsertDistributions(ctx, records); err != nil {
			return fmt.Errorf("profit distributions: %w", err)
		}
	}

	if local.CurrencySymbol == "" {
		return nil
	}
	err := tx.UpdateProfileCurrency(ctx, owner, local.CurrencySymbol)
	if errors.Is(err, common.ErrNotFound) {
		err = tx.UpsertProfile(ctx, service.ProfileRecord{ID: owner, CurrencySymbol: local.CurrencySymbol})
	}
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	return nil
}
