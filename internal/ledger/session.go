package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/profitfirst/internal/common"
	"github.com/Veraticus/profitfirst/internal/service"
)

// Loader reads an owner's full state from the store.
type Loader interface {
	Load(ctx context.Context, owner string) (State, error)
}

// Session applies events for one owner. Every Dispatch writes the change to
// the store and then replaces the in-memory state with a fresh load, so the
// store stays the source of truth.
type Session struct {
	store  service.Storage
	loader Loader
	owner  string
	state  State
}

// NewSession creates a session seeded with an already loaded state.
func NewSession(store service.Storage, loader Loader, owner string, initial State) *Session {
	return &Session{
		store:  store,
		loader: loader,
		owner:  owner,
		state:  initial,
	}
}

// Owner returns the owner id the session writes as.
func (s *Session) Owner() string {
	return s.owner
}

// State returns a copy of the current state.
func (s *Session) State() State {
	return s.state.Clone()
}

// Dispatch applies e, persists the result, and reloads. The in-memory state
// is only replaced once the reload succeeds.
func (s *Session) Dispatch(ctx context.Context, e Event) error {
	next, err := Apply(s.state, e)
	if err != nil {
		return err
	}

	if err := s.persist(ctx, next, e); err != nil {
		return common.NewUserError("failed to save change", err)
	}

	reloaded, err := s.loader.Load(ctx, s.owner)
	if err != nil {
		return fmt.Errorf("failed to reload state: %w", err)
	}
	s.state = reloaded

	slog.Debug("Dispatched event", "event", fmt.Sprintf("%T", e), "owner", s.owner)
	return nil
}

func (s *Session) persist(ctx context.Context, next State, e Event) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.write(ctx, tx, next, e); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Session) write(ctx context.Context, tx service.Transaction, next State, e Event) error {
	switch ev := e.(type) {
	case TransactionAdded:
		if err := tx.InsertTransactions(ctx, []service.TransactionRecord{
			service.TransactionToRecord(s.owner, ev.Transaction),
		}); err != nil {
			return err
		}
		if len(ev.Transaction.Allocations) > 0 {
			if err := tx.InsertAllocations(ctx, service.AllocationsToRecords(ev.Transaction)); err != nil {
				return err
			}
		}
		return tx.UpsertAccounts(ctx, s.accountRecords(next))

	case DistributionAdded:
		if err := tx.InsertDistributions(ctx, []service.DistributionRecord{
			service.DistributionToRecord(s.owner, ev.Distribution),
		}); err != nil {
			return err
		}
		return tx.UpsertAccounts(ctx, s.accountRecords(next))

	case DistributionToggled:
		for _, d := range next.ProfitDistributions {
			if d.ID == ev.ID {
				return tx.UpdateDistributionCompleted(ctx, s.owner, d.ID, d.IsCompleted)
			}
		}
		return fmt.Errorf("profit distribution %s: %w", ev.ID, common.ErrNotFound)

	case AccountTargetSet:
		return tx.UpsertAccounts(ctx, s.accountRecords(next))

	case CurrencySet:
		return tx.UpsertProfile(ctx, service.ProfileRecord{ID: s.owner, CurrencySymbol: next.CurrencySymbol})

	case AccountsInitialized:
		records := make([]service.AccountRecord, len(ev.Accounts))
		for i, acc := range ev.Accounts {
			records[i] = service.AccountToRecord(s.owner, acc)
		}
		return tx.InsertAccounts(ctx, records)
	}

	return fmt.Errorf("%w: %T", ErrInvalidEvent, e)
}

func (s *Session) accountRecords(st State) []service.AccountRecord {
	records := make([]service.AccountRecord, len(st.Accounts))
	for i, acc := range st.Accounts {
		records[i] = service.AccountToRecord(s.owner, acc)
	}
	return records
}
