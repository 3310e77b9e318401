// Package migration moves a locally cached snapshot into the store once per
// owner and then loads the owner's full state back from the store.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/profitfirst/internal/common"
	"github.com/Veraticus/profitfirst/internal/identity"
	"github.com/Veraticus/profitfirst/internal/ledger"
	"github.com/Veraticus/profitfirst/internal/service"
)

// Status is a step of a migration run.
type Status string

// Run statuses. A run moves idle -> checking -> [migrating ->] loading ->
// complete, or ends in error from any step.
const (
	StatusIdle      Status = "idle"
	StatusChecking  Status = "checking"
	StatusMigrating Status = "migrating"
	StatusLoading   Status = "loading"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// DefaultNamespace prefixes the local cache keys.
const DefaultNamespace = "profit-first"

// ErrRetryNotAllowed is returned by Retry unless the last run failed.
var ErrRetryNotAllowed = errors.New("retry is only allowed after a failed run")

// Cache is the local key/value store holding the snapshot and the flag.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context, keep ...string) (int, error)
}

// Observer receives every status change with a completion percentage.
type Observer func(status Status, percent int)

// Orchestrator runs the migration state machine for whoever the identity
// provider reports.
type Orchestrator struct {
	store     service.Storage
	identity  identity.Provider
	cache     Cache
	observer  Observer
	err       error
	namespace string
	currency  string
	status    Status
}

// New creates an orchestrator. A nil cache means there is never anything to
// migrate; an empty namespace uses DefaultNamespace.
func New(store service.Storage, provider identity.Provider, cache Cache, namespace string) *Orchestrator {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Orchestrator{
		store:     store,
		identity:  provider,
		cache:     cache,
		namespace: namespace,
		currency:  ledger.DefaultCurrency,
		status:    StatusIdle,
	}
}

// WithObserver registers fn for status updates.
func (o *Orchestrator) WithObserver(fn Observer) *Orchestrator {
	o.observer = fn
	return o
}

// WithDefaultCurrency sets the symbol used when an owner has no profile.
func (o *Orchestrator) WithDefaultCurrency(symbol string) *Orchestrator {
	if symbol != "" {
		o.currency = symbol
	}
	return o
}

// Status returns the current status.
func (o *Orchestrator) Status() Status {
	return o.status
}

// Err returns the error that put the orchestrator into StatusError.
func (o *Orchestrator) Err() error {
	return o.err
}

// StorageKey is the cache key holding the local snapshot.
func (o *Orchestrator) StorageKey() string {
	return o.namespace + "-storage"
}

// MigratedKey is the cache key of the "already migrated" flag.
func (o *Orchestrator) MigratedKey() string {
	return o.namespace + "-migrated"
}

// Run executes one pass. It returns nil state with a nil error when nobody is
// signed in.
func (o *Orchestrator) Run(ctx context.Context) (*ledger.State, error) {
	o.err = nil
	state, err := o.run(ctx)
	if err != nil {
		o.err = err
		o.set(StatusError, 0)
		common.LogError(err, "Sync failed", common.Fields{"namespace": o.namespace})
		return nil, err
	}
	return state, nil
}

// Retry restarts from checking after a failed run.
func (o *Orchestrator) Retry(ctx context.Context) (*ledger.State, error) {
	if o.status != StatusError {
		return nil, fmt.Errorf("%w (status is %s)", ErrRetryNotAllowed, o.status)
	}
	return o.Run(ctx)
}

func (o *Orchestrator) run(ctx context.Context) (*ledger.State, error) {
	o.set(StatusChecking, 10)

	owner, err := o.identity.Owner(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve owner: %w", err)
	}
	if owner == "" {
		slog.Info("No owner signed in, skipping sync")
		o.set(StatusComplete, 100)
		return nil, nil
	}
	o.set(StatusChecking, 20)

	needed, local, err := o.needsMigration(ctx, owner)
	if err != nil {
		return nil, err
	}
	if needed {
		o.set(StatusMigrating, 30)
		if err := o.migrate(ctx, owner, local); err != nil {
			return nil, err
		}
		o.set(StatusMigrating, 70)
	}

	o.set(StatusLoading, 80)
	state, err := o.Load(ctx, owner)
	if err != nil {
		return nil, err
	}

	o.set(StatusComplete, 100)
	return &state, nil
}

// needsMigration decides whether the local snapshot must be pushed. The
// store is checked last and wins: an owner with remote accounts is never
// migrated into, whatever the local flag says.
func (o *Orchestrator) needsMigration(ctx context.Context, owner string) (bool, localSnapshot, error) {
	local, err := o.readSnapshot(ctx)
	if err != nil {
		return false, localSnapshot{}, err
	}
	if local.state.IsEmpty() {
		slog.Debug("No local data to migrate")
		return false, local, nil
	}

	migrated, err := o.alreadyMigrated(ctx)
	if err != nil {
		return false, local, err
	}
	if migrated {
		slog.Debug("Local data already migrated")
		return false, local, nil
	}

	count, err := o.store.CountAccounts(ctx, owner)
	if err != nil {
		return false, local, fmt.Errorf("failed to check remote accounts: %w", err)
	}
	if count > 0 {
		slog.Info("Owner already has data in the store, skipping migration",
			"owner", owner,
			"accounts", count)
		return false, local, nil
	}
	return true, local, nil
}

func (o *Orchestrator) alreadyMigrated(ctx context.Context) (bool, error) {
	if o.cache == nil {
		return false, nil
	}
	value, _, err := o.cache.Get(ctx, o.MigratedKey())
	if err != nil {
		return false, fmt.Errorf("failed to read migration flag: %w", err)
	}
	return value == "true", nil
}

// ClearLocalCache drops every local key except the migration flag.
func (o *Orchestrator) ClearLocalCache(ctx context.Context) (int, error) {
	if o.cache == nil {
		return 0, nil
	}
	removed, err := o.cache.Clear(ctx, o.MigratedKey())
	if err != nil {
		return removed, fmt.Errorf("failed to clear local cache: %w", err)
	}
	slog.Info("Cleared local cache", "removed", removed)
	return removed, nil
}

func (o *Orchestrator) set(status Status, percent int) {
	o.status = status
	if o.observer != nil {
		o.observer(status, percent)
	}
}
