package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/profitfirst/internal/common"
	"github.com/Veraticus/profitfirst/internal/service"
)

const testOwner = "owner-1"

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func testAccounts(owner string) []service.AccountRecord {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []service.AccountRecord{
		{ID: "acc-income", UserID: owner, Name: "Real Revenue", Type: "INCOME", Balance: decimal.Zero, CreatedAt: base},
		{ID: "acc-profit", UserID: owner, Name: "Company Profit", Type: "PROFIT", TargetPercentage: 40, Balance: decimal.RequireFromString("400.50"), CreatedAt: base.Add(time.Second)},
		{ID: "acc-opex", UserID: owner, Name: "Operating Expense", Type: "OPEX", TargetPercentage: 60, Balance: decimal.RequireFromString("600"), CreatedAt: base.Add(2 * time.Second)},
	}
}

func testTransaction(id string, date time.Time, total string) service.TransactionRecord {
	return service.TransactionRecord{
		ID:          id,
		UserID:      testOwner,
		Date:        date,
		Description: "Income " + id,
		TotalAmount: decimal.RequireFromString(total),
	}
}

func TestSQLiteStorage_Accounts(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.InsertAccounts(ctx, testAccounts(testOwner)))

	accounts, err := store.ListAccounts(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, "acc-income", accounts[0].ID)
	assert.Equal(t, "acc-opex", accounts[2].ID)
	assert.True(t, decimal.RequireFromString("400.50").Equal(accounts[1].Balance))

	count, err := store.CountAccounts(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = store.CountAccounts(ctx, "someone-else")
	require.NoError(t, err)
	assert.Zero(t, count)

	// Plain insert of an existing id is a duplicate
	err = store.InsertAccounts(ctx, testAccounts(testOwner)[:1])
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)

	// Upsert updates in place and keeps creation order
	updated := testAccounts(testOwner)[1]
	updated.Balance = decimal.NewFromInt(10)
	updated.BankAccountID = "bank-1"
	require.NoError(t, store.UpsertAccounts(ctx, []service.AccountRecord{updated}))

	accounts, err = store.ListAccounts(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, "acc-profit", accounts[1].ID)
	assert.True(t, decimal.NewFromInt(10).Equal(accounts[1].Balance))
	assert.Equal(t, "bank-1", accounts[1].BankAccountID)
}

func TestSQLiteStorage_UpsertDoesNotCrossOwners(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.InsertAccounts(ctx, testAccounts(testOwner)))

	intruder := testAccounts("owner-2")[1]
	intruder.Name = "Hijacked"
	require.NoError(t, store.UpsertAccounts(ctx, []service.AccountRecord{intruder}))

	accounts, err := store.ListAccounts(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, "Company Profit", accounts[1].Name)

	others, err := store.ListAccounts(ctx, "owner-2")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestSQLiteStorage_TransactionsWithAllocations(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.InsertAccounts(ctx, testAccounts(testOwner)))
	older := testTransaction("tx-1", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), "1000")
	newer := testTransaction("tx-2", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), "500")
	require.NoError(t, store.InsertTransactions(ctx, []service.TransactionRecord{older, newer}))
	require.NoError(t, store.InsertAllocations(ctx, []service.AllocationRecord{
		{ID: "a1", TransactionID: "tx-1", AccountID: "acc-profit", Amount: decimal.NewFromInt(400)},
		{ID: "a2", TransactionID: "tx-1", AccountID: "acc-opex", Amount: decimal.NewFromInt(600)},
		{ID: "a3", TransactionID: "tx-2", AccountID: "acc-profit", Amount: decimal.NewFromInt(500)},
	}))

	txns, err := store.ListTransactions(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	// Newest first
	assert.Equal(t, "tx-2", txns[0].ID)
	assert.Equal(t, "tx-1", txns[1].ID)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), txns[1].Date)
	require.Len(t, txns[1].Allocations, 2)
	assert.Equal(t, "acc-profit", txns[1].Allocations[0].AccountID)
	assert.True(t, decimal.NewFromInt(600).Equal(txns[1].Allocations[1].Amount))

	require.NoError(t, store.DeleteAllocationsForTransactions(ctx, []string{"tx-1"}))
	txns, err = store.ListTransactions(ctx, testOwner)
	require.NoError(t, err)
	assert.Empty(t, txns[1].Allocations)
	assert.Len(t, txns[0].Allocations, 1)

	// Empty delete is a no-op
	require.NoError(t, store.DeleteAllocationsForTransactions(ctx, nil))

	// Upsert replaces the row
	older.Description = "Corrected"
	require.NoError(t, store.UpsertTransactions(ctx, []service.TransactionRecord{older}))
	txns, err = store.ListTransactions(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "Corrected", txns[1].Description)
}

func TestSQLiteStorage_Distributions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	dist := service.DistributionRecord{
		ID:                 "d1",
		UserID:             testOwner,
		Date:               time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Quarter:            "Q1 2024",
		TotalProfit:        decimal.NewFromInt(3000),
		DistributionAmount: decimal.NewFromInt(1500),
		ToOwners:           decimal.NewFromInt(750),
		ToCompany:          decimal.NewFromInt(750),
	}
	require.NoError(t, store.InsertDistributions(ctx, []service.DistributionRecord{dist}))

	require.NoError(t, store.UpdateDistributionCompleted(ctx, testOwner, "d1", true))
	dists, err := store.ListDistributions(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, dists, 1)
	assert.True(t, dists[0].IsCompleted)
	assert.Equal(t, "Q1 2024", dists[0].Quarter)

	err = store.UpdateDistributionCompleted(ctx, testOwner, "missing", true)
	assert.ErrorIs(t, err, common.ErrNotFound)
	err = store.UpdateDistributionCompleted(ctx, "owner-2", "d1", false)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_Profile(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.GetProfile(ctx, testOwner)
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = store.UpdateProfileCurrency(ctx, testOwner, "EUR")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, store.UpsertProfile(ctx, service.ProfileRecord{ID: testOwner, CurrencySymbol: "USD"}))
	require.NoError(t, store.UpdateProfileCurrency(ctx, testOwner, "EUR"))

	profile, err := store.GetProfile(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, "EUR", profile.CurrencySymbol)
}

func TestSQLiteStorage_Validation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		run     func() error
		wantErr error
		name    string
	}{
		{
			name:    "empty owner",
			run:     func() error { _, err := store.ListAccounts(ctx, " "); return err },
			wantErr: ErrEmptyString,
		},
		{
			name:    "nil accounts",
			run:     func() error { return store.InsertAccounts(ctx, nil) },
			wantErr: ErrNilParameter,
		},
		{
			name:    "account without owner",
			run:     func() error { return store.UpsertAccounts(ctx, []service.AccountRecord{{ID: "x", Type: "TAX"}}) },
			wantErr: ErrInvalidAccount,
		},
		{
			name:    "transaction without date",
			run:     func() error { return store.InsertTransactions(ctx, []service.TransactionRecord{{ID: "x", UserID: testOwner}}) },
			wantErr: ErrInvalidTransaction,
		},
		{
			name:    "allocation without account",
			run:     func() error { return store.InsertAllocations(ctx, []service.AllocationRecord{{ID: "x", TransactionID: "t"}}) },
			wantErr: ErrInvalidAllocation,
		},
		{
			name:    "profile without currency",
			run:     func() error { return store.UpsertProfile(ctx, service.ProfileRecord{ID: testOwner}) },
			wantErr: ErrEmptyString,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.wantErr)
		})
	}
}

func TestSQLiteStorage_Transaction(t *testing.T) {
	tests := []struct {
		txFunc    func(context.Context, *SQLiteStorage) error
		name      string
		wantErr   bool
		wantCount int
	}{
		{
			name: "successful transaction",
			txFunc: func(ctx context.Context, s *SQLiteStorage) error {
				tx, err := s.BeginTx(ctx)
				if err != nil {
					return err
				}
				if err := tx.InsertAccounts(ctx, testAccounts(testOwner)); err != nil {
					_ = tx.Rollback()
					return err
				}
				return tx.Commit()
			},
			wantCount: 3,
		},
		{
			name: "rollback on error",
			txFunc: func(ctx context.Context, s *SQLiteStorage) error {
				tx, err := s.BeginTx(ctx)
				if err != nil {
					return err
				}
				defer func() { _ = tx.Rollback() }()

				if err := tx.InsertAccounts(ctx, testAccounts(testOwner)); err != nil {
					return err
				}
				// Duplicate ids fail the second write
				return tx.InsertAccounts(ctx, testAccounts(testOwner))
			},
			wantErr:   true,
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, cleanup := createTestStorage(t)
			defer cleanup()
			ctx := context.Background()

			err := tt.txFunc(ctx, store)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			count, err := store.CountAccounts(ctx, testOwner)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestSQLiteStorage_TransactionRejectsNesting(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	_, err = tx.BeginTx(ctx)
	assert.Error(t, err)
	assert.Error(t, tx.Migrate(ctx))
	assert.Error(t, tx.Close())
}

func TestSQLiteStorage_Migrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	store1, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store1.Migrate(ctx))
	_ = store1.Close()

	// Running migrations again should not error
	store2, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = store2.Close() }()
	require.NoError(t, store2.Migrate(ctx))

	version, err := store2.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	require.NoError(t, store2.InsertAccounts(ctx, testAccounts(testOwner)))
}

func TestSQLiteStorage_RejectsUnknownAccountType(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	err := store.InsertAccounts(context.Background(), []service.AccountRecord{
		{ID: "x", UserID: testOwner, Name: "Savings", Type: "SAVINGS"},
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrDuplicateEntry)
}
