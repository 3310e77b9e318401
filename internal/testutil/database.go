// Package testutil provides shared database fixtures for package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/profitfirst/internal/service"
	"github.com/Veraticus/profitfirst/internal/storage"
)

// TestDB represents a migrated in-memory test database.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.SeedAccounts("owner-1", accounts...)
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	Path string // Defaults to :memory:
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	path := opts.Path
	if path == "" {
		path = ":memory:"
	}

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	ctx := context.Background()

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// SeedAccounts inserts accounts for owner or fails the test.
func (db *TestDB) SeedAccounts(owner string, accounts ...service.AccountRecord) {
	db.t.Helper()
	for i := range accounts {
		accounts[i].UserID = owner
	}
	if err := db.Storage.InsertAccounts(context.Background(), accounts); err != nil {
		db.t.Fatalf("failed to seed accounts: %v", err)
	}
}

// MustListAccounts returns the owner's accounts or fails the test.
func (db *TestDB) MustListAccounts(owner string) []service.AccountRecord {
	db.t.Helper()
	accounts, err := db.Storage.ListAccounts(context.Background(), owner)
	if err != nil {
		db.t.Fatalf("failed to list accounts: %v", err)
	}
	return accounts
}
