// Package storage provides the data persistence layer for profitfirst.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/profitfirst/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// openSQLite opens a single-connection WAL database, creating its directory.
func openSQLite(dbPath string) (*sql.DB, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections, and :memory: needs exactly one
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// NewCheckpointManager creates a new checkpoint manager for this storage instance.
func (s *SQLiteStorage) NewCheckpointManager() (*CheckpointManager, error) {
	return NewCheckpointManager(s.db, s.dbPath)
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{
		tx:      tx,
		storage: s,
	}, nil
}

// inTx runs fn inside a short-lived transaction for multi-row writes.
func (s *SQLiteStorage) inTx(ctx context.Context, fn func(q queryable) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// queryable is an interface satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Transaction methods delegate to the main storage with the transaction.
func (t *sqliteTransaction) ListAccounts(ctx context.Context, userID string) ([]service.AccountRecord, error) {
	if err := validateOwner(ctx, userID); err != nil {
		return nil, err
	}
	return t.storage.listAccountsTx(ctx, t.tx, userID)
}

func (t *sqliteTransaction) CountAccounts(ctx context.Context, userID string) (int, error) {
	if err := validateOwner(ctx, userID); err != nil {
		return 0, err
	}
	return t.storage.countAccountsTx(ctx, t.tx, userID)
}

func (t *sqliteTransaction) InsertAccounts(ctx context.Context, accounts []service.AccountRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccounts(accounts); err != nil {
		return err
	}
	return t.storage.writeAccountsTx(ctx, t.tx, accounts, false)
}

func (t *sqliteTransaction) UpsertAccounts(ctx context.Context, accounts []service.AccountRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccounts(accounts); err != nil {
		return err
	}
	return t.storage.writeAccountsTx(ctx, t.tx, accounts, true)
}

func (t *sqliteTransaction) ListBankAccounts(ctx context.Context, userID string) ([]service.BankAccountRecord, error) {
	if err := validateOwner(ctx, userID); err != nil {
		return nil, err
	}
	return t.storage.listBankAccountsTx(ctx, t.tx, userID)
}

func (t *sqliteTransaction) InsertBankAccounts(ctx context.Context, bankAccounts []service.BankAccountRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBankAccounts(bankAccounts); err != nil {
		return err
	}
	return t.storage.writeBankAccountsTx(ctx, t.tx, bankAccounts, false)
}

func (t *sqliteTransaction) UpsertBankAccounts(ctx context.Context, bankAccounts []service.BankAccountRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBankAccounts(bankAccounts); err != nil {
		return err
	}
	return t.storage.writeBankAccountsTx(ctx, t.tx, bankAccounts, true)
}

func (t *sqliteTransaction) ListTransactions(ctx context.Context, userID string) ([]service.TransactionRecord, error) {
	if err := validateOwner(ctx, userID); err != nil {
		return nil, err
	}
	return t.storage.listTransactionsTx(ctx, t.tx, userID)
}

func (t *sqliteTransaction) InsertTransactions(ctx context.Context, transactions []service.TransactionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}
	return t.storage.writeTransactionsTx(ctx, t.tx, transactions, false)
}

func (t *sqliteTransaction) UpsertTransactions(ctx context.Context, transactions []service.TransactionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}
	return t.storage.writeTransactionsTx(ctx, t.tx, transactions, true)
}

func (t *sqliteTransaction) InsertAllocations(ctx context.Context, allocations []service.AllocationRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAllocations(allocations); err != nil {
		return err
	}
	return t.storage.insertAllocationsTx(ctx, t.tx, allocations)
}

func (t *sqliteTransaction) DeleteAllocationsForTransactions(ctx context.Context, transactionIDs []string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.deleteAllocationsTx(ctx, t.tx, transactionIDs)
}

func (t *sqliteTransaction) ListDistributions(ctx context.Context, userID string) ([]service.DistributionRecord, error) {
	if err := validateOwner(ctx, userID); err != nil {
		return nil, err
	}
	return t.storage.listDistributionsTx(ctx, t.tx, userID)
}

func (t *sqliteTransaction) InsertDistributions(ctx context.Context, distributions []service.DistributionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDistributions(distributions); err != nil {
		return err
	}
	return t.storage.writeDistributionsTx(ctx, t.tx, distributions, false)
}

func (t *sqliteTransaction) UpsertDistributions(ctx context.Context, distributions []service.DistributionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDistributions(distributions); err != nil {
		return err
	}
	return t.storage.writeDistributionsTx(ctx, t.tx, distributions, true)
}

func (t *sqliteTransaction) UpdateDistributionCompleted(ctx context.Context, userID, id string, completed bool) error {
	if err := validateOwner(ctx, userID); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return t.storage.updateDistributionCompletedTx(ctx, t.tx, userID, id, completed)
}

func (t *sqliteTransaction) GetProfile(ctx context.Context, userID string) (*service.ProfileRecord, error) {
	if err := validateOwner(ctx, userID); err != nil {
		return nil, err
	}
	return t.storage.getProfileTx(ctx, t.tx, userID)
}

func (t *sqliteTransaction) UpsertProfile(ctx context.Context, profile service.ProfileRecord) error {
	if err := validateProfile(ctx, profile); err != nil {
		return err
	}
	return t.storage.upsertProfileTx(ctx, t.tx, profile)
}

func (t *sqliteTransaction) UpdateProfileCurrency(ctx context.Context, userID, currencySymbol string) error {
	if err := validateOwner(ctx, userID); err != nil {
		return err
	}
	return t.storage.updateProfileCurrencyTx(ctx, t.tx, userID, currencySymbol)
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	// Migrations should not be run within a transaction
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	// Nested transactions not supported
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	// Transactions should be committed or rolled back, not closed
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}
