// Package service defines the interfaces for all application services.
package service

import (
	"context"
)

// Storage defines the contract for our persistence layer. Every owner-scoped
// operation is filtered by the owner id it is given.
type Storage interface {
	// Account operations
	ListAccounts(ctx context.Context, userID string) ([]AccountRecord, error)
	CountAccounts(ctx context.Context, userID string) (int, error)
	InsertAccounts(ctx context.Context, accounts []AccountRecord) error
	UpsertAccounts(ctx context.Context, accounts []AccountRecord) error

	// Bank account operations
	ListBankAccounts(ctx context.Context, userID string) ([]BankAccountRecord, error)
	InsertBankAccounts(ctx context.Context, bankAccounts []BankAccountRecord) error
	UpsertBankAccounts(ctx context.Context, bankAccounts []BankAccountRecord) error

	// Transaction operations
	ListTransactions(ctx context.Context, userID string) ([]TransactionRecord, error)
	InsertTransactions(ctx context.Context, transactions []TransactionRecord) error
	UpsertTransactions(ctx context.Context, transactions []TransactionRecord) error

	// Allocation operations
	InsertAllocations(ctx context.Context, allocations []AllocationRecord) error
	DeleteAllocationsForTransactions(ctx context.Context, transactionIDs []string) error

	// Profit distribution operations
	ListDistributions(ctx context.Context, userID string) ([]DistributionRecord, error)
	InsertDistributions(ctx context.Context, distributions []DistributionRecord) error
	UpsertDistributions(ctx context.Context, distributions []DistributionRecord) error
	UpdateDistributionCompleted(ctx context.Context, userID, id string, completed bool) error

	// Profile operations
	GetProfile(ctx context.Context, userID string) (*ProfileRecord, error)
	UpsertProfile(ctx context.Context, profile ProfileRecord) error
	UpdateProfileCurrency(ctx context.Context, userID, currencySymbol string) error

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}
