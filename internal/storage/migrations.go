package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 5

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS accounts (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					name TEXT NOT NULL,
					type TEXT NOT NULL CHECK (type IN ('INCOME', 'PROFIT', 'OWNERS_COMP', 'TAX', 'OPEX')),
					target_percentage REAL NOT NULL DEFAULT 0,
					current_percentage REAL NOT NULL DEFAULT 0,
					balance TEXT NOT NULL DEFAULT '0',
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					date DATETIME NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					total_amount TEXT NOT NULL,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE TABLE IF NOT EXISTS transaction_allocations (
					id TEXT PRIMARY KEY,
					transaction_id TEXT NOT NULL,
					account_id TEXT NOT NULL,
					amount TEXT NOT NULL,
					FOREIGN KEY (transaction_id) REFERENCES transactions(id) ON DELETE CASCADE
				)`,
				`CREATE TABLE IF NOT EXISTS profiles (
					id TEXT PRIMARY KEY,
					currency_symbol TEXT NOT NULL DEFAULT 'USD',
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Add profit distributions",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS profit_distributions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					date DATETIME NOT NULL,
					quarter TEXT NOT NULL,
					total_profit TEXT NOT NULL,
					distribution_amount TEXT NOT NULL,
					to_owners TEXT NOT NULL,
					to_company TEXT NOT NULL,
					notes TEXT NOT NULL DEFAULT '',
					is_completed BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Add bank accounts and account links",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS bank_accounts (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					bank_name TEXT NOT NULL DEFAULT '',
					branch_name TEXT NOT NULL DEFAULT '',
					account_number TEXT NOT NULL DEFAULT '',
					account_type TEXT NOT NULL DEFAULT '',
					routing_number TEXT,
					swift_code TEXT,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
				`ALTER TABLE accounts ADD COLUMN bank_account_id TEXT`,
			)
		},
	},
	{
		Version:     4,
		Description: "Add owner and lookup indexes",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_bank_accounts_user ON bank_accounts(user_id, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date)`,
				`CREATE INDEX IF NOT EXISTS idx_allocations_transaction ON transaction_allocations(transaction_id)`,
				`CREATE INDEX IF NOT EXISTS idx_distributions_user_date ON profit_distributions(user_id, date)`,
				`CREATE TABLE IF NOT EXISTS checkpoint_metadata (
					id TEXT PRIMARY KEY,
					created_at DATETIME NOT NULL,
					description TEXT,
					file_size INTEGER,
					row_counts TEXT,
					schema_version INTEGER,
					is_auto BOOLEAN DEFAULT 0,
					parent_checkpoint TEXT
				)`,
			)
		},
	},
	{
		Version:     5,
		Description: "Reference accounts from allocations",
		Up: func(tx *sql.Tx) error {
			// SQLite cannot add a constraint in place, so the table is rebuilt.
			// Allocations pointing at accounts that no longer exist are dropped.
			return execAll(tx,
				`CREATE TABLE transaction_allocations_new (
					id TEXT PRIMARY KEY,
					transaction_id TEXT NOT NULL,
					account_id TEXT NOT NULL,
					amount TEXT NOT NULL,
					FOREIGN KEY (transaction_id) REFERENCES transactions(id) ON DELETE CASCADE,
					FOREIGN KEY (account_id) REFERENCES accounts(id)
				)`,
				`INSERT INTO transaction_allocations_new (id, transaction_id, account_id, amount)
					SELECT id, transaction_id, account_id, amount
					FROM transaction_allocations
					WHERE account_id IN (SELECT id FROM accounts)`,
				`DROP TABLE transaction_allocations`,
				`ALTER TABLE transaction_allocations_new RENAME TO transaction_allocations`,
				`CREATE INDEX IF NOT EXISTS idx_allocations_transaction ON transaction_allocations(transaction_id)`,
				`CREATE INDEX IF NOT EXISTS idx_allocations_account ON transaction_allocations(account_id)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Migrate brings the schema up to ExpectedSchemaVersion.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reports the database's current PRAGMA user_version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
