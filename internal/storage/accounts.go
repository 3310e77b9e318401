package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/Veraticus/profitfirst/internal/common"
	"github.com/Veraticus/profitfirst/internal/service"
)

// ListAccounts returns the owner's accounts in creation order.
func (s *SQLiteStorage) ListAccounts(ctx context.Context, userID string) ([]service.AccountRecord, error) {
	if err := validateOwner(ctx, userID); err != nil {
		return nil, err
	}
	return s.listAccountsTx(ctx, s.db, userID)
}

// CountAccounts returns how many accounts the owner has.
func (s *SQLiteStorage) CountAccounts(ctx context.Context, userID string) (int, error) {
	if err := validateOwner(ctx, userID); err != nil {
		return 0, err
	}
	return s.countAccountsTx(ctx, s.db, userID)
}

// InsertAccounts inserts new accounts; an existing id is a duplicate entry error.
func (s *SQLiteStorage) InsertAccounts(ctx context.Context, accounts []service.AccountRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccounts(accounts); err != nil {
		return err
	}
	return s.inTx(ctx, func(q queryable) error {
		return s.writeAccountsTx(ctx, q, accounts, false)
	})
}

// UpsertAccounts inserts accounts or updates them in place by id.
func (s *SQLiteStorage) UpsertAccounts(ctx context.Context, accounts []service.AccountRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccounts(accounts); err != nil {
		return err
	}
	return s.inTx(ctx, func(q queryable) error {
		return s.writeAccountsTx(ctx, q, accounts, true)
	})
}

func (s *SQLiteStorage) listAccountsTx(ctx context.Context, q queryable, userID string) ([]service.AccountRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, name, type, target_percentage, current_percentage,
		       balance, bank_account_id, created_at
		FROM accounts
		WHERE user_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []service.AccountRecord
	for rows.Next() {
		var acc service.AccountRecord
		var bankAccountID sql.NullString
		if err := rows.Scan(
			&acc.ID,
			&acc.UserID,
			&acc.Name,
			&acc.Type,
			&acc.TargetPercentage,
			&acc.CurrentPercentage,
			&acc.Balance,
			&bankAccountID,
			&acc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		acc.BankAccountID = bankAccountID.String
		accounts = append(accounts, acc)
	}

	return accounts, rows.Err()
}

func (s *SQLiteStorage) countAccountsTx(ctx context.Context, q queryable, userID string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

const insertAccountSQL = `
	INSERT INTO accounts (
		id, user_id, name, type, target_percentage, current_percentage,
		balance, bank_account_id, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

const upsertAccountSQL = insertAccountSQL + `
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		type = excluded.type,
		target_percentage = excluded.target_percentage,
		current_percentage = excluded.current_percentage,
		balance = excluded.balance,
		bank_account_id = excluded.bank_account_id
	WHERE accounts.user_id = excluded.user_id`

func (s *SQLiteStorage) writeAccountsTx(ctx context.Context, q queryable, accounts []service.AccountRecord, upsert bool) error {
	query := insertAccountSQL
	if upsert {
		query = upsertAccountSQL
	}

	for _, acc := range accounts {
		_, err := q.ExecContext(ctx, query,
			acc.ID,
			acc.UserID,
			acc.Name,
			acc.Type,
			acc.TargetPercentage,
			acc.CurrentPercentage,
			acc.Balance,
			nullString(acc.BankAccountID),
			createdAt(acc.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to write account %s: %w", acc.ID, classifyError(err))
		}
	}
	return nil
}

// classifyError maps key violations onto common.ErrDuplicateEntry and
// foreign key violations onto ErrMissingReference, keeping the driver message.
func classifyError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%w: %s", common.ErrDuplicateEntry, sqliteErr.Error())
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %s", ErrMissingReference, sqliteErr.Error())
		}
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
