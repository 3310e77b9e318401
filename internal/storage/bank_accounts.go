package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/profitfirst/internal/service"
)

// ListBankAccounts returns the owner's bank accounts in creation order.
func (s *SQLiteStorage) ListBankAccounts(ctx context.Context, userID string) ([]service.BankAccountRecord, error) {
	if err := validateOwner(ctx, userID); err != nil {
		return nil, err
	}
	return s.listBankAccountsTx(ctx, s.db, userID)
}

// InsertBankAccounts inserts new bank accounts.
func (s *SQLiteStorage) InsertBankAccounts(ctx context.Context, bankAccounts []service.BankAccountRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBankAccounts(bankAccounts); err != nil {
		return err
	}
	return s.inTx(ctx, func(q queryable) error {
		return s.writeBankAccountsTx(ctx, q, bankAccounts, false)
	})
}

// UpsertBankAccounts inserts bank accounts or updates them in place by id.
func (s *SQLiteStorage) UpsertBankAccounts(ctx context.Context, bankAccounts []service.BankAccountRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBankAccounts(bankAccounts); err != nil {
		return err
	}
	return s.inTx(ctx, func(q queryable) error {
		return s.writeBankAccountsTx(ctx, q, bankAccounts, true)
	})
}

func (s *SQLiteStorage) listBankAccountsTx(ctx context.Context, q queryable, userID string) ([]service.BankAccountRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, bank_name, branch_name, account_number, account_type,
		       routing_number, swift_code, created_at
		FROM bank_accounts
		WHERE user_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bank accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var bankAccounts []service.BankAccountRecord
	for rows.Next() {
		var ba service.BankAccountRecord
		var routing, swift sql.NullString
		if err := rows.Scan(
			&ba.ID,
			&ba.UserID,
			&ba.BankName,
			&ba.BranchName,
			&ba.AccountNumber,
			&ba.AccountType,
			&routing,
			&swift,
			&ba.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bank account: %w", err)
		}
		ba.RoutingNumber = routing.String
		ba.SwiftCode = swift.String
		bankAccounts = append(bankAccounts, ba)
	}

	return bankAccounts, rows.Err()
}

const insertBankAccountSQL = `
	INSERT INTO bank_accounts (
		id, user_id, bank_name, branch_name, account_number, account_type,
		routing_number, swift_code, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

const upsertBankAccountSQL = insertBankAccountSQL + `
	ON CONFLICT(id) DO UPDATE SET
		bank_name = excluded.bank_name,
		branch_name = excluded.branch_name,
		account_number = excluded.account_number,
		account_type = excluded.account_type,
		routing_number = excluded.routing_number,
		swift_code = excluded.swift_code
	WHERE bank_accounts.user_id = excluded.user_id`

func (s *SQLiteStorage) writeBankAccountsTx(ctx context.Context, q queryable, bankAccounts []service.BankAccountRecord, upsert bool) error {
	query := insertBankAccountSQL
	if upsert {
		query = upsertBankAccountSQL
	}

	for _, ba := range bankAccounts {
		_, err := q.ExecContext(ctx, query,
			ba.ID,
			ba.UserID,
			ba.BankName,
			ba.BranchName,
			ba.AccountNumber,
			ba.AccountType,
			nullString(ba.RoutingNumber),
			nullString(ba.SwiftCode),
			createdAt(ba.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to write bank account %s: %w", ba.ID, classifyError(err))
		}
	}
	return nil
}
