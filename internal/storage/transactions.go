package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/profitfirst/internal/service"
)

// ListTransactions returns the owner's transactions, newest first, each with
// its allocations in insertion order.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, userID string) ([]service.TransactionRecord, error) {
	if err := validateOwner(ctx, userID); err != nil {
		return nil, err
	}
	return s.listTransactionsTx(ctx, s.db, userID)
}

// InsertTransactions inserts transaction rows. Allocations are written separately.
func (s *SQLiteStorage) InsertTransactions(ctx context.Context, transactions []service.TransactionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}
	return s.inTx(ctx, func(q queryable) error {
		return s.writeTransactionsTx(ctx, q, transactions, false)
	})
}

// UpsertTransactions inserts transaction rows or updates them in place by id.
func (s *SQLiteStorage) UpsertTransactions(ctx context.Context, transactions []service.TransactionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}
	return s.inTx(ctx, func(q queryable) error {
		return s.writeTransactionsTx(ctx, q, transactions, true)
	})
}

// InsertAllocations inserts allocation rows.
func (s *SQLiteStorage) InsertAllocations(ctx context.Context, allocations []service.AllocationRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAllocations(allocations); err != nil {
		return err
	}
	return s.inTx(ctx, func(q queryable) error {
		return s.insertAllocationsTx(ctx, q, allocations)
	})
}

// DeleteAllocationsForTransactions removes every allocation belonging to the given transactions.
func (s *SQLiteStorage) DeleteAllocationsForTransactions(ctx context.Context, transactionIDs []string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.inTx(ctx, func(q queryable) error {
		return s.deleteAllocationsTx(ctx, q, transactionIDs)
	})
}

func (s *SQLiteStorage) listTransactionsTx(ctx context.Context, q queryable, userID string) ([]service.TransactionRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, date, description, total_amount, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY date DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	var transactions []service.TransactionRecord
	index := make(map[string]int)
	for rows.Next() {
		var txn service.TransactionRecord
		if err := rows.Scan(
			&txn.ID,
			&txn.UserID,
			&txn.Date,
			&txn.Description,
			&txn.TotalAmount,
			&txn.CreatedAt,
		); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.Date = txn.Date.UTC()
		index[txn.ID] = len(transactions)
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	// Single connection: the first cursor must be closed before the next query
	_ = rows.Close()

	allocRows, err := q.QueryContext(ctx, `
		SELECT a.id, a.transaction_id, a.account_id, a.amount
		FROM transaction_allocations a
		JOIN transactions t ON t.id = a.transaction_id
		WHERE t.user_id = ?
		ORDER BY a.rowid ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer func() { _ = allocRows.Close() }()

	for allocRows.Next() {
		var alloc service.AllocationRecord
		if err := allocRows.Scan(&alloc.ID, &alloc.TransactionID, &alloc.AccountID, &alloc.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		if i, ok := index[alloc.TransactionID]; ok {
			transactions[i].Allocations = append(transactions[i].Allocations, alloc)
		}
	}

	return transactions, allocRows.Err()
}

const insertTransactionSQL = `
	INSERT INTO transactions (id, user_id, date, description, total_amount, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

const upsertTransactionSQL = insertTransactionSQL + `
	ON CONFLICT(id) DO UPDATE SET
		date = excluded.date,
		description = excluded.description,
		total_amount = excluded.total_amount
	WHERE transactions.user_id = excluded.user_id`

func (s *SQLiteStorage) writeTransactionsTx(ctx context.Context, q queryable, transactions []service.TransactionRecord, upsert bool) error {
	query := insertTransactionSQL
	if upsert {
		query = upsertTransactionSQL
	}

	for _, txn := range transactions {
		_, err := q.ExecContext(ctx, query,
			txn.ID,
			txn.UserID,
			txn.Date.UTC(),
			txn.Description,
			txn.TotalAmount,
			createdAt(txn.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to write transaction %s: %w", txn.ID, classifyError(err))
		}
	}
	return nil
}

func (s *SQLiteStorage) insertAllocationsTx(ctx context.Context, q queryable, allocations []service.AllocationRecord) error {
	for _, alloc := range allocations {
		_, err := q.ExecContext(ctx, `
			INSERT INTO transaction_allocations (id, transaction_id, account_id, amount)
			VALUES (?, ?, ?, ?)
		`, alloc.ID, alloc.TransactionID, alloc.AccountID, alloc.Amount)
		if err != nil {
			return fmt.Errorf("failed to insert allocation for transaction %s: %w", alloc.TransactionID, classifyError(err))
		}
	}
	return nil
}

// maxDeleteBatch stays well under SQLite's bound parameter limit.
const maxDeleteBatch = 500

func (s *SQLiteStorage) deleteAllocationsTx(ctx context.Context, q queryable, transactionIDs []string) error {
	for start := 0; start < len(transactionIDs); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(transactionIDs))
		batch := transactionIDs[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}

		// #nosec G202 - only placeholders are concatenated
		query := "DELETE FROM transaction_allocations WHERE transaction_id IN (" + placeholders + ")"
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to delete allocations: %w", err)
		}
	}
	return nil
}
