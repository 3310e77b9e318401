package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/profitfirst/internal/common"
	"github.com/Veraticus/profitfirst/internal/service"
)

// ListDistributions returns the owner's profit distributions, newest first.
func (s *SQLiteStorage) ListDistributions(ctx context.Context, userID string) ([]service.DistributionRecord, error) {
	if err := validateOwner(ctx, userID); err != nil {
		return nil, err
	}
	return s.listDistributionsTx(ctx, s.db, userID)
}

// InsertDistributions inserts new profit distributions.
func (s *SQLiteStorage) InsertDistributions(ctx context.Context, distributions []service.DistributionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDistributions(distributions); err != nil {
		return err
	}
	return s.inTx(ctx, func(q queryable) error {
		return s.writeDistributionsTx(ctx, q, distributions, false)
	})
}

// UpsertDistributions inserts profit distributions or updates them in place by id.
func (s *SQLiteStorage) UpsertDistributions(ctx context.Context, distributions []service.DistributionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDistributions(distributions); err != nil {
		return err
	}
	return s.inTx(ctx, func(q queryable) error {
		return s.writeDistributionsTx(ctx, q, distributions, true)
	})
}

// UpdateDistributionCompleted sets the completion flag of one distribution.
func (s *SQLiteStorage) UpdateDistributionCompleted(ctx context.Context, userID, id string, completed bool) error {
	if err := validateOwner(ctx, userID); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.updateDistributionCompletedTx(ctx, s.db, userID, id, completed)
}

func (s *SQLiteStorage) listDistributionsTx(ctx context.Context, q queryable, userID string) ([]service.DistributionRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, date, quarter, total_profit, distribution_amount,
		       to_owners, to_company, notes, is_completed, created_at
		FROM profit_distributions
		WHERE user_id = ?
		ORDER BY date DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query profit distributions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var distributions []service.DistributionRecord
	for rows.Next() {
		var d service.DistributionRecord
		if err := rows.Scan(
			&d.ID,
			&d.UserID,
			&d.Date,
			&d.Quarter,
			&d.TotalProfit,
			&d.DistributionAmount,
			&d.ToOwners,
			&d.ToCompany,
			&d.Notes,
			&d.IsCompleted,
			&d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan profit distribution: %w", err)
		}
		d.Date = d.Date.UTC()
		distributions = append(distributions, d)
	}

	return distributions, rows.Err()
}

const insertDistributionSQL = `
	INSERT INTO profit_distributions (
		id, user_id, date, quarter, total_profit, distribution_amount,
		to_owners, to_company, notes, is_completed, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const upsertDistributionSQL = insertDistributionSQL + `
	ON CONFLICT(id) DO UPDATE SET
		date = excluded.date,
		quarter = excluded.quarter,
		total_profit = excluded.total_profit,
		distribution_amount = excluded.distribution_amount,
		to_owners = excluded.to_owners,
		to_company = excluded.to_company,
		notes = excluded.notes,
		is_completed = excluded.is_completed
	WHERE profit_distributions.user_id = excluded.user_id`

func (s *SQLiteStorage) writeDistributionsTx(ctx context.Context, q queryable, distributions []service.DistributionRecord, upsert bool) error {
	query := insertDistributionSQL
	if upsert {
		query = upsertDistributionSQL
	}

	for _, d := range distributions {
		_, err := q.ExecContext(ctx, query,
			d.ID,
			d.UserID,
			d.Date.UTC(),
			d.Quarter,
			d.TotalProfit,
			d.DistributionAmount,
			d.ToOwners,
			d.ToCompany,
			d.Notes,
			d.IsCompleted,
			createdAt(d.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to write profit distribution %s: %w", d.ID, classifyError(err))
		}
	}
	return nil
}

func (s *SQLiteStorage) updateDistributionCompletedTx(ctx context.Context, q queryable, userID, id string, completed bool) error {
	result, err := q.ExecContext(ctx, `
		UPDATE profit_distributions SET is_completed = ?
		WHERE id = ? AND user_id = ?
	`, completed, id, userID)
	if err != nil {
		return fmt.Errorf("failed to update profit distribution %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("profit distribution %s: %w", id, common.ErrNotFound)
	}
	return nil
}
