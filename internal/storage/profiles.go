package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/profitfirst/internal/common"
	"github.com/Veraticus/profitfirst/internal/service"
)

// GetProfile returns the owner's profile or common.ErrNotFound.
func (s *SQLiteStorage) GetProfile(ctx context.Context, userID string) (*service.ProfileRecord, error) {
	if err := validateOwner(ctx, userID); err != nil {
		return nil, err
	}
	return s.getProfileTx(ctx, s.db, userID)
}

// UpsertProfile creates the profile or replaces its currency symbol.
func (s *SQLiteStorage) UpsertProfile(ctx context.Context, profile service.ProfileRecord) error {
	if err := validateProfile(ctx, profile); err != nil {
		return err
	}
	return s.upsertProfileTx(ctx, s.db, profile)
}

// UpdateProfileCurrency changes an existing profile's currency symbol.
// It returns common.ErrNotFound when the owner has no profile row.
func (s *SQLiteStorage) UpdateProfileCurrency(ctx context.Context, userID, currencySymbol string) error {
	if err := validateOwner(ctx, userID); err != nil {
		return err
	}
	return s.updateProfileCurrencyTx(ctx, s.db, userID, currencySymbol)
}

func (s *SQLiteStorage) getProfileTx(ctx context.Context, q queryable, userID string) (*service.ProfileRecord, error) {
	var profile service.ProfileRecord
	err := q.QueryRowContext(ctx, `
		SELECT id, currency_symbol, updated_at FROM profiles WHERE id = ?
	`, userID).Scan(&profile.ID, &profile.CurrencySymbol, &profile.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", userID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

func (s *SQLiteStorage) upsertProfileTx(ctx context.Context, q queryable, profile service.ProfileRecord) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO profiles (id, currency_symbol, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			currency_symbol = excluded.currency_symbol,
			updated_at = excluded.updated_at
	`, profile.ID, profile.CurrencySymbol, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) updateProfileCurrencyTx(ctx context.Context, q queryable, userID, currencySymbol string) error {
	result, err := q.ExecContext(ctx, `
		UPDATE profiles SET currency_symbol = ?, updated_at = ? WHERE id = ?
	`, currencySymbol, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to update profile currency: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("profile %s: %w", userID, common.ErrNotFound)
	}
	return nil
}
