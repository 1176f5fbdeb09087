package repository

import (
	"context"
	"fmt"

	"videohub/internal/domain"
)

// The refresh_token column is the only session state. Every write below is a
// single-column UPDATE; no other field is read, validated or rewritten.

// SetRefreshToken overwrites the user's current refresh token.
func (r *UserRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	tx := r.db.WithContext(ctx).Model(&userModel{}).
		Where("id = ?", userID).
		Update("refresh_token", token)
	if tx.Error != nil {
		return fmt.Errorf("set refresh token: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClearRefreshToken removes the stored refresh token. Clearing an already
// empty value or an unknown user is not an error.
func (r *UserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).Model(&userModel{}).
		Where("id = ?", userID).
		Update("refresh_token", nil).Error
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken returns the stored token and whether one is present.
func (r *UserRepository) GetRefreshToken(ctx context.Context, userID string) (string, bool, error) {
	var m userModel
	err := r.db.WithContext(ctx).Select("id", "refresh_token").Where("id = ?", userID).First(&m).Error
	if err != nil {
		return "", false, notFound(err)
	}
	if m.RefreshToken == nil || *m.RefreshToken == "" {
		return "", false, nil
	}
	return *m.RefreshToken, true, nil
}

// CompareAndSwapRefreshToken replaces the stored token only if it still equals
// expected. An empty next clears the column. It reports whether the swap
// happened.
func (r *UserRepository) CompareAndSwapRefreshToken(ctx context.Context, userID, expected, next string) (bool, error) {
	var value any = next
	if next == "" {
		value = nil
	}
	tx := r.db.WithContext(ctx).Model(&userModel{}).
		Where("id = ? AND refresh_token = ?", userID, expected).
		Update("refresh_token", value)
	if tx.Error != nil {
		return false, fmt.Errorf("swap refresh token: %w", tx.Error)
	}
	return tx.RowsAffected == 1, nil
}

// ListStoredSessions returns every user that currently holds a refresh token.
func (r *UserRepository) ListStoredSessions(ctx context.Context) ([]domain.StoredSession, error) {
	var rows []userModel
	err := r.db.WithContext(ctx).Select("id", "refresh_token").
		Where("refresh_token IS NOT NULL AND refresh_token <> ''").
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]domain.StoredSession, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.StoredSession{UserID: row.ID, Token: *row.RefreshToken})
	}
	return out, nil
}
