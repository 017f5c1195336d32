// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package testutil

import (
	"context"
	"database/sql"
	"errors"

	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
	"codeberg.org/oliverandrich/talentgate-identity/internal/repository"
)

// CountUsers returns the total number of identities.
func CountUsers(ctx context.Context, repo *repository.Repository) (int64, error) {
	var count int64
	err := repo.DB().GetContext(ctx, &count, `SELECT COUNT(*) FROM users`)
	return count, err
}

// GetResetCode returns the stored code for (userID, purpose).
func GetResetCode(ctx context.Context, repo *repository.Repository, userID int64, purpose models.ResetPurpose) (*models.ResetCode, error) {
	var code models.ResetCode
	err := repo.DB().GetContext(ctx, &code, `
		SELECT id, user_id, code_hash, purpose, expires_at, created_at
		FROM reset_codes WHERE user_id = ? AND purpose = ?`, userID, purpose)
	if err != nil {
		return nil, notFound(err)
	}
	return &code, nil
}

// GetRefreshToken returns the refresh token record for jti.
func GetRefreshToken(ctx context.Context, repo *repository.Repository, jti string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := repo.DB().GetContext(ctx, &token, `
		SELECT jti, user_id, expires_at, revoked_at, replaced_by, created_at
		FROM refresh_tokens WHERE jti = ?`, jti)
	if err != nil {
		return nil, notFound(err)
	}
	return &token, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}
