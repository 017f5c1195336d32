// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/vinovest/sqlx"
)

// CreateRefreshToken records an issued refresh token.
func (r *Repository) CreateRefreshToken(ctx context.Context, jti string, userID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (jti, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)`, jti, userID, expiresAt.UTC(), r.now())
	return wrapError(err)
}

// RotateRefreshToken revokes oldJTI and records newJTI as its replacement.
// Only a token that is still unrevoked can be rotated; otherwise ErrNotFound.
func (r *Repository) RotateRefreshToken(ctx context.Context, oldJTI, newJTI string, userID int64, expiresAt time.Time) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		now := r.now()
		res, err := tx.ExecContext(ctx, `
			UPDATE refresh_tokens SET revoked_at = ?, replaced_by = ?
			WHERE jti = ? AND user_id = ? AND revoked_at IS NULL`,
			now, newJTI, oldJTI, userID)
		if err != nil {
			return err
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO refresh_tokens (jti, user_id, expires_at, created_at)
			VALUES (?, ?, ?, ?)`, newJTI, userID, expiresAt.UTC(), now)
		return wrapError(err)
	})
}

// RevokeUserRefreshTokens revokes every live refresh token of an identity.
func (r *Repository) RevokeUserRefreshTokens(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = ?
		WHERE user_id = ? AND revoked_at IS NULL`, r.now(), userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpiredRefreshTokens removes refresh tokens past their expiry.
func (r *Repository) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= ?`, r.now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
