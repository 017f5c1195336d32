// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
	"github.com/vinovest/sqlx"
)

// ReplaceResetCode removes any existing code for (userID, purpose) and stores
// a new one in the same transaction. A hash collision with another live code
// yields ErrDuplicate so the caller can draw a new code.
func (r *Repository) ReplaceResetCode(ctx context.Context, userID int64, purpose models.ResetPurpose, codeHash string, ttl time.Duration) (*models.ResetCode, error) {
	now := r.now()
	code := &models.ResetCode{
		UserID:    userID,
		CodeHash:  codeHash,
		Purpose:   purpose,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM reset_codes WHERE user_id = ? AND purpose = ?`, userID, purpose); err != nil {
			return err
		}
		// Expired codes may still hold the hash until the sweeper runs.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM reset_codes WHERE code_hash = ? AND purpose = ? AND expires_at <= ?`,
			codeHash, purpose, now); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO reset_codes (user_id, code_hash, purpose, expires_at, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			code.UserID, code.CodeHash, code.Purpose, code.ExpiresAt, code.CreatedAt)
		if err != nil {
			return wrapError(err)
		}
		code.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return code, nil
}

// ConsumeResetCode deletes the unexpired code matching codeHash and, in the
// same transaction, stores passwordHash for its owner. The delete is the
// claim: a concurrent consumer of the same code finds no row and gets
// ErrNotFound without touching the password. A deactivated owner also
// yields ErrNotFound and the code is kept.
func (r *Repository) ConsumeResetCode(ctx context.Context, codeHash string, purpose models.ResetPurpose, passwordHash string) (int64, error) {
	var userID int64
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		now := r.now()
		if err := tx.GetContext(ctx, &userID, `
			DELETE FROM reset_codes
			WHERE code_hash = ? AND purpose = ? AND expires_at > ?
			RETURNING user_id`, codeHash, purpose, now); err != nil {
			return wrapError(err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ? AND is_active = 1`,
			passwordHash, now, userID)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// DeleteExpiredResetCodes removes all codes whose expiry has passed.
func (r *Repository) DeleteExpiredResetCodes(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reset_codes WHERE expires_at <= ?`, r.now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
