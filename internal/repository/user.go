// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"strings"

	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
	"github.com/vinovest/sqlx"
)

const userColumns = `id, email, password_hash, full_name, role, is_active, external_uid,
	auth_provider, email_verified, photo_url, last_login_at, created_at, updated_at`

// UserUpdate is a partial update; nil fields are left unchanged.
type UserUpdate struct {
	FullName      *string
	PhotoURL      *string
	EmailVerified *bool
	Role          *models.Role
	IsActive      *bool
	PasswordHash  *string
}

func (u UserUpdate) empty() bool {
	return u.FullName == nil && u.PhotoURL == nil && u.EmailVerified == nil &&
		u.Role == nil && u.IsActive == nil && u.PasswordHash == nil
}

// CreateUser inserts a new identity and fills in its ID and timestamps.
// A duplicate email or external uid yields ErrDuplicate.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	now := r.now()
	user.Email = models.NormalizeEmail(user.Email)
	if user.Role == "" {
		user.Role = models.RoleCandidate
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, full_name, role, is_active, external_uid,
			auth_provider, email_verified, photo_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Email, user.PasswordHash, user.FullName, user.Role, user.IsActive, user.ExternalUID,
		user.AuthProvider, user.EmailVerified, user.PhotoURL, now, now)
	if err != nil {
		return wrapError(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	return nil
}

// GetUserByID retrieves an identity by its ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves an identity by email, case-insensitively.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = ?`,
		models.NormalizeEmail(email))
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByExternalUID retrieves the identity bound to an external provider uid.
func (r *Repository) GetUserByExternalUID(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE external_uid = ?`, uid)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// UpdateUser applies a partial update to an identity.
func (r *Repository) UpdateUser(ctx context.Context, id int64, upd UserUpdate) error {
	if upd.empty() {
		return nil
	}

	var sets []string
	var args []any
	if upd.FullName != nil {
		sets = append(sets, "full_name = ?")
		args = append(args, *upd.FullName)
	}
	if upd.PhotoURL != nil {
		sets = append(sets, "photo_url = ?")
		args = append(args, *upd.PhotoURL)
	}
	if upd.EmailVerified != nil {
		sets = append(sets, "email_verified = ?")
		args = append(args, *upd.EmailVerified)
	}
	if upd.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, *upd.Role)
	}
	if upd.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *upd.IsActive)
	}
	if upd.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *upd.PasswordHash)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, r.now(), id)

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return wrapError(err)
	}
	return requireAffected(res)
}

// UpdateUserPassword replaces an identity's password hash.
func (r *Repository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	return r.UpdateUser(ctx, id, UserUpdate{PasswordHash: &passwordHash})
}

// SetUserRole changes an identity's role. Demoting the last active admin
// fails with ErrLastAdmin.
func (r *Repository) SetUserRole(ctx context.Context, id int64, role models.Role) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if role != models.RoleAdmin {
			if err := guardLastAdmin(ctx, tx, id); err != nil {
				return err
			}
		}
		return r.updateColumn(ctx, tx, id, "role", role)
	})
}

// SetUserActive activates or deactivates an identity. Deactivating the last
// active admin fails with ErrLastAdmin.
func (r *Repository) SetUserActive(ctx context.Context, id int64, active bool) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if !active {
			if err := guardLastAdmin(ctx, tx, id); err != nil {
				return err
			}
		}
		return r.updateColumn(ctx, tx, id, "is_active", active)
	})
}

// guardLastAdmin runs inside an immediate transaction, so the count cannot
// change before the caller's update commits.
func guardLastAdmin(ctx context.Context, tx *sqlx.Tx, id int64) error {
	var current struct {
		Role     models.Role `db:"role"`
		IsActive bool        `db:"is_active"`
	}
	if err := tx.GetContext(ctx, &current, `SELECT role, is_active FROM users WHERE id = ?`, id); err != nil {
		return wrapError(err)
	}
	if current.Role != models.RoleAdmin || !current.IsActive {
		return nil
	}

	var admins int64
	if err := tx.GetContext(ctx, &admins,
		`SELECT COUNT(*) FROM users WHERE role = ? AND is_active = 1`, models.RoleAdmin); err != nil {
		return err
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

// updateColumn sets a single trusted column name.
func (r *Repository) updateColumn(ctx context.Context, tx *sqlx.Tx, id int64, column string, value any) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET `+column+` = ?, updated_at = ? WHERE id = ?`, value, r.now(), id)
	if err != nil {
		return wrapError(err)
	}
	return requireAffected(res)
}

// TouchLastLogin records a successful sign-in.
func (r *Repository) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, r.now(), id)
	return err
}

// LinkExternalIdentity binds uid to the identity. The update only applies
// when the identity is unlinked or already bound to the same uid; otherwise
// ErrAlreadyLinked. A uid bound to another identity yields ErrDuplicate.
func (r *Repository) LinkExternalIdentity(ctx context.Context, id int64, uid string, provider models.AuthProvider) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET external_uid = ?, auth_provider = ?, updated_at = ?
		WHERE id = ? AND (external_uid IS NULL OR external_uid = ?)`,
		uid, provider, r.now(), id, uid)
	if err != nil {
		return wrapError(err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := r.GetUserByID(ctx, id); err != nil {
		return err
	}
	return ErrAlreadyLinked
}

// UnlinkExternalIdentity clears the external uid and provider. Returns
// ErrNotFound when the identity does not exist or has nothing linked.
func (r *Repository) UnlinkExternalIdentity(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET external_uid = NULL, auth_provider = NULL, updated_at = ?
		WHERE id = ? AND external_uid IS NOT NULL`,
		r.now(), id)
	if err != nil {
		return wrapError(err)
	}
	return requireAffected(res)
}

// CountAdmins returns the number of active admin identities.
func (r *Repository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM users WHERE role = ? AND is_active = 1`, models.RoleAdmin)
	return count, err
}


type rowsAffected interface {
	RowsAffected() (int64, error)
}

func requireAffected(res rowsAffected) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
