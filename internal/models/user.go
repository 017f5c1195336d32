// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"strings"
	"time"
)

// User is a local identity. PasswordHash is nil for social-only accounts,
// ExternalUID is nil until an external provider identity is linked.
type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID            int64         `db:"id" json:"id"`
	Email         string        `db:"email" json:"email"`
	PasswordHash  *string       `db:"password_hash" json:"-"`
	FullName      string        `db:"full_name" json:"full_name"`
	Role          Role          `db:"role" json:"role"`
	IsActive      bool          `db:"is_active" json:"is_active"`
	ExternalUID   *string       `db:"external_uid" json:"external_uid,omitempty"`
	AuthProvider  *AuthProvider `db:"auth_provider" json:"auth_provider,omitempty"`
	EmailVerified bool          `db:"email_verified" json:"email_verified"`
	PhotoURL      *string       `db:"photo_url" json:"photo_url,omitempty"`
	LastLoginAt   *time.Time    `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// HasPassword reports whether the identity can log in with a local password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// IsLinked reports whether an external provider identity is bound.
func (u *User) IsLinked() bool {
	return u.ExternalUID != nil && *u.ExternalUID != ""
}

// NormalizeEmail trims and lower-cases an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
