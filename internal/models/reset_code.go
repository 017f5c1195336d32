// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// ResetCode is a single-use numeric code. Only the SHA256 hash is stored.
type ResetCode struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64        `db:"id" json:"id"`
	UserID    int64        `db:"user_id" json:"user_id"`
	CodeHash  string       `db:"code_hash" json:"-"`
	Purpose   ResetPurpose `db:"purpose" json:"purpose"`
	ExpiresAt time.Time    `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// Expired reports whether the code is no longer usable at now.
func (c *ResetCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
