// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// RefreshToken records an issued refresh token by its jti when rotation is enabled.
type RefreshToken struct { //nolint:govet // fieldalignment: readability over optimization
	JTI        string     `db:"jti" json:"jti"`
	UserID     int64      `db:"user_id" json:"user_id"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	RevokedAt  *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	ReplacedBy *string    `db:"replaced_by" json:"replaced_by,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
