// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Company is the read-only part of a company record needed to resolve a
// recruiter's association.
type Company struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	RecruiterID *int64    `db:"recruiter_id" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
