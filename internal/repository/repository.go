// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vinovest/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrAlreadyLinked is returned when an identity is bound to a different external uid.
	ErrAlreadyLinked = errors.New("identity already linked")
	// ErrLastAdmin is returned when a change would leave no active admin.
	ErrLastAdmin = errors.New("last active admin")
)

// Repository is the credential store. It wraps sqlx for all identity tables.
type Repository struct {
	db  *sqlx.DB
	now func() time.Time
}

// New creates a new Repository instance.
func New(db *sqlx.DB) *Repository {
	return &Repository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock returns a copy of the repository that reads time from now.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	return &Repository{
		db:  r.db,
		now: func() time.Time { return now().UTC() },
	}
}

// DB returns the underlying database handle.
func (r *Repository) DB() *sqlx.DB {
	return r.db
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// inTx runs fn inside a transaction. The DSN sets _txlock=immediate so the
// write lock is taken at BEGIN and concurrent transactions serialize.
func (r *Repository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapError(err)
	}
	return nil
}

// wrapError converts driver errors to repository errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) && isUniqueViolation(se) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func isUniqueViolation(se *sqlite.Error) bool {
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}
