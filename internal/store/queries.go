// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// Sentinel errors returned by the query layer. Uniqueness is enforced by the
// UNIQUE constraints in the schema, never by check-then-insert in Go, so two
// concurrent registrations for one email can never both succeed.
var (
	// ErrDuplicateEmail is returned when a user email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateName is returned when a cafe name is already taken.
	ErrDuplicateName = errors.New("cafe name already exists")
	// ErrAdminExists is returned when an insert would create a second admin.
	ErrAdminExists = errors.New("admin user already exists")
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
)

// DBTX is the subset of *sql.DB / *sql.Tx the query layer needs.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries provides typed access to the database.
type Queries struct {
	db DBTX
}

// New creates a Queries instance bound to the given database handle.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure on the
// given column (e.g. "users.email").
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}
