// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cafedir/internal/model"
)

const userColumns = "id, email, password_hash, role, created_at, updated_at, last_login_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	if err != nil {
		return u, fmt.Errorf("scanning user: %w", err)
	}
	return u, nil
}

// GetUserByEmail looks a user up by their login email.
// Returns ErrNotFound when the email is not registered.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ?", email)
	return scanUser(row)
}

// GetUserByID fetches a user by primary key.
// Returns ErrNotFound when no such user exists.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// CountUsers returns the number of registered users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// CreateUserParams holds the fields required to create a user.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Role         string
}

// CreateUser inserts a new user and returns the stored record.
// Returns ErrDuplicateEmail when the email is already registered and
// ErrAdminExists when the admin role is already taken; both are enforced by
// UNIQUE constraints, so they hold under concurrent registration.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	now := time.Now()
	res, err := q.db.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		arg.Email, arg.PasswordHash, arg.Role, now, now)
	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return model.User{}, ErrDuplicateEmail
		}
		if isUniqueViolation(err, "users.role") {
			return model.User{}, ErrAdminExists
		}
		return model.User{}, fmt.Errorf("inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("reading user id: %w", err)
	}

	return q.GetUserByID(ctx, id)
}

// UpdateUserLastLogin stamps the user's last successful login time.
func (q *Queries) UpdateUserLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?", at, at, id)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}

// UpdateUserPassword replaces the stored password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
		passwordHash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}
