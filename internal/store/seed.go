package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"cafedir/internal/auth"
	"cafedir/internal/model"
)

// Seed provisions the admin account from configuration when the users table
// is empty. The first account to exist always carries the admin role; when no
// seed credentials are configured, the first self-registered user gets it
// instead (see the register handler).
func Seed(ctx context.Context, db *sql.DB, adminEmail, adminPassword string) error {
	queries := New(db)

	count, err := queries.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if count > 0 {
		slog.Info("users already exist, skipping seed")
		return nil
	}

	if adminEmail == "" || adminPassword == "" {
		slog.Info("no seed admin configured; first registered user will become admin")
		return nil
	}

	passwordHash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user, err := queries.CreateUser(ctx, CreateUserParams{
		Email:        adminEmail,
		PasswordHash: passwordHash,
		Role:         model.RoleAdmin,
	})
	if err != nil {
		// Lost a race with a concurrent first registration; that user is admin now.
		if errors.Is(err, ErrDuplicateEmail) {
			slog.Warn("seed admin already registered", "email", adminEmail)
			return nil
		}
		return fmt.Errorf("creating admin user: %w", err)
	}

	slog.Info("created seed admin user", "id", user.ID, "email", user.Email)
	return nil
}
