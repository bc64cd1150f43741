package handler

import (
	"context"
	"database/sql"
	"io/fs"
	"net/http"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"

	"cafedir/internal/auth"
	"cafedir/internal/middleware"
	"cafedir/internal/model"
	"cafedir/internal/render"
	"cafedir/web"
)

// testDB creates an in-memory SQLite database with the required schema for testing.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'member',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login_at DATETIME
		);
		CREATE INDEX idx_users_email ON users(email);
		CREATE UNIQUE INDEX idx_users_one_admin ON users(role) WHERE role = 'admin';

		CREATE TABLE cafes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			map_url TEXT NOT NULL,
			img_url TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL,
			seats TEXT NOT NULL DEFAULT '',
			has_toilet BOOLEAN NOT NULL DEFAULT 0,
			has_wifi BOOLEAN NOT NULL DEFAULT 0,
			has_sockets BOOLEAN NOT NULL DEFAULT 0,
			can_take_calls BOOLEAN NOT NULL DEFAULT 0,
			coffee_price TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX idx_cafes_name ON cafes(name);

		CREATE TABLE suggestions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reference TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			map_url TEXT NOT NULL,
			location TEXT NOT NULL,
			site_url TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			error TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			delivered_at DATETIME
		);

		CREATE TABLE events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			level TEXT NOT NULL DEFAULT 'info',
			category TEXT NOT NULL DEFAULT 'system',
			message TEXT NOT NULL,
			user_id INTEGER,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);
		CREATE INDEX idx_sessions_expiry ON sessions(expiry);
	`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// testSessionManager creates a session manager for testing.
func testSessionManager(t *testing.T) *scs.SessionManager {
	t.Helper()
	sm := scs.New()
	sm.Lifetime = 24 * time.Hour
	return sm
}

// testRenderer creates a renderer over the embedded templates.
func testRenderer(t *testing.T, sm *scs.SessionManager) *render.Renderer {
	t.Helper()

	sub, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("fs.Sub: %v", err)
	}

	renderer, err := render.New(render.Config{
		TemplatesFS:    sub,
		SessionManager: sm,
		IsDev:          true,
	})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	return renderer
}

// testUser is a test user for insertion into the test database.
type testUser struct {
	Email    string
	Role     string
	Password string
}

// createTestUser creates a test user in the database and returns it.
func createTestUser(t *testing.T, db *sql.DB, user testUser) model.User {
	t.Helper()

	if user.Password == "" {
		user.Password = "password123"
	}
	hash, err := auth.HashPassword(user.Password)
	if err != nil {
		t.Fatalf("failed to hash test password: %v", err)
	}

	now := time.Now()
	result, err := db.Exec(
		`INSERT INTO users (email, password_hash, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		user.Email, hash, user.Role, now, now,
	)
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	id, _ := result.LastInsertId()
	return model.User{
		ID:           id,
		Email:        user.Email,
		PasswordHash: hash,
		Role:         user.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// createTestCafe inserts a cafe row directly and returns its id.
func createTestCafe(t *testing.T, db *sql.DB, name string, wifi, sockets, toilet, calls bool) int64 {
	t.Helper()

	result, err := db.Exec(
		`INSERT INTO cafes (name, map_url, img_url, location, seats, has_wifi, has_sockets, has_toilet, can_take_calls)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		name, "https://maps.example.com/"+name, "https://img.example.com/"+name+".jpg",
		"London", "20-30", wifi, sockets, toilet, calls,
	)
	if err != nil {
		t.Fatalf("failed to create test cafe: %v", err)
	}

	id, _ := result.LastInsertId()
	return id
}

// requestWithURLParams adds chi URL parameters to a request.
func requestWithURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// requestWithSession wraps a request with session context.
func requestWithSession(sm *scs.SessionManager, r *http.Request) *http.Request {
	ctx, err := sm.Load(r.Context(), "")
	if err != nil {
		return r
	}
	return r.WithContext(ctx)
}

// requestWithUser attaches a user to the request context the way LoadUser does.
func requestWithUser(r *http.Request, user model.User) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.ContextKeyUser, user)
	return r.WithContext(ctx)
}

// assertStatus checks if the response status code matches the expected value.
func assertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status = %d; want %d", got, want)
	}
}
