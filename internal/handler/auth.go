// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"cafedir/internal/auth"
	"cafedir/internal/middleware"
	"cafedir/internal/model"
	"cafedir/internal/render"
	"cafedir/internal/store"
)

// Flash messages shown on failed credential checks. The wording stays
// stable so returning visitors recognize the prompts.
const (
	msgUnknownEmail      = "This email does not exist. Please try again"
	msgWrongPassword     = "Your password is incorrect. Please try again"
	msgUserAlreadyExists = "Such user already exists. Log in!"
)

// AuthHandler handles authentication routes.
type AuthHandler struct {
	queries        *store.Queries
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager) *AuthHandler {
	return &AuthHandler{
		queries:        store.New(db),
		renderer:       renderer,
		sessionManager: sm,
	}
}

// authFormData carries submitted values back to the auth templates.
type authFormData struct {
	Email string
}

// LoginForm renders the login page. Authenticated users are sent home.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if userID := h.sessionManager.GetInt64(r.Context(), middleware.SessionKeyUserID); userID > 0 {
		http.Redirect(w, r, redirectRoot, http.StatusSeeOther)
		return
	}

	if err := h.renderer.Render(w, r, "login", render.TemplateData{
		Title: "Log in",
		User:  middleware.GetUser(r),
		Data:  authFormData{},
	}); err != nil {
		logAndInternalError(w, "failed to render login page", "error", err)
	}
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectLogin) {
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")

	if email == "" || password == "" {
		flashError(w, r, h.renderer, redirectLogin, "Email and password are required")
		return
	}

	user, err := h.queries.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.Warn("login failed: unknown email", "email", email, "remote_addr", r.RemoteAddr)
			flashError(w, r, h.renderer, redirectLogin, msgUnknownEmail)
			return
		}
		logAndInternalError(w, "database error during login", "error", err)
		return
	}

	valid, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		slog.Error("password check error", "error", err, "user_id", user.ID)
		flashError(w, r, h.renderer, redirectLogin, msgWrongPassword)
		return
	}
	if !valid {
		slog.Warn("login failed: invalid password", "user_id", user.ID, "remote_addr", r.RemoteAddr)
		flashError(w, r, h.renderer, redirectLogin, msgWrongPassword)
		return
	}

	// Re-hash if the stored hash uses outdated parameters
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			if err := h.queries.UpdateUserPassword(r.Context(), user.ID, newHash); err != nil {
				slog.Error("failed to re-hash password", "error", err, "user_id", user.ID)
			} else {
				slog.Info("password re-hashed with updated parameters", "user_id", user.ID)
			}
		}
	}

	if err := h.queries.UpdateUserLastLogin(r.Context(), user.ID, time.Now()); err != nil {
		// Don't block login on this error
		slog.Error("failed to update last login time", "error", err, "user_id", user.ID)
	}

	// Regenerate session ID to prevent session fixation
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}

	h.sessionManager.Put(r.Context(), middleware.SessionKeyUserID, user.ID)

	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)
	http.Redirect(w, r, redirectRoot, http.StatusSeeOther)
}

// RegisterForm renders the registration page. Authenticated users are sent home.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if userID := h.sessionManager.GetInt64(r.Context(), middleware.SessionKeyUserID); userID > 0 {
		http.Redirect(w, r, redirectRoot, http.StatusSeeOther)
		return
	}

	if err := h.renderer.Render(w, r, "register", render.TemplateData{
		Title: "Register",
		User:  middleware.GetUser(r),
		Data:  authFormData{},
	}); err != nil {
		logAndInternalError(w, "failed to render register page", "error", err)
	}
}

// Register handles the registration form submission. The very first account
// created on a fresh database becomes the admin; everyone after is a member.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectRegister) {
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")

	if email == "" || password == "" {
		flashError(w, r, h.renderer, redirectRegister, "Email and password are required")
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		logAndInternalError(w, "failed to hash password", "error", err)
		return
	}

	role := model.RoleMember
	count, err := h.queries.CountUsers(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to count users", "error", err)
		return
	}
	if count == 0 {
		role = model.RoleAdmin
	}

	user, err := h.queries.CreateUser(r.Context(), store.CreateUserParams{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if errors.Is(err, store.ErrAdminExists) {
		// A concurrent registration won the race for the first account; the
		// unique index on the admin role caught it, this one joins as member.
		slog.Info("concurrent first registration, demoting to member", "email", email)
		role = model.RoleMember
		user, err = h.queries.CreateUser(r.Context(), store.CreateUserParams{
			Email:        email,
			PasswordHash: hash,
			Role:         role,
		})
	}
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			flashError(w, r, h.renderer, redirectLogin, msgUserAlreadyExists)
			return
		}
		logAndInternalError(w, "failed to create user", "error", err)
		return
	}

	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), middleware.SessionKeyUserID, user.ID)

	slog.Info("user registered", "user_id", user.ID, "email", user.Email, "role", user.Role)
	http.Redirect(w, r, redirectRoot, http.StatusSeeOther)
}

// Logout destroys the session and sends the visitor home.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	// Get user ID for logging before destroying session
	userID := h.sessionManager.GetInt64(r.Context(), middleware.SessionKeyUserID)

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	if userID > 0 {
		slog.Info("user logged out", "user_id", userID)
	}
	flashAndRedirect(w, r, h.renderer, redirectRoot, "You have been logged out", "info")
}
