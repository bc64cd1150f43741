// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"cafedir/internal/middleware"
	"cafedir/internal/notify"
	"cafedir/internal/render"
	"cafedir/internal/store"
)

// SuggestHandler handles visitor cafe suggestions.
type SuggestHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
	notifier *notify.Notifier
}

// NewSuggestHandler creates a new SuggestHandler.
func NewSuggestHandler(db *sql.DB, renderer *render.Renderer, notifier *notify.Notifier) *SuggestHandler {
	return &SuggestHandler{
		queries:  store.New(db),
		renderer: renderer,
		notifier: notifier,
	}
}

// suggestFormData carries submitted values back to the suggest template.
type suggestFormData struct {
	Name     string
	MapURL   string
	Location string
	SiteURL  string
}

// SuggestForm renders the suggestion page.
func (h *SuggestHandler) SuggestForm(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Render(w, r, "suggest", render.TemplateData{
		Title: "Suggest a cafe",
		User:  middleware.GetUser(r),
		Data:  suggestFormData{},
	}); err != nil {
		logAndInternalError(w, "failed to render suggest page", "error", err)
	}
}

// Suggest handles the suggestion form submission. The suggestion is persisted
// first, then queued for email delivery; a slow or failing relay never costs
// the visitor their confirmation.
func (h *SuggestHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectSuggest) {
		return
	}

	form := suggestFormData{
		Name:     r.FormValue("name"),
		MapURL:   r.FormValue("map_url"),
		Location: r.FormValue("location"),
		SiteURL:  r.FormValue("cafe_site"),
	}

	if form.Name == "" || form.MapURL == "" || form.Location == "" {
		flashError(w, r, h.renderer, redirectSuggest, "Name, map url and location are required")
		return
	}
	if !isHTTPURL(form.MapURL) {
		flashError(w, r, h.renderer, redirectSuggest, "Map url must be a valid http(s) URL")
		return
	}
	if form.SiteURL != "" && !isHTTPURL(form.SiteURL) {
		flashError(w, r, h.renderer, redirectSuggest, "Cafe site must be a valid http(s) URL")
		return
	}

	suggestion, err := h.queries.CreateSuggestion(r.Context(), store.CreateSuggestionParams{
		Reference: uuid.NewString(),
		Name:      form.Name,
		MapURL:    form.MapURL,
		Location:  form.Location,
		SiteURL:   form.SiteURL,
	})
	if err != nil {
		logAndInternalError(w, "failed to store suggestion", "error", err)
		return
	}

	h.notifier.Enqueue(suggestion)

	slog.Info("cafe suggestion received",
		"suggestion_id", suggestion.ID,
		"reference", suggestion.Reference,
		"name", suggestion.Name)
	flashSuccess(w, r, h.renderer, redirectRoot, "Thanks! Your suggestion has been sent.")
}

// isHTTPURL reports whether s parses as an absolute http or https URL.
func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
