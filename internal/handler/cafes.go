// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"cafedir/internal/middleware"
	"cafedir/internal/model"
	"cafedir/internal/render"
	"cafedir/internal/store"
)

// CafeHandler handles cafe browsing and admin management routes.
type CafeHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
}

// NewCafeHandler creates a new CafeHandler.
func NewCafeHandler(db *sql.DB, renderer *render.Renderer) *CafeHandler {
	return &CafeHandler{
		queries:  store.New(db),
		renderer: renderer,
	}
}

// indexData is the view model for the cafe listing page.
type indexData struct {
	Filter string
	Cafes  []model.Cafe
}

// cafeFormData carries submitted values back to the add-cafe template.
type cafeFormData struct {
	Name         string
	MapURL       string
	ImgURL       string
	Location     string
	Seats        string
	CoffeePrice  string
	HasWifi      bool
	HasSockets   bool
	HasToilet    bool
	CanTakeCalls bool
}

// Index renders the cafe listing, optionally narrowed by a single amenity
// filter from the query string. Unknown filter values show the full list.
func (h *CafeHandler) Index(w http.ResponseWriter, r *http.Request) {
	filter := model.ParseAmenityFilter(r.URL.Query().Get("filter"))

	cafes, err := h.queries.ListCafes(r.Context(), filter)
	if err != nil {
		logAndInternalError(w, "failed to list cafes", "error", err)
		return
	}

	if err := h.renderer.Render(w, r, "index", render.TemplateData{
		Title: "All cafes",
		User:  middleware.GetUser(r),
		Data:  indexData{Filter: string(filter), Cafes: cafes},
	}); err != nil {
		logAndInternalError(w, "failed to render index page", "error", err)
	}
}

// Filter handles the filter form submission and redirects to the filtered
// listing so the result has a shareable URL.
func (h *CafeHandler) Filter(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectRoot) {
		return
	}

	target := redirectRoot
	if filter := model.ParseAmenityFilter(r.FormValue("filter")); filter != model.FilterNone {
		target = redirectRoot + "?filter=" + string(filter)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Show renders a single cafe's detail page. Unknown ids get a 404.
func (h *CafeHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	cafe, err := h.queries.GetCafeByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		logAndInternalError(w, "failed to get cafe", "error", err, "cafe_id", id)
		return
	}

	if err := h.renderer.Render(w, r, "cafe", render.TemplateData{
		Title: cafe.Name,
		User:  middleware.GetUser(r),
		Data:  cafe,
	}); err != nil {
		logAndInternalError(w, "failed to render cafe page", "error", err)
	}
}

// AddForm renders the admin cafe creation page.
func (h *CafeHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Render(w, r, "add", render.TemplateData{
		Title: "Add a cafe",
		User:  middleware.GetUser(r),
		Data:  cafeFormData{},
	}); err != nil {
		logAndInternalError(w, "failed to render add page", "error", err)
	}
}

// Add handles the admin cafe creation form submission.
func (h *CafeHandler) Add(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectCafeAdd) {
		return
	}

	form := cafeFormData{
		Name:         r.FormValue("name"),
		MapURL:       r.FormValue("map_url"),
		ImgURL:       r.FormValue("img_url"),
		Location:     r.FormValue("location"),
		Seats:        r.FormValue("seats"),
		CoffeePrice:  r.FormValue("coffee_price"),
		HasWifi:      r.FormValue("has_wifi") != "",
		HasSockets:   r.FormValue("has_sockets") != "",
		HasToilet:    r.FormValue("has_toilet") != "",
		CanTakeCalls: r.FormValue("can_take_calls") != "",
	}

	if form.Name == "" || form.MapURL == "" || form.ImgURL == "" ||
		form.Location == "" || form.Seats == "" {
		flashError(w, r, h.renderer, redirectCafeAdd, "All fields except coffee price are required")
		return
	}
	if !isHTTPURL(form.MapURL) {
		flashError(w, r, h.renderer, redirectCafeAdd, "Map url must be a valid http(s) URL")
		return
	}

	coffeePrice := sql.NullString{}
	if form.CoffeePrice != "" {
		coffeePrice = sql.NullString{String: form.CoffeePrice, Valid: true}
	}

	cafe, err := h.queries.CreateCafe(r.Context(), store.CreateCafeParams{
		Name:         form.Name,
		MapURL:       form.MapURL,
		ImgURL:       form.ImgURL,
		Location:     form.Location,
		Seats:        form.Seats,
		HasWifi:      form.HasWifi,
		HasSockets:   form.HasSockets,
		HasToilet:    form.HasToilet,
		CanTakeCalls: form.CanTakeCalls,
		CoffeePrice:  coffeePrice,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			flashError(w, r, h.renderer, redirectCafeAdd, "A cafe with this name already exists")
			return
		}
		logAndInternalError(w, "failed to create cafe", "error", err, "name", form.Name)
		return
	}

	slog.Info("cafe added", "cafe_id", cafe.ID, "name", cafe.Name,
		"user_id", middleware.GetUserID(r))
	flashSuccess(w, r, h.renderer, redirectRoot, "Cafe added successfully")
}

// Delete removes a cafe by id. Deleting an id that never existed (or was
// already removed) gets a 404 and leaves the directory unchanged.
func (h *CafeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if err := h.queries.DeleteCafe(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		logAndInternalError(w, "failed to delete cafe", "error", err, "cafe_id", id)
		return
	}

	slog.Info("cafe deleted", "cafe_id", id, "user_id", middleware.GetUserID(r))
	flashSuccess(w, r, h.renderer, redirectRoot, "Cafe deleted successfully")
}
