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

const suggestionColumns = "id, reference, name, map_url, location, site_url, status, error, created_at, delivered_at"

func scanSuggestion(scan func(dest ...any) error) (model.Suggestion, error) {
	var s model.Suggestion
	err := scan(&s.ID, &s.Reference, &s.Name, &s.MapURL, &s.Location, &s.SiteURL,
		&s.Status, &s.Error, &s.CreatedAt, &s.DeliveredAt)
	return s, err
}

// CreateSuggestionParams holds the fields for a queued cafe suggestion.
type CreateSuggestionParams struct {
	Reference string
	Name      string
	MapURL    string
	Location  string
	SiteURL   string
}

// CreateSuggestion persists a visitor suggestion in the pending state.
func (q *Queries) CreateSuggestion(ctx context.Context, arg CreateSuggestionParams) (model.Suggestion, error) {
	res, err := q.db.ExecContext(ctx,
		"INSERT INTO suggestions (reference, name, map_url, location, site_url, status) VALUES (?, ?, ?, ?, ?, ?)",
		arg.Reference, arg.Name, arg.MapURL, arg.Location, arg.SiteURL, model.SuggestionPending)
	if err != nil {
		return model.Suggestion{}, fmt.Errorf("inserting suggestion: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Suggestion{}, fmt.Errorf("reading suggestion id: %w", err)
	}
	return q.GetSuggestionByID(ctx, id)
}

// GetSuggestionByID fetches a suggestion. Returns ErrNotFound for unknown ids.
func (q *Queries) GetSuggestionByID(ctx context.Context, id int64) (model.Suggestion, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+suggestionColumns+" FROM suggestions WHERE id = ?", id)
	s, err := scanSuggestion(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	if err != nil {
		return s, fmt.Errorf("scanning suggestion: %w", err)
	}
	return s, nil
}

// UpdateSuggestionDeliveryParams records the outcome of a delivery attempt.
type UpdateSuggestionDeliveryParams struct {
	ID          int64
	Status      string
	Error       sql.NullString
	DeliveredAt sql.NullTime
}

// UpdateSuggestionDelivery marks a suggestion delivered or failed.
func (q *Queries) UpdateSuggestionDelivery(ctx context.Context, arg UpdateSuggestionDeliveryParams) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE suggestions SET status = ?, error = ?, delivered_at = ? WHERE id = ?",
		arg.Status, arg.Error, arg.DeliveredAt, arg.ID)
	if err != nil {
		return fmt.Errorf("updating suggestion delivery: %w", err)
	}
	return nil
}

// ListPendingSuggestionsBefore returns pending suggestions created before the
// cutoff, oldest first. Suggestions sit pending when the notifier queue was
// full or the notifier was down; housekeeping re-queues them from here.
func (q *Queries) ListPendingSuggestionsBefore(ctx context.Context, cutoff time.Time, limit int64) ([]model.Suggestion, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+suggestionColumns+" FROM suggestions WHERE status = ? AND created_at < ? ORDER BY id LIMIT ?",
		model.SuggestionPending, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("listing pending suggestions: %w", err)
	}
	defer rows.Close()

	var suggestions []model.Suggestion
	for rows.Next() {
		s, err := scanSuggestion(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning suggestion: %w", err)
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, rows.Err()
}

// DeleteSuggestionsBefore prunes delivered suggestions older than the cutoff.
func (q *Queries) DeleteSuggestionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		"DELETE FROM suggestions WHERE status = ? AND created_at < ?",
		model.SuggestionDelivered, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning suggestions: %w", err)
	}
	return res.RowsAffected()
}
