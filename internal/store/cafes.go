// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cafedir/internal/model"
)

const cafeColumns = "id, name, map_url, img_url, location, seats, " +
	"has_toilet, has_wifi, has_sockets, can_take_calls, coffee_price, created_at"

func scanCafe(scan func(dest ...any) error) (model.Cafe, error) {
	var c model.Cafe
	err := scan(&c.ID, &c.Name, &c.MapURL, &c.ImgURL, &c.Location, &c.Seats,
		&c.HasToilet, &c.HasWifi, &c.HasSockets, &c.CanTakeCalls, &c.CoffeePrice, &c.CreatedAt)
	return c, err
}

// amenityColumn maps a filter to its schema column. FilterNone maps to "".
func amenityColumn(filter model.AmenityFilter) string {
	switch filter {
	case model.FilterWifi:
		return "has_wifi"
	case model.FilterToilet:
		return "has_toilet"
	case model.FilterSockets:
		return "has_sockets"
	case model.FilterCalls:
		return "can_take_calls"
	default:
		return ""
	}
}

// ListCafes returns cafes matching the given amenity filter, ordered by id so
// repeated calls without intervening writes return the same sequence.
// FilterNone (or an unrecognized filter) returns the full list.
func (q *Queries) ListCafes(ctx context.Context, filter model.AmenityFilter) ([]model.Cafe, error) {
	query := "SELECT " + cafeColumns + " FROM cafes"
	if col := amenityColumn(filter); col != "" {
		query += " WHERE " + col + " = 1"
	}
	query += " ORDER BY id"

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing cafes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cafes []model.Cafe
	for rows.Next() {
		c, err := scanCafe(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning cafe: %w", err)
		}
		cafes = append(cafes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cafes: %w", err)
	}
	return cafes, nil
}

// GetCafeByID fetches a single cafe. Returns ErrNotFound when the id is unknown.
func (q *Queries) GetCafeByID(ctx context.Context, id int64) (model.Cafe, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+cafeColumns+" FROM cafes WHERE id = ?", id)
	c, err := scanCafe(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	if err != nil {
		return c, fmt.Errorf("scanning cafe: %w", err)
	}
	return c, nil
}

// CreateCafeParams holds the fields required to create a cafe entry.
type CreateCafeParams struct {
	Name         string
	MapURL       string
	ImgURL       string
	Location     string
	Seats        string
	HasToilet    bool
	HasWifi      bool
	HasSockets   bool
	CanTakeCalls bool
	CoffeePrice  sql.NullString
}

// CreateCafe inserts a new cafe and returns the stored record.
// Returns ErrDuplicateName when the name is already taken.
func (q *Queries) CreateCafe(ctx context.Context, arg CreateCafeParams) (model.Cafe, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO cafes
			(name, map_url, img_url, location, seats, has_toilet, has_wifi, has_sockets, can_take_calls, coffee_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Name, arg.MapURL, arg.ImgURL, arg.Location, arg.Seats,
		arg.HasToilet, arg.HasWifi, arg.HasSockets, arg.CanTakeCalls, arg.CoffeePrice)
	if err != nil {
		if isUniqueViolation(err, "cafes.name") {
			return model.Cafe{}, ErrDuplicateName
		}
		return model.Cafe{}, fmt.Errorf("inserting cafe: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.Cafe{}, fmt.Errorf("reading cafe id: %w", err)
	}

	return q.GetCafeByID(ctx, id)
}

// DeleteCafe removes a cafe by id.
// Returns ErrNotFound when no row was deleted, leaving the table unchanged.
func (q *Queries) DeleteCafe(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM cafes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting cafe: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
