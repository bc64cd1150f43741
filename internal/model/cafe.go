// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// AmenityFilter selects at most one boolean amenity column when listing cafes.
type AmenityFilter string

// Amenity filter values. FilterNone returns the unfiltered list.
const (
	FilterNone     AmenityFilter = ""
	FilterWifi     AmenityFilter = "wifi"
	FilterSockets  AmenityFilter = "sockets"
	FilterToilet   AmenityFilter = "toilet"
	FilterCalls    AmenityFilter = "calls"
)

// ParseAmenityFilter maps a user-supplied filter value to an AmenityFilter.
// Unrecognized values fall back to FilterNone (the full list).
func ParseAmenityFilter(s string) AmenityFilter {
	switch AmenityFilter(s) {
	case FilterWifi, FilterSockets, FilterToilet, FilterCalls:
		return AmenityFilter(s)
	default:
		return FilterNone
	}
}

// Cafe represents a directory entry.
type Cafe struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	MapURL       string         `json:"map_url"`
	ImgURL       string         `json:"img_url"`
	Location     string         `json:"location"`
	Seats        string         `json:"seats"` // free-text capacity descriptor
	HasToilet    bool           `json:"has_toilet"`
	HasWifi      bool           `json:"has_wifi"`
	HasSockets   bool           `json:"has_sockets"`
	CanTakeCalls bool           `json:"can_take_calls"`
	CoffeePrice  sql.NullString `json:"coffee_price,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
