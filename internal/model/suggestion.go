// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Suggestion delivery states.
const (
	SuggestionPending   = "pending"
	SuggestionDelivered = "delivered"
	SuggestionFailed    = "failed"
)

// Suggestion is a visitor-submitted cafe proposal queued for notification.
type Suggestion struct {
	ID          int64
	Reference   string // opaque uuid used in logs and operator mail
	Name        string
	MapURL      string
	Location    string
	SiteURL     string
	Status      string
	Error       sql.NullString
	CreatedAt   time.Time
	DeliveredAt sql.NullTime
}
