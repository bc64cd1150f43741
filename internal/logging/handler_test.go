package logging

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"cafedir/internal/model"
	"cafedir/internal/store"
	"cafedir/internal/testutil"
)

// discardHandler is a slog.Handler that discards all logs.
type discardHandler struct{}

func (h discardHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(string) slog.Handler             { return h }

func recentEvents(t *testing.T, q *store.Queries) []model.Event {
	t.Helper()

	events, err := q.ListRecentEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	return events
}

func TestEventLogHandler_Handle_ErrorLevel(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	handler := NewEventLogHandler(discardHandler{}, db)
	logger := slog.New(handler)

	logger.Error("database connection failed", "host", "localhost", "port", 5432)

	time.Sleep(50 * time.Millisecond)

	q := store.New(db)
	events := recentEvents(t, q)

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	if events[0].Level != model.EventLevelError {
		t.Errorf("Level = %q, want %q", events[0].Level, model.EventLevelError)
	}
	if events[0].Message != "database connection failed" {
		t.Errorf("Message = %q, want %q", events[0].Message, "database connection failed")
	}
	if !strings.Contains(events[0].Metadata, `"host":"localhost"`) {
		t.Errorf("Metadata = %q, want host attribute", events[0].Metadata)
	}
}

func TestEventLogHandler_Handle_WarnLevel(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	handler := NewEventLogHandler(discardHandler{}, db)
	logger := slog.New(handler)

	logger.Warn("slow query detected", "duration_ms", 5000)

	time.Sleep(50 * time.Millisecond)

	events := recentEvents(t, store.New(db))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	if events[0].Level != model.EventLevelWarning {
		t.Errorf("Level = %q, want %q", events[0].Level, model.EventLevelWarning)
	}
}

func TestEventLogHandler_Handle_InfoLevel_NotCaptured(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	handler := NewEventLogHandler(discardHandler{}, db)
	logger := slog.New(handler)

	logger.Info("server started")

	time.Sleep(50 * time.Millisecond)

	events := recentEvents(t, store.New(db))
	if len(events) != 0 {
		t.Fatalf("expected 0 events for INFO level, got %d", len(events))
	}
}

func TestEventLogHandler_CategoryInference(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	handler := NewEventLogHandler(discardHandler{}, db)
	logger := slog.New(handler)

	testCases := []struct {
		message          string
		expectedCategory string
	}{
		{"login failed for account", model.EventCategoryAuth},
		{"admin route denied", model.EventCategoryAuth},
		{"suggestion notification failed", model.EventCategorySuggest},
		{"cafe delete failed", model.EventCategoryCafe},
		{"unknown error occurred", model.EventCategorySystem},
	}

	for _, tc := range testCases {
		// Clear events first
		_, _ = db.Exec("DELETE FROM events")

		logger.Error(tc.message)
		time.Sleep(50 * time.Millisecond)

		events := recentEvents(t, store.New(db))
		if len(events) != 1 {
			t.Errorf("message %q: expected 1 event, got %d", tc.message, len(events))
			continue
		}

		if events[0].Category != tc.expectedCategory {
			t.Errorf("message %q: Category = %q, want %q", tc.message, events[0].Category, tc.expectedCategory)
		}
	}
}

func TestEventLogHandler_ExplicitCategory(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	handler := NewEventLogHandler(discardHandler{}, db)
	logger := slog.New(handler)

	// Explicit category attribute overrides inference
	logger.Error("something happened", "category", model.EventCategorySuggest)
	time.Sleep(50 * time.Millisecond)

	events := recentEvents(t, store.New(db))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	if events[0].Category != model.EventCategorySuggest {
		t.Errorf("Category = %q, want %q", events[0].Category, model.EventCategorySuggest)
	}
	if strings.Contains(events[0].Metadata, "category") {
		t.Errorf("Metadata should not repeat the category attribute: %q", events[0].Metadata)
	}
}

func TestEscapeJSON(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`plain`, `plain`},
		{`with "quotes"`, `with \"quotes\"`},
		{"line\nbreak", `line\nbreak`},
		{`back\slash`, `back\\slash`},
	}

	for _, tt := range tests {
		if got := escapeJSON(tt.input); got != tt.expected {
			t.Errorf("escapeJSON(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
