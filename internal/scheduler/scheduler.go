// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic housekeeping jobs.
package scheduler

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"cafedir/internal/model"
	"cafedir/internal/store"
)

// Retention windows for housekeeping.
const (
	EventRetention      = 90 * 24 * time.Hour
	SuggestionRetention = 30 * 24 * time.Hour

	// PendingRetryAge is how long a suggestion must sit pending before
	// housekeeping re-queues it. Young pending rows may still be in flight.
	PendingRetryAge = 15 * time.Minute

	// pendingRetryLimit caps one sweep at the notifier queue capacity.
	pendingRetryLimit = 100
)

// SuggestionQueue accepts suggestions for asynchronous delivery.
// Satisfied by *notify.Notifier.
type SuggestionQueue interface {
	Enqueue(s model.Suggestion)
}

// Scheduler handles periodic cleanup of old events and delivered suggestions,
// and re-queues suggestions whose notification never left the queue.
type Scheduler struct {
	db     *sql.DB
	cron   *cron.Cron
	logger *slog.Logger
	queue  SuggestionQueue
}

// New creates a new scheduler instance.
func New(db *sql.DB, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		db:     db,
		cron:   cron.New(),
		logger: logger,
	}
}

// SetNotifier wires the notifier that housekeeping re-queues stale pending
// suggestions into. Without one the retry pass is skipped.
func (s *Scheduler) SetNotifier(queue SuggestionQueue) {
	s.queue = queue
}

// Start begins the scheduler with a daily housekeeping job.
func (s *Scheduler) Start() error {
	// Run once a day at 03:30
	_, err := s.cron.AddFunc("30 3 * * *", func() {
		if err := s.runHousekeeping(); err != nil {
			s.logger.Error("housekeeping run failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// runHousekeeping prunes old event log entries and delivered suggestions,
// then re-queues stale pending suggestions for another delivery attempt.
func (s *Scheduler) runHousekeeping() error {
	ctx := context.Background()
	queries := store.New(s.db)
	now := time.Now()

	eventsRemoved, err := queries.DeleteEventsBefore(ctx, now.Add(-EventRetention))
	if err != nil {
		return err
	}

	suggestionsRemoved, err := queries.DeleteSuggestionsBefore(ctx, now.Add(-SuggestionRetention))
	if err != nil {
		return err
	}

	if err := s.retryPendingSuggestions(ctx, queries, now); err != nil {
		s.logger.Error("pending suggestion retry failed", "error", err)
	}

	if eventsRemoved == 0 && suggestionsRemoved == 0 {
		return nil
	}

	s.logger.Info("housekeeping completed",
		"events_removed", eventsRemoved,
		"suggestions_removed", suggestionsRemoved,
	)

	metadata := map[string]interface{}{
		"events_removed":      eventsRemoved,
		"suggestions_removed": suggestionsRemoved,
		"run_at":              now.Format(time.RFC3339),
	}
	metadataJSON, _ := json.Marshal(metadata)

	_, err = queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     model.EventLevelInfo,
		Category:  model.EventCategorySystem,
		Message:   "Housekeeping removed expired records",
		UserID:    sql.NullInt64{}, // System action, no user
		Metadata:  string(metadataJSON),
		CreatedAt: now,
	})
	if err != nil {
		s.logger.Warn("failed to log housekeeping event", "error", err)
	}

	return nil
}

// retryPendingSuggestions hands suggestions stuck in the pending state back
// to the notifier. Only rows older than PendingRetryAge are touched so a
// suggestion still sitting in the live queue is never delivered twice.
func (s *Scheduler) retryPendingSuggestions(ctx context.Context, queries *store.Queries, now time.Time) error {
	if s.queue == nil {
		return nil
	}

	stale, err := queries.ListPendingSuggestionsBefore(ctx, now.Add(-PendingRetryAge), pendingRetryLimit)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	for _, suggestion := range stale {
		s.queue.Enqueue(suggestion)
	}
	s.logger.Info("re-queued stale pending suggestions", "count", len(stale))
	return nil
}
