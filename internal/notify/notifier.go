// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package notify delivers cafe suggestion notifications by email.
// Deliveries run on a small worker pool so the suggest handler never
// blocks on SMTP; each outcome is persisted on the suggestion row.
package notify

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"cafedir/internal/model"
	"cafedir/internal/store"
)

// Sender delivers a single rendered message. Implemented by smtpSender in
// production and by fakes in tests.
type Sender interface {
	Send(ctx context.Context, subject, body string) error
}

// SMTPConfig holds outbound mail settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       string
}

// smtpSender sends mail through a plain-auth SMTP relay.
type smtpSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates a Sender backed by net/smtp.
func NewSMTPSender(cfg SMTPConfig) Sender {
	return &smtpSender{cfg: cfg}
}

func (s *smtpSender) Send(_ context.Context, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}

	msg := strings.Join([]string{
		"From: " + s.cfg.From,
		"To: " + s.cfg.To,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{s.cfg.To}, []byte(msg)); err != nil {
		return fmt.Errorf("sending mail via %s: %w", addr, err)
	}
	return nil
}

// QueuedSuggestion represents a suggestion queued for delivery.
type QueuedSuggestion struct {
	SuggestionID int64
	Reference    string
	Name         string
	MapURL       string
	Location     string
	SiteURL      string
}

// Config holds notifier configuration.
type Config struct {
	Workers int // Number of concurrent delivery workers
}

// DefaultConfig returns default notifier configuration.
func DefaultConfig() Config {
	return Config{
		Workers: 2,
	}
}

// Notifier queues suggestion notifications and delivers them asynchronously.
type Notifier struct {
	queries *store.Queries
	sender  Sender
	logger  *slog.Logger
	queue   chan *QueuedSuggestion
	workers int
	wg      sync.WaitGroup
	done    chan struct{}
	mu      sync.RWMutex
	running bool
}

// New creates a new suggestion notifier. A nil sender disables actual
// delivery; queued suggestions are then marked failed with a config error.
func New(db *sql.DB, sender Sender, logger *slog.Logger, cfg Config) *Notifier {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{
		queries: store.New(db),
		sender:  sender,
		logger:  logger,
		queue:   make(chan *QueuedSuggestion, 100),
		workers: cfg.Workers,
		done:    make(chan struct{}),
	}
}

// Start starts the notifier workers.
func (n *Notifier) Start(ctx context.Context) {
	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		return
	}
	n.running = true
	n.mu.Unlock()

	n.logger.Info("starting suggestion notifier", "workers", n.workers)

	for i := 0; i < n.workers; i++ {
		n.wg.Add(1)
		go n.worker(ctx, i)
	}
}

// Stop stops the notifier and waits for in-flight deliveries to finish.
func (n *Notifier) Stop() {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return
	}
	n.running = false
	n.mu.Unlock()

	n.logger.Info("stopping suggestion notifier")
	close(n.done)
	n.wg.Wait()
	n.logger.Info("suggestion notifier stopped")
}

// Enqueue queues a persisted suggestion for delivery. The write to the
// suggestions table must already have happened; Enqueue never blocks on a
// full queue, leaving the row pending for the scheduler's housekeeping
// retry pass to pick up.
func (n *Notifier) Enqueue(s model.Suggestion) {
	n.mu.RLock()
	running := n.running
	n.mu.RUnlock()

	if !running {
		n.logger.Warn("notifier not running, suggestion left pending",
			"suggestion_id", s.ID, "reference", s.Reference)
		return
	}

	qs := &QueuedSuggestion{
		SuggestionID: s.ID,
		Reference:    s.Reference,
		Name:         s.Name,
		MapURL:       s.MapURL,
		Location:     s.Location,
		SiteURL:      s.SiteURL,
	}

	select {
	case n.queue <- qs:
		n.logger.Debug("suggestion queued for delivery", "suggestion_id", s.ID)
	default:
		n.logger.Warn("notification queue full, suggestion left pending", "suggestion_id", s.ID)
	}
}

// worker processes queued suggestions.
func (n *Notifier) worker(ctx context.Context, id int) {
	defer n.wg.Done()
	n.logger.Debug("notifier worker started", "worker_id", id)

	for {
		select {
		case <-n.done:
			n.logger.Debug("notifier worker stopping", "worker_id", id)
			return
		case <-ctx.Done():
			n.logger.Debug("notifier worker context cancelled", "worker_id", id)
			return
		case qs := <-n.queue:
			n.deliver(ctx, qs)
		}
	}
}

// deliver sends one notification and records the outcome.
func (n *Notifier) deliver(ctx context.Context, qs *QueuedSuggestion) {
	var sendErr error
	if n.sender == nil {
		sendErr = fmt.Errorf("no mail sender configured")
	} else {
		subject, body := formatSuggestion(qs)
		sendErr = n.sender.Send(ctx, subject, body)
	}

	params := store.UpdateSuggestionDeliveryParams{ID: qs.SuggestionID}
	if sendErr != nil {
		params.Status = model.SuggestionFailed
		params.Error = sql.NullString{String: sendErr.Error(), Valid: true}
		n.logger.Error("suggestion notification failed",
			"suggestion_id", qs.SuggestionID,
			"reference", qs.Reference,
			"error", sendErr)
	} else {
		params.Status = model.SuggestionDelivered
		params.DeliveredAt = sql.NullTime{Time: time.Now(), Valid: true}
		n.logger.Info("suggestion notification delivered",
			"suggestion_id", qs.SuggestionID,
			"reference", qs.Reference)
	}

	// Use a fresh context so a cancelled request context cannot lose the outcome.
	updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := n.queries.UpdateSuggestionDelivery(updateCtx, params); err != nil {
		n.logger.Error("failed to record suggestion delivery outcome",
			"suggestion_id", qs.SuggestionID,
			"error", err)
	}
}

// formatSuggestion renders the notification subject and body.
func formatSuggestion(qs *QueuedSuggestion) (subject, body string) {
	subject = "New cafe suggestion: " + qs.Name

	var b strings.Builder
	fmt.Fprintf(&b, "A visitor suggested a new cafe.\r\n\r\n")
	fmt.Fprintf(&b, "Reference: %s\r\n", qs.Reference)
	fmt.Fprintf(&b, "Name: %s\r\n", qs.Name)
	fmt.Fprintf(&b, "Location: %s\r\n", qs.Location)
	fmt.Fprintf(&b, "Map: %s\r\n", qs.MapURL)
	if qs.SiteURL != "" {
		fmt.Fprintf(&b, "Site: %s\r\n", qs.SiteURL)
	}
	return subject, b.String()
}
