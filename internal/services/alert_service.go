package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tourdesk/internal/alerts"
	"tourdesk/internal/core"
	"tourdesk/internal/storage"
)

// AlertService scans open bookings and produces the current notices. The
// day windows come from settings, optionally overridden by a rules file.
type AlertService struct {
	storage   *storage.SQLiteRepository
	rulesFile string

	mu       sync.Mutex
	cached   []alerts.Alert
	cachedAt time.Time
	ttl      time.Duration
}

func NewAlertService(storage *storage.SQLiteRepository, rulesFile string) *AlertService {
	return &AlertService{
		storage:   storage,
		rulesFile: rulesFile,
		ttl:       time.Minute,
	}
}

// Alerts returns the current notices, served from a short-lived cache so the
// dashboard poll does not rescan every booking on each request.
func (s *AlertService) Alerts(ctx context.Context) ([]alerts.Alert, error) {
	s.mu.Lock()
	if s.cached != nil && time.Since(s.cachedAt) < s.ttl {
		out := s.cached
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	out, err := s.scan(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cached = out
	s.cachedAt = time.Now()
	s.mu.Unlock()
	return out, nil
}

// Invalidate drops the cache; called after booking or payment writes.
func (s *AlertService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func (s *AlertService) scan(ctx context.Context, now time.Time) ([]alerts.Alert, error) {
	thresholds, err := s.Thresholds(ctx)
	if err != nil {
		return nil, err
	}

	bookings, err := s.storage.ListOpenBookingsFull(ctx)
	if err != nil {
		return nil, fmt.Errorf("load open bookings: %w", err)
	}

	out := alerts.Generate(bookings, thresholds, now)
	slog.InfoContext(ctx, "Alert scan completed",
		"bookings", len(bookings),
		"alerts", len(out))
	return out, nil
}

// Thresholds resolves the effective day windows: persisted settings, with
// the rules file layered on top when configured.
func (s *AlertService) Thresholds(ctx context.Context) (core.AlertThresholds, error) {
	settings, err := s.storage.Queries().GetSettings(ctx)
	if err != nil {
		return core.AlertThresholds{}, fmt.Errorf("load settings: %w", err)
	}

	thresholds := settings.Thresholds
	if s.rulesFile != "" {
		override, err := alerts.LoadThresholdsFile(s.rulesFile, thresholds)
		if err != nil {
			slog.WarnContext(ctx, "Failed to load alert rules file, using settings",
				"path", s.rulesFile, "error", err)
		} else {
			thresholds = override
		}
	}
	return thresholds, nil
}
