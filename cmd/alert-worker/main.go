package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tourdesk/internal/alerts"
	"tourdesk/internal/amqp"
	"tourdesk/internal/config"
	applog "tourdesk/internal/log"
	"tourdesk/internal/services"
	"tourdesk/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: "alert-worker"})
	applog.SetDefault(logger)

	logger.Info("Starting alert-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	alertService := services.NewAlertService(repo, cfg.AlertRulesFile)

	// Digest publishing is optional; without AMQP the sweep only logs.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AlertDigestQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, digests will only be logged", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AlertDigestQueue)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Alert scanner configured", "interval", cfg.AlertScanInterval.String(), "rules_file", cfg.AlertRulesFile)

	// Run a first sweep on startup so problems surface immediately.
	sweep(ctx, logger, alertService, amqpClient)

	ticker := time.NewTicker(cfg.AlertScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Alert-worker shutdown complete")
			return
		case <-ticker.C:
			alertService.Invalidate()
			sweep(ctx, logger, alertService, amqpClient)
		}
	}
}

// sweep runs one alert pass, logs a priority digest and publishes it when a
// queue is available.
func sweep(ctx context.Context, logger *applog.Logger, svc *services.AlertService, amqpClient *amqp.Client) {
	items, err := svc.Alerts(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Alert scan failed", "error", err)
		return
	}

	digest := &amqp.AlertDigestMessage{GeneratedAt: time.Now(), Total: len(items)}
	for _, a := range items {
		switch a.Priority {
		case alerts.PriorityUrgent:
			digest.Urgent++
		case alerts.PriorityHigh:
			digest.High++
		default:
			digest.Normal++
		}
		digest.Alerts = append(digest.Alerts, amqp.AlertDigestItem{
			Kind:       string(a.Kind),
			Priority:   a.Priority.String(),
			BookingRef: a.BookingRef,
			Message:    a.Message,
			DaysLeft:   a.DaysLeft,
		})
	}

	logger.InfoContext(ctx, "Alert scan complete",
		"total", digest.Total,
		"urgent", digest.Urgent,
		"high", digest.High,
		"normal", digest.Normal)

	for _, a := range items {
		if a.Priority != alerts.PriorityUrgent {
			continue
		}
		logger.WarnContext(ctx, "Urgent alert",
			"kind", string(a.Kind),
			"booking_ref", a.BookingRef,
			"days_left", a.DaysLeft,
			"message", a.Message)
	}

	if amqpClient != nil {
		if err := amqpClient.PublishAlertDigest(ctx, digest); err != nil {
			logger.ErrorContext(ctx, "Failed to publish alert digest", "error", err)
		}
	}
}
