package worker

import (
	"context"
	"fmt"
	"log/slog"

	"tourdesk/internal/amqp"
	"tourdesk/internal/core"
	"tourdesk/internal/export"
	"tourdesk/internal/storage"
)

// ExportWorker copies committed transactions from SQLite to the external
// ledger sheet. Queue messages drive the normal path; the pending sweep
// recovers rows whose messages were lost.
type ExportWorker struct {
	storage   *storage.SQLiteRepository
	ledger    export.LedgerWriter
	batchSize int
}

func NewExportWorker(storage *storage.SQLiteRepository, ledger export.LedgerWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		ledger:    ledger,
		batchSize: batchSize,
	}
}

// HandleLedgerEvent processes one queued transaction event.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"transaction_id", msg.TransactionID,
		"action", msg.Action)

	tx, err := w.storage.Queries().GetTransaction(ctx, msg.TransactionID)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	// A voided event exports the reversal row; the original stays in the sheet.
	if err := w.exportTransaction(ctx, tx); err != nil {
		return fmt.Errorf("export transaction: %w", err)
	}
	return nil
}

// ProcessPending exports transactions that never made it to the sheet.
// This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.Queries().ListPendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		tx, err := w.storage.Queries().GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction", "id", p.ID, "error", err)
			if err := w.storage.MarkExportError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark export error", "id", p.ID, "error", err)
			}
			continue
		}

		if err := w.exportTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction", "id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupCheck sweeps a larger pending batch once when the worker boots,
// recovering from missed messages or worker downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.storage.Queries().ListPendingExport(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		tx, err := w.storage.Queries().GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction for startup export",
				"id", p.ID, "error", err)
			if err := w.storage.MarkExportError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark export error", "id", p.ID, "error", err)
			}
			errorCount++
			continue
		}

		if err := w.exportTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction during startup",
				"id", p.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", successCount,
		"errors", errorCount)

	return nil
}

func (w *ExportWorker) exportTransaction(ctx context.Context, tx core.Transaction) error {
	row, err := w.buildRow(ctx, tx)
	if err != nil {
		return err
	}

	ref, err := w.ledger.Append(ctx, row)
	if err != nil {
		if markErr := w.storage.MarkExportError(ctx, tx.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", tx.ID, "error", markErr)
		}
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.storage.MarkExported(ctx, tx.ID); err != nil {
		// The row is in the sheet; the flag just controls the pending sweep.
		slog.ErrorContext(ctx, "Failed to mark as exported", "id", tx.ID, "error", err)
	}

	slog.InfoContext(ctx, "Transaction exported",
		"id", tx.ID,
		"reference", tx.Reference,
		"ledger_ref", ref,
		"amount_cents", tx.Amount.Cents)

	return nil
}

func (w *ExportWorker) buildRow(ctx context.Context, tx core.Transaction) (export.Row, error) {
	treasury, err := w.storage.Queries().GetTreasury(ctx, tx.TreasuryID)
	if err != nil {
		return export.Row{}, fmt.Errorf("get treasury: %w", err)
	}

	bookingRef := ""
	if tx.BookingID != 0 {
		booking, err := w.storage.Queries().GetBooking(ctx, tx.BookingID)
		if err != nil {
			return export.Row{}, fmt.Errorf("get booking: %w", err)
		}
		bookingRef = booking.Reference
	}

	return export.Row{
		Date:        tx.CreatedAt,
		Reference:   tx.Reference,
		Kind:        string(tx.Kind),
		Direction:   string(tx.Direction),
		Treasury:    treasury.Name,
		BookingRef:  bookingRef,
		Amount:      float64(tx.Amount.Cents) / 100.0,
		Currency:    tx.Amount.Currency,
		Description: tx.Description,
		Voided:      tx.Voided,
	}, nil
}
