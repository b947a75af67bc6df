package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"paydue/internal/amqp"
	"paydue/internal/core"
	"paydue/internal/sheets"
	"paydue/internal/storage"
)

// ExportStore is the slice of the repository the worker needs.
type ExportStore interface {
	PaymentByID(ctx context.Context, id string) (core.Payment, error)
	PendingExportPayments(ctx context.Context, limit int) ([]storage.PendingExportPayment, error)
	MarkExported(ctx context.Context, id string) error
	MarkExportError(ctx context.Context, id string) error
}

// SyncWorker moves paid payments from the database into the history
// spreadsheet. Queue messages drive the normal path; the periodic
// pending pass is the backup for lost messages.
type SyncWorker struct {
	store     ExportStore
	sheet     sheets.HistoryAppender
	batchSize int
}

func NewSyncWorker(store ExportStore, sheet sheets.HistoryAppender, batchSize int) *SyncWorker {
	return &SyncWorker{
		store:     store,
		sheet:     sheet,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single payment sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.PaymentSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	payment, err := w.store.PaymentByID(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Deleted before the worker got to it; nothing to export.
			slog.WarnContext(ctx, "Payment gone before export, dropping message", "id", msg.ID)
			return nil
		}
		return fmt.Errorf("get payment from storage: %w", err)
	}

	return w.exportPayment(ctx, payment)
}

func (w *SyncWorker) exportPayment(ctx context.Context, payment core.Payment) error {
	if payment.Status != core.StatusPaid {
		// Only paid rows belong in the history sheet. Versions can race;
		// the row will be re-queued by the next mark-paid.
		slog.WarnContext(ctx, "Skipping export of unpaid payment", "id", payment.ID)
		return nil
	}

	rowRef, err := w.sheet.Append(ctx, payment)
	if err != nil {
		if markErr := w.store.MarkExportError(ctx, payment.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", payment.ID, "error", markErr)
		}
		return fmt.Errorf("append payment to sheet: %w", err)
	}

	if err := w.store.MarkExported(ctx, payment.ID); err != nil {
		return fmt.Errorf("mark payment exported: %w", err)
	}

	slog.InfoContext(ctx, "Payment exported to sheet",
		"id", payment.ID,
		"row_ref", rowRef)

	return nil
}

// ProcessPendingPayments exports any payments still flagged pending.
// This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingPayments(ctx context.Context) error {
	pending, err := w.store.PendingExportPayments(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending payments: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending payments", "count", len(pending))

	for _, row := range pending {
		payment, err := w.store.PaymentByID(ctx, row.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get payment", "id", row.ID, "error", err)
			if err := w.store.MarkExportError(ctx, row.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark export error", "id", row.ID, "error", err)
			}
			continue
		}

		if err := w.exportPayment(ctx, payment); err != nil {
			slog.ErrorContext(ctx, "Failed to export payment", "id", row.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck drains the pending backlog once at worker startup,
// recovering from missed messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.store.PendingExportPayments(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending payments for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending payments found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending payments on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, row := range pending {
		payment, err := w.store.PaymentByID(ctx, row.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get payment for startup sync",
				"id", row.ID, "error", err)
			errorCount++
			continue
		}

		if err := w.exportPayment(ctx, payment); err != nil {
			slog.ErrorContext(ctx, "Failed to export payment during startup",
				"id", row.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync check completed",
		"success", successCount,
		"errors", errorCount)

	return nil
}
