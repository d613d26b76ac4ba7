// Package worker mirrors committed transactions to the backup spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cantina/internal/amqp"
	"cantina/internal/sheets"
	"cantina/internal/storage"
)

// MirrorWorker copies committed transactions from the store to the
// spreadsheet mirror. It is driven by AMQP messages, with a periodic sweep
// over pending rows as a backup in case messages are lost.
type MirrorWorker struct {
	store     storage.Store
	mirror    sheets.Mirror
	batchSize int
}

func NewMirrorWorker(store storage.Store, mirror sheets.Mirror, batchSize int) *MirrorWorker {
	return &MirrorWorker{
		store:     store,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleMirrorMessage processes a single mirror request from AMQP.
func (w *MirrorWorker) HandleMirrorMessage(ctx context.Context, msg *amqp.MirrorMessage) error {
	slog.InfoContext(ctx, "Processing mirror message",
		"kind", msg.Kind,
		"id", msg.ID)

	return w.mirrorItem(ctx, storage.MirrorItem{Kind: storage.TransactionKind(msg.Kind), ID: msg.ID})
}

// ProcessPending mirrors any transactions still marked pending. This is the
// backup path for lost AMQP messages.
func (w *MirrorWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.PendingMirror(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, item := range pending {
		if err := w.mirrorItem(ctx, item); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction",
				"kind", string(item.Kind),
				"id", item.ID,
				"error", err)
		}
	}

	return nil
}

// StartupCheck sweeps a larger batch of pending transactions at startup to
// recover from worker downtime.
func (w *MirrorWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.store.PendingMirror(ctx, w.batchSize*5)
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
	for _, item := range pending {
		if err := w.mirrorItem(ctx, item); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction during startup",
				"kind", string(item.Kind),
				"id", item.ID,
				"error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup mirror check completed",
		"total", len(pending),
		"mirrored", successCount,
		"errors", errorCount)

	return nil
}

// RunSweep runs the periodic pending sweep until ctx is cancelled.
func (w *MirrorWorker) RunSweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Pending sweep failed", "error", err)
			}
		}
	}
}

func (w *MirrorWorker) mirrorItem(ctx context.Context, item storage.MirrorItem) error {
	var (
		ref string
		err error
	)

	switch item.Kind {
	case storage.KindPurchase:
		purchase, getErr := w.store.GetPurchase(ctx, item.ID)
		if getErr != nil {
			return fmt.Errorf("get purchase: %w", getErr)
		}
		ref, err = w.mirror.AppendPurchase(ctx, *purchase, w.personName(ctx, purchase.PersonID))
	case storage.KindPayment:
		payment, getErr := w.store.GetPayment(ctx, item.ID)
		if getErr != nil {
			return fmt.Errorf("get payment: %w", getErr)
		}
		ref, err = w.mirror.AppendPayment(ctx, *payment, w.personName(ctx, payment.PersonID))
	default:
		return fmt.Errorf("unknown transaction kind %q", item.Kind)
	}

	if err != nil {
		if markErr := w.store.MarkMirrorError(ctx, item); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark mirror error",
				"kind", string(item.Kind), "id", item.ID, "error", markErr)
		}
		return fmt.Errorf("append to mirror: %w", err)
	}

	if err := w.store.MarkMirrored(ctx, item); err != nil {
		// The row did reach the spreadsheet, so only log the bookkeeping
		// failure; the sweep will retry and append a duplicate at worst.
		slog.ErrorContext(ctx, "Failed to mark as mirrored",
			"kind", string(item.Kind), "id", item.ID, "error", err)
	}

	slog.InfoContext(ctx, "Transaction mirrored",
		"kind", string(item.Kind),
		"id", item.ID,
		"sheets_ref", ref)

	return nil
}

// personName resolves the display name for mirror rows. A deleted person
// falls back to the raw id so the row still lands in the spreadsheet.
func (w *MirrorWorker) personName(ctx context.Context, personID string) string {
	person, err := w.store.GetPerson(ctx, personID)
	if err != nil {
		return personID
	}
	return person.Name
}
