// Package worker exports bought items to the purchase ledger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kaimono/internal/amqp"
	"kaimono/internal/core"
	"kaimono/internal/sheets"
	"kaimono/internal/storage"
)

// PurchaseSource is the slice of the storage layer the worker reads from and
// marks progress on.
type PurchaseSource interface {
	Purchase(ctx context.Context, itemID int64) (core.Purchase, error)
	PendingPurchaseIDs(ctx context.Context, limit int) ([]int64, error)
	MarkPurchaseSynced(ctx context.Context, itemID int64) error
	MarkPurchaseSyncError(ctx context.Context, itemID int64) error
}

// SyncWorker consumes purchase sync messages and sweeps pending rows,
// appending each bought item to the ledger exactly once per state change.
type SyncWorker struct {
	source    PurchaseSource
	writer    sheets.PurchaseWriter
	batchSize int
}

func NewSyncWorker(source PurchaseSource, writer sheets.PurchaseWriter, batchSize int) *SyncWorker {
	return &SyncWorker{source: source, writer: writer, batchSize: batchSize}
}

// HandleSyncMessage exports the item named by a queue message. Items deleted
// or un-bought since the message was published are skipped without error so
// the delivery gets acked.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.PurchaseSyncMessage) error {
	return w.export(ctx, msg.ItemID)
}

// ProcessPendingPurchases sweeps rows still marked pending or errored. It
// recovers items whose queue message was lost and retries earlier failures.
func (w *SyncWorker) ProcessPendingPurchases(ctx context.Context) error {
	ids, err := w.source.PendingPurchaseIDs(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending purchases: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Sweeping pending purchases", "count", len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.export(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending purchase",
				"item_id", id, "error", err)
		}
	}
	return nil
}

func (w *SyncWorker) export(ctx context.Context, itemID int64) error {
	p, err := w.source.Purchase(ctx, itemID)
	if errors.Is(err, storage.ErrPurchaseNotFound) {
		// Deleted or toggled back since the message was queued.
		slog.InfoContext(ctx, "Skipping purchase no longer bought", "item_id", itemID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load purchase %d: %w", itemID, err)
	}

	if err := w.writer.AppendPurchase(ctx, p); err != nil {
		if markErr := w.source.MarkPurchaseSyncError(ctx, itemID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark purchase sync error",
				"item_id", itemID, "error", markErr)
		}
		return fmt.Errorf("append purchase %d: %w", itemID, err)
	}

	if err := w.source.MarkPurchaseSynced(ctx, itemID); err != nil {
		return fmt.Errorf("mark purchase %d synced: %w", itemID, err)
	}
	return nil
}
