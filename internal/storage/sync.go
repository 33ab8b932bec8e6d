package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"kaimono/internal/core"
)

// Purchase-sync queries used by the export worker. An item becomes a
// "purchase" once it is bought; the worker flattens it into a ledger row.

var ErrPurchaseNotFound = sql.ErrNoRows

// Purchase returns the ledger row for a bought item, joined with its shop.
func (r *SQLiteRepository) Purchase(ctx context.Context, itemID int64) (core.Purchase, error) {
	var (
		p       core.Purchase
		dateStr string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT i.id, s.date, s.name, i.name, i.planned_price, i.actual_price
		 FROM items i JOIN shops s ON s.id = i.shop_id
		 WHERE i.id = ? AND i.is_bought = 1`,
		itemID,
	).Scan(&p.ItemID, &dateStr, &p.ShopName, &p.ItemName, &p.PlannedPrice, &p.ActualPrice)
	if err != nil {
		return core.Purchase{}, fmt.Errorf("get purchase %d: %w", itemID, err)
	}
	if p.Date, err = core.ParseDate(dateStr); err != nil {
		return core.Purchase{}, fmt.Errorf("purchase %d has malformed date %q", itemID, dateStr)
	}
	return p, nil
}

// PendingPurchaseIDs returns ids of bought items waiting for export, oldest
// first. Errored rows are retried too; AMQP messages can be lost.
func (r *SQLiteRepository) PendingPurchaseIDs(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM items
		 WHERE is_bought = 1 AND sync_status IN ('pending', 'error')
		 ORDER BY id LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("pending purchases: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending purchase: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pending purchases: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) MarkPurchaseSynced(ctx context.Context, itemID int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE items SET sync_status = 'synced' WHERE id = ?`, itemID); err != nil {
		return fmt.Errorf("mark purchase synced: %w", err)
	}
	slog.InfoContext(ctx, "Purchase marked as synced", "item_id", itemID)
	return nil
}

func (r *SQLiteRepository) MarkPurchaseSyncError(ctx context.Context, itemID int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE items SET sync_status = 'error' WHERE id = ?`, itemID); err != nil {
		return fmt.Errorf("mark purchase sync error: %w", err)
	}
	slog.WarnContext(ctx, "Purchase marked with sync error", "item_id", itemID)
	return nil
}
