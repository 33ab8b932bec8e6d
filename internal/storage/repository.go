package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"kaimono/internal/core"
	"kaimono/internal/store"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the primary store. It implements store.Store plus the
// purchase-sync queries used by the export worker.
type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// foreign_keys pragma so shop deletes cascade to items.
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CreateShop(ctx context.Context, s core.Shop) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO shops (date, name) VALUES (?, ?) RETURNING id`,
		s.Date.String(), s.Name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create shop: %w", err)
	}

	slog.InfoContext(ctx, "Shop saved", "id", id, "date", s.Date.String(), "name", s.Name)
	return id, nil
}

func (r *SQLiteRepository) DeleteShop(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM shops WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete shop: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ShopExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM shops WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("shop exists: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) ShopsByDate(ctx context.Context, date core.Date) ([]core.Shop, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, name FROM shops WHERE date = ? ORDER BY id`,
		date.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("shops by date: %w", err)
	}
	defer rows.Close()

	var shops []core.Shop
	for rows.Next() {
		var (
			s       core.Shop
			dateStr string
		)
		if err := rows.Scan(&s.ID, &dateStr, &s.Name); err != nil {
			return nil, fmt.Errorf("scan shop: %w", err)
		}
		if s.Date, err = core.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("shop %d has malformed date %q", s.ID, dateStr)
		}
		shops = append(shops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("shops by date: %w", err)
	}
	return shops, nil
}

func (r *SQLiteRepository) ShopIDsInRange(ctx context.Context, from, to core.Date) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM shops WHERE date >= ? AND date < ? ORDER BY id`,
		from.String(), to.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("shops in range: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan shop id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("shops in range: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) CreateItem(ctx context.Context, it core.Item) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO items (shop_id, name, planned_price, actual_price, is_bought)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`,
		it.ShopID, it.Name, it.PlannedPrice, it.ActualPrice, boolToInt(it.IsBought),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create item: %w", err)
	}

	slog.InfoContext(ctx, "Item saved",
		"id", id, "shop_id", it.ShopID, "name", it.Name, "planned_price", it.PlannedPrice)
	return id, nil
}

func (r *SQLiteRepository) DeleteItem(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

const itemColumns = `id, shop_id, name, planned_price, actual_price, is_bought`

func (r *SQLiteRepository) ItemsByShop(ctx context.Context, shopID int64) ([]core.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE shop_id = ? ORDER BY id`, shopID)
	if err != nil {
		return nil, fmt.Errorf("items by shop: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func (r *SQLiteRepository) ItemsByShops(ctx context.Context, shopIDs []int64) ([]core.Item, error) {
	if len(shopIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(shopIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(shopIDs))
	for i, id := range shopIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE shop_id IN (`+placeholders+`) ORDER BY id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("items by shops: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]core.Item, error) {
	var items []core.Item
	for rows.Next() {
		var (
			it     core.Item
			bought int64
		)
		if err := rows.Scan(&it.ID, &it.ShopID, &it.Name, &it.PlannedPrice, &it.ActualPrice, &bought); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.IsBought = bought != 0
		items = append(items, core.NormalizeItem(it))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// SetItemBought flips the bought flag. Marking an item bought also queues it
// for the purchase ledger export; unmarking clears the queue entry.
func (r *SQLiteRepository) SetItemBought(ctx context.Context, id int64, bought bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE items
		 SET is_bought = ?,
		     sync_status = CASE WHEN ? THEN 'pending' ELSE '' END,
		     version = version + 1
		 WHERE id = ?`,
		boolToInt(bought), boolToInt(bought), id)
	if err != nil {
		return fmt.Errorf("set item bought: %w", err)
	}
	return nil
}

// SetItemActual updates only the actual price. A bought item goes back to
// pending so the exported ledger row gets the corrected price.
func (r *SQLiteRepository) SetItemActual(ctx context.Context, id int64, price float64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE items
		 SET actual_price = ?,
		     sync_status = CASE WHEN is_bought = 1 THEN 'pending' ELSE sync_status END,
		     version = version + 1
		 WHERE id = ?`,
		price, id)
	if err != nil {
		return fmt.Errorf("set item actual: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (year_month, amount) VALUES (?, ?)
		 ON CONFLICT(year_month) DO UPDATE SET amount = excluded.amount, updated_at = CURRENT_TIMESTAMP`,
		b.YearMonth, b.Amount)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) BudgetAmount(ctx context.Context, ym string) (float64, error) {
	var amount float64
	err := r.db.QueryRowContext(ctx,
		`SELECT amount FROM budgets WHERE year_month = ?`, ym).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("budget amount: %w", err)
	}
	return amount, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
