package store

import (
	"context"

	"kaimono/internal/core"
)

// Ports for the primary store. The sqlite repository and the in-memory
// adapter both implement Store.
type (
	ShopStore interface {
		// CreateShop inserts a validated shop and returns its id.
		CreateShop(ctx context.Context, s core.Shop) (int64, error)
		// DeleteShop removes a shop and all of its items.
		DeleteShop(ctx context.Context, id int64) error
		// ShopExists reports whether a shop id references a stored shop.
		ShopExists(ctx context.Context, id int64) (bool, error)
		// ShopsByDate returns the shops of one calendar day, id ascending,
		// without their items.
		ShopsByDate(ctx context.Context, date core.Date) ([]core.Shop, error)
		// ShopIDsInRange returns ids of shops with date in [from, to).
		ShopIDsInRange(ctx context.Context, from, to core.Date) ([]int64, error)
	}

	ItemStore interface {
		// CreateItem inserts a validated item and returns its id.
		CreateItem(ctx context.Context, it core.Item) (int64, error)
		DeleteItem(ctx context.Context, id int64) error
		// ItemsByShop returns a shop's items, id ascending.
		ItemsByShop(ctx context.Context, shopID int64) ([]core.Item, error)
		// ItemsByShops returns every item owned by the given shops, any order.
		ItemsByShops(ctx context.Context, shopIDs []int64) ([]core.Item, error)
		// SetItemBought updates only the bought flag. Unknown ids are a no-op.
		SetItemBought(ctx context.Context, id int64, bought bool) error
		// SetItemActual updates only the actual price. Unknown ids are a no-op.
		SetItemActual(ctx context.Context, id int64, price float64) error
	}

	BudgetStore interface {
		// UpsertBudget inserts or replaces the budget of a month.
		UpsertBudget(ctx context.Context, b core.Budget) error
		// BudgetAmount returns the stored amount for a month, 0 if unset.
		BudgetAmount(ctx context.Context, ym string) (float64, error)
	}

	Store interface {
		ShopStore
		ItemStore
		BudgetStore
	}
)
