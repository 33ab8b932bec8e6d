// Package services orchestrates store access for the HTTP layer: mutation
// endpoints plus the day-view aggregation.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"kaimono/internal/core"
	"kaimono/internal/store"
)

// SyncPublisher publishes purchase sync messages for the export worker.
// Implemented by the AMQP client; nil disables publishing.
type SyncPublisher interface {
	PublishPurchaseSync(ctx context.Context, itemID, version int64) error
}

// ShoppingService owns all reads and writes against the primary store.
type ShoppingService struct {
	store     store.Store
	publisher SyncPublisher
}

func NewShoppingService(st store.Store, publisher SyncPublisher) *ShoppingService {
	return &ShoppingService{store: st, publisher: publisher}
}

// CreateShop validates and inserts a shop, returning the new id.
func (s *ShoppingService) CreateShop(ctx context.Context, date core.Date, name string) (int64, error) {
	shop, err := core.NewShop(date, name)
	if err != nil {
		return 0, err
	}
	id, err := s.store.CreateShop(ctx, shop)
	if err != nil {
		return 0, fmt.Errorf("create shop: %w", err)
	}
	return id, nil
}

// DeleteShop removes a shop; the store cascades to its items.
func (s *ShoppingService) DeleteShop(ctx context.Context, id int64) error {
	if err := s.store.DeleteShop(ctx, id); err != nil {
		return fmt.Errorf("delete shop: %w", err)
	}
	return nil
}

// CreateItem validates the shop reference and inserts an item. The actual
// price starts equal to the planned price, the bought flag false.
func (s *ShoppingService) CreateItem(ctx context.Context, shopID int64, name string, plannedPrice float64) (int64, error) {
	item, err := core.NewItem(shopID, name, plannedPrice)
	if err != nil {
		return 0, err
	}

	ok, err := s.store.ShopExists(ctx, shopID)
	if err != nil {
		return 0, fmt.Errorf("check shop: %w", err)
	}
	if !ok {
		return 0, core.ErrShopNotFound
	}

	id, err := s.store.CreateItem(ctx, item)
	if err != nil {
		return 0, fmt.Errorf("create item: %w", err)
	}
	return id, nil
}

func (s *ShoppingService) DeleteItem(ctx context.Context, id int64) error {
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// ToggleItem updates only the bought flag. Marking an item bought queues it
// for ledger export; the publish is best effort and never fails the request.
func (s *ShoppingService) ToggleItem(ctx context.Context, id int64, bought bool) error {
	if err := s.store.SetItemBought(ctx, id, bought); err != nil {
		return fmt.Errorf("toggle item: %w", err)
	}
	if bought {
		s.publishSync(ctx, id)
	}
	return nil
}

// SetActualPrice updates only the actual price.
func (s *ShoppingService) SetActualPrice(ctx context.Context, id int64, price float64) error {
	if price < 0 {
		return core.ErrNegativePrice
	}
	if err := s.store.SetItemActual(ctx, id, price); err != nil {
		return fmt.Errorf("set actual price: %w", err)
	}
	// Re-publish so an already exported row picks up the corrected price.
	s.publishSync(ctx, id)
	return nil
}

func (s *ShoppingService) SetBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if err := s.store.UpsertBudget(ctx, b); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	return nil
}

func (s *ShoppingService) Budget(ctx context.Context, ym string) (core.Budget, error) {
	if !core.ValidYearMonth(ym) {
		return core.Budget{}, core.ErrInvalidYearMonth
	}
	amount, err := s.store.BudgetAmount(ctx, ym)
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return core.Budget{YearMonth: ym, Amount: amount}, nil
}

// DayView builds the aggregated read model for one date: the day's shops with
// their items, day and month totals, and the month's budget. The reads are
// independent; no snapshot spans them.
func (s *ShoppingService) DayView(ctx context.Context, date core.Date) (core.DayView, error) {
	view := core.DayView{Date: date}

	shops, err := s.store.ShopsByDate(ctx, date)
	if err != nil {
		return core.DayView{}, fmt.Errorf("day view shops: %w", err)
	}

	for _, shop := range shops {
		items, err := s.store.ItemsByShop(ctx, shop.ID)
		if err != nil {
			return core.DayView{}, fmt.Errorf("day view items for shop %d: %w", shop.ID, err)
		}
		for i := range items {
			items[i] = core.NormalizeItem(items[i])
		}
		core.AccumulateTotals(items, &view.Totals.DayPlanned, &view.Totals.DayActual)
		shop.Items = items
		view.Shops = append(view.Shops, shop)
	}

	from, to := date.MonthRange()
	monthShopIDs, err := s.store.ShopIDsInRange(ctx, from, to)
	if err != nil {
		return core.DayView{}, fmt.Errorf("day view month shops: %w", err)
	}
	if len(monthShopIDs) > 0 {
		monthItems, err := s.store.ItemsByShops(ctx, monthShopIDs)
		if err != nil {
			return core.DayView{}, fmt.Errorf("day view month items: %w", err)
		}
		core.AccumulateTotals(monthItems, &view.Totals.MonthPlanned, &view.Totals.MonthActual)
	}

	ym := date.YearMonth()
	amount, err := s.store.BudgetAmount(ctx, ym)
	if err != nil {
		return core.DayView{}, fmt.Errorf("day view budget: %w", err)
	}
	view.Budget = core.Budget{YearMonth: ym, Amount: amount}

	return view, nil
}

func (s *ShoppingService) publishSync(ctx context.Context, itemID int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishPurchaseSync(ctx, itemID, 1); err != nil {
		// The store write already succeeded; the worker's pending sweep
		// recovers lost messages.
		slog.ErrorContext(ctx, "Failed to publish purchase sync message",
			"item_id", itemID, "error", err)
	}
}
