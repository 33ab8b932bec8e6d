// Package memory is the default dev backend: a mutex-guarded in-memory store
// with the same ordering and cascade semantics as the sqlite repository.
package memory

import (
	"context"
	"sort"
	"sync"

	"kaimono/internal/core"
	"kaimono/internal/store"
)

type Store struct {
	mu      sync.Mutex
	nextID  int64
	shops   map[int64]core.Shop
	items   map[int64]core.Item
	budgets map[string]float64
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		nextID:  1,
		shops:   make(map[int64]core.Shop),
		items:   make(map[int64]core.Item),
		budgets: make(map[string]float64),
	}
}

func (s *Store) CreateShop(_ context.Context, shop core.Shop) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shop.ID = s.nextID
	s.nextID++
	shop.Items = nil
	s.shops[shop.ID] = shop
	return shop.ID, nil
}

// DeleteShop removes the shop and cascades to its items.
func (s *Store) DeleteShop(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.shops, id)
	for itemID, it := range s.items {
		if it.ShopID == id {
			delete(s.items, itemID)
		}
	}
	return nil
}

func (s *Store) ShopExists(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.shops[id]
	return ok, nil
}

func (s *Store) ShopsByDate(_ context.Context, date core.Date) ([]core.Shop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Shop
	for _, shop := range s.shops {
		if shop.Date.Equal(date.Time) {
			out = append(out, shop)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ShopIDsInRange(_ context.Context, from, to core.Date) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, shop := range s.shops {
		if !shop.Date.Before(from.Time) && shop.Date.Before(to.Time) {
			ids = append(ids, shop.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) CreateItem(_ context.Context, it core.Item) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shops[it.ShopID]; !ok {
		return 0, core.ErrShopNotFound
	}
	it.ID = s.nextID
	s.nextID++
	s.items[it.ID] = it
	return it.ID, nil
}

func (s *Store) DeleteItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *Store) ItemsByShop(_ context.Context, shopID int64) ([]core.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Item
	for _, it := range s.items {
		if it.ShopID == shopID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ItemsByShops(_ context.Context, shopIDs []int64) ([]core.Item, error) {
	member := make(map[int64]struct{}, len(shopIDs))
	for _, id := range shopIDs {
		member[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Item
	for _, it := range s.items {
		if _, ok := member[it.ShopID]; ok {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SetItemBought(_ context.Context, id int64, bought bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[id]; ok {
		it.IsBought = bought
		s.items[id] = it
	}
	return nil
}

func (s *Store) SetItemActual(_ context.Context, id int64, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[id]; ok {
		it.ActualPrice = price
		s.items[id] = it
	}
	return nil
}

func (s *Store) UpsertBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[b.YearMonth] = b.Amount
	return nil
}

func (s *Store) BudgetAmount(_ context.Context, ym string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budgets[ym], nil
}
