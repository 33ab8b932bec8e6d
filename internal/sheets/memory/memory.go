// Package memory provides an in-memory PurchaseWriter for tests.
package memory

import (
	"context"
	"sync"

	"kaimono/internal/core"
)

type Writer struct {
	mu        sync.Mutex
	purchases []core.Purchase
	err       error
}

func New() *Writer {
	return &Writer{}
}

func (w *Writer) AppendPurchase(_ context.Context, p core.Purchase) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.purchases = append(w.purchases, p)
	return nil
}

// Purchases returns a copy of everything appended so far.
func (w *Writer) Purchases() []core.Purchase {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]core.Purchase, len(w.purchases))
	copy(out, w.purchases)
	return out
}

// FailWith makes subsequent appends return err; nil restores success.
func (w *Writer) FailWith(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.err = err
}
