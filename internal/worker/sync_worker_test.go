package worker

import (
	"context"
	"errors"
	"testing"

	"kaimono/internal/amqp"
	"kaimono/internal/core"
	sheetsmem "kaimono/internal/sheets/memory"
	"kaimono/internal/storage"
)

type fakeSource struct {
	purchases map[int64]core.Purchase
	pending   []int64
	synced    []int64
	errored   []int64
	listErr   error
}

func newFakeSource() *fakeSource {
	return &fakeSource{purchases: make(map[int64]core.Purchase)}
}

func (f *fakeSource) Purchase(_ context.Context, itemID int64) (core.Purchase, error) {
	p, ok := f.purchases[itemID]
	if !ok {
		return core.Purchase{}, storage.ErrPurchaseNotFound
	}
	return p, nil
}

func (f *fakeSource) PendingPurchaseIDs(_ context.Context, limit int) ([]int64, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeSource) MarkPurchaseSynced(_ context.Context, itemID int64) error {
	f.synced = append(f.synced, itemID)
	return nil
}

func (f *fakeSource) MarkPurchaseSyncError(_ context.Context, itemID int64) error {
	f.errored = append(f.errored, itemID)
	return nil
}

func purchase(id int64) core.Purchase {
	return core.Purchase{
		ItemID:       id,
		Date:         core.NewDate(2024, 6, 1),
		ShopName:     "Supermarket",
		ItemName:     "Milk",
		PlannedPrice: 300,
		ActualPrice:  320,
	}
}

func TestHandleSyncMessage(t *testing.T) {
	ctx := context.Background()
	source := newFakeSource()
	source.purchases[7] = purchase(7)
	writer := sheetsmem.New()
	w := NewSyncWorker(source, writer, 50)

	msg := amqp.NewPurchaseSyncMessage(7, 1)
	if err := w.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	got := writer.Purchases()
	if len(got) != 1 || got[0].ItemID != 7 || got[0].ActualPrice != 320 {
		t.Fatalf("ledger = %+v", got)
	}
	if len(source.synced) != 1 || source.synced[0] != 7 {
		t.Fatalf("synced = %v", source.synced)
	}
}

func TestHandleSyncMessageSkipsMissingPurchase(t *testing.T) {
	source := newFakeSource()
	writer := sheetsmem.New()
	w := NewSyncWorker(source, writer, 50)

	// Item was deleted or toggled back before the worker got to it; the
	// message must be acked, not requeued forever.
	if err := w.HandleSyncMessage(context.Background(), amqp.NewPurchaseSyncMessage(99, 1)); err != nil {
		t.Fatalf("missing purchase must not error: %v", err)
	}
	if len(writer.Purchases()) != 0 {
		t.Fatalf("nothing should be appended")
	}
}

func TestHandleSyncMessageMarksErrorOnWriteFailure(t *testing.T) {
	source := newFakeSource()
	source.purchases[7] = purchase(7)
	writer := sheetsmem.New()
	writer.FailWith(errors.New("quota exceeded"))
	w := NewSyncWorker(source, writer, 50)

	err := w.HandleSyncMessage(context.Background(), amqp.NewPurchaseSyncMessage(7, 1))
	if err == nil {
		t.Fatal("expected error from failed append")
	}
	if len(source.errored) != 1 || source.errored[0] != 7 {
		t.Fatalf("errored = %v", source.errored)
	}
	if len(source.synced) != 0 {
		t.Fatalf("must not mark synced on failure")
	}
}

func TestProcessPendingPurchases(t *testing.T) {
	source := newFakeSource()
	source.purchases[1] = purchase(1)
	source.purchases[2] = purchase(2)
	source.pending = []int64{1, 2, 3} // 3 no longer bought
	writer := sheetsmem.New()
	w := NewSyncWorker(source, writer, 50)

	if err := w.ProcessPendingPurchases(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if got := writer.Purchases(); len(got) != 2 {
		t.Fatalf("ledger = %+v", got)
	}
	if len(source.synced) != 2 {
		t.Fatalf("synced = %v", source.synced)
	}
}

func TestProcessPendingPurchasesRespectsBatchSize(t *testing.T) {
	source := newFakeSource()
	for i := int64(1); i <= 5; i++ {
		source.purchases[i] = purchase(i)
	}
	source.pending = []int64{1, 2, 3, 4, 5}
	writer := sheetsmem.New()
	w := NewSyncWorker(source, writer, 2)

	if err := w.ProcessPendingPurchases(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if got := writer.Purchases(); len(got) != 2 {
		t.Fatalf("batch of 2 expected, got %d", len(got))
	}
}

func TestProcessPendingPurchasesListError(t *testing.T) {
	source := newFakeSource()
	source.listErr = errors.New("db closed")
	w := NewSyncWorker(source, sheetsmem.New(), 50)

	if err := w.ProcessPendingPurchases(context.Background()); err == nil {
		t.Fatal("expected list error to surface")
	}
}
