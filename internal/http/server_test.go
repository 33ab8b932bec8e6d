package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kaimono/internal/core"
	"kaimono/internal/services"
	"kaimono/internal/store"
	"kaimono/internal/store/memory"
)

func newTestServer(t *testing.T, token string) *Server {
	t.Helper()
	return newServerWithStore(t, memory.New(), token)
}

func newServerWithStore(t *testing.T, st store.Store, token ...string) *Server {
	t.Helper()
	tok := ""
	if len(token) > 0 {
		tok = token[0]
	}
	s := NewServer(":0", services.NewShoppingService(st, nil), tok)
	t.Cleanup(func() {
		if err := s.Shutdown(context.Background()); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	})
	return s
}

// failingStore errors every operation with the same message.
type failingStore struct {
	err error
}

var _ store.Store = (*failingStore)(nil)

func (f *failingStore) CreateShop(context.Context, core.Shop) (int64, error) { return 0, f.err }
func (f *failingStore) DeleteShop(context.Context, int64) error              { return f.err }
func (f *failingStore) ShopExists(context.Context, int64) (bool, error)      { return false, f.err }
func (f *failingStore) ShopsByDate(context.Context, core.Date) ([]core.Shop, error) {
	return nil, f.err
}
func (f *failingStore) ShopIDsInRange(context.Context, core.Date, core.Date) ([]int64, error) {
	return nil, f.err
}
func (f *failingStore) CreateItem(context.Context, core.Item) (int64, error) { return 0, f.err }
func (f *failingStore) DeleteItem(context.Context, int64) error              { return f.err }
func (f *failingStore) ItemsByShop(context.Context, int64) ([]core.Item, error) {
	return nil, f.err
}
func (f *failingStore) ItemsByShops(context.Context, []int64) ([]core.Item, error) {
	return nil, f.err
}
func (f *failingStore) SetItemBought(context.Context, int64, bool) error    { return f.err }
func (f *failingStore) SetItemActual(context.Context, int64, float64) error { return f.err }
func (f *failingStore) UpsertBudget(context.Context, core.Budget) error     { return f.err }
func (f *failingStore) BudgetAmount(context.Context, string) (float64, error) {
	return 0, f.err
}

func do(t *testing.T, s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestAuthMissingToken(t *testing.T) {
	s := newTestServer(t, "secret")
	rec := do(t, s, http.MethodGet, "/api/day?date=2024-06-01", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	body := decode(t, rec)
	if body["ok"] != false || body["error"] != "missing bearer token" {
		t.Fatalf("body = %v", body)
	}
}

func TestAuthWrongToken(t *testing.T) {
	s := newTestServer(t, "secret")
	rec := do(t, s, http.MethodGet, "/api/day?date=2024-06-01", "wrong", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if body := decode(t, rec); body["error"] != "invalid token" {
		t.Fatalf("body = %v", body)
	}
}

func TestAuthDisabledWhenNoTokenConfigured(t *testing.T) {
	s := newTestServer(t, "")
	rec := do(t, s, http.MethodGet, "/api/day?date=2024-06-01", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, "secret")
	rec := do(t, s, http.MethodOptions, "/api/shop", "", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "authorization,content-type" {
		t.Fatalf("allow-headers = %q", got)
	}
}

func TestUnknownRouteEnvelope(t *testing.T) {
	s := newTestServer(t, "")
	rec := do(t, s, http.MethodGet, "/api/nope", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body := decode(t, rec); body["error"] != "not found: GET /api/nope" {
		t.Fatalf("body = %v", body)
	}
}

func TestMethodMismatchIsNotFound(t *testing.T) {
	s := newTestServer(t, "")
	rec := do(t, s, http.MethodGet, "/api/shop", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestNonNumericIDIsNotFound(t *testing.T) {
	s := newTestServer(t, "")
	rec := do(t, s, http.MethodDelete, "/api/shop/abc", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestShoppingFlow(t *testing.T) {
	s := newTestServer(t, "secret")
	const tok = "secret"

	rec := do(t, s, http.MethodPost, "/api/shop", tok, `{"date":"2024-06-01","name":"Supermarket"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create shop: %d %s", rec.Code, rec.Body.String())
	}
	shopID := decode(t, rec)["id"].(float64)

	rec = do(t, s, http.MethodPost, "/api/item", tok,
		`{"shop_id":1,"name":"Milk","planned_price":300}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create milk: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, s, http.MethodPost, "/api/item", tok,
		`{"shop_id":1,"name":"Eggs","planned_price":500}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create eggs: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPost, "/api/item/1/toggle", tok, `{"is_bought":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPost, "/api/budget", tok, `{"ym":"2024-06","amount":40000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("budget: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/api/day?date=2024-06-01", tok, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("day: %d %s", rec.Code, rec.Body.String())
	}
	var view dayViewDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if !view.OK || view.Date != "2024-06-01" {
		t.Fatalf("view header = %+v", view)
	}
	if len(view.Shops) != 1 || int64(shopID) != view.Shops[0].ID {
		t.Fatalf("shops = %+v", view.Shops)
	}
	if len(view.Shops[0].Items) != 2 {
		t.Fatalf("items = %+v", view.Shops[0].Items)
	}
	if view.Totals.DayPlanned != 800 || view.Totals.DayActual != 300 {
		t.Fatalf("totals = %+v", view.Totals)
	}
	if view.Budget.YearMonth != "2024-06" || view.Budget.Amount != 40000 {
		t.Fatalf("budget = %+v", view.Budget)
	}

	// Adjust the actual price and confirm the refetched day reflects it
	// (the mutation must purge the cached view).
	rec = do(t, s, http.MethodPost, "/api/item/1/actual", tok, `{"actual_price":320}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("actual: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, s, http.MethodGet, "/api/day?date=2024-06-01", tok, "")
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Totals.DayActual != 320 {
		t.Fatalf("day_actual after update = %v, want 320", view.Totals.DayActual)
	}

	rec = do(t, s, http.MethodDelete, "/api/item/2", tok, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete item: %d", rec.Code)
	}
	rec = do(t, s, http.MethodDelete, "/api/shop/1", tok, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete shop: %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/day?date=2024-06-01", tok, "")
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if len(view.Shops) != 0 {
		t.Fatalf("shops after delete = %+v", view.Shops)
	}
	if view.Shops == nil {
		t.Fatalf("shops must encode as [] not null")
	}
}

func TestEmptyDayHasNonNullShops(t *testing.T) {
	s := newTestServer(t, "")
	rec := do(t, s, http.MethodGet, "/api/day?date=2024-06-02", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"shops":[]`) {
		t.Fatalf("expected empty array, got %s", rec.Body.String())
	}
}

func TestInvalidDateRejected(t *testing.T) {
	s := newTestServer(t, "")
	rec := do(t, s, http.MethodGet, "/api/day?date=06-01-2024", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMalformedBodyRejected(t *testing.T) {
	s := newTestServer(t, "")
	rec := do(t, s, http.MethodPost, "/api/shop", "", `{"date":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decode(t, rec); body["ok"] != false {
		t.Fatalf("body = %v", body)
	}
}

func TestEmptyBodyRejected(t *testing.T) {
	s := newTestServer(t, "")
	rec := do(t, s, http.MethodPost, "/api/shop", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateItemUnknownShop(t *testing.T) {
	s := newTestServer(t, "")
	// A dangling shop reference is a validation error; 404 stays reserved
	// for unmatched routes.
	rec := do(t, s, http.MethodPost, "/api/item", "",
		`{"shop_id":42,"name":"Milk","planned_price":100}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decode(t, rec); body["error"] != "shop not found" {
		t.Fatalf("body = %v", body)
	}
}

func TestNegativePriceRejected(t *testing.T) {
	s := newTestServer(t, "")
	do(t, s, http.MethodPost, "/api/shop", "", `{"date":"2024-06-01","name":"Shop"}`)
	rec := do(t, s, http.MethodPost, "/api/item", "",
		`{"shop_id":1,"name":"Milk","planned_price":-5}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestActualPriceCoercesInvalidToZero(t *testing.T) {
	s := newTestServer(t, "")
	do(t, s, http.MethodPost, "/api/shop", "", `{"date":"2024-06-01","name":"Shop"}`)
	do(t, s, http.MethodPost, "/api/item", "",
		`{"shop_id":1,"name":"Milk","planned_price":300}`)
	do(t, s, http.MethodPost, "/api/item/1/toggle", "", `{"is_bought":true}`)

	rec := do(t, s, http.MethodPost, "/api/item/1/actual", "", `{"actual_price":"tons"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("non-numeric actual must coerce, got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/api/day?date=2024-06-01", "", "")
	var view dayViewDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Totals.DayActual != 0 {
		t.Fatalf("day_actual = %v, want 0 after coerced price", view.Totals.DayActual)
	}
}

func TestStoreFailureSurfacesMessage(t *testing.T) {
	st := &failingStore{err: errors.New("database is locked")}
	s := newServerWithStore(t, st)

	rec := do(t, s, http.MethodGet, "/api/day?date=2024-06-01", "", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("day status = %d, want 500", rec.Code)
	}
	body := decode(t, rec)
	if msg, _ := body["error"].(string); !strings.Contains(msg, "database is locked") {
		t.Fatalf("day error must carry the store message, got %v", body)
	}

	rec = do(t, s, http.MethodPost, "/api/shop", "", `{"date":"2024-06-01","name":"Shop"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("shop status = %d, want 500", rec.Code)
	}
	body = decode(t, rec)
	if msg, _ := body["error"].(string); !strings.Contains(msg, "database is locked") {
		t.Fatalf("mutation error must carry the store message, got %v", body)
	}
}

func TestBudgetRoundTrip(t *testing.T) {
	s := newTestServer(t, "")
	rec := do(t, s, http.MethodPost, "/api/budget", "", `{"ym":"2024-06","amount":40000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/api/budget?ym=2024-06", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	budget := body["budget"].(map[string]any)
	if budget["ym"] != "2024-06" || budget["amount"].(float64) != 40000 {
		t.Fatalf("budget = %v", budget)
	}

	// Unset months read back as zero.
	rec = do(t, s, http.MethodGet, "/api/budget?ym=2030-01", "", "")
	body = decode(t, rec)
	if body["budget"].(map[string]any)["amount"].(float64) != 0 {
		t.Fatalf("unset budget = %v", body)
	}

	rec = do(t, s, http.MethodPost, "/api/budget", "", `{"ym":"junk","amount":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid ym: %d", rec.Code)
	}
}

func TestDeleteUnknownIDSucceeds(t *testing.T) {
	s := newTestServer(t, "")
	rec := do(t, s, http.MethodDelete, "/api/item/999", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := decode(t, rec); body["ok"] != true {
		t.Fatalf("body = %v", body)
	}
}

func TestRateLimitAppliesToMutationsOnly(t *testing.T) {
	s := newTestServer(t, "")
	req := func() int {
		rec := do(t, s, http.MethodPost, "/api/shop", "", `{"date":"2024-06-01","name":"Shop"}`)
		return rec.Code
	}
	for i := 0; i < 60; i++ {
		if code := req(); code != http.StatusOK {
			t.Fatalf("request %d: %d", i, code)
		}
	}
	if code := req(); code != http.StatusTooManyRequests {
		t.Fatalf("61st mutation = %d, want 429", code)
	}
	// Reads are never limited.
	rec := do(t, s, http.MethodGet, "/api/day?date=2024-06-01", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("read after limit = %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, "secret")
	rec := do(t, s, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/readyz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz = %d", rec.Code)
	}
}
