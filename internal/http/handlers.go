package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"kaimono/internal/core"
)

// Request bodies. Every mutation takes a small JSON object; unknown fields
// are ignored like the rest of the ecosystem does.
type (
	createShopRequest struct {
		Date string `json:"date"`
		Name string `json:"name"`
	}

	createItemRequest struct {
		ShopID       int64   `json:"shop_id"`
		Name         string  `json:"name"`
		PlannedPrice float64 `json:"planned_price"`
	}

	toggleItemRequest struct {
		IsBought bool `json:"is_bought"`
	}

	actualPriceRequest struct {
		ActualPrice lenientPrice `json:"actual_price"`
	}

	budgetRequest struct {
		YearMonth string  `json:"ym"`
		Amount    float64 `json:"amount"`
	}
)

// lenientPrice coerces at the boundary: a missing or non-numeric actual
// price reads as 0, same as the item normalization rules.
type lenientPrice float64

func (p *lenientPrice) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*p = 0
		return nil
	}
	*p = lenientPrice(f)
	return nil
}

// Response DTOs. Collections are always non-nil so the front-end can iterate
// without null checks.
type (
	itemDTO struct {
		ID           int64   `json:"id"`
		ShopID       int64   `json:"shop_id"`
		Name         string  `json:"name"`
		PlannedPrice float64 `json:"planned_price"`
		ActualPrice  float64 `json:"actual_price"`
		IsBought     bool    `json:"is_bought"`
	}

	shopDTO struct {
		ID    int64     `json:"id"`
		Date  string    `json:"date"`
		Name  string    `json:"name"`
		Items []itemDTO `json:"items"`
	}

	totalsDTO struct {
		DayPlanned   float64 `json:"day_planned"`
		DayActual    float64 `json:"day_actual"`
		MonthPlanned float64 `json:"month_planned"`
		MonthActual  float64 `json:"month_actual"`
	}

	budgetDTO struct {
		YearMonth string  `json:"ym"`
		Amount    float64 `json:"amount"`
	}

	dayViewDTO struct {
		OK     bool      `json:"ok"`
		Date   string    `json:"date"`
		Shops  []shopDTO `json:"shops"`
		Totals totalsDTO `json:"totals"`
		Budget budgetDTO `json:"budget"`
	}
)

func toDayViewDTO(view core.DayView) dayViewDTO {
	dto := dayViewDTO{
		OK:    true,
		Date:  view.Date.String(),
		Shops: make([]shopDTO, 0, len(view.Shops)),
		Totals: totalsDTO{
			DayPlanned:   view.Totals.DayPlanned,
			DayActual:    view.Totals.DayActual,
			MonthPlanned: view.Totals.MonthPlanned,
			MonthActual:  view.Totals.MonthActual,
		},
		Budget: budgetDTO{YearMonth: view.Budget.YearMonth, Amount: view.Budget.Amount},
	}
	for _, shop := range view.Shops {
		sd := shopDTO{
			ID:    shop.ID,
			Date:  shop.Date.String(),
			Name:  shop.Name,
			Items: make([]itemDTO, 0, len(shop.Items)),
		}
		for _, item := range shop.Items {
			sd.Items = append(sd.Items, itemDTO{
				ID:           item.ID,
				ShopID:       item.ShopID,
				Name:         item.Name,
				PlannedPrice: item.PlannedPrice,
				ActualPrice:  item.ActualPrice,
				IsBought:     item.IsBought,
			})
		}
		dto.Shops = append(dto.Shops, sd)
	}
	return dto
}

// handleAPI dispatches every /api route by hand so that unknown routes and
// method mismatches alike get the 404 envelope naming method and path.
func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api"), "/")
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")

	switch {
	case r.Method == http.MethodGet && path == "/day":
		s.handleDayView(w, r)
	case r.Method == http.MethodPost && path == "/shop":
		s.handleCreateShop(w, r)
	case r.Method == http.MethodDelete && len(parts) == 2 && parts[0] == "shop":
		s.handleDeleteShop(w, r, parts[1])
	case r.Method == http.MethodPost && path == "/item":
		s.handleCreateItem(w, r)
	case r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "item" && parts[2] == "toggle":
		s.handleToggleItem(w, r, parts[1])
	case r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "item" && parts[2] == "actual":
		s.handleActualPrice(w, r, parts[1])
	case r.Method == http.MethodDelete && len(parts) == 2 && parts[0] == "item":
		s.handleDeleteItem(w, r, parts[1])
	case r.Method == http.MethodGet && path == "/budget":
		s.handleGetBudget(w, r)
	case r.Method == http.MethodPost && path == "/budget":
		s.handleSetBudget(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found: "+r.Method+" "+r.URL.Path)
	}
}

func (s *Server) handleDayView(w http.ResponseWriter, r *http.Request) {
	dateParam := r.URL.Query().Get("date")

	date := core.Today()
	if dateParam != "" {
		var err error
		date, err = core.ParseDate(dateParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date: "+dateParam)
			return
		}
	}

	key := date.String()
	if view, ok := s.dayCache.Get(key); ok {
		writeJSON(w, http.StatusOK, toDayViewDTO(view))
		return
	}

	view, err := s.svc.DayView(r.Context(), date)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to build day view", "date", key, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.dayCache.Set(key, view)
	writeJSON(w, http.StatusOK, toDayViewDTO(view))
}

func (s *Server) handleCreateShop(w http.ResponseWriter, r *http.Request) {
	var req createShopRequest
	if !decodeBody(w, r, &req) {
		return
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date: "+req.Date)
		return
	}

	id, err := s.svc.CreateShop(r.Context(), date, req.Name)
	if err != nil {
		s.writeMutationError(w, r, "create shop", err)
		return
	}

	s.dayCache.Purge()
	writeAck(w, id)
}

func (s *Server) handleDeleteShop(w http.ResponseWriter, r *http.Request, rawID string) {
	id, ok := parseID(w, r, rawID)
	if !ok {
		return
	}
	if err := s.svc.DeleteShop(r.Context(), id); err != nil {
		s.writeMutationError(w, r, "delete shop", err)
		return
	}
	s.dayCache.Purge()
	writeAck(w, 0)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := s.svc.CreateItem(r.Context(), req.ShopID, req.Name, req.PlannedPrice)
	if err != nil {
		s.writeMutationError(w, r, "create item", err)
		return
	}

	s.dayCache.Purge()
	writeAck(w, id)
}

func (s *Server) handleToggleItem(w http.ResponseWriter, r *http.Request, rawID string) {
	id, ok := parseID(w, r, rawID)
	if !ok {
		return
	}

	var req toggleItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.svc.ToggleItem(r.Context(), id, req.IsBought); err != nil {
		s.writeMutationError(w, r, "toggle item", err)
		return
	}
	s.dayCache.Purge()
	writeAck(w, 0)
}

func (s *Server) handleActualPrice(w http.ResponseWriter, r *http.Request, rawID string) {
	id, ok := parseID(w, r, rawID)
	if !ok {
		return
	}

	var req actualPriceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.svc.SetActualPrice(r.Context(), id, float64(req.ActualPrice)); err != nil {
		s.writeMutationError(w, r, "set actual price", err)
		return
	}
	s.dayCache.Purge()
	writeAck(w, 0)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request, rawID string) {
	id, ok := parseID(w, r, rawID)
	if !ok {
		return
	}
	if err := s.svc.DeleteItem(r.Context(), id); err != nil {
		s.writeMutationError(w, r, "delete item", err)
		return
	}
	s.dayCache.Purge()
	writeAck(w, 0)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	ym := r.URL.Query().Get("ym")
	if ym == "" {
		ym = core.Today().YearMonth()
	}

	budget, err := s.svc.Budget(r.Context(), ym)
	if err != nil {
		if errors.Is(err, core.ErrInvalidYearMonth) {
			writeError(w, http.StatusBadRequest, "invalid ym: "+ym)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to load budget", "ym", ym, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, struct {
		OK     bool      `json:"ok"`
		Budget budgetDTO `json:"budget"`
	}{OK: true, Budget: budgetDTO{YearMonth: budget.YearMonth, Amount: budget.Amount}})
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	b := core.Budget{YearMonth: req.YearMonth, Amount: req.Amount}
	if err := s.svc.SetBudget(r.Context(), b); err != nil {
		s.writeMutationError(w, r, "set budget", err)
		return
	}
	s.dayCache.Purge()
	writeAck(w, 0)
}

// writeMutationError maps validation errors to 400 envelopes; a bad shop
// reference is a validation error, not a routing miss. Store failures pass
// their message through in a 500.
func (s *Server) writeMutationError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidShopRef),
		errors.Is(err, core.ErrShopNotFound),
		errors.Is(err, core.ErrNegativePrice),
		errors.Is(err, core.ErrInvalidYearMonth):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Mutation failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeBody reads a JSON body of at most 64 KiB into dst, writing a 400 on
// failure. Returns false when the response has been written.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, 64<<10)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if err == io.EOF {
			writeError(w, http.StatusBadRequest, "request body required")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

// parseID rejects non-numeric path ids with the same 404 envelope an unknown
// route gets.
func parseID(w http.ResponseWriter, r *http.Request, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "not found: "+r.Method+" "+r.URL.Path)
		return 0, false
	}
	return id, true
}
