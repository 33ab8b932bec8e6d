package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Date is a calendar day. The time component is always midnight UTC.
	Date struct {
		time.Time
	}

	// Shop is a purchase location visited on a specific date.
	Shop struct {
		ID    int64
		Date  Date
		Name  string
		Items []Item
	}

	// Item is a purchasable entry under a shop. Prices are yen and may be
	// fractional in storage; rounding happens only at display time.
	Item struct {
		ID           int64
		ShopID       int64
		Name         string
		PlannedPrice float64
		ActualPrice  float64
		IsBought     bool
	}

	// Budget is a monthly spending ceiling keyed by "YYYY-MM".
	Budget struct {
		YearMonth string
		Amount    float64
	}

	// Totals holds the four aggregates of the day view.
	Totals struct {
		DayPlanned   float64
		DayActual    float64
		MonthPlanned float64
		MonthActual  float64
	}

	// DayView is the aggregated read model for one calendar date.
	DayView struct {
		Date   Date
		Shops  []Shop
		Totals Totals
		Budget Budget
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyName        = errors.New("name required")
	ErrInvalidShopRef   = errors.New("shop_id required")
	ErrShopNotFound     = errors.New("shop not found")
	ErrNegativePrice    = errors.New("price must not be negative")
	ErrInvalidYearMonth = errors.New("invalid year-month")
)

const (
	dateLayout      = "2006-01-02"
	yearMonthLayout = "2006-01"
)

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar day.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// YearMonth returns the "YYYY-MM" key of the date's month.
func (d Date) YearMonth() string {
	return d.Format(yearMonthLayout)
}

// MonthRange returns the half-open range [first of month, first of next month).
// The upper bound is an exact boundary, not a day-32 approximation.
func (d Date) MonthRange() (from, to Date) {
	first := time.Date(d.Year(), d.Time.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Date{Time: first}, Date{Time: first.AddDate(0, 1, 0)}
}

// ValidYearMonth reports whether s is a well-formed "YYYY-MM" key.
func ValidYearMonth(s string) bool {
	_, err := time.Parse(yearMonthLayout, s)
	return err == nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewShop validates and builds a shop for creation. The name is trimmed.
func NewShop(date Date, name string) (Shop, error) {
	if err := date.Validate(); err != nil {
		return Shop{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Shop{}, ErrEmptyName
	}
	return Shop{Date: date, Name: name}, nil
}

// NewItem validates and builds an item for creation. The actual price starts
// equal to the planned price and the bought flag starts false.
func NewItem(shopID int64, name string, plannedPrice float64) (Item, error) {
	if shopID <= 0 {
		return Item{}, ErrInvalidShopRef
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, ErrEmptyName
	}
	if plannedPrice < 0 {
		return Item{}, ErrNegativePrice
	}
	return Item{
		ShopID:       shopID,
		Name:         name,
		PlannedPrice: plannedPrice,
		ActualPrice:  plannedPrice,
		IsBought:     false,
	}, nil
}

func (b Budget) Validate() error {
	if !ValidYearMonth(b.YearMonth) {
		return ErrInvalidYearMonth
	}
	if b.Amount < 0 {
		return ErrNegativePrice
	}
	return nil
}
