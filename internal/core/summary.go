// Package core holds the domain model of the shopping tracker and the pure
// aggregation rules used by the day view.
package core

import "math"

// NormalizeItem applies the boundary coercion rules once, centrally:
// NaN or negative-zero prices collapse to 0 so that values coming from a
// loosely typed store never leak into totals.
func NormalizeItem(it Item) Item {
	it.PlannedPrice = normalizePrice(it.PlannedPrice)
	it.ActualPrice = normalizePrice(it.ActualPrice)
	return it
}

func normalizePrice(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v == 0 {
		return 0 // normalizes -0 as well
	}
	return v
}

// AccumulateTotals adds the items' contribution to planned and actual sums.
// Planned counts every item; actual counts only bought items.
func AccumulateTotals(items []Item, planned, actual *float64) {
	for _, it := range items {
		it = NormalizeItem(it)
		*planned += it.PlannedPrice
		if it.IsBought {
			*actual += it.ActualPrice
		}
	}
}

// SumPlanned returns the planned total over all items regardless of bought state.
func SumPlanned(items []Item) float64 {
	var planned, actual float64
	AccumulateTotals(items, &planned, &actual)
	return planned
}

// SumActual returns the actual total over bought items only.
func SumActual(items []Item) float64 {
	var planned, actual float64
	AccumulateTotals(items, &planned, &actual)
	return actual
}

// DisplayYen rounds a price to whole yen for display. Stored values stay
// fractional.
func DisplayYen(v float64) int64 {
	return int64(math.Round(v))
}

// Remaining returns the budget left after the month's actual spending.
func (v DayView) Remaining() float64 {
	return v.Budget.Amount - v.Totals.MonthActual
}
