package core

// Purchase is one bought item flattened into a ledger row for export.
type Purchase struct {
	ItemID       int64
	Date         Date
	ShopName     string
	ItemName     string
	PlannedPrice float64
	ActualPrice  float64
}
