// Package sheets defines the ledger writer port implemented by the Google
// Sheets client and the in-memory fake.
package sheets

import (
	"context"

	"kaimono/internal/core"
)

// PurchaseWriter appends bought items to the purchase ledger.
type PurchaseWriter interface {
	AppendPurchase(ctx context.Context, p core.Purchase) error
}
