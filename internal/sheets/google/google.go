// Package google implements the purchase ledger on a Google Sheets
// spreadsheet, written to with a service account.
package google

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"kaimono/internal/core"
)

type Client struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
}

func NewClient(ctx context.Context, credentialsPath, spreadsheetID, sheetName string) (*Client, error) {
	service, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// AppendPurchase appends one ledger row:
// date, shop, item, planned price, actual price, item id, exported at.
func (c *Client) AppendPurchase(ctx context.Context, p core.Purchase) error {
	values := &sheets.ValueRange{
		Values: [][]interface{}{{
			p.Date.String(),
			p.ShopName,
			p.ItemName,
			p.PlannedPrice,
			p.ActualPrice,
			p.ItemID,
			time.Now().UTC().Format(time.RFC3339),
		}},
	}

	_, err := c.service.Spreadsheets.Values.
		Append(c.spreadsheetID, c.sheetName+"!A:G", values).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append purchase row: %w", err)
	}

	slog.InfoContext(ctx, "Purchase appended to ledger",
		"item_id", p.ItemID,
		"date", p.Date.String(),
		"shop", p.ShopName,
		"item", p.ItemName)
	return nil
}
