// Package google implements the spreadsheet mirror on the Google Sheets API
// with service account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"cantina/internal/core"
	ports "cantina/internal/sheets"
)

type Client struct {
	svc            *gsheet.Service
	spreadsheetID  string
	purchasesSheet string
	paymentsSheet  string
}

var _ ports.Mirror = (*Client)(nil)

// Config carries everything the client needs. Exactly one of
// CredentialsFile and CredentialsJSON must be set.
type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string
	PurchasesSheet  string
	PaymentsSheet   string
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if cfg.PurchasesSheet == "" || cfg.PaymentsSheet == "" {
		return nil, errors.New("missing mirror sheet names")
	}

	var credentialsJSON []byte
	switch {
	case cfg.CredentialsJSON != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets mirror initialized",
		"spreadsheet_id", cfg.SpreadsheetID,
		"purchases_sheet", cfg.PurchasesSheet,
		"payments_sheet", cfg.PaymentsSheet)

	return &Client{
		svc:            svc,
		spreadsheetID:  cfg.SpreadsheetID,
		purchasesSheet: cfg.PurchasesSheet,
		paymentsSheet:  cfg.PaymentsSheet,
	}, nil
}

// AppendPurchase appends one purchase row: date, person, description, amount.
func (c *Client) AppendPurchase(ctx context.Context, p core.Purchase, personName string) (string, error) {
	row := []any{p.Date.String(), personName, p.Description, centsToDecimal(p.Amount)}
	return c.appendRow(ctx, c.purchasesSheet, row)
}

// AppendPayment appends one payment row: date, person, type, comment, amount.
func (c *Client) AppendPayment(ctx context.Context, p core.Payment, personName string) (string, error) {
	row := []any{p.Date.String(), personName, string(p.Type), p.Comment, centsToDecimal(p.Amount)}
	return c.appendRow(ctx, c.paymentsSheet, row)
}

func (c *Client) appendRow(ctx context.Context, sheetName string, row []any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:Z", sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{row}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheetName, err)
	}

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

func centsToDecimal(m core.Money) float64 {
	return float64(m.Cents) / 100.0
}
