// Package sheets defines the outbound port for the spreadsheet mirror.
package sheets

import (
	"context"

	"cantina/internal/core"
)

// Mirror appends committed transactions to the backup spreadsheet. The
// spreadsheet is write-only from the application's point of view; the
// database stays authoritative.
type Mirror interface {
	AppendPurchase(ctx context.Context, p core.Purchase, personName string) (rowRef string, err error)
	AppendPayment(ctx context.Context, p core.Payment, personName string) (rowRef string, err error)
}
