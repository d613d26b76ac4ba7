// Package ledger implements the balance engine: recording purchases and
// payments, recalculating balances from history, and manual adjustments.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"cantina/internal/core"
	"cantina/internal/log"
	"cantina/internal/storage"
)

// adjustmentEpsilon is the dead band for target adjustments. Differences
// under one colón are not worth a correcting transaction.
const adjustmentEpsilon = 100

// Ledger owns every balance mutation. CurrentBalance is never written
// outside this package.
type Ledger struct {
	store storage.Store
}

func New(store storage.Store) *Ledger {
	return &Ledger{store: store}
}

// RecordPurchase validates and commits a debit against the person.
func (l *Ledger) RecordPurchase(ctx context.Context, personID string, date core.Date, amount core.Money, description string) (*core.Purchase, error) {
	purchase := &core.Purchase{
		ID:          uuid.NewString(),
		PersonID:    personID,
		Date:        date,
		Amount:      amount,
		Description: strings.TrimSpace(description),
	}
	if err := purchase.Validate(); err != nil {
		return nil, err
	}
	if err := l.store.AddPurchase(ctx, purchase); err != nil {
		return nil, fmt.Errorf("record purchase: %w", err)
	}
	return purchase, nil
}

// RecordPayment validates and commits a credit for the person. The payment
// type is metadata; the balance effect is identical for all types.
func (l *Ledger) RecordPayment(ctx context.Context, personID string, date core.Date, amount core.Money, typ core.PaymentType, comment string) (*core.Payment, error) {
	payment := &core.Payment{
		ID:       uuid.NewString(),
		PersonID: personID,
		Date:     date,
		Amount:   amount,
		Type:     typ,
		Comment:  strings.TrimSpace(comment),
	}
	if err := payment.Validate(); err != nil {
		return nil, err
	}
	if err := l.store.AddPayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	return payment, nil
}

// Recalculate recomputes the person's balance from their complete history
// and overwrites the stored value. Running it twice in a row yields the
// same balance, so it is safe to use as a repair tool.
func (l *Ledger) Recalculate(ctx context.Context, personID string) (core.Money, error) {
	payments, purchases, err := l.store.SumTransactions(ctx, personID)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum transactions: %w", err)
	}
	balance := payments.Sub(purchases)
	if err := l.store.SetBalance(ctx, personID, balance); err != nil {
		return core.Money{}, fmt.Errorf("set balance: %w", err)
	}
	fields := log.NewFields().
		WithComponent(log.ComponentLedger).
		WithOperation(log.OpRecalculate)
	fields[log.FieldPersonID] = personID
	fields["balance_cents"] = balance.Cents
	slog.InfoContext(ctx, "Balance recalculated", fields.ToSlice()...)
	return balance, nil
}

// AdjustmentResult reports what a manual adjustment did. Applied is false
// when a target adjustment found the balance already close enough.
type AdjustmentResult struct {
	Applied    bool
	Delta      core.Money
	NewBalance core.Money
	// Exactly one of Payment and Purchase is set when Applied is true.
	Payment  *core.Payment
	Purchase *core.Purchase
}

// AdjustBalance applies a signed correction to the person's balance. A
// positive delta becomes a manual-adjustment payment, a negative delta a
// purchase, so the correction stays visible in the transaction history and
// survives recalculation.
func (l *Ledger) AdjustBalance(ctx context.Context, personID string, date core.Date, delta core.Money, reason string) (*AdjustmentResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, core.ErrEmptyReason
	}
	if delta.IsZero() {
		return nil, core.ErrInvalidAmount
	}

	person, err := l.store.GetPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}

	result := &AdjustmentResult{
		Applied:    true,
		Delta:      delta,
		NewBalance: person.CurrentBalance.Add(delta),
	}
	if delta.Cents > 0 {
		payment, err := l.RecordPayment(ctx, personID, date, delta, core.PaymentManualAdjustment, reason)
		if err != nil {
			return nil, err
		}
		result.Payment = payment
	} else {
		purchase, err := l.RecordPurchase(ctx, personID, date, delta.Abs(), reason)
		if err != nil {
			return nil, err
		}
		result.Purchase = purchase
	}

	fields := log.NewFields().
		WithComponent(log.ComponentLedger).
		WithOperation(log.OpAdjust).
		WithTransaction(personID, date.String(), delta.Cents)
	fields["balance_cents"] = result.NewBalance.Cents
	slog.InfoContext(ctx, "Manual adjustment applied", fields.ToSlice()...)
	return result, nil
}

// AdjustToTarget moves the person's balance to the given target by
// recording the difference as a manual adjustment. Targets within the
// epsilon of the current balance are reported as already reached without
// writing anything.
func (l *Ledger) AdjustToTarget(ctx context.Context, personID string, date core.Date, target core.Money, reason string) (*AdjustmentResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, core.ErrEmptyReason
	}

	person, err := l.store.GetPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}

	delta := target.Sub(person.CurrentBalance)
	if delta.Abs().Cents < adjustmentEpsilon {
		return &AdjustmentResult{
			Applied:    false,
			Delta:      core.Money{},
			NewBalance: person.CurrentBalance,
		}, nil
	}
	return l.AdjustBalance(ctx, personID, date, delta, reason)
}
