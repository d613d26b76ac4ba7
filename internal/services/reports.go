package services

import (
	"context"
	"fmt"

	"cantina/internal/core"
)

// PeriodSummary aggregates all activity inside one date range.
type PeriodSummary struct {
	Range core.DateRange

	Purchases []core.Purchase
	Payments  []core.Payment

	// Per-person totals for each side of the ledger.
	PurchaseTotals []core.PersonTotal
	PaymentTotals  []core.PersonTotal

	// Payments split by origin so reports can show operator corrections
	// separately from real money.
	RegularPayments   []core.Payment
	ManualAdjustments []core.Payment

	// Net movement inside the range, payments minus purchases.
	Net core.Money

	// Per-person net movement, zero-net rows omitted.
	Balances []core.PersonBalance
}

// TransactionsByRange returns the raw purchases and payments inside the
// range, both inclusive of the bounds.
func (s *Canteen) TransactionsByRange(ctx context.Context, r core.DateRange) ([]core.Purchase, []core.Payment, error) {
	purchases, err := s.store.PurchasesByDateRange(ctx, r)
	if err != nil {
		return nil, nil, fmt.Errorf("purchases by range: %w", err)
	}
	payments, err := s.store.PaymentsByDateRange(ctx, r)
	if err != nil {
		return nil, nil, fmt.Errorf("payments by range: %w", err)
	}
	return purchases, payments, nil
}

// Summarize aggregates the given range into a PeriodSummary.
func (s *Canteen) Summarize(ctx context.Context, r core.DateRange) (*PeriodSummary, error) {
	purchases, payments, err := s.TransactionsByRange(ctx, r)
	if err != nil {
		return nil, err
	}
	persons, err := s.store.ListPersons(ctx)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}

	regular, adjustments := core.SplitPayments(payments)

	return &PeriodSummary{
		Range:             r,
		Purchases:         purchases,
		Payments:          payments,
		PurchaseTotals:    core.SummarizeByPerson(core.PurchaseTransactions(purchases), persons),
		PaymentTotals:     core.SummarizeByPerson(core.PaymentTransactions(payments), persons),
		RegularPayments:   regular,
		ManualAdjustments: adjustments,
		Net:               core.PeriodBalance(purchases, payments),
		Balances:          core.BalanceSummary(persons, purchases, payments),
	}, nil
}

// DailySummary aggregates one calendar day.
func (s *Canteen) DailySummary(ctx context.Context, day core.Date) (*PeriodSummary, error) {
	return s.Summarize(ctx, core.DayRange(day))
}

// WeeklySummary aggregates the Sunday-to-Saturday week containing anchor.
func (s *Canteen) WeeklySummary(ctx context.Context, anchor core.Date) (*PeriodSummary, error) {
	return s.Summarize(ctx, core.WeekRange(anchor))
}
