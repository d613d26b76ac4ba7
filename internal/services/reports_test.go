package services

import (
	"context"
	"testing"

	"cantina/internal/core"
)

// seedWeek creates two persons with activity on and around the week of
// Sunday 2024-06-09 through Saturday 2024-06-15.
func seedWeek(t *testing.T) *Canteen {
	t.Helper()
	s, _ := newTestService(t)
	ctx := context.Background()

	ana, err := s.AddPerson(ctx, "Ana", "", "")
	if err != nil {
		t.Fatalf("add ana: %v", err)
	}
	luis, err := s.AddPerson(ctx, "Luis", "", "")
	if err != nil {
		t.Fatalf("add luis: %v", err)
	}

	type tx struct {
		personID string
		date     core.Date
		cents    int64
		payment  bool
	}
	for _, e := range []tx{
		{ana.ID, core.NewDate(2024, 6, 8), 99900, false},   // Saturday before, out of range
		{ana.ID, core.NewDate(2024, 6, 9), 120000, false},  // Sunday, start bound
		{ana.ID, core.NewDate(2024, 6, 12), 80000, false},  // Wednesday
		{luis.ID, core.NewDate(2024, 6, 12), 50000, false}, // Wednesday
		{ana.ID, core.NewDate(2024, 6, 12), 300000, true},  // Wednesday payment
		{luis.ID, core.NewDate(2024, 6, 15), 50000, true},  // Saturday, end bound
		{luis.ID, core.NewDate(2024, 6, 16), 77700, true},  // Sunday after, out of range
	} {
		var err error
		if e.payment {
			_, err = s.RecordPayment(ctx, e.personID, e.date, core.Money{Cents: e.cents}, core.PaymentPrepaid, "")
		} else {
			_, err = s.RecordPurchase(ctx, e.personID, e.date, core.Money{Cents: e.cents}, "")
		}
		if err != nil {
			t.Fatalf("seed tx: %v", err)
		}
	}
	return s
}

func TestWeeklySummary(t *testing.T) {
	s := seedWeek(t)

	// Anchor on Wednesday; the week runs Sunday 09 through Saturday 15.
	summary, err := s.WeeklySummary(context.Background(), core.NewDate(2024, 6, 12))
	if err != nil {
		t.Fatalf("weekly summary: %v", err)
	}

	if summary.Range.Start.String() != "2024-06-09" || summary.Range.End.String() != "2024-06-15" {
		t.Fatalf("wrong week range: %s..%s", summary.Range.Start, summary.Range.End)
	}
	if len(summary.Purchases) != 3 {
		t.Fatalf("expected 3 purchases in week, got %d", len(summary.Purchases))
	}
	if len(summary.Payments) != 2 {
		t.Fatalf("expected 2 payments in week, got %d", len(summary.Payments))
	}

	// Purchases: Ana 2000.00, Luis 500.00. Sorted by name.
	if len(summary.PurchaseTotals) != 2 {
		t.Fatalf("expected 2 purchase totals, got %+v", summary.PurchaseTotals)
	}
	if summary.PurchaseTotals[0].Name != "Ana" || summary.PurchaseTotals[0].Total.Cents != 200000 {
		t.Fatalf("unexpected first purchase total: %+v", summary.PurchaseTotals[0])
	}
	if summary.PurchaseTotals[1].Name != "Luis" || summary.PurchaseTotals[1].Total.Cents != 50000 {
		t.Fatalf("unexpected second purchase total: %+v", summary.PurchaseTotals[1])
	}

	// Net: payments 3500.00 minus purchases 2500.00.
	if summary.Net.Cents != 100000 {
		t.Fatalf("expected net 100000, got %d", summary.Net.Cents)
	}

	// Per-person net: Ana +1000.00, Luis 0 (omitted).
	if len(summary.Balances) != 1 {
		t.Fatalf("expected 1 balance row, got %+v", summary.Balances)
	}
	if summary.Balances[0].Name != "Ana" || summary.Balances[0].Balance.Cents != 100000 {
		t.Fatalf("unexpected balance row: %+v", summary.Balances[0])
	}
}

func TestDailySummary(t *testing.T) {
	s := seedWeek(t)

	summary, err := s.DailySummary(context.Background(), core.NewDate(2024, 6, 12))
	if err != nil {
		t.Fatalf("daily summary: %v", err)
	}

	if len(summary.Purchases) != 2 || len(summary.Payments) != 1 {
		t.Fatalf("expected 2 purchases and 1 payment, got %d/%d",
			len(summary.Purchases), len(summary.Payments))
	}
	if summary.Net.Cents != 300000-80000-50000 {
		t.Fatalf("unexpected net: %d", summary.Net.Cents)
	}
}

func TestSummarySplitsManualAdjustments(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	date := core.NewDate(2024, 6, 12)

	person, err := s.AddPerson(ctx, "Ana", "", "")
	if err != nil {
		t.Fatalf("add person: %v", err)
	}
	if _, err := s.RecordPayment(ctx, person.ID, date, core.Money{Cents: 100000}, core.PaymentDebt, ""); err != nil {
		t.Fatalf("payment: %v", err)
	}
	if _, err := s.AdjustBalance(ctx, person.ID, date, core.Money{Cents: 25000}, "conteo"); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	summary, err := s.DailySummary(ctx, date)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(summary.RegularPayments) != 1 || len(summary.ManualAdjustments) != 1 {
		t.Fatalf("expected 1 regular and 1 adjustment, got %d/%d",
			len(summary.RegularPayments), len(summary.ManualAdjustments))
	}
	// Both groupings still feed the same totals.
	if summary.PaymentTotals[0].Total.Cents != 125000 {
		t.Fatalf("expected payment total 125000, got %d", summary.PaymentTotals[0].Total.Cents)
	}
}
