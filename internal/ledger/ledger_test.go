package ledger

import (
	"context"
	"errors"
	"testing"

	"cantina/internal/core"
	"cantina/internal/storage"
	"cantina/internal/storage/memory"
)

func newTestLedger(t *testing.T) (*Ledger, *memory.Store) {
	t.Helper()
	store := memory.New()
	err := store.PutPerson(context.Background(), &core.Person{ID: "p1", Name: "Ana"})
	if err != nil {
		t.Fatalf("seed person: %v", err)
	}
	return New(store), store
}

func balance(t *testing.T, store storage.Store, personID string) int64 {
	t.Helper()
	p, err := store.GetPerson(context.Background(), personID)
	if err != nil {
		t.Fatalf("get person: %v", err)
	}
	return p.CurrentBalance.Cents
}

func TestRecordKeepsBalanceInvariant(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	date := core.NewDate(2024, 6, 12)

	steps := []struct {
		payment bool
		cents   int64
		want    int64
	}{
		{true, 500000, 500000},  // prepaid 5000
		{false, 120000, 380000}, // lunch
		{false, 80000, 300000},
		{true, 100000, 400000},
		{false, 450000, -50000}, // into debt
	}
	for i, step := range steps {
		var err error
		if step.payment {
			_, err = l.RecordPayment(ctx, "p1", date, core.Money{Cents: step.cents}, core.PaymentPrepaid, "")
		} else {
			_, err = l.RecordPurchase(ctx, "p1", date, core.Money{Cents: step.cents}, "almuerzo")
		}
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got := balance(t, store, "p1"); got != step.want {
			t.Fatalf("step %d: expected balance %d, got %d", i, step.want, got)
		}
	}
}

func TestRecordRejectsInvalid(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	date := core.NewDate(2024, 6, 12)

	if _, err := l.RecordPurchase(ctx, "", date, core.Money{Cents: 1000}, ""); !errors.Is(err, core.ErrEmptyPersonID) {
		t.Fatalf("expected ErrEmptyPersonID, got %v", err)
	}
	if _, err := l.RecordPurchase(ctx, "p1", date, core.Money{Cents: 0}, ""); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := l.RecordPurchase(ctx, "p1", core.Date{}, core.Money{Cents: 1000}, ""); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := l.RecordPayment(ctx, "p1", date, core.Money{Cents: 1000}, "cash", ""); !errors.Is(err, core.ErrInvalidPaymentType) {
		t.Fatalf("expected ErrInvalidPaymentType, got %v", err)
	}
	if _, err := l.RecordPayment(ctx, "ghost", date, core.Money{Cents: 1000}, core.PaymentPrepaid, ""); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Nothing above may have moved the balance.
	if got := balance(t, store, "p1"); got != 0 {
		t.Fatalf("expected untouched balance, got %d", got)
	}
}

func TestRecalculateRestoresBalance(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	date := core.NewDate(2024, 6, 12)

	if _, err := l.RecordPayment(ctx, "p1", date, core.Money{Cents: 300000}, core.PaymentPrepaid, ""); err != nil {
		t.Fatalf("payment: %v", err)
	}
	if _, err := l.RecordPurchase(ctx, "p1", date, core.Money{Cents: 120000}, ""); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	// Corrupt the stored balance, then repair it from history.
	if err := store.SetBalance(ctx, "p1", core.Money{Cents: 999999}); err != nil {
		t.Fatalf("corrupt balance: %v", err)
	}
	got, err := l.Recalculate(ctx, "p1")
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if got.Cents != 180000 {
		t.Fatalf("expected 180000, got %d", got.Cents)
	}

	// Idempotent: a second run changes nothing.
	again, err := l.Recalculate(ctx, "p1")
	if err != nil {
		t.Fatalf("second recalculate: %v", err)
	}
	if again.Cents != got.Cents {
		t.Fatalf("recalculation not idempotent: %d then %d", got.Cents, again.Cents)
	}

	if _, err := l.Recalculate(ctx, "ghost"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAdjustBalanceDelta(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	date := core.NewDate(2024, 6, 12)

	credit, err := l.AdjustBalance(ctx, "p1", date, core.Money{Cents: 50000}, "conteo de caja")
	if err != nil {
		t.Fatalf("credit adjustment: %v", err)
	}
	if !credit.Applied || credit.Payment == nil || credit.Purchase != nil {
		t.Fatalf("expected payment-backed adjustment, got %+v", credit)
	}
	if credit.Payment.Type != core.PaymentManualAdjustment {
		t.Fatalf("expected manualAdjustment type, got %s", credit.Payment.Type)
	}
	if got := balance(t, store, "p1"); got != 50000 {
		t.Fatalf("expected balance 50000, got %d", got)
	}

	debit, err := l.AdjustBalance(ctx, "p1", date, core.Money{Cents: -80000}, "error de registro")
	if err != nil {
		t.Fatalf("debit adjustment: %v", err)
	}
	if !debit.Applied || debit.Purchase == nil || debit.Payment != nil {
		t.Fatalf("expected purchase-backed adjustment, got %+v", debit)
	}
	if debit.Purchase.Amount.Cents != 80000 {
		t.Fatalf("expected positive purchase amount, got %d", debit.Purchase.Amount.Cents)
	}
	if got := balance(t, store, "p1"); got != -30000 {
		t.Fatalf("expected balance -30000, got %d", got)
	}

	// The adjustment is real history: recalculation reproduces it.
	recalced, err := l.Recalculate(ctx, "p1")
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if recalced.Cents != -30000 {
		t.Fatalf("adjustment lost in recalculation: got %d", recalced.Cents)
	}
}

func TestAdjustBalanceRequiresReasonAndDelta(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	date := core.NewDate(2024, 6, 12)

	if _, err := l.AdjustBalance(ctx, "p1", date, core.Money{Cents: 1000}, "  "); !errors.Is(err, core.ErrEmptyReason) {
		t.Fatalf("expected ErrEmptyReason, got %v", err)
	}
	if _, err := l.AdjustBalance(ctx, "p1", date, core.Money{}, "reason"); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := l.AdjustBalance(ctx, "ghost", date, core.Money{Cents: 1000}, "reason"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAdjustToTarget(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	date := core.NewDate(2024, 6, 12)

	// Deep debt wiped to zero with one correcting payment.
	if _, err := l.RecordPurchase(ctx, "p1", date, core.Money{Cents: 2000000}, "deuda vieja"); err != nil {
		t.Fatalf("seed debt: %v", err)
	}
	res, err := l.AdjustToTarget(ctx, "p1", date, core.Money{}, "condonación")
	if err != nil {
		t.Fatalf("adjust to target: %v", err)
	}
	if !res.Applied || res.Payment == nil {
		t.Fatalf("expected applied payment adjustment, got %+v", res)
	}
	if res.Payment.Amount.Cents != 2000000 || res.Delta.Cents != 2000000 {
		t.Fatalf("expected delta 2000000, got payment %d delta %d", res.Payment.Amount.Cents, res.Delta.Cents)
	}
	if got := balance(t, store, "p1"); got != 0 {
		t.Fatalf("expected balance 0, got %d", got)
	}
}

func TestAdjustToTargetAlreadyClose(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	date := core.NewDate(2024, 6, 12)

	// Within one colón of the target: nothing is written.
	res, err := l.AdjustToTarget(ctx, "p1", date, core.Money{Cents: 99}, "ajuste")
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if res.Applied {
		t.Fatalf("expected no-op, got %+v", res)
	}
	if res.NewBalance.Cents != 0 {
		t.Fatalf("expected unchanged balance in result, got %d", res.NewBalance.Cents)
	}
	if purchases, _ := store.PurchasesByPerson(ctx, "p1"); len(purchases) != 0 {
		t.Fatalf("no-op wrote %d purchases", len(purchases))
	}
	if payments, _ := store.PaymentsByPerson(ctx, "p1"); len(payments) != 0 {
		t.Fatalf("no-op wrote %d payments", len(payments))
	}

	// Exactly one colón away is applied.
	res, err = l.AdjustToTarget(ctx, "p1", date, core.Money{Cents: 100}, "ajuste")
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if !res.Applied || res.Delta.Cents != 100 {
		t.Fatalf("expected applied delta 100, got %+v", res)
	}
}
