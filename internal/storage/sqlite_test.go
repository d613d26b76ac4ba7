package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"cantina/internal/core"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cantina.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func putTestPerson(t *testing.T, s *SQLiteStore, id, name string) {
	t.Helper()
	err := s.PutPerson(context.Background(), &core.Person{ID: id, Name: name})
	if err != nil {
		t.Fatalf("put person: %v", err)
	}
}

func TestPersonRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &core.Person{
		ID:            "p1",
		Name:          "Ana Ramírez",
		GuardianName:  "Marta Ramírez",
		GuardianPhone: "+50688887777",
		IsFavorite:    true,
	}
	if err := s.PutPerson(ctx, p); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.GetPerson(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != p.Name || got.GuardianName != p.GuardianName || !got.IsFavorite {
		t.Fatalf("person mismatch: %+v", got)
	}
	if got.CurrentBalance.Cents != 0 || got.PrepaidAmount.Cents != 0 {
		t.Fatalf("expected zero balances, got %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}

	if _, err := s.GetPerson(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutPersonUpdatesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	putTestPerson(t, s, "p1", "Ana")

	updated := &core.Person{
		ID:             "p1",
		Name:           "Ana Ramírez",
		IsFavorite:     true,
		CurrentBalance: core.Money{Cents: -5000},
	}
	if err := s.PutPerson(ctx, updated); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.GetPerson(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Ana Ramírez" || !got.IsFavorite || got.CurrentBalance.Cents != -5000 {
		t.Fatalf("update not applied: %+v", got)
	}

	persons, err := s.ListPersons(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(persons) != 1 {
		t.Fatalf("expected 1 person, got %d", len(persons))
	}
}

func TestUpdatePersonInfoLeavesBalanceAlone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	putTestPerson(t, s, "p1", "Ana")

	// Take a snapshot, then move the balance behind its back.
	snapshot, err := s.GetPerson(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	purchase := &core.Purchase{
		ID:       "c1",
		PersonID: "p1",
		Date:     core.NewDate(2024, 6, 12),
		Amount:   core.Money{Cents: 150000},
	}
	if err := s.AddPurchase(ctx, purchase); err != nil {
		t.Fatalf("add purchase: %v", err)
	}

	// Writing the stale snapshot back must not restore the old balance.
	snapshot.Name = "Ana Ramírez"
	snapshot.IsFavorite = true
	if err := s.UpdatePersonInfo(ctx, snapshot); err != nil {
		t.Fatalf("update info: %v", err)
	}

	got, err := s.GetPerson(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Ana Ramírez" || !got.IsFavorite {
		t.Fatalf("info edit not applied: %+v", got)
	}
	if got.CurrentBalance.Cents != -150000 {
		t.Fatalf("balance clobbered by info edit: got %d, want -150000", got.CurrentBalance.Cents)
	}

	if err := s.UpdatePersonInfo(ctx, &core.Person{ID: "ghost", Name: "X"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddPurchaseDebitsBalance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	putTestPerson(t, s, "p1", "Ana")

	purchase := &core.Purchase{
		ID:          "c1",
		PersonID:    "p1",
		Date:        core.NewDate(2024, 6, 12),
		Amount:      core.Money{Cents: 150000},
		Description: "almuerzo",
	}
	if err := s.AddPurchase(ctx, purchase); err != nil {
		t.Fatalf("add purchase: %v", err)
	}

	p, err := s.GetPerson(ctx, "p1")
	if err != nil {
		t.Fatalf("get person: %v", err)
	}
	if p.CurrentBalance.Cents != -150000 {
		t.Fatalf("expected balance -150000, got %d", p.CurrentBalance.Cents)
	}
	if p.PrepaidAmount.Cents != 0 {
		t.Fatalf("purchase must not touch prepaid total, got %d", p.PrepaidAmount.Cents)
	}

	got, err := s.GetPurchase(ctx, "c1")
	if err != nil {
		t.Fatalf("get purchase: %v", err)
	}
	if got.Amount.Cents != 150000 || got.Date.String() != "2024-06-12" {
		t.Fatalf("purchase mismatch: %+v", got)
	}
}

func TestAddPaymentCreditsBalance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	putTestPerson(t, s, "p1", "Ana")

	cases := []struct {
		typ         core.PaymentType
		amount      int64
		wantBalance int64
		wantPrepaid int64
	}{
		{core.PaymentPrepaid, 100000, 100000, 100000},
		{core.PaymentDebt, 50000, 150000, 100000},
		{core.PaymentManualAdjustment, 20000, 170000, 120000},
	}
	for i, tc := range cases {
		payment := &core.Payment{
			ID:       "g" + string(rune('1'+i)),
			PersonID: "p1",
			Date:     core.NewDate(2024, 6, 12),
			Amount:   core.Money{Cents: tc.amount},
			Type:     tc.typ,
		}
		if err := s.AddPayment(ctx, payment); err != nil {
			t.Fatalf("add %s payment: %v", tc.typ, err)
		}
		p, err := s.GetPerson(ctx, "p1")
		if err != nil {
			t.Fatalf("get person: %v", err)
		}
		if p.CurrentBalance.Cents != tc.wantBalance {
			t.Fatalf("%s: expected balance %d, got %d", tc.typ, tc.wantBalance, p.CurrentBalance.Cents)
		}
		if p.PrepaidAmount.Cents != tc.wantPrepaid {
			t.Fatalf("%s: expected prepaid %d, got %d", tc.typ, tc.wantPrepaid, p.PrepaidAmount.Cents)
		}
	}
}

func TestAddTransactionMissingPersonRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	purchase := &core.Purchase{
		ID:       "c1",
		PersonID: "ghost",
		Date:     core.NewDate(2024, 6, 12),
		Amount:   core.Money{Cents: 1000},
	}
	if err := s.AddPurchase(ctx, purchase); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// The insert must have been rolled back with the balance update.
	if _, err := s.GetPurchase(ctx, "c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected purchase row rolled back, got %v", err)
	}

	payment := &core.Payment{
		ID:       "g1",
		PersonID: "ghost",
		Date:     core.NewDate(2024, 6, 12),
		Amount:   core.Money{Cents: 1000},
		Type:     core.PaymentPrepaid,
	}
	if err := s.AddPayment(ctx, payment); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetPayment(ctx, "g1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected payment row rolled back, got %v", err)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	putTestPerson(t, s, "p1", "Ana")

	dates := []core.Date{
		core.NewDate(2024, 6, 10),
		core.NewDate(2024, 6, 14),
		core.NewDate(2024, 6, 12),
	}
	for i, d := range dates {
		purchase := &core.Purchase{
			ID:       "c" + string(rune('1'+i)),
			PersonID: "p1",
			Date:     d,
			Amount:   core.Money{Cents: 1000},
		}
		if err := s.AddPurchase(ctx, purchase); err != nil {
			t.Fatalf("add purchase: %v", err)
		}
	}

	purchases, err := s.PurchasesByPerson(ctx, "p1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []string{"2024-06-14", "2024-06-12", "2024-06-10"}
	if len(purchases) != len(want) {
		t.Fatalf("expected %d purchases, got %d", len(want), len(purchases))
	}
	for i, w := range want {
		if purchases[i].Date.String() != w {
			t.Fatalf("position %d: expected %s, got %s", i, w, purchases[i].Date.String())
		}
	}
}

func TestDateRangeInclusive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	putTestPerson(t, s, "p1", "Ana")

	for i, d := range []core.Date{
		core.NewDate(2024, 6, 8),  // before
		core.NewDate(2024, 6, 9),  // start bound
		core.NewDate(2024, 6, 15), // end bound
		core.NewDate(2024, 6, 16), // after
	} {
		purchase := &core.Purchase{
			ID:       "c" + string(rune('1'+i)),
			PersonID: "p1",
			Date:     d,
			Amount:   core.Money{Cents: 1000},
		}
		if err := s.AddPurchase(ctx, purchase); err != nil {
			t.Fatalf("add purchase: %v", err)
		}
	}

	r := core.DateRange{Start: core.NewDate(2024, 6, 9), End: core.NewDate(2024, 6, 15)}
	purchases, err := s.PurchasesByDateRange(ctx, r)
	if err != nil {
		t.Fatalf("range query: %v", err)
	}
	if len(purchases) != 2 {
		t.Fatalf("expected 2 purchases in range, got %d", len(purchases))
	}
	if purchases[0].Date.String() != "2024-06-09" || purchases[1].Date.String() != "2024-06-15" {
		t.Fatalf("wrong rows in range: %s, %s", purchases[0].Date, purchases[1].Date)
	}
}

func TestSumTransactionsAndSetBalance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	putTestPerson(t, s, "p1", "Ana")

	txs := []struct {
		payment bool
		cents   int64
	}{
		{true, 100000},
		{false, 35000},
		{false, 15000},
		{true, 20000},
	}
	for i, tx := range txs {
		id := "t" + string(rune('1'+i))
		date := core.NewDate(2024, 6, 12)
		var err error
		if tx.payment {
			err = s.AddPayment(ctx, &core.Payment{
				ID: id, PersonID: "p1", Date: date,
				Amount: core.Money{Cents: tx.cents}, Type: core.PaymentPrepaid,
			})
		} else {
			err = s.AddPurchase(ctx, &core.Purchase{
				ID: id, PersonID: "p1", Date: date,
				Amount: core.Money{Cents: tx.cents},
			})
		}
		if err != nil {
			t.Fatalf("add transaction %d: %v", i, err)
		}
	}

	payments, purchases, err := s.SumTransactions(ctx, "p1")
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if payments.Cents != 120000 || purchases.Cents != 50000 {
		t.Fatalf("expected 120000/50000, got %d/%d", payments.Cents, purchases.Cents)
	}

	if err := s.SetBalance(ctx, "p1", core.Money{Cents: 70000}); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	p, err := s.GetPerson(ctx, "p1")
	if err != nil {
		t.Fatalf("get person: %v", err)
	}
	if p.CurrentBalance.Cents != 70000 {
		t.Fatalf("expected balance 70000, got %d", p.CurrentBalance.Cents)
	}

	if err := s.SetBalance(ctx, "ghost", core.Money{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeletePersonCascade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	putTestPerson(t, s, "p1", "Ana")
	putTestPerson(t, s, "p2", "Luis")

	date := core.NewDate(2024, 6, 12)
	if err := s.AddPurchase(ctx, &core.Purchase{ID: "c1", PersonID: "p1", Date: date, Amount: core.Money{Cents: 1000}}); err != nil {
		t.Fatalf("add purchase: %v", err)
	}
	if err := s.AddPayment(ctx, &core.Payment{ID: "g1", PersonID: "p1", Date: date, Amount: core.Money{Cents: 1000}, Type: core.PaymentDebt}); err != nil {
		t.Fatalf("add payment: %v", err)
	}
	if err := s.AddPurchase(ctx, &core.Purchase{ID: "c2", PersonID: "p2", Date: date, Amount: core.Money{Cents: 2000}}); err != nil {
		t.Fatalf("add purchase: %v", err)
	}

	if err := s.DeletePersonCascade(ctx, "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetPerson(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected person gone, got %v", err)
	}
	if _, err := s.GetPurchase(ctx, "c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected purchase gone, got %v", err)
	}
	if _, err := s.GetPayment(ctx, "g1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected payment gone, got %v", err)
	}
	// Other persons' history is untouched.
	if _, err := s.GetPurchase(ctx, "c2"); err != nil {
		t.Fatalf("expected c2 intact, got %v", err)
	}

	if err := s.DeletePersonCascade(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMirrorBookkeeping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	putTestPerson(t, s, "p1", "Ana")

	date := core.NewDate(2024, 6, 12)
	if err := s.AddPurchase(ctx, &core.Purchase{ID: "c1", PersonID: "p1", Date: date, Amount: core.Money{Cents: 1000}}); err != nil {
		t.Fatalf("add purchase: %v", err)
	}
	if err := s.AddPayment(ctx, &core.Payment{ID: "g1", PersonID: "p1", Date: date, Amount: core.Money{Cents: 1000}, Type: core.PaymentPrepaid}); err != nil {
		t.Fatalf("add payment: %v", err)
	}

	pending, err := s.PendingMirror(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending items, got %d", len(pending))
	}

	for _, item := range pending {
		if err := s.MarkMirrored(ctx, item); err != nil {
			t.Fatalf("mark mirrored: %v", err)
		}
	}
	pending, err = s.PendingMirror(ctx, 10)
	if err != nil {
		t.Fatalf("pending after sync: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending items, got %d", len(pending))
	}

	err = s.MarkMirrorError(ctx, MirrorItem{Kind: KindPurchase, ID: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &core.User{ID: "u1", Username: "operator", PasswordHash: "$2a$10$abc"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := s.GetUserByUsername(ctx, "operator")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "u1" || got.PasswordHash != "$2a$10$abc" {
		t.Fatalf("user mismatch: %+v", got)
	}

	dup := &core.User{ID: "u2", Username: "operator", PasswordHash: "x"}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}

	if _, err := s.GetUserByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
