// Package memory provides an in-memory Store for tests and for running
// without a database file.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cantina/internal/core"
	"cantina/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type purchaseRow struct {
	core.Purchase
	seq        int
	syncStatus string
}

type paymentRow struct {
	core.Payment
	seq        int
	syncStatus string
}

// Store keeps everything in maps guarded by one mutex. Writes that touch a
// transaction row and a balance hold the lock for both, which gives the
// same all-or-nothing visibility as the SQLite transaction.
type Store struct {
	mu        sync.Mutex
	persons   map[string]core.Person
	purchases map[string]purchaseRow
	payments  map[string]paymentRow
	users     map[string]core.User
	seq       int
}

func New() *Store {
	return &Store{
		persons:   make(map[string]core.Person),
		purchases: make(map[string]purchaseRow),
		payments:  make(map[string]paymentRow),
		users:     make(map[string]core.User),
	}
}

func (s *Store) GetPerson(_ context.Context, id string) (*core.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.persons[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListPersons(_ context.Context) ([]core.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	persons := make([]core.Person, 0, len(s.persons))
	for _, p := range s.persons {
		persons = append(persons, p)
	}
	sort.Slice(persons, func(i, j int) bool {
		if persons[i].Name != persons[j].Name {
			return persons[i].Name < persons[j].Name
		}
		return persons[i].ID < persons[j].ID
	})
	return persons, nil
}

func (s *Store) PutPerson(_ context.Context, p *core.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *p
	if existing, ok := s.persons[p.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.persons[p.ID] = stored
	return nil
}

func (s *Store) UpdatePersonInfo(_ context.Context, p *core.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.persons[p.ID]
	if !ok {
		return storage.ErrNotFound
	}
	existing.Name = p.Name
	existing.GuardianName = p.GuardianName
	existing.GuardianPhone = p.GuardianPhone
	existing.IsFavorite = p.IsFavorite
	s.persons[p.ID] = existing
	return nil
}

func (s *Store) DeletePersonCascade(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.persons, id)
	for pid, row := range s.purchases {
		if row.PersonID == id {
			delete(s.purchases, pid)
		}
	}
	for pid, row := range s.payments {
		if row.PersonID == id {
			delete(s.payments, pid)
		}
	}
	return nil
}

func (s *Store) AddPurchase(_ context.Context, p *core.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	person, ok := s.persons[p.PersonID]
	if !ok {
		return storage.ErrNotFound
	}
	s.seq++
	s.purchases[p.ID] = purchaseRow{Purchase: *p, seq: s.seq, syncStatus: "pending"}
	person.CurrentBalance = person.CurrentBalance.Sub(p.Amount)
	s.persons[p.PersonID] = person
	return nil
}

func (s *Store) AddPayment(_ context.Context, p *core.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	person, ok := s.persons[p.PersonID]
	if !ok {
		return storage.ErrNotFound
	}
	s.seq++
	s.payments[p.ID] = paymentRow{Payment: *p, seq: s.seq, syncStatus: "pending"}
	person.CurrentBalance = person.CurrentBalance.Add(p.Amount)
	if p.Type != core.PaymentDebt {
		person.PrepaidAmount = person.PrepaidAmount.Add(p.Amount)
	}
	s.persons[p.PersonID] = person
	return nil
}

func (s *Store) GetPurchase(_ context.Context, id string) (*core.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.purchases[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	p := row.Purchase
	return &p, nil
}

func (s *Store) GetPayment(_ context.Context, id string) (*core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.payments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	p := row.Payment
	return &p, nil
}

func (s *Store) PurchasesByPerson(_ context.Context, personID string) ([]core.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []purchaseRow
	for _, row := range s.purchases {
		if row.PersonID == personID {
			rows = append(rows, row)
		}
	}
	sortPurchases(rows, true)
	return purchaseValues(rows), nil
}

func (s *Store) PaymentsByPerson(_ context.Context, personID string) ([]core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []paymentRow
	for _, row := range s.payments {
		if row.PersonID == personID {
			rows = append(rows, row)
		}
	}
	sortPayments(rows, true)
	return paymentValues(rows), nil
}

func (s *Store) PurchasesByDateRange(_ context.Context, r core.DateRange) ([]core.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []purchaseRow
	for _, row := range s.purchases {
		if r.Contains(row.Date) {
			rows = append(rows, row)
		}
	}
	sortPurchases(rows, false)
	return purchaseValues(rows), nil
}

func (s *Store) PaymentsByDateRange(_ context.Context, r core.DateRange) ([]core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []paymentRow
	for _, row := range s.payments {
		if r.Contains(row.Date) {
			rows = append(rows, row)
		}
	}
	sortPayments(rows, false)
	return paymentValues(rows), nil
}

func (s *Store) SumTransactions(_ context.Context, personID string) (core.Money, core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var payments, purchases core.Money
	for _, row := range s.payments {
		if row.PersonID == personID {
			payments = payments.Add(row.Amount)
		}
	}
	for _, row := range s.purchases {
		if row.PersonID == personID {
			purchases = purchases.Add(row.Amount)
		}
	}
	return payments, purchases, nil
}

func (s *Store) SetBalance(_ context.Context, personID string, balance core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	person, ok := s.persons[personID]
	if !ok {
		return storage.ErrNotFound
	}
	person.CurrentBalance = balance
	s.persons[personID] = person
	return nil
}

func (s *Store) PendingMirror(_ context.Context, limit int) ([]storage.MirrorItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type pendingItem struct {
		item storage.MirrorItem
		seq  int
	}
	var pending []pendingItem
	for id, row := range s.purchases {
		if row.syncStatus == "pending" {
			pending = append(pending, pendingItem{storage.MirrorItem{Kind: storage.KindPurchase, ID: id}, row.seq})
		}
	}
	for id, row := range s.payments {
		if row.syncStatus == "pending" {
			pending = append(pending, pendingItem{storage.MirrorItem{Kind: storage.KindPayment, ID: id}, row.seq})
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].seq < pending[j].seq })
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	items := make([]storage.MirrorItem, len(pending))
	for i, p := range pending {
		items[i] = p.item
	}
	return items, nil
}

func (s *Store) MarkMirrored(ctx context.Context, item storage.MirrorItem) error {
	return s.setSyncStatus(item, "synced")
}

func (s *Store) MarkMirrorError(ctx context.Context, item storage.MirrorItem) error {
	return s.setSyncStatus(item, "error")
}

func (s *Store) setSyncStatus(item storage.MirrorItem, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch item.Kind {
	case storage.KindPurchase:
		row, ok := s.purchases[item.ID]
		if !ok {
			return storage.ErrNotFound
		}
		row.syncStatus = status
		s.purchases[item.ID] = row
	case storage.KindPayment:
		row, ok := s.payments[item.ID]
		if !ok {
			return storage.ErrNotFound
		}
		row.syncStatus = status
		s.payments[item.ID] = row
	default:
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CreateUser(_ context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Username]; ok {
		return storage.ErrDuplicateUser
	}
	stored := *u
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.users[u.Username] = stored
	return nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &u, nil
}

func (s *Store) Close() error { return nil }

func sortPurchases(rows []purchaseRow, newestFirst bool) {
	sort.Slice(rows, func(i, j int) bool {
		di, dj := rows[i].Date.String(), rows[j].Date.String()
		if di != dj {
			if newestFirst {
				return di > dj
			}
			return di < dj
		}
		if newestFirst {
			return rows[i].seq > rows[j].seq
		}
		return rows[i].seq < rows[j].seq
	})
}

func sortPayments(rows []paymentRow, newestFirst bool) {
	sort.Slice(rows, func(i, j int) bool {
		di, dj := rows[i].Date.String(), rows[j].Date.String()
		if di != dj {
			if newestFirst {
				return di > dj
			}
			return di < dj
		}
		if newestFirst {
			return rows[i].seq > rows[j].seq
		}
		return rows[i].seq < rows[j].seq
	})
}

func purchaseValues(rows []purchaseRow) []core.Purchase {
	out := make([]core.Purchase, len(rows))
	for i, row := range rows {
		out[i] = row.Purchase
	}
	return out
}

func paymentValues(rows []paymentRow) []core.Payment {
	out := make([]core.Payment, len(rows))
	for i, row := range rows {
		out[i] = row.Payment
	}
	return out
}
