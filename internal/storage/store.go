// Package storage provides the transaction store: durable keyed storage for
// persons, purchases and payments, with the atomic commit primitives the
// ledger engine builds on.
package storage

import (
	"context"
	"errors"

	"cantina/internal/core"
)

var (
	// ErrNotFound is returned when a person, transaction or user does not
	// exist. Operations against a missing person fail cleanly instead of
	// creating orphan transactions.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateUser is returned when a username is already taken.
	ErrDuplicateUser = errors.New("username already exists")
)

// TransactionKind selects purchases or payments in mirror bookkeeping.
type TransactionKind string

const (
	KindPurchase TransactionKind = "purchase"
	KindPayment  TransactionKind = "payment"
)

// MirrorItem identifies one transaction awaiting mirroring to the backup
// spreadsheet.
type MirrorItem struct {
	Kind TransactionKind
	ID   string
}

// Store is the transaction store interface. It is constructed explicitly
// and passed by reference to its consumers so tests can substitute the
// in-memory implementation.
//
// AddPurchase and AddPayment apply the transaction row and the balance
// delta as a single atomic commit: either both are visible afterwards or
// neither is. The balance update is a server-side increment, never a
// client-computed read-modify-write, so interleaved writers cannot lose
// updates.
type Store interface {
	GetPerson(ctx context.Context, id string) (*core.Person, error)
	ListPersons(ctx context.Context) ([]core.Person, error)
	// PutPerson creates or fully replaces a person by id.
	PutPerson(ctx context.Context, p *core.Person) error
	// UpdatePersonInfo updates the descriptive fields (name, guardian,
	// favorite flag) of an existing person. The balance columns belong to
	// the ledger and are left untouched, so an edit carrying a stale
	// snapshot cannot clobber a balance moved by a concurrent transaction.
	UpdatePersonInfo(ctx context.Context, p *core.Person) error
	// DeletePersonCascade removes the person and every purchase and payment
	// referencing them in one transaction, all-or-nothing.
	DeletePersonCascade(ctx context.Context, id string) error

	AddPurchase(ctx context.Context, p *core.Purchase) error
	AddPayment(ctx context.Context, p *core.Payment) error
	GetPurchase(ctx context.Context, id string) (*core.Purchase, error)
	GetPayment(ctx context.Context, id string) (*core.Payment, error)

	// Per-person history, newest first.
	PurchasesByPerson(ctx context.Context, personID string) ([]core.Purchase, error)
	PaymentsByPerson(ctx context.Context, personID string) ([]core.Payment, error)

	// Range queries use inclusive bounds with lexicographic comparison on
	// zero-padded ISO dates.
	PurchasesByDateRange(ctx context.Context, r core.DateRange) ([]core.Purchase, error)
	PaymentsByDateRange(ctx context.Context, r core.DateRange) ([]core.Payment, error)

	// SumTransactions reads total payments and purchases for one person in
	// a single consistent snapshot, for balance recalculation.
	SumTransactions(ctx context.Context, personID string) (payments, purchases core.Money, err error)
	// SetBalance overwrites the stored balance with a recomputed value.
	SetBalance(ctx context.Context, personID string, balance core.Money) error

	// Mirror bookkeeping for the Sheets backup worker.
	PendingMirror(ctx context.Context, limit int) ([]MirrorItem, error)
	MarkMirrored(ctx context.Context, item MirrorItem) error
	MarkMirrorError(ctx context.Context, item MirrorItem) error

	// Operator accounts for the authentication gate.
	CreateUser(ctx context.Context, u *core.User) error
	GetUserByUsername(ctx context.Context, username string) (*core.User, error)

	Close() error
}
