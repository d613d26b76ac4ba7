// Package services orchestrates ledger operations across the store, the
// mirror queue and the summary engine.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"cantina/internal/core"
	"cantina/internal/ledger"
	"cantina/internal/log"
	"cantina/internal/storage"
)

// MirrorPublisher publishes mirror requests for committed transactions.
// *amqp.Client satisfies it.
type MirrorPublisher interface {
	PublishMirror(ctx context.Context, kind, id string) error
}

// Canteen is the application service behind the HTTP API.
type Canteen struct {
	store     storage.Store
	ledger    *ledger.Ledger
	publisher MirrorPublisher // nil when AMQP is not configured
	listeners []func()
}

func NewCanteen(store storage.Store, publisher MirrorPublisher) *Canteen {
	return &Canteen{
		store:     store,
		ledger:    ledger.New(store),
		publisher: publisher,
	}
}

// OnWrite registers a callback invoked after every successful write. The
// HTTP layer uses it to drop cached summaries. Not safe for concurrent
// registration; wire listeners at startup.
func (s *Canteen) OnWrite(fn func()) {
	s.listeners = append(s.listeners, fn)
}

func (s *Canteen) notifyWrite() {
	for _, fn := range s.listeners {
		fn()
	}
}

// AddPerson creates a new account holder with a zero balance.
func (s *Canteen) AddPerson(ctx context.Context, name, guardianName, guardianPhone string) (*core.Person, error) {
	person := &core.Person{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(name),
		GuardianName:  strings.TrimSpace(guardianName),
		GuardianPhone: strings.TrimSpace(guardianPhone),
	}
	if err := person.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.PutPerson(ctx, person); err != nil {
		return nil, fmt.Errorf("add person: %w", err)
	}

	slog.InfoContext(ctx, "Person added", "person_id", person.ID, "name", person.Name)
	s.notifyWrite()
	return person, nil
}

// UpdatePerson edits the person's descriptive fields. Balances are not
// touched here; they belong to the ledger.
func (s *Canteen) UpdatePerson(ctx context.Context, id, name, guardianName, guardianPhone string) (*core.Person, error) {
	person, err := s.store.GetPerson(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}

	person.Name = strings.TrimSpace(name)
	person.GuardianName = strings.TrimSpace(guardianName)
	person.GuardianPhone = strings.TrimSpace(guardianPhone)
	if err := person.Validate(); err != nil {
		return nil, err
	}
	// Only the descriptive fields are written back. A purchase committed
	// between the read above and this write keeps its balance.
	if err := s.store.UpdatePersonInfo(ctx, person); err != nil {
		return nil, fmt.Errorf("update person: %w", err)
	}

	s.notifyWrite()
	return person, nil
}

// SetFavorite pins or unpins the person in listings.
func (s *Canteen) SetFavorite(ctx context.Context, id string, favorite bool) (*core.Person, error) {
	person, err := s.store.GetPerson(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}

	person.IsFavorite = favorite
	if err := s.store.UpdatePersonInfo(ctx, person); err != nil {
		return nil, fmt.Errorf("set favorite: %w", err)
	}

	s.notifyWrite()
	return person, nil
}

// DeletePerson removes the person and their complete transaction history.
func (s *Canteen) DeletePerson(ctx context.Context, id string) error {
	if err := s.store.DeletePersonCascade(ctx, id); err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	s.notifyWrite()
	return nil
}

func (s *Canteen) GetPerson(ctx context.Context, id string) (*core.Person, error) {
	return s.store.GetPerson(ctx, id)
}

func (s *Canteen) ListPersons(ctx context.Context) ([]core.Person, error) {
	return s.store.ListPersons(ctx)
}

// RecordPurchase commits a debit and queues it for mirroring.
func (s *Canteen) RecordPurchase(ctx context.Context, personID string, date core.Date, amount core.Money, description string) (*core.Purchase, error) {
	purchase, err := s.ledger.RecordPurchase(ctx, personID, date, amount, description)
	if err != nil {
		return nil, err
	}

	s.publishMirror(ctx, string(storage.KindPurchase), purchase.ID)
	s.notifyWrite()
	return purchase, nil
}

// RecordPayment commits a credit and queues it for mirroring.
func (s *Canteen) RecordPayment(ctx context.Context, personID string, date core.Date, amount core.Money, typ core.PaymentType, comment string) (*core.Payment, error) {
	payment, err := s.ledger.RecordPayment(ctx, personID, date, amount, typ, comment)
	if err != nil {
		return nil, err
	}

	s.publishMirror(ctx, string(storage.KindPayment), payment.ID)
	s.notifyWrite()
	return payment, nil
}

// AdjustBalance applies a signed manual correction.
func (s *Canteen) AdjustBalance(ctx context.Context, personID string, date core.Date, delta core.Money, reason string) (*ledger.AdjustmentResult, error) {
	result, err := s.ledger.AdjustBalance(ctx, personID, date, delta, reason)
	if err != nil {
		return nil, err
	}

	s.publishAdjustment(ctx, result)
	s.notifyWrite()
	return result, nil
}

// AdjustToTarget moves the balance to a target value.
func (s *Canteen) AdjustToTarget(ctx context.Context, personID string, date core.Date, target core.Money, reason string) (*ledger.AdjustmentResult, error) {
	result, err := s.ledger.AdjustToTarget(ctx, personID, date, target, reason)
	if err != nil {
		return nil, err
	}

	if result.Applied {
		s.publishAdjustment(ctx, result)
		s.notifyWrite()
	}
	return result, nil
}

// RecalculateBalance repairs the stored balance from history.
func (s *Canteen) RecalculateBalance(ctx context.Context, personID string) (core.Money, error) {
	balance, err := s.ledger.Recalculate(ctx, personID)
	if err != nil {
		return core.Money{}, err
	}
	s.notifyWrite()
	return balance, nil
}

// History is a person's transaction history, newest first in both slices.
type History struct {
	Person    *core.Person
	Purchases []core.Purchase
	Payments  []core.Payment
}

// PersonHistory returns the person and their complete history.
func (s *Canteen) PersonHistory(ctx context.Context, personID string) (*History, error) {
	person, err := s.store.GetPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}
	purchases, err := s.store.PurchasesByPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	payments, err := s.store.PaymentsByPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return &History{Person: person, Purchases: purchases, Payments: payments}, nil
}

func (s *Canteen) publishAdjustment(ctx context.Context, result *ledger.AdjustmentResult) {
	switch {
	case result.Payment != nil:
		s.publishMirror(ctx, string(storage.KindPayment), result.Payment.ID)
	case result.Purchase != nil:
		s.publishMirror(ctx, string(storage.KindPurchase), result.Purchase.ID)
	}
}

// publishMirror is best-effort: the transaction is already committed and
// the worker's pending sweep covers lost messages.
func (s *Canteen) publishMirror(ctx context.Context, kind, id string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishMirror(ctx, kind, id); err != nil {
		fields := log.NewFields().
			WithComponent(log.ComponentAMQP).
			WithError(err)
		fields["kind"] = kind
		fields["id"] = id
		slog.ErrorContext(ctx, "Failed to publish mirror message", fields.ToSlice()...)
	}
}

// Close closes the store and the publisher.
func (s *Canteen) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if closer, ok := s.publisher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close canteen service: %v", errs)
	}
	return nil
}
