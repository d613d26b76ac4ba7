package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// PaymentPrepaid is a credit paid in advance of any purchase.
	PaymentPrepaid PaymentType = "prepaid"
	// PaymentDebt is a credit that settles accumulated debt.
	PaymentDebt PaymentType = "debtPayment"
	// PaymentManualAdjustment is a credit created by an operator correction.
	PaymentManualAdjustment PaymentType = "manualAdjustment"
)

type (
	// PaymentType is reporting metadata only: every payment credits the
	// balance the same way regardless of its type.
	PaymentType string

	// Person is an account holder (student or teacher) in the canteen ledger.
	//
	// CurrentBalance is the authoritative signed balance: positive means the
	// canteen owes the person, negative means the person owes the canteen.
	// It is owned by the ledger engine; nothing else mutates it.
	Person struct {
		ID             string
		Name           string
		GuardianName   string
		GuardianPhone  string
		IsFavorite     bool
		CurrentBalance Money
		// PrepaidAmount is a legacy running total of prepaid and adjustment
		// credits, kept for display only. CurrentBalance is the single
		// source of truth.
		PrepaidAmount Money
		CreatedAt     time.Time
	}

	// Purchase is a debit against a person. Immutable once created; it is
	// only removed when the person is deleted with their whole history.
	Purchase struct {
		ID          string
		PersonID    string
		Date        Date
		Amount      Money
		Description string
	}

	// Payment is a credit for a person. Immutable once created.
	Payment struct {
		ID       string
		PersonID string
		Date     Date
		Amount   Money
		Type     PaymentType
		Comment  string
	}

	// User is an operator account for the authentication gate.
	User struct {
		ID           string
		Username     string
		PasswordHash string
		CreatedAt    time.Time
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidPaymentType = errors.New("invalid payment type")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyPersonID      = errors.New("no person selected")
	ErrEmptyReason        = errors.New("empty adjustment reason")
)

func (t PaymentType) Validate() error {
	switch t {
	case PaymentPrepaid, PaymentDebt, PaymentManualAdjustment:
		return nil
	default:
		return ErrInvalidPaymentType
	}
}

func (p Person) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if len(p.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	return nil
}

func (p Purchase) Validate() error {
	if strings.TrimSpace(p.PersonID) == "" {
		return ErrEmptyPersonID
	}
	if err := p.Date.Validate(); err != nil {
		return err
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if len(p.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (p Payment) Validate() error {
	if strings.TrimSpace(p.PersonID) == "" {
		return ErrEmptyPersonID
	}
	if err := p.Date.Validate(); err != nil {
		return err
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if err := p.Type.Validate(); err != nil {
		return err
	}
	if len(p.Comment) > 200 {
		return errors.New("comment too long (max 200 characters)")
	}
	return nil
}

// Transaction is the read-only view of a purchase or payment that the
// summary engine aggregates over.
type Transaction interface {
	TransactionPerson() string
	TransactionAmount() Money
}

func (p Purchase) TransactionPerson() string { return p.PersonID }
func (p Purchase) TransactionAmount() Money  { return p.Amount }

func (p Payment) TransactionPerson() string { return p.PersonID }
func (p Payment) TransactionAmount() Money  { return p.Amount }
