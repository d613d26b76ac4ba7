// Package core holds the domain model of the canteen ledger: persons,
// purchases, payments, money and date handling, and the summary engine.
//
// Amounts are stored as integer cents so that long runs of small
// transactions never accumulate binary floating point drift.
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount of colones in integer cents. The sign carries meaning
// only for balances; transaction amounts are always positive.
type Money struct {
	Cents int64
}

var centsFactor = decimal.NewFromInt(100)

// ParseAmount converts a decimal string to a positive Money value.
// Both dot and comma decimal separators are accepted; the third decimal
// place rounds half away from zero.
func ParseAmount(s string) (Money, error) {
	m, err := parseSigned(s)
	if err != nil {
		return Money{}, err
	}
	if m.Cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

// ParseBalance converts a decimal string to a Money value that may be
// negative or zero, as needed for target balances.
func ParseBalance(s string) (Money, error) {
	return parseSigned(s)
}

func parseSigned(s string) (Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(centsFactor).Round(0)
	if !cents.BigInt().IsInt64() {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.BigInt().Int64()}, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(n Money) Money { return Money{Cents: m.Cents + n.Cents} }
func (m Money) Sub(n Money) Money { return Money{Cents: m.Cents - n.Cents} }
func (m Money) Neg() Money        { return Money{Cents: -m.Cents} }
func (m Money) IsZero() bool      { return m.Cents == 0 }

// Abs returns the magnitude of the amount.
func (m Money) Abs() Money {
	if m.Cents == math.MinInt64 {
		return Money{Cents: math.MaxInt64}
	}
	if m.Cents < 0 {
		return m.Neg()
	}
	return m
}

// String formats the amount as colones, e.g. "₡1250,00" or "-₡35,50".
func (m Money) String() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s₡%d,%02d", sign, cents/100, cents%100)
}
