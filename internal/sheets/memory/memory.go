// Package memory provides an in-memory mirror for tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"cantina/internal/core"
)

type Row struct {
	Sheet      string
	Date       string
	PersonName string
	Detail     string
	Cents      int64
}

// Mirror records appended rows instead of writing to a spreadsheet. An
// optional error can be injected to exercise failure handling.
type Mirror struct {
	mu   sync.Mutex
	rows []Row
	Err  error
}

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) AppendPurchase(_ context.Context, p core.Purchase, personName string) (string, error) {
	return m.append(Row{
		Sheet:      "purchases",
		Date:       p.Date.String(),
		PersonName: personName,
		Detail:     p.Description,
		Cents:      p.Amount.Cents,
	})
}

func (m *Mirror) AppendPayment(_ context.Context, p core.Payment, personName string) (string, error) {
	return m.append(Row{
		Sheet:      "payments",
		Date:       p.Date.String(),
		PersonName: personName,
		Detail:     string(p.Type),
		Cents:      p.Amount.Cents,
	})
}

func (m *Mirror) append(row Row) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.rows = append(m.rows, row)
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (m *Mirror) Rows() []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Row(nil), m.rows...)
}
