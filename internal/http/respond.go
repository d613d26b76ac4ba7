package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cantina/internal/auth"
	"cantina/internal/core"
	"cantina/internal/ledger"
	"cantina/internal/log"
	"cantina/internal/services"
	"cantina/internal/storage"
)

const maxRequestBody = 1 << 20 // 1 MiB

// decodeJSON reads the request body into dst, rejecting unknown fields so
// client typos surface as errors instead of silently dropped data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

var errBadRequest = errors.New("malformed request body")

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to encode response", log.FieldError, err.Error())
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondError maps domain errors onto HTTP status codes. Unexpected
// errors are logged and hidden behind a generic 500.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.FromContext(ctx).ErrorContext(ctx, "Request failed", log.FieldError, err.Error())
		message = "internal server error"
	}
	respondJSON(ctx, w, status, errorResponse{Error: message})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized
	case errors.Is(err, storage.ErrDuplicateUser):
		return http.StatusConflict
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidPaymentType),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyPersonID),
		errors.Is(err, core.ErrEmptyReason),
		errors.Is(err, auth.ErrWeakPassword):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// API views. Amounts travel as integer cents plus a preformatted colón
// string so the client never does money arithmetic.

type moneyView struct {
	Cents     int64  `json:"cents"`
	Formatted string `json:"formatted"`
}

func newMoneyView(m core.Money) moneyView {
	return moneyView{Cents: m.Cents, Formatted: m.String()}
}

type personView struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	GuardianName  string    `json:"guardian_name,omitempty"`
	GuardianPhone string    `json:"guardian_phone,omitempty"`
	IsFavorite    bool      `json:"is_favorite"`
	Balance       moneyView `json:"balance"`
	Prepaid       moneyView `json:"prepaid"`
}

func newPersonView(p *core.Person) personView {
	return personView{
		ID:            p.ID,
		Name:          p.Name,
		GuardianName:  p.GuardianName,
		GuardianPhone: p.GuardianPhone,
		IsFavorite:    p.IsFavorite,
		Balance:       newMoneyView(p.CurrentBalance),
		Prepaid:       newMoneyView(p.PrepaidAmount),
	}
}

type purchaseView struct {
	ID          string    `json:"id"`
	PersonID    string    `json:"person_id"`
	Date        string    `json:"date"`
	Amount      moneyView `json:"amount"`
	Description string    `json:"description,omitempty"`
}

func newPurchaseView(p core.Purchase) purchaseView {
	return purchaseView{
		ID:          p.ID,
		PersonID:    p.PersonID,
		Date:        p.Date.String(),
		Amount:      newMoneyView(p.Amount),
		Description: p.Description,
	}
}

type paymentView struct {
	ID       string    `json:"id"`
	PersonID string    `json:"person_id"`
	Date     string    `json:"date"`
	Amount   moneyView `json:"amount"`
	Type     string    `json:"type"`
	Comment  string    `json:"comment,omitempty"`
}

func newPaymentView(p core.Payment) paymentView {
	return paymentView{
		ID:       p.ID,
		PersonID: p.PersonID,
		Date:     p.Date.String(),
		Amount:   newMoneyView(p.Amount),
		Type:     string(p.Type),
		Comment:  p.Comment,
	}
}

func newPurchaseViews(purchases []core.Purchase) []purchaseView {
	views := make([]purchaseView, len(purchases))
	for i, p := range purchases {
		views[i] = newPurchaseView(p)
	}
	return views
}

func newPaymentViews(payments []core.Payment) []paymentView {
	views := make([]paymentView, len(payments))
	for i, p := range payments {
		views[i] = newPaymentView(p)
	}
	return views
}

type adjustmentView struct {
	Applied    bool          `json:"applied"`
	Delta      moneyView     `json:"delta"`
	NewBalance moneyView     `json:"new_balance"`
	Payment    *paymentView  `json:"payment,omitempty"`
	Purchase   *purchaseView `json:"purchase,omitempty"`
}

func newAdjustmentView(res *ledger.AdjustmentResult) adjustmentView {
	view := adjustmentView{
		Applied:    res.Applied,
		Delta:      newMoneyView(res.Delta),
		NewBalance: newMoneyView(res.NewBalance),
	}
	if res.Payment != nil {
		p := newPaymentView(*res.Payment)
		view.Payment = &p
	}
	if res.Purchase != nil {
		p := newPurchaseView(*res.Purchase)
		view.Purchase = &p
	}
	return view
}

type personTotalView struct {
	PersonID string    `json:"person_id"`
	Name     string    `json:"name"`
	Total    moneyView `json:"total"`
}

type personBalanceView struct {
	PersonID string    `json:"person_id"`
	Name     string    `json:"name"`
	Balance  moneyView `json:"balance"`
}

type summaryView struct {
	Start string `json:"start"`
	End   string `json:"end"`

	Purchases []purchaseView `json:"purchases"`
	Payments  []paymentView  `json:"payments"`

	PurchaseTotals []personTotalView `json:"purchase_totals"`
	PaymentTotals  []personTotalView `json:"payment_totals"`

	RegularPayments   []paymentView `json:"regular_payments"`
	ManualAdjustments []paymentView `json:"manual_adjustments"`

	Net      moneyView           `json:"net"`
	Balances []personBalanceView `json:"balances"`
}

func newSummaryView(s *services.PeriodSummary) summaryView {
	view := summaryView{
		Start:             s.Range.Start.String(),
		End:               s.Range.End.String(),
		Purchases:         newPurchaseViews(s.Purchases),
		Payments:          newPaymentViews(s.Payments),
		RegularPayments:   newPaymentViews(s.RegularPayments),
		ManualAdjustments: newPaymentViews(s.ManualAdjustments),
		Net:               newMoneyView(s.Net),
	}
	for _, t := range s.PurchaseTotals {
		view.PurchaseTotals = append(view.PurchaseTotals, personTotalView{PersonID: t.PersonID, Name: t.Name, Total: newMoneyView(t.Total)})
	}
	for _, t := range s.PaymentTotals {
		view.PaymentTotals = append(view.PaymentTotals, personTotalView{PersonID: t.PersonID, Name: t.Name, Total: newMoneyView(t.Total)})
	}
	for _, b := range s.Balances {
		view.Balances = append(view.Balances, personBalanceView{PersonID: b.PersonID, Name: b.Name, Balance: newMoneyView(b.Balance)})
	}
	return view
}

type loginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}
