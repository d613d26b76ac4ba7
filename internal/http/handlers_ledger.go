package http

import (
	"net/http"

	"cantina/internal/core"
	"cantina/internal/ledger"
	"cantina/internal/log"
)

type purchaseRequest struct {
	PersonID    string `json:"person_id"`
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

func (s *Server) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	purchase, err := s.service.RecordPurchase(ctx, req.PersonID, date, amount, req.Description)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, newPurchaseView(*purchase))
}

type paymentRequest struct {
	PersonID string `json:"person_id"`
	Date     string `json:"date"`
	Amount   string `json:"amount"`
	Type     string `json:"type"`
	Comment  string `json:"comment"`
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	payment, err := s.service.RecordPayment(ctx, req.PersonID, date, amount, core.PaymentType(req.Type), req.Comment)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, newPaymentView(*payment))
}

// adjustmentRequest carries either a signed delta or a target balance,
// never both.
type adjustmentRequest struct {
	Date   string `json:"date"`
	Delta  string `json:"delta,omitempty"`
	Target string `json:"target,omitempty"`
	Reason string `json:"reason"`
}

func (s *Server) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID := r.PathValue("id")

	var req adjustmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}
	if (req.Delta == "") == (req.Target == "") {
		respondError(ctx, w, core.ErrInvalidAmount)
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var result *ledger.AdjustmentResult
	if req.Delta != "" {
		delta, err := core.ParseBalance(req.Delta)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		result, err = s.service.AdjustBalance(ctx, personID, date, delta, req.Reason)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
	} else {
		target, err := core.ParseBalance(req.Target)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		result, err = s.service.AdjustToTarget(ctx, personID, date, target, req.Reason)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
	}

	// Corrections are audited: record which operator applied them.
	if claims := claimsFromContext(ctx); claims != nil && result.Applied {
		log.FromContext(ctx).InfoContext(ctx, "Manual adjustment applied",
			log.FieldUsername, claims.Username,
			log.FieldPersonID, personID,
			log.FieldAmountCents, result.Delta.Cents)
	}

	respondJSON(ctx, w, http.StatusOK, newAdjustmentView(result))
}

func (s *Server) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	balance, err := s.service.RecalculateBalance(ctx, r.PathValue("id"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, struct {
		Balance moneyView `json:"balance"`
	}{Balance: newMoneyView(balance)})
}

// handleTransactionsByRange returns raw purchases and payments between
// the start and end dates, both inclusive.
func (s *Server) handleTransactionsByRange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	start, err := core.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	end, err := core.ParseDate(r.URL.Query().Get("end"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	purchases, payments, err := s.service.TransactionsByRange(ctx, core.DateRange{Start: start, End: end})
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, struct {
		Purchases []purchaseView `json:"purchases"`
		Payments  []paymentView  `json:"payments"`
	}{
		Purchases: newPurchaseViews(purchases),
		Payments:  newPaymentViews(payments),
	})
}
