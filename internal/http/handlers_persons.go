package http

import (
	"net/http"
	"sort"

	"cantina/internal/core"
)

type personRequest struct {
	Name          string `json:"name"`
	GuardianName  string `json:"guardian_name"`
	GuardianPhone string `json:"guardian_phone"`
}

// handleListPersons returns every account holder, favorites pinned first.
func (s *Server) handleListPersons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	persons, err := s.service.ListPersons(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	// The store returns name order; pull favorites to the top without
	// disturbing it.
	sort.SliceStable(persons, func(i, j int) bool {
		return persons[i].IsFavorite && !persons[j].IsFavorite
	})

	views := make([]personView, len(persons))
	for i := range persons {
		views[i] = newPersonView(&persons[i])
	}
	respondJSON(ctx, w, http.StatusOK, views)
}

func (s *Server) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req personRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	person, err := s.service.AddPerson(ctx, req.Name, req.GuardianName, req.GuardianPhone)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, newPersonView(person))
}

func (s *Server) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	person, err := s.service.GetPerson(ctx, r.PathValue("id"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, newPersonView(person))
}

func (s *Server) handleUpdatePerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req personRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	person, err := s.service.UpdatePerson(ctx, r.PathValue("id"), req.Name, req.GuardianName, req.GuardianPhone)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, newPersonView(person))
}

func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.service.DeletePerson(ctx, r.PathValue("id")); err != nil {
		respondError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetFavorite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Favorite bool `json:"favorite"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	person, err := s.service.SetFavorite(ctx, r.PathValue("id"), req.Favorite)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, newPersonView(person))
}

// historyResponse is a person plus their complete transaction history,
// newest first.
type historyResponse struct {
	Person    personView     `json:"person"`
	Purchases []purchaseView `json:"purchases"`
	Payments  []paymentView  `json:"payments"`
}

func (s *Server) handlePersonTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	history, err := s.service.PersonHistory(ctx, r.PathValue("id"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, historyResponse{
		Person:    newPersonView(history.Person),
		Purchases: newPurchaseViews(history.Purchases),
		Payments:  newPaymentViews(history.Payments),
	})
}

// parseQueryDate reads a YYYY-MM-DD query parameter, defaulting to today
// when absent.
func parseQueryDate(r *http.Request, key string) (core.Date, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return core.Today(), nil
	}
	return core.ParseDate(value)
}
