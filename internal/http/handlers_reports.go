package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cantina/internal/core"
	"cantina/internal/export"
	"cantina/internal/services"
)

// handleDailySummary aggregates one calendar day, defaulting to today.
func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	day, err := parseQueryDate(r, "date")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	summary, err := s.cachedSummary(ctx, "daily:"+day.String(), func(ctx context.Context) (*services.PeriodSummary, error) {
		return s.service.DailySummary(ctx, day)
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, newSummaryView(summary))
}

// handleWeeklySummary aggregates the Sunday-to-Saturday week containing
// the anchor date, defaulting to today.
func (s *Server) handleWeeklySummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	anchor, err := parseQueryDate(r, "date")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	// Key on the week start so every anchor inside the week shares one
	// cache entry.
	week := core.WeekRange(anchor)
	summary, err := s.cachedSummary(ctx, "weekly:"+week.Start.String(), func(ctx context.Context) (*services.PeriodSummary, error) {
		return s.service.WeeklySummary(ctx, anchor)
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, newSummaryView(summary))
}

// handleRangeSummary aggregates an arbitrary inclusive date range. Both
// bounds are required.
func (s *Server) handleRangeSummary(w http.ResponseWriter, r *http.Request) {
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

	rng := core.DateRange{Start: start, End: end}
	summary, err := s.cachedSummary(ctx, "range:"+start.String()+":"+end.String(), func(ctx context.Context) (*services.PeriodSummary, error) {
		return s.service.Summarize(ctx, rng)
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, newSummaryView(summary))
}

func (s *Server) cachedSummary(ctx context.Context, key string, compute func(context.Context) (*services.PeriodSummary, error)) (*services.PeriodSummary, error) {
	if summary, ok := s.summaryCache.Get(key); ok {
		return summary, nil
	}
	summary, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	s.summaryCache.Set(key, summary)
	return summary, nil
}

// handleStatement renders the printable HTML statement for one person.
func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	history, err := s.service.PersonHistory(ctx, r.PathValue("id"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := export.RenderStatement(w, history, time.Now()); err != nil {
		respondError(ctx, w, err)
	}
}

// handleWhatsApp builds the guardian-facing statement message and the
// wa.me link that opens it in a chat.
func (s *Server) handleWhatsApp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	history, err := s.service.PersonHistory(ctx, r.PathValue("id"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	lines := maxStatementLines
	if v := r.URL.Query().Get("lines"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			respondError(ctx, w, fmt.Errorf("%w: lines must be a non-negative integer", errBadRequest))
			return
		}
		lines = parsed
	}

	respondJSON(ctx, w, http.StatusOK, struct {
		Message string `json:"message"`
		Link    string `json:"link"`
	}{
		Message: export.WhatsAppMessage(history, lines),
		Link:    export.WhatsAppLink(history, lines),
	})
}
