// Package http exposes the canteen ledger as a JSON API for the mobile
// client, plus health and metrics endpoints for the deployment.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cantina/internal/auth"
	"cantina/internal/cache"
	"cantina/internal/config"
	"cantina/internal/services"
)

const (
	summaryCacheSize = 64
	summaryCacheTTL  = 5 * time.Minute

	// maxStatementLines caps WhatsApp messages so a long history still
	// fits in a shareable link.
	maxStatementLines = 20
)

// Server is the HTTP front of the canteen service.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux

	service       *services.Canteen
	authenticator *auth.PasswordAuthenticator
	tokens        *auth.JWTManager
	tokenTTL      time.Duration

	// summaryCache holds computed period summaries; any write through the
	// service drops it whole.
	summaryCache *cache.LRUCache[*services.PeriodSummary]
	cacheManager *cache.Manager

	limiter *rateLimiter
	metrics *apiMetrics

	shutdownOnce sync.Once
}

func NewServer(cfg *config.Config, service *services.Canteen, authenticator *auth.PasswordAuthenticator, tokens *auth.JWTManager) *Server {
	s := &Server{
		mux:           http.NewServeMux(),
		service:       service,
		authenticator: authenticator,
		tokens:        tokens,
		tokenTTL:      cfg.TokenTTL,
		summaryCache:  cache.NewLRUCache[*services.PeriodSummary](summaryCacheSize, summaryCacheTTL),
		cacheManager:  cache.NewManager(),
		limiter:       newRateLimiter(60, time.Minute),
		metrics:       newAPIMetrics(prometheus.NewRegistry()),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)
	service.OnWrite(s.summaryCache.Clear)

	s.routes()

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.withRequestLogging(s.withSecurityHeaders(s.mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	// Unauthenticated surface.
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /readyz", s.handleReady)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	s.mux.Handle("POST /api/login", s.limited(http.HandlerFunc(s.handleLogin)))

	// Everything below requires a valid operator token.
	s.protected("GET /api/persons", s.handleListPersons)
	s.protected("POST /api/persons", s.handleCreatePerson)
	s.protected("GET /api/persons/{id}", s.handleGetPerson)
	s.protected("PUT /api/persons/{id}", s.handleUpdatePerson)
	s.protected("DELETE /api/persons/{id}", s.handleDeletePerson)
	s.protected("PUT /api/persons/{id}/favorite", s.handleSetFavorite)

	s.protected("POST /api/purchases", s.handleCreatePurchase)
	s.protected("POST /api/payments", s.handleCreatePayment)
	s.protected("POST /api/persons/{id}/adjustments", s.handleAdjustBalance)
	s.protected("POST /api/persons/{id}/recalculate", s.handleRecalculate)

	s.protected("GET /api/persons/{id}/transactions", s.handlePersonTransactions)
	s.protected("GET /api/persons/{id}/statement", s.handleStatement)
	s.protected("GET /api/persons/{id}/whatsapp", s.handleWhatsApp)
	s.protected("GET /api/transactions", s.handleTransactionsByRange)
	s.protected("GET /api/summaries/daily", s.handleDailySummary)
	s.protected("GET /api/summaries/weekly", s.handleWeeklySummary)
	s.protected("GET /api/summaries/balance", s.handleRangeSummary)
}

// protected registers a handler behind authentication and rate limiting.
func (s *Server) protected(pattern string, handler http.HandlerFunc) {
	s.mux.Handle(pattern, s.limited(s.requireAuth(handler)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Listing persons exercises the database connection.
	if _, err := s.service.ListPersons(r.Context()); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

// Handler returns the fully assembled handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.stop()
		err = s.httpServer.Shutdown(ctx)
	})
	return err
}
