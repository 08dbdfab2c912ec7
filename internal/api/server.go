// Package api provides the HTTP server for pointledger.
// It exposes the ledger, engagement and survey operations as JSON over HTTP
// plus a Server-Sent Events feed of ledger changes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tutu-network/pointledger/internal/app/engagement"
	"github.com/tutu-network/pointledger/internal/app/points"
	"github.com/tutu-network/pointledger/internal/domain"
)

// RequestTimeout bounds every non-streaming request.
const RequestTimeout = 30 * time.Second

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the pointledger HTTP API server.
type Server struct {
	points         *points.Service
	engagement     *engagement.Service
	events         *EventsHub // nil disables /api/events
	health         Pinger     // nil skips the storage check
	log            *zap.Logger
	version        string
	metricsEnabled bool
}

// NewServer creates a new API server. A nil logger disables request logs.
func NewServer(pts *points.Service, eng *engagement.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		points:     pts,
		engagement: eng,
		log:        logger.Named("api"),
		version:    "dev",
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetEventsHub sets the live ledger events SSE hub.
func (s *Server) SetEventsHub(h *EventsHub) { s.events = h }

// SetHealthCheck sets the storage probe used by /health.
func (s *Server) SetHealthCheck(p Pinger) { s.health = p }

// SetVersion sets the version reported by /api/version.
func (s *Server) SetVersion(v string) { s.version = v }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": s.version,
		})
	})

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Live ledger events. Streams are long-lived, so they sit outside the
	// request timeout group.
	if s.events != nil {
		r.Get("/api/events", s.events.HandleSSE)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(RequestTimeout))

		r.Route("/api/accounts/{account}", func(r chi.Router) {
			// Ledger
			r.Get("/balance", s.handleBalance)
			r.Post("/earn", s.handleEarn)
			r.Post("/spend", s.handleSpend)
			r.Get("/alerts", s.handleAlerts)
			r.Get("/transactions", s.handleTransactions)
			r.Post("/purge", s.handlePurge)

			// Engagement
			r.Post("/login", s.handleLogin)
			r.Get("/streak", s.handleStreak)
			r.Get("/missions", s.handleMissions)
			r.Get("/completions", s.handleCompletions)
			r.Post("/surveys/{id}/answers", s.handleSubmitAnswers)
		})

		r.Get("/api/surveys", s.handleListSurveys)
		r.Get("/api/surveys/{id}", s.handleGetSurvey)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// ─── Responses ──────────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, typ, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    typ,
		},
	})
}

// fail maps a service error to its HTTP status. Unknown errors are logged
// and reported without detail.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, typ := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeError(w, status, typ, "internal error")
		return
	}
	writeError(w, status, typ, err.Error())
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNegativeValue),
		errors.Is(err, domain.ErrZeroAmount),
		errors.Is(err, domain.ErrAmountTooLarge),
		errors.Is(err, domain.ErrInvalidAccount),
		errors.Is(err, domain.ErrInvalidReason),
		errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrIncompleteAnswers),
		errors.Is(err, domain.ErrInvalidAnswer):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrSurveyNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusConflict, "insufficient_balance"
	case errors.Is(err, domain.ErrAlreadyAnswered):
		return http.StatusConflict, "already_answered"
	case errors.Is(err, domain.ErrLedgerConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrSurveyExpired):
		return http.StatusGone, "survey_expired"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// ─── Middleware ─────────────────────────────────────────────────────────────

// requestLogger logs one line per request at debug level.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
