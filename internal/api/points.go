package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tutu-network/pointledger/internal/app/points"
	"github.com/tutu-network/pointledger/internal/domain"
	"github.com/tutu-network/pointledger/internal/timeutil"
)

// ─── Ledger API ─────────────────────────────────────────────────────────────
//
// GET  /api/accounts/{account}/balance              — total, available, currency value
// POST /api/accounts/{account}/earn                 — credit points
// POST /api/accounts/{account}/spend                — consume points, soonest expiry first
// GET  /api/accounts/{account}/alerts?within=30d    — expiring entries by urgency
// GET  /api/accounts/{account}/transactions?limit=N — history, newest first
// POST /api/accounts/{account}/purge                — drop expired entries now

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type earnRequest struct {
	Amount    domain.Amount `json:"amount"`
	Reason    string        `json:"reason"`
	Ref       string        `json:"ref"`
	ExpiresIn string        `json:"expires_in"` // "720h", "90d"; empty uses the default
}

type spendRequest struct {
	Amount domain.Amount `json:"amount"`
	Reason string        `json:"reason"`
	Ref    string        `json:"ref"`
}

type alertResponse struct {
	domain.Alert
	Remaining string `json:"remaining"`
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := s.points.Balance(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

func (s *Server) handleEarn(w http.ResponseWriter, r *http.Request) {
	var req earnRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ttl, err := timeutil.ParseDuration(req.ExpiresIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "expires_in: "+err.Error())
		return
	}

	tx, err := s.points.Earn(r.Context(), chi.URLParam(r, "account"), points.EarnRequest{
		Amount:    req.Amount,
		Reason:    domain.TransactionReason(req.Reason),
		Ref:       req.Ref,
		ExpiresIn: ttl,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	var req spendRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tx, err := s.points.Spend(r.Context(), chi.URLParam(r, "account"), points.SpendRequest{
		Amount: req.Amount,
		Reason: domain.TransactionReason(req.Reason),
		Ref:    req.Ref,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	within, err := timeutil.ParseDuration(r.URL.Query().Get("within"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "within: "+err.Error())
		return
	}

	alerts, err := s.points.Alerts(r.Context(), chi.URLParam(r, "account"), within)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	now := s.points.Now()
	out := make([]alertResponse, 0, len(alerts))
	total := domain.Zero
	for _, a := range alerts {
		out = append(out, alertResponse{Alert: a, Remaining: a.RemainingText(now)})
		total = total.Add(a.Amount)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": out,
		"total":  total,
	})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	txs, err := s.points.Transactions(r.Context(), chi.URLParam(r, "account"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
	})
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	forfeited, err := s.points.Purge(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"forfeited": forfeited,
	})
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// decodeBody decodes a JSON body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
