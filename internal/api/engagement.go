package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tutu-network/pointledger/internal/domain"
)

// ─── Engagement API ─────────────────────────────────────────────────────────
//
// POST /api/accounts/{account}/login                 — record a login, pay daily bonuses
// GET  /api/accounts/{account}/streak                — current login streak
// GET  /api/accounts/{account}/missions              — today's missions and progress
// GET  /api/accounts/{account}/completions?recent=N  — survey statistics
// POST /api/accounts/{account}/surveys/{id}/answers  — submit answers, pay reward
// GET  /api/surveys?category=                        — available surveys, best pt/min first
// GET  /api/surveys/{id}                             — one survey

type answersRequest struct {
	Answers         []domain.Answer `json:"answers"`
	DurationSeconds int             `json:"duration_seconds"`
}

type surveyResponse struct {
	domain.Survey
	Efficiency     float64 `json:"reward_per_minute"`
	HighEfficiency bool    `json:"high_efficiency"`
	RemainingHours int     `json:"remaining_hours"`
}

type missionResponse struct {
	domain.DailyMission
	Completed bool    `json:"completed"`
	Ratio     float64 `json:"progress_ratio"`
	Remaining int     `json:"remaining"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	res, err := s.engagement.Login(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	streak, err := s.engagement.Streak(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"current_days": streak.CurrentDays,
		"max_days":     streak.MaxDays,
		"last_login":   streak.LastLogin,
		"bonus":        streak.BonusPoints(),
	})
}

func (s *Server) handleMissions(w http.ResponseWriter, r *http.Request) {
	tracker, err := s.engagement.Missions(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := make([]missionResponse, 0, len(tracker.Missions))
	for _, m := range tracker.Missions {
		out = append(out, missionResponse{
			DailyMission: m,
			Completed:    m.IsCompleted(),
			Ratio:        m.ProgressRatio(),
			Remaining:    m.RemainingCount(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"missions":         out,
		"all_completed":    tracker.AllCompleted(),
		"completed_reward": tracker.CompletedReward(),
	})
}

func (s *Server) handleCompletions(w http.ResponseWriter, r *http.Request) {
	recent := 10
	if v := r.URL.Query().Get("recent"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "recent must be a non-negative integer")
			return
		}
		recent = n
	}

	stats, err := s.engagement.Completions(r.Context(), chi.URLParam(r, "account"), recent)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSubmitAnswers(w http.ResponseWriter, r *http.Request) {
	var req answersRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DurationSeconds < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "duration_seconds must not be negative")
		return
	}

	res, err := s.engagement.Submit(r.Context(),
		chi.URLParam(r, "account"),
		chi.URLParam(r, "id"),
		req.Answers,
		time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListSurveys(w http.ResponseWriter, r *http.Request) {
	surveys, err := s.engagement.Surveys(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	now := s.points.Now()
	out := make([]surveyResponse, 0, len(surveys))
	for _, sv := range surveys {
		out = append(out, toSurveyResponse(sv, now))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"surveys": out,
	})
}

func (s *Server) handleGetSurvey(w http.ResponseWriter, r *http.Request) {
	sv, err := s.engagement.Survey(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSurveyResponse(sv, s.points.Now()))
}

func toSurveyResponse(sv domain.Survey, now time.Time) surveyResponse {
	left, _ := sv.RemainingTime(now)
	return surveyResponse{
		Survey:         sv,
		Efficiency:     sv.RewardEfficiency(),
		HighEfficiency: sv.IsHighEfficiency(),
		RemainingHours: int(left / time.Hour),
	}
}
