package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// SurveyCompletion records that a survey was answered and what it paid.
type SurveyCompletion struct {
	ID           string        `json:"id"`
	SurveyID     string        `json:"survey_id"`
	EarnedPoints Amount        `json:"earned_points"`
	CompletedAt  time.Time     `json:"completed_at"`
	Duration     time.Duration `json:"duration,omitempty"`
}

// NewSurveyCompletion records a completion of s at the given instant.
func NewSurveyCompletion(s Survey, at time.Time, took time.Duration) SurveyCompletion {
	return SurveyCompletion{
		ID:           uuid.NewString(),
		SurveyID:     s.ID,
		EarnedPoints: s.Reward,
		CompletedAt:  at,
		Duration:     took,
	}
}

// CompletionHistory tracks answered surveys to prevent double rewards.
type CompletionHistory struct {
	completions []SurveyCompletion
}

// NewCompletionHistory wraps existing completions, e.g. loaded from a store.
func NewCompletionHistory(cs []SurveyCompletion) *CompletionHistory {
	return &CompletionHistory{completions: slices.Clone(cs)}
}

// Add appends a completion.
func (h *CompletionHistory) Add(c SurveyCompletion) {
	h.completions = append(h.completions, c)
}

// IsCompleted reports whether surveyID has been answered.
func (h *CompletionHistory) IsCompleted(surveyID string) bool {
	_, ok := h.Completion(surveyID)
	return ok
}

// Completion returns the first completion for surveyID.
func (h *CompletionHistory) Completion(surveyID string) (SurveyCompletion, bool) {
	for _, c := range h.completions {
		if c.SurveyID == surveyID {
			return c, true
		}
	}
	return SurveyCompletion{}, false
}

// Count returns the number of completions.
func (h *CompletionHistory) Count() int { return len(h.completions) }

// TotalEarned sums points earned across all completions.
func (h *CompletionHistory) TotalEarned() Amount {
	var total Amount
	for _, c := range h.completions {
		total = total.Add(c.EarnedPoints)
	}
	return total
}

// CountOn returns the number of completions on day's calendar date.
func (h *CompletionHistory) CountOn(day time.Time) int {
	return len(h.on(day))
}

// EarnedOn sums points earned on day's calendar date.
func (h *CompletionHistory) EarnedOn(day time.Time) Amount {
	var total Amount
	for _, c := range h.on(day) {
		total = total.Add(c.EarnedPoints)
	}
	return total
}

// Recent returns up to limit completions, newest first.
func (h *CompletionHistory) Recent(limit int) []SurveyCompletion {
	out := slices.Clone(h.completions)
	slices.SortStableFunc(out, func(a, b SurveyCompletion) int {
		return b.CompletedAt.Compare(a.CompletedAt)
	})
	if limit >= 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (h *CompletionHistory) on(day time.Time) []SurveyCompletion {
	var out []SurveyCompletion
	for _, c := range h.completions {
		if SameDay(day, c.CompletedAt) {
			out = append(out, c)
		}
	}
	return out
}
