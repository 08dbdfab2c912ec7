package domain

import (
	"fmt"
	"slices"
	"time"
	"unicode/utf8"
)

// ─── Survey Types ───────────────────────────────────────────────────────────
// Surveys pay a fixed reward, expire, and are ranked by points per minute.

// HighEfficiencyThreshold is the points-per-minute rate for a "good deal" survey.
const HighEfficiencyThreshold = 20.0

// SurveyCategory groups surveys for browsing.
type SurveyCategory string

const (
	CategoryProduct   SurveyCategory = "product"
	CategoryService   SurveyCategory = "service"
	CategoryLifestyle SurveyCategory = "lifestyle"
	CategoryGeneral   SurveyCategory = "general"
)

// Categories lists every category in display order.
func Categories() []SurveyCategory {
	return []SurveyCategory{CategoryProduct, CategoryService, CategoryLifestyle, CategoryGeneral}
}

// ParseCategory validates a category name.
func ParseCategory(s string) (SurveyCategory, error) {
	c := SurveyCategory(s)
	if !slices.Contains(Categories(), c) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// QuestionKind is the answer format a question expects.
type QuestionKind string

const (
	QuestionSingleChoice   QuestionKind = "single_choice"
	QuestionMultipleChoice QuestionKind = "multiple_choice"
	QuestionFreeText       QuestionKind = "free_text"
	QuestionScale          QuestionKind = "scale"
)

// Valid reports whether k is a known question kind.
func (k QuestionKind) Valid() bool {
	switch k {
	case QuestionSingleChoice, QuestionMultipleChoice, QuestionFreeText, QuestionScale:
		return true
	}
	return false
}

// Question is one survey question. Which fields apply depends on Kind.
type Question struct {
	Kind          QuestionKind `json:"kind"`
	Text          string       `json:"text"`
	Choices       []string     `json:"choices,omitempty"`
	MaxSelections int          `json:"max_selections,omitempty"` // 0 = unlimited
	MaxLength     int          `json:"max_length,omitempty"`     // 0 = unlimited
	Min           int          `json:"min,omitempty"`
	Max           int          `json:"max,omitempty"`
	MinLabel      string       `json:"min_label,omitempty"`
	MaxLabel      string       `json:"max_label,omitempty"`
}

// Answer is a response to one Question. Kind must match the question's.
type Answer struct {
	Kind    QuestionKind `json:"kind"`
	Choice  string       `json:"choice,omitempty"`
	Choices []string     `json:"choices,omitempty"`
	Text    string       `json:"text,omitempty"`
	Scale   int          `json:"scale,omitempty"`
}

// Validate checks a against q.
func (q Question) Validate(a Answer) error {
	if a.Kind != q.Kind {
		return fmt.Errorf("%w: %q expects %s, got %s", ErrInvalidAnswer, q.Text, q.Kind, a.Kind)
	}
	switch q.Kind {
	case QuestionSingleChoice:
		if !slices.Contains(q.Choices, a.Choice) {
			return fmt.Errorf("%w: %q is not a choice", ErrInvalidAnswer, a.Choice)
		}
	case QuestionMultipleChoice:
		if len(a.Choices) == 0 {
			return fmt.Errorf("%w: no selection for %q", ErrInvalidAnswer, q.Text)
		}
		if q.MaxSelections > 0 && len(a.Choices) > q.MaxSelections {
			return fmt.Errorf("%w: %d selections, max %d", ErrInvalidAnswer, len(a.Choices), q.MaxSelections)
		}
		for _, c := range a.Choices {
			if !slices.Contains(q.Choices, c) {
				return fmt.Errorf("%w: %q is not a choice", ErrInvalidAnswer, c)
			}
		}
	case QuestionFreeText:
		if q.MaxLength > 0 && utf8.RuneCountInString(a.Text) > q.MaxLength {
			return fmt.Errorf("%w: text longer than %d", ErrInvalidAnswer, q.MaxLength)
		}
	case QuestionScale:
		if a.Scale < q.Min || a.Scale > q.Max {
			return fmt.Errorf("%w: %d outside %d..%d", ErrInvalidAnswer, a.Scale, q.Min, q.Max)
		}
	default:
		return fmt.Errorf("%w: unknown question kind %q", ErrInvalidAnswer, q.Kind)
	}
	return nil
}

// Survey is a paid questionnaire.
type Survey struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	Questions        []Question     `json:"questions"`
	Reward           Amount         `json:"reward"`
	EstimatedMinutes int            `json:"estimated_minutes"`
	ExpiresAt        time.Time      `json:"expires_at"`
	Category         SurveyCategory `json:"category"`
}

// IsAvailable reports whether the survey can still be answered at t.
func (s Survey) IsAvailable(at time.Time) bool {
	return at.Before(s.ExpiresAt)
}

// RewardEfficiency returns points per estimated minute.
func (s Survey) RewardEfficiency() float64 {
	if s.EstimatedMinutes <= 0 {
		return 0
	}
	return float64(s.Reward.Value()) / float64(s.EstimatedMinutes)
}

// IsHighEfficiency reports whether the survey pays at least 20pt/min.
func (s Survey) IsHighEfficiency() bool {
	return s.RewardEfficiency() >= HighEfficiencyThreshold
}

// RemainingTime returns the time left to answer, or ok=false once expired.
func (s Survey) RemainingTime(at time.Time) (time.Duration, bool) {
	d := s.ExpiresAt.Sub(at)
	if d <= 0 {
		return 0, false
	}
	return d, true
}

// ValidateAnswers checks that there is exactly one valid answer per question.
func (s Survey) ValidateAnswers(answers []Answer) error {
	if len(answers) != len(s.Questions) {
		return fmt.Errorf("%w: got %d, want %d", ErrIncompleteAnswers, len(answers), len(s.Questions))
	}
	for i, q := range s.Questions {
		if err := q.Validate(answers[i]); err != nil {
			return err
		}
	}
	return nil
}

// SortByEfficiency orders surveys best-paying-per-minute first.
func SortByEfficiency(surveys []Survey) {
	slices.SortStableFunc(surveys, func(a, b Survey) int {
		ea, eb := a.RewardEfficiency(), b.RewardEfficiency()
		switch {
		case ea > eb:
			return -1
		case ea < eb:
			return 1
		default:
			return 0
		}
	})
}
