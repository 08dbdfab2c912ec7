package catalog

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/tutu-network/pointledger/internal/domain"
)

// ─── Survey File ────────────────────────────────────────────────────────────
// A survey file is TOML:
//
//	[[survey]]
//	id = "coffee-habits"
//	title = "Coffee habits"
//	category = "lifestyle"
//	reward = 100
//	estimated_minutes = 5
//	expires_in = "720h"
//
//	  [[survey.question]]
//	  kind = "scale"
//	  text = "How much do you like coffee?"
//	  min = 1
//	  max = 5
//
// expires_in is relative to the load time.

type surveyFile struct {
	Survey []surveyRecord `toml:"survey"`
}

type surveyRecord struct {
	ID               string           `toml:"id"`
	Title            string           `toml:"title"`
	Description      string           `toml:"description"`
	Category         string           `toml:"category"`
	Reward           int64            `toml:"reward"`
	EstimatedMinutes int              `toml:"estimated_minutes"`
	ExpiresIn        string           `toml:"expires_in"`
	Question         []questionRecord `toml:"question"`
}

type questionRecord struct {
	Kind          string   `toml:"kind"`
	Text          string   `toml:"text"`
	Choices       []string `toml:"choices"`
	MaxSelections int      `toml:"max_selections"`
	MaxLength     int      `toml:"max_length"`
	Min           int      `toml:"min"`
	Max           int      `toml:"max"`
	MinLabel      string   `toml:"min_label"`
	MaxLabel      string   `toml:"max_label"`
}

// LoadFile reads surveys from a TOML file. Expiry instants are computed
// from now.
func LoadFile(path string, now time.Time) ([]domain.Survey, error) {
	var f surveyFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f.surveys(now)
}

// Parse reads surveys from TOML text.
func Parse(data string, now time.Time) ([]domain.Survey, error) {
	var f surveyFile
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, err
	}
	return f.surveys(now)
}

func (f surveyFile) surveys(now time.Time) ([]domain.Survey, error) {
	out := make([]domain.Survey, 0, len(f.Survey))
	for i, r := range f.Survey {
		s, err := r.toDomain(now)
		if err != nil {
			return nil, fmt.Errorf("survey %d (%s): %w", i, r.Title, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (r surveyRecord) toDomain(now time.Time) (domain.Survey, error) {
	if r.Title == "" {
		return domain.Survey{}, fmt.Errorf("title is required")
	}
	reward, err := domain.NewAmount(r.Reward)
	if err != nil {
		return domain.Survey{}, err
	}
	category := domain.CategoryGeneral
	if r.Category != "" {
		if category, err = domain.ParseCategory(r.Category); err != nil {
			return domain.Survey{}, err
		}
	}
	if r.ExpiresIn == "" {
		return domain.Survey{}, fmt.Errorf("expires_in is required")
	}
	ttl, err := time.ParseDuration(r.ExpiresIn)
	if err != nil {
		return domain.Survey{}, fmt.Errorf("expires_in: %w", err)
	}
	if len(r.Question) == 0 {
		return domain.Survey{}, fmt.Errorf("at least one question is required")
	}

	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}
	s := domain.Survey{
		ID:               id,
		Title:            r.Title,
		Description:      r.Description,
		Reward:           reward,
		EstimatedMinutes: r.EstimatedMinutes,
		ExpiresAt:        now.Add(ttl),
		Category:         category,
	}
	for j, q := range r.Question {
		kind := domain.QuestionKind(q.Kind)
		if !kind.Valid() {
			return domain.Survey{}, fmt.Errorf("question %d: unknown kind %q", j, q.Kind)
		}
		if q.Text == "" {
			return domain.Survey{}, fmt.Errorf("question %d: text is required", j)
		}
		s.Questions = append(s.Questions, domain.Question{
			Kind:          kind,
			Text:          q.Text,
			Choices:       q.Choices,
			MaxSelections: q.MaxSelections,
			MaxLength:     q.MaxLength,
			Min:           q.Min,
			Max:           q.Max,
			MinLabel:      q.MinLabel,
			MaxLabel:      q.MaxLabel,
		})
	}
	return s, nil
}

// ─── Sample Surveys ─────────────────────────────────────────────────────────

// Sample returns the built-in survey set, expiring relative to now.
func Sample(now time.Time) []domain.Survey {
	const day = 24 * time.Hour
	return []domain.Survey{
		{
			ID:          "coffee-habits",
			Title:       "Coffee habits",
			Description: "How and when you drink coffee.",
			Questions: []domain.Question{
				{Kind: domain.QuestionSingleChoice, Text: "How many cups a day?", Choices: []string{"0", "1", "2-3", "4+"}},
				{Kind: domain.QuestionMultipleChoice, Text: "How do you brew it?", Choices: []string{"drip", "press", "espresso", "instant"}, MaxSelections: 2},
				{Kind: domain.QuestionScale, Text: "How much do you like coffee?", Min: 1, Max: 5, MinLabel: "not at all", MaxLabel: "a lot"},
			},
			Reward:           domain.MustAmount(100),
			EstimatedMinutes: 3,
			ExpiresAt:        now.Add(14 * day),
			Category:         domain.CategoryLifestyle,
		},
		{
			ID:          "smartphone-usage",
			Title:       "Smartphone usage",
			Description: "Which apps you use most.",
			Questions: []domain.Question{
				{Kind: domain.QuestionSingleChoice, Text: "Which OS do you use?", Choices: []string{"iOS", "Android", "other"}},
				{Kind: domain.QuestionFreeText, Text: "Your most used app?", MaxLength: 50},
			},
			Reward:           domain.MustAmount(80),
			EstimatedMinutes: 5,
			ExpiresAt:        now.Add(7 * day),
			Category:         domain.CategoryProduct,
		},
		{
			ID:          "delivery-service",
			Title:       "Food delivery",
			Description: "Your experience with delivery services.",
			Questions: []domain.Question{
				{Kind: domain.QuestionScale, Text: "How satisfied are you?", Min: 1, Max: 10},
				{Kind: domain.QuestionFreeText, Text: "What would you improve?", MaxLength: 200},
			},
			Reward:           domain.MustAmount(150),
			EstimatedMinutes: 10,
			ExpiresAt:        now.Add(30 * day),
			Category:         domain.CategoryService,
		},
		{
			ID:          "weekend-plans",
			Title:       "Weekend plans",
			Description: "A one-question quick poll.",
			Questions: []domain.Question{
				{Kind: domain.QuestionSingleChoice, Text: "Plans for this weekend?", Choices: []string{"stay in", "go out", "travel"}},
			},
			Reward:           domain.MustAmount(30),
			EstimatedMinutes: 1,
			ExpiresAt:        now.Add(2 * day),
			Category:         domain.CategoryGeneral,
		},
	}
}
