package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tutu-network/pointledger/internal/domain"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func ids(surveys []domain.Survey) []string {
	out := make([]string, len(surveys))
	for i, s := range surveys {
		out[i] = s.ID
	}
	return out
}

func TestSampleNotEmpty(t *testing.T) {
	surveys := Sample(testNow)
	if len(surveys) == 0 {
		t.Fatal("Sample() is empty")
	}
	seen := map[string]bool{}
	for _, s := range surveys {
		if seen[s.ID] {
			t.Errorf("duplicate sample ID %q", s.ID)
		}
		seen[s.ID] = true
		if !s.IsAvailable(testNow) {
			t.Errorf("sample %q already expired", s.ID)
		}
	}
}

func TestAvailable_SortedByEfficiency(t *testing.T) {
	c := New(Sample(testNow)...)
	got, err := c.Available(context.Background(), testNow)
	if err != nil {
		t.Fatal(err)
	}
	// 100/3, 30/1, 80/5 and 150/10 points per minute
	want := []string{"coffee-habits", "weekend-plans", "smartphone-usage", "delivery-service"}
	if len(got) != len(want) {
		t.Fatalf("Available() = %v, want %v", ids(got), want)
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("Available() = %v, want %v", ids(got), want)
		}
	}
}

func TestAvailable_ExcludesExpired(t *testing.T) {
	c := New(Sample(testNow)...)
	later := testNow.Add(3 * 24 * time.Hour)
	got, _ := c.Available(context.Background(), later)
	for _, s := range got {
		if s.ID == "weekend-plans" {
			t.Error("expired survey returned")
		}
	}
	if _, err := c.Find(context.Background(), "weekend-plans"); err != nil {
		t.Errorf("Find() should still return expired surveys, got %v", err)
	}
}

func TestByCategory(t *testing.T) {
	c := New(Sample(testNow)...)
	got, _ := c.ByCategory(context.Background(), domain.CategoryService, testNow)
	if len(got) != 1 || got[0].ID != "delivery-service" {
		t.Errorf("ByCategory(service) = %v", ids(got))
	}
}

func TestFind_NotFound(t *testing.T) {
	c := New()
	if _, err := c.Find(context.Background(), "nope"); !errors.Is(err, domain.ErrSurveyNotFound) {
		t.Errorf("Find() error = %v, want ErrSurveyNotFound", err)
	}
}

func TestPut_Replaces(t *testing.T) {
	c := New(Sample(testNow)...)
	n := c.Len()
	s, _ := c.Find(context.Background(), "coffee-habits")
	s.Reward = domain.MustAmount(1)
	c.Put(s)
	if c.Len() != n {
		t.Errorf("Len() = %d after replace, want %d", c.Len(), n)
	}
	got, _ := c.Find(context.Background(), "coffee-habits")
	if got.Reward.Value() != 1 {
		t.Errorf("reward = %s, want 1pt", got.Reward)
	}
}

const surveyTOML = `
[[survey]]
id = "tea"
title = "Tea time"
category = "lifestyle"
reward = 60
estimated_minutes = 2
expires_in = "48h"

  [[survey.question]]
  kind = "single_choice"
  text = "Green or black?"
  choices = ["green", "black"]

  [[survey.question]]
  kind = "scale"
  text = "Cups per day"
  min = 0
  max = 10

[[survey]]
title = "Untitled id"
reward = 10
estimated_minutes = 1
expires_in = "1h"

  [[survey.question]]
  kind = "free_text"
  text = "Say hi"
  max_length = 5
`

func TestParse(t *testing.T) {
	surveys, err := Parse(surveyTOML, testNow)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(surveys) != 2 {
		t.Fatalf("len = %d, want 2", len(surveys))
	}
	tea := surveys[0]
	if tea.ID != "tea" || tea.Category != domain.CategoryLifestyle || tea.Reward.Value() != 60 {
		t.Errorf("tea = %+v", tea)
	}
	if !tea.ExpiresAt.Equal(testNow.Add(48 * time.Hour)) {
		t.Errorf("ExpiresAt = %v", tea.ExpiresAt)
	}
	if len(tea.Questions) != 2 || tea.Questions[1].Max != 10 {
		t.Errorf("questions = %+v", tea.Questions)
	}
	if surveys[1].ID == "" || surveys[1].Category != domain.CategoryGeneral {
		t.Errorf("defaults not applied: %+v", surveys[1])
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad category", "[[survey]]\ntitle=\"x\"\ncategory=\"sports\"\nexpires_in=\"1h\"\n[[survey.question]]\nkind=\"free_text\"\ntext=\"q\"\n"},
		{"negative reward", "[[survey]]\ntitle=\"x\"\nreward=-1\nexpires_in=\"1h\"\n[[survey.question]]\nkind=\"free_text\"\ntext=\"q\"\n"},
		{"bad duration", "[[survey]]\ntitle=\"x\"\nexpires_in=\"soon\"\n[[survey.question]]\nkind=\"free_text\"\ntext=\"q\"\n"},
		{"no questions", "[[survey]]\ntitle=\"x\"\nexpires_in=\"1h\"\n"},
		{"bad kind", "[[survey]]\ntitle=\"x\"\nexpires_in=\"1h\"\n[[survey.question]]\nkind=\"ranking\"\ntext=\"q\"\n"},
		{"bad toml", "[[survey]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.data, testNow); err == nil {
				t.Error("Parse() should fail")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "surveys.toml")
	if err := os.WriteFile(path, []byte(surveyTOML), 0o600); err != nil {
		t.Fatal(err)
	}
	surveys, err := LoadFile(path, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if len(surveys) != 2 {
		t.Errorf("len = %d, want 2", len(surveys))
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"), testNow); err == nil {
		t.Error("LoadFile(missing) should fail")
	}
}
