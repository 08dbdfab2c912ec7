// Package catalog is the in-memory survey source.
// Surveys come from the built-in sample set or from a TOML file and are
// served through domain.SurveySource.
package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/tutu-network/pointledger/internal/domain"
)

var _ domain.SurveySource = (*Catalog)(nil)

// Catalog holds surveys keyed by ID. Safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	surveys map[string]domain.Survey
	order   []string // insertion order, used as the efficiency tie-break
}

// New creates a catalog seeded with surveys.
func New(surveys ...domain.Survey) *Catalog {
	c := &Catalog{surveys: make(map[string]domain.Survey)}
	for _, s := range surveys {
		c.Put(s)
	}
	return c
}

// Put adds s or replaces the survey with the same ID.
func (c *Catalog) Put(s domain.Survey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.surveys[s.ID]; !ok {
		c.order = append(c.order, s.ID)
	}
	c.surveys[s.ID] = s
}

// Len returns the number of surveys, expired ones included.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.surveys)
}

// Available returns surveys answerable at t, best reward per minute first.
func (c *Catalog) Available(_ context.Context, at time.Time) ([]domain.Survey, error) {
	return c.filter(at, func(domain.Survey) bool { return true }), nil
}

// ByCategory returns available surveys in one category.
func (c *Catalog) ByCategory(_ context.Context, category domain.SurveyCategory, at time.Time) ([]domain.Survey, error) {
	return c.filter(at, func(s domain.Survey) bool { return s.Category == category }), nil
}

// Find returns the survey with id, available or not.
func (c *Catalog) Find(_ context.Context, id string) (domain.Survey, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.surveys[id]
	if !ok {
		return domain.Survey{}, domain.ErrSurveyNotFound
	}
	return s, nil
}

func (c *Catalog) filter(at time.Time, keep func(domain.Survey) bool) []domain.Survey {
	c.mu.RLock()
	out := make([]domain.Survey, 0, len(c.order))
	for _, id := range c.order {
		s := c.surveys[id]
		if s.IsAvailable(at) && keep(s) {
			out = append(out, s)
		}
	}
	c.mu.RUnlock()

	domain.SortByEfficiency(out)
	return out
}
