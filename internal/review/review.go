// Package review builds AI-generated monthly performance-review summaries
// from a month of journal entries.
package review

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/careerlog/careerlog/models"
	"github.com/careerlog/careerlog/provider"
)

// ErrNoEntries is returned when the month holds nothing to review.
var ErrNoEntries = errors.New("no entries in review period")

// Store is the persistence seam the generator needs.
type Store interface {
	ListEntriesBetween(ctx context.Context, userID string, from, to time.Time) ([]models.Entry, error)
	UpsertReview(ctx context.Context, r *models.Review) error
}

// Generator produces and persists one review per (user, month, year).
type Generator struct {
	Store  Store
	LLM    provider.Provider
	Logger *log.Logger
}

func NewGenerator(st Store, llm provider.Provider, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.New(log.Writer(), "[REVIEW] ", log.LstdFlags)
	}
	return &Generator{Store: st, LLM: llm, Logger: logger}
}

// MonthRange returns the inclusive [first instant, last instant] of the
// given month.
func MonthRange(month, year int, loc *time.Location) (start, end time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// Generate builds the review for (userID, month, year) and persists it.
// A reply that fails shape validation is replaced by the hardcoded
// fallback review rather than surfacing broken content; any other provider
// failure is returned to the caller, since silently proceeding would store
// a review that misrepresents the month.
func (g *Generator) Generate(ctx context.Context, userID string, month, year int) (models.Review, error) {
	if month < 1 || month > 12 {
		return models.Review{}, fmt.Errorf("month must be 1-12, got %d", month)
	}
	from, to := MonthRange(month, year, time.UTC)
	entries, err := g.Store.ListEntriesBetween(ctx, userID, from, to)
	if err != nil {
		return models.Review{}, err
	}
	if len(entries) == 0 {
		return models.Review{}, ErrNoEntries
	}

	rev, err := g.LLM.GenerateReview(ctx, month, year, entries)
	if err != nil {
		var se *models.SchemaError
		if !errors.As(err, &se) {
			return models.Review{}, err
		}
		g.Logger.Printf("review payload for user=%s %d-%02d failed validation, using fallback: %v", userID, year, month, err)
		rev = models.FallbackReview(month, year)
	}
	rev.UserID = userID

	if err := g.Store.UpsertReview(ctx, &rev); err != nil {
		return models.Review{}, err
	}
	return rev, nil
}
