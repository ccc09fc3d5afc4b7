package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/careerlog/careerlog/internal/checkin"
	"github.com/careerlog/careerlog/internal/review"
	"github.com/careerlog/careerlog/internal/store"
	"github.com/careerlog/careerlog/models"
)

// Scheduler periodically generates quarterly check-ins for users entering
// the end-of-quarter window and monthly reviews for the previous month.
// Redis locks keep concurrent replicas from doing the same work twice.
type Scheduler struct {
	Store      *store.Store
	Engine     *checkin.Engine
	Reviews    *review.Generator
	Rdb        *redis.Client
	ReviewCron string
	Stop       chan struct{}
	Logger     *log.Logger
}

func (s *Scheduler) Start() {
	if s.Logger == nil {
		s.Logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick(time.Now().UTC())
			}
		}
	}()
}

func (s *Scheduler) tick(now time.Time) {
	ctx := context.Background()
	users, err := s.Store.ListUserIDs(ctx)
	if err != nil {
		s.Logger.Printf("list users: %v", err)
		return
	}
	for _, userID := range users {
		s.ensureCheckin(ctx, userID, now)
		s.ensureReview(ctx, userID, now)
	}
}

// ensureCheckin generates the quarter's checkin once a user enters the
// prompt window. The engine's upsert makes a lost race harmless; the lock
// just avoids duplicate inference-free work across replicas.
func (s *Scheduler) ensureCheckin(ctx context.Context, userID string, now time.Time) {
	q, year := checkin.QuarterOf(now)
	if !checkin.ShouldPrompt(now, nil, false) {
		return // outside the end-of-quarter window
	}
	if _, err := s.Store.GetCheckin(ctx, userID, q, year); err == nil {
		return
	} else if !errors.Is(err, checkin.ErrNotFound) {
		s.Logger.Printf("get checkin for %s: %v", userID, err)
		return
	}

	lockKey := fmt.Sprintf("sched:checkin:%s:%d-%d", userID, year, q)
	if !s.acquire(ctx, lockKey) {
		return
	}

	job, err := s.Store.GetJob(ctx, userID)
	if errors.Is(err, models.ErrJobNotFound) {
		return
	}
	if err != nil {
		s.Logger.Printf("get job for %s: %v", userID, err)
		return
	}
	from, to := checkin.QuarterRange(q, year, time.UTC)
	matches, err := s.Store.ListMatchesBetween(ctx, userID, from, to)
	if err != nil {
		s.Logger.Printf("list matches for %s: %v", userID, err)
		return
	}
	if _, err := s.Engine.Ensure(ctx, userID, q, year, job.Responsibilities, matches); err != nil {
		s.Logger.Printf("generate checkin for %s: %v", userID, err)
		return
	}
	s.Logger.Printf("generated Q%d %d checkin for %s", q, year, userID)
}

// ensureReview generates last month's review when the review cron has
// fired since the user's newest review.
func (s *Scheduler) ensureReview(ctx context.Context, userID string, now time.Time) {
	last, err := s.Store.LatestReviewTime(ctx, userID)
	if err != nil {
		s.Logger.Printf("latest review for %s: %v", userID, err)
		return
	}
	if !isDue(s.ReviewCron, last, now) {
		return
	}

	prev := now.AddDate(0, -1, 0)
	month, year := int(prev.Month()), prev.Year()
	lockKey := fmt.Sprintf("sched:review:%s:%d-%02d", userID, year, month)
	if !s.acquire(ctx, lockKey) {
		return
	}

	if _, err := s.Reviews.Generate(ctx, userID, month, year); err != nil {
		if errors.Is(err, review.ErrNoEntries) {
			return
		}
		s.Logger.Printf("generate review for %s: %v", userID, err)
		return
	}
	s.Logger.Printf("generated %d-%02d review for %s", year, month, userID)
}

func (s *Scheduler) acquire(ctx context.Context, key string) bool {
	if s.Rdb == nil {
		return true
	}
	ok, err := s.Rdb.SetNX(ctx, key, uuid.NewString(), 2*time.Hour).Result()
	if err != nil {
		s.Logger.Printf("lock %s: %v", key, err)
		return false
	}
	return ok
}

// isDue determines whether cronSpec has a firing between last and now.
// A nil last means never run, which is always due.
func isDue(cronSpec string, last *time.Time, now time.Time) bool {
	if last == nil {
		return true
	}
	expr, err := cronexpr.Parse(cronSpec)
	if err != nil {
		// Fallback: treat as monthly if the spec is invalid.
		return now.Sub(*last) >= 28*24*time.Hour
	}
	next := expr.Next(*last)
	return !next.IsZero() && !next.After(now)
}
