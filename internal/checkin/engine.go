package checkin

import (
	"context"
	"errors"
	"time"

	"github.com/careerlog/careerlog/models"
)

// Store is the persistence seam the engine needs. *store.Store satisfies
// it; tests use an in-memory fake.
type Store interface {
	// GetCheckin returns ErrNotFound when no row exists.
	GetCheckin(ctx context.Context, userID string, quarter, year int) (*Checkin, error)
	// UpsertCheckin inserts or overwrites flagged/status keyed on
	// (user, quarter, year); the unique constraint makes concurrent
	// generation converge on one row.
	UpsertCheckin(ctx context.Context, c *Checkin) error
	// SaveCheckin persists item dispositions, focus list, status and
	// completed_at for an existing checkin.
	SaveCheckin(ctx context.Context, c *Checkin) error
}

// Engine drives the quarterly check-in workflow against a Store. User
// identity is an explicit parameter on every call; there is no ambient
// session state.
type Engine struct {
	Store Store
	Now   func() time.Time
}

func NewEngine(st Store) *Engine {
	return &Engine{Store: st, Now: time.Now}
}

// Ensure generates (or refreshes) the check-in for (userID, quarter, year)
// from the given responsibility list and in-quarter match records.
//
//   - completed checkin: no-op, the existing checkin is returned untouched.
//   - pending/in_progress checkin: the flagged list is overwritten with the
//     fresh computation and status forced back to pending. Dispositions on
//     items no longer flagged are lost; that is documented product
//     behavior, not a merge bug to fix here.
//   - no checkin: a new pending one is inserted.
func (e *Engine) Ensure(ctx context.Context, userID string, quarter, year int, responsibilities []string, matches []models.MatchRecord) (*Checkin, error) {
	if quarter < 1 || quarter > 4 {
		return nil, validationf("quarter must be 1-4, got %d", quarter)
	}

	existing, err := e.Store.GetCheckin(ctx, userID, quarter, year)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status == StatusCompleted {
		return existing, nil
	}

	c := &Checkin{
		UserID:  userID,
		Quarter: quarter,
		Year:    year,
		Status:  StatusPending,
		Flagged: GenerateFlags(responsibilities, matches),
	}
	if existing != nil {
		c.ID = existing.ID
		c.FocusNextQuarter = existing.FocusNextQuarter
		c.CreatedAt = existing.CreatedAt
	}
	if err := e.Store.UpsertCheckin(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateItem sets the disposition for one flagged item, fully replacing
// its action/note pair. The first update moves a pending checkin to
// in_progress. Idempotent per index.
func (e *Engine) UpdateItem(ctx context.Context, userID string, quarter, year, index int, action Action, note *string) (*Checkin, error) {
	if !ValidAction(action) {
		return nil, validationf("unknown action %q", action)
	}
	c, err := e.Store.GetCheckin(ctx, userID, quarter, year)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusCompleted {
		return nil, &StateConflictError{Reason: "checkin already completed"}
	}
	if index < 0 || index >= len(c.Flagged) {
		return nil, validationf("item index %d out of range (have %d items)", index, len(c.Flagged))
	}

	a := action
	c.Flagged[index].Action = &a
	c.Flagged[index].Note = note
	if c.Status == StatusPending {
		c.Status = StatusInProgress
	}
	if err := e.Store.SaveCheckin(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Complete moves the checkin to its terminal state. Every flagged item
// must already carry a disposition; the gate is re-validated here rather
// than trusted from the UI. At most MaxFocus focus texts are accepted.
// CompletedAt is set exactly once.
func (e *Engine) Complete(ctx context.Context, userID string, quarter, year int, focus []string) (*Checkin, error) {
	if len(focus) > MaxFocus {
		return nil, validationf("at most %d focus items allowed, got %d", MaxFocus, len(focus))
	}
	c, err := e.Store.GetCheckin(ctx, userID, quarter, year)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusCompleted {
		return nil, &StateConflictError{Reason: "checkin already completed"}
	}
	if !c.AllItemsReviewed() {
		return nil, validationf("all flagged items must be reviewed before completing")
	}

	now := e.Now()
	c.Status = StatusCompleted
	c.FocusNextQuarter = focus
	c.CompletedAt = &now
	if err := e.Store.SaveCheckin(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
