// Package checkin implements the quarterly reflection workflow: flagging
// the worst-covered responsibilities, the pending → in_progress → completed
// check-in state machine, and the banner policy that decides when to
// surface the check-in to the user.
package checkin

import (
	"errors"
	"fmt"
	"time"

	"github.com/careerlog/careerlog/internal/coverage"
)

// Status is the lifecycle state of a quarterly check-in. Transitions only
// move forward; completed is terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Action is the user's disposition for a flagged responsibility.
type Action string

const (
	ActionNotInScope  Action = "not-in-scope"
	ActionNotCaptured Action = "not-captured"
	ActionNeedsFocus  Action = "needs-focus"
)

// ValidAction reports whether a is one of the recognized dispositions.
func ValidAction(a Action) bool {
	switch a {
	case ActionNotInScope, ActionNotCaptured, ActionNeedsFocus:
		return true
	}
	return false
}

const (
	// MaxFlags bounds the quarterly reflection burden; if more
	// responsibilities qualify, the worst ones win and the rest wait for a
	// future quarter.
	MaxFlags = 5

	// MaxFocus bounds the "focus next quarter" selection at completion.
	MaxFocus = 2
)

// FlaggedResponsibility is a frozen-at-flag-time snapshot of a poorly
// covered responsibility, plus the user's disposition. Only none/weak
// coverage ever gets flagged.
type FlaggedResponsibility struct {
	Index        int               `json:"index"`
	Text         string            `json:"text"`
	Coverage     coverage.Coverage `json:"coverage"`
	MatchCount   int               `json:"match_count"`
	AverageScore float64           `json:"average_score"`
	Action       *Action           `json:"action"`
	Note         *string           `json:"note"`
}

// Checkin is the persisted per-(user, quarter, year) workflow state.
type Checkin struct {
	ID               string                  `json:"id"`
	UserID           string                  `json:"user_id"`
	Quarter          int                     `json:"quarter"`
	Year             int                     `json:"year"`
	Status           Status                  `json:"status"`
	Flagged          []FlaggedResponsibility `json:"flagged_responsibilities"`
	FocusNextQuarter []string                `json:"focus_next_quarter"`
	CompletedAt      *time.Time              `json:"completed_at"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

// AllItemsReviewed reports whether every flagged item carries a
// disposition. Gates completion.
func (c *Checkin) AllItemsReviewed() bool {
	for _, f := range c.Flagged {
		if f.Action == nil {
			return false
		}
	}
	return true
}

// ErrNotFound is returned when no check-in exists for the requested
// (user, quarter, year).
var ErrNotFound = errors.New("checkin not found")

// ValidationError indicates the caller passed arguments that can never
// succeed: an out-of-range item index, too many focus texts, or a
// completion attempt with unreviewed items. No state is changed.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// StateConflictError indicates an attempted mutation of a completed
// check-in. The caller should re-fetch and treat the existing state as
// authoritative.
type StateConflictError struct {
	Reason string
}

func (e *StateConflictError) Error() string { return "state conflict: " + e.Reason }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
