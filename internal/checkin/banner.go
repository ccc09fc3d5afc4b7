package checkin

import "time"

// PromptWindow is how close to the end of a quarter the soft reminder
// starts showing, inclusive of the final day.
const PromptWindow = 14 * 24 * time.Hour

// ShouldPrompt decides whether the UI should surface the check-in banner.
// Advisory only: it never mutates stored state.
//
// True when a pending checkin with a non-empty flagged list exists (an
// "all caught up" pending checkin with zero flags does not prompt), or
// when now is inside the last 14 days of the current calendar quarter.
// A session-local dismissal suppresses it until next load.
func ShouldPrompt(now time.Time, current *Checkin, dismissed bool) bool {
	if dismissed {
		return false
	}
	if current != nil && current.Status == StatusPending && len(current.Flagged) > 0 {
		return true
	}
	q, year := QuarterOf(now)
	_, end := QuarterRange(q, year, now.Location())
	return end.Sub(now) < PromptWindow
}
