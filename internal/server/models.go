package server

import (
	"github.com/careerlog/careerlog/internal/checkin"
	"github.com/careerlog/careerlog/internal/coverage"
	"github.com/careerlog/careerlog/models"
)

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// AuthSignupRequest represents the signup payload.
type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthLoginRequest represents the login payload.
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// IDResponse is a generic id response wrapper.
type IDResponse struct {
	ID string `json:"id"`
}

// MeResponse returns the current authenticated user id.
type MeResponse struct {
	UserID string `json:"user_id"`
}

// UpsertJobRequest replaces the user's job description.
type UpsertJobRequest struct {
	Title            string   `json:"title"`
	Responsibilities []string `json:"responsibilities"`
}

// CoverageResponse is the per-responsibility coverage view, most-evidenced
// first.
type CoverageResponse struct {
	Summaries []coverage.Summary `json:"summaries"`
}

// EntryRequest creates or replaces a journal entry.
type EntryRequest struct {
	EntryDate string             `json:"entry_date"` // YYYY-MM-DD
	Items     []models.EntryItem `json:"items"`
}

// EntrySearchResponse lists matching entries, best first.
type EntrySearchResponse struct {
	Entries []models.Entry `json:"entries"`
}

// UpdateCheckinItemRequest sets the disposition for one flagged item.
type UpdateCheckinItemRequest struct {
	Action checkin.Action `json:"action"`
	Note   *string        `json:"note"`
}

// CompleteCheckinRequest finishes the checkin with up to two focus texts.
type CompleteCheckinRequest struct {
	FocusNextQuarter []string `json:"focus_next_quarter"`
}

// BannerResponse tells the UI whether to surface the check-in prompt.
type BannerResponse struct {
	ShowPrompt bool `json:"show_prompt"`
}

// GenerateReviewRequest selects the month to summarize.
type GenerateReviewRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}
