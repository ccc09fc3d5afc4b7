package models

import (
	"errors"
	"time"
)

// ErrJobNotFound is returned when a user has no job description on file
var ErrJobNotFound = errors.New("job not found")

// SchemaError indicates an external model reply failed the response
// contract: malformed JSON, an out-of-range index, or a score outside
// [0,1]. Callers must not guess defaults for such payloads; they either
// fail soft (matching) or fall back to a typed value (reviews).
type SchemaError struct {
	Op     string
	Reason string
}

func (e *SchemaError) Error() string {
	return "schema validation failed in " + e.Op + ": " + e.Reason
}

// ErrEntryNotFound is returned when an entry is not found
var ErrEntryNotFound = errors.New("entry not found")

// Job is a user's current job description: a title plus an ordered list of
// responsibility texts. A responsibility has no identity of its own beyond
// its position in the list.
type Job struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Title            string    `json:"title"`
	Responsibilities []string  `json:"responsibilities"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// EntryItem is one categorized reflection inside a journal entry.
type EntryItem struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Entry is a single day's journal entry.
type Entry struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	EntryDate time.Time   `json:"entry_date"`
	Items     []EntryItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// EvidenceType classifies the strength of a single match record. It is
// frozen onto the record at match time and is independent of the aggregate
// per-responsibility coverage classification.
type EvidenceType string

const (
	EvidenceStrong   EvidenceType = "strong"
	EvidenceModerate EvidenceType = "moderate"
	EvidenceWeak     EvidenceType = "weak"
)

// Per-record evidence thresholds. These intentionally differ from the
// aggregate coverage thresholds in the coverage package; the two policies
// operate at different granularities and must stay separate.
const (
	EvidenceStrongMin   = 0.7
	EvidenceModerateMin = 0.4
)

// EvidenceTypeFor classifies one match score.
func EvidenceTypeFor(score float64) EvidenceType {
	switch {
	case score >= EvidenceStrongMin:
		return EvidenceStrong
	case score >= EvidenceModerateMin:
		return EvidenceModerate
	default:
		return EvidenceWeak
	}
}

// MatchRecord links one journal entry to one responsibility with a score
// supplied by the inference provider. ResponsibilityText is a denormalized
// copy frozen at match time; the index is only meaningful against the
// responsibility list as it existed then.
type MatchRecord struct {
	ID                  string       `json:"id"`
	UserID              string       `json:"user_id"`
	EntryID             string       `json:"entry_id"`
	ResponsibilityIndex int          `json:"responsibility_index"`
	ResponsibilityText  string       `json:"responsibility_text"`
	MatchScore          float64      `json:"match_score"`
	EvidenceType        EvidenceType `json:"evidence_type"`
	MatchedItems        []EntryItem  `json:"matched_items"`
	CreatedAt           time.Time    `json:"created_at"`
}

// ScoredMatch is one element of the inference provider's reply: a
// responsibility index, the entry items that justified the score, and the
// score itself. Scores come from an external model and are untrusted until
// validated by the matcher.
type ScoredMatch struct {
	ResponsibilityIndex int     `json:"responsibility_index"`
	MatchedItemIndices  []int   `json:"matched_item_indices"`
	Score               float64 `json:"score"`
}

// Review is an AI-generated monthly performance-review summary.
type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Month     int       `json:"month"`
	Year      int       `json:"year"`
	Summary   string    `json:"summary"`
	Wins      []string  `json:"wins"`
	Growth    []string  `json:"growth"`
	Themes    []string  `json:"themes"`
	Fallback  bool      `json:"fallback"`
	CreatedAt time.Time `json:"created_at"`
}

// FallbackReview is the hardcoded review used when the provider's reply
// fails schema validation. Callers persist it like any other review, with
// Fallback set so the UI can mark it.
func FallbackReview(month, year int) Review {
	return Review{
		Month:    month,
		Year:     year,
		Summary:  "We couldn't generate a summary for this month. Your journal entries are saved and will be included the next time a review is generated.",
		Wins:     []string{},
		Growth:   []string{},
		Themes:   []string{},
		Fallback: true,
	}
}
