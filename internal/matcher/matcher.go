// Package matcher is the boundary to the inference collaborator: it asks
// the LLM provider to score an entry against the responsibility list,
// validates the untrusted reply against a strict contract, and turns it
// into match records ready to persist.
package matcher

import (
	"context"
	"fmt"
	"log"

	"github.com/careerlog/careerlog/models"
	"github.com/careerlog/careerlog/provider"
)

// MatchThreshold is the floor below which a score produces no record at
// all; anything above it is kept and classified weak/moderate/strong.
const MatchThreshold = 0.2

// Matcher scores entries via an LLM provider.
type Matcher struct {
	LLM    provider.Provider
	Logger *log.Logger
}

func New(llm provider.Provider, logger *log.Logger) *Matcher {
	if logger == nil {
		logger = log.New(log.Writer(), "[MATCH] ", log.LstdFlags)
	}
	return &Matcher{LLM: llm, Logger: logger}
}

// MatchEntry scores entry items against responsibilities and returns the
// replacement match records for the entry. A reply that fails contract
// validation surfaces as *models.SchemaError; callers on the entry-save
// path treat any error as "keep the old records" (fail soft).
func (m *Matcher) MatchEntry(ctx context.Context, responsibilities []string, entry models.Entry) ([]models.MatchRecord, error) {
	if len(responsibilities) == 0 || len(entry.Items) == 0 {
		return nil, nil
	}

	scored, err := m.LLM.ScoreMatches(ctx, responsibilities, entry.Items)
	if err != nil {
		return nil, err
	}
	if err := validate(scored, len(responsibilities), len(entry.Items)); err != nil {
		return nil, err
	}

	var recs []models.MatchRecord
	for _, s := range scored {
		if s.Score <= MatchThreshold {
			continue
		}
		items := make([]models.EntryItem, 0, len(s.MatchedItemIndices))
		for _, idx := range s.MatchedItemIndices {
			items = append(items, entry.Items[idx])
		}
		recs = append(recs, models.MatchRecord{
			UserID:              entry.UserID,
			EntryID:             entry.ID,
			ResponsibilityIndex: s.ResponsibilityIndex,
			ResponsibilityText:  responsibilities[s.ResponsibilityIndex],
			MatchScore:          s.Score,
			EvidenceType:        models.EvidenceTypeFor(s.Score),
			MatchedItems:        items,
		})
	}
	return recs, nil
}

// validate enforces the response contract: indices in range, at most one
// match per responsibility, scores in [0,1]. Violations are schema errors,
// not values to be coerced.
func validate(scored []models.ScoredMatch, nResponsibilities, nItems int) error {
	seen := make(map[int]bool, len(scored))
	for _, s := range scored {
		if s.ResponsibilityIndex < 0 || s.ResponsibilityIndex >= nResponsibilities {
			return schemaErr("responsibility_index %d out of range [0,%d)", s.ResponsibilityIndex, nResponsibilities)
		}
		if seen[s.ResponsibilityIndex] {
			return schemaErr("duplicate responsibility_index %d", s.ResponsibilityIndex)
		}
		seen[s.ResponsibilityIndex] = true
		if s.Score < 0 || s.Score > 1 {
			return schemaErr("score %v outside [0,1]", s.Score)
		}
		for _, idx := range s.MatchedItemIndices {
			if idx < 0 || idx >= nItems {
				return schemaErr("matched_item_index %d out of range [0,%d)", idx, nItems)
			}
		}
	}
	return nil
}

func schemaErr(format string, args ...interface{}) error {
	return &models.SchemaError{Op: "score_matches", Reason: fmt.Sprintf(format, args...)}
}
