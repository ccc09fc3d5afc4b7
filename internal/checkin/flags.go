package checkin

import (
	"github.com/careerlog/careerlog/internal/coverage"
	"github.com/careerlog/careerlog/models"
)

// GenerateFlags computes the flagged list for a quarter from the
// responsibility list and the match records whose parent entries fall in
// that quarter (the caller does the date filtering). Only none/weak
// coverage qualifies; output is worst-first (average score ascending,
// index ascending on ties) and capped at MaxFlags. Pure and deterministic:
// running it twice on the same inputs yields identical output.
func GenerateFlags(responsibilities []string, matches []models.MatchRecord) []FlaggedResponsibility {
	summaries := coverage.Compute(responsibilities, matches)
	coverage.SortWorstFirst(summaries)

	flagged := make([]FlaggedResponsibility, 0, MaxFlags)
	for _, s := range summaries {
		if s.Coverage != coverage.None && s.Coverage != coverage.Weak {
			continue
		}
		flagged = append(flagged, FlaggedResponsibility{
			Index:        s.Index,
			Text:         s.Text,
			Coverage:     s.Coverage,
			MatchCount:   s.MatchCount,
			AverageScore: s.AverageScore,
		})
		if len(flagged) == MaxFlags {
			break
		}
	}
	return flagged
}
