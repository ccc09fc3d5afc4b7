// Package coverage aggregates match records into per-responsibility
// coverage classifications. Everything here is pure and deterministic:
// identical inputs always produce identical output, and nothing is
// persisted or mutated.
package coverage

import (
	"sort"

	"github.com/careerlog/careerlog/models"
)

// Coverage classifies how well a responsibility is evidenced by the
// aggregate of its match records.
type Coverage string

const (
	None     Coverage = "none"
	Weak     Coverage = "weak"
	Moderate Coverage = "moderate"
	Strong   Coverage = "strong"
)

// Aggregate thresholds applied to the mean score of a responsibility's
// matches. Distinct from the per-record evidence thresholds in models;
// do not unify the two.
const (
	StrongMin   = 0.6
	ModerateMin = 0.4
)

// Summary is the derived per-responsibility coverage view. It is computed
// on demand and never stored; recompute whenever match records change.
type Summary struct {
	Index        int      `json:"index"`
	Text         string   `json:"text"`
	MatchCount   int      `json:"match_count"`
	AverageScore float64  `json:"average_score"`
	Coverage     Coverage `json:"coverage"`
}

// Compute returns one Summary per responsibility index, including indices
// with zero matches. AverageScore is exactly 0.0 when there are no matches
// so downstream comparisons never deal with NaN.
func Compute(responsibilities []string, matches []models.MatchRecord) []Summary {
	counts := make([]int, len(responsibilities))
	totals := make([]float64, len(responsibilities))
	for _, m := range matches {
		if m.ResponsibilityIndex < 0 || m.ResponsibilityIndex >= len(responsibilities) {
			// Stale record from an edited responsibility list; nothing to
			// attribute it to.
			continue
		}
		counts[m.ResponsibilityIndex]++
		totals[m.ResponsibilityIndex] += m.MatchScore
	}

	out := make([]Summary, len(responsibilities))
	for i, text := range responsibilities {
		avg := 0.0
		if counts[i] > 0 {
			avg = totals[i] / float64(counts[i])
		}
		out[i] = Summary{
			Index:        i,
			Text:         text,
			MatchCount:   counts[i],
			AverageScore: avg,
			Coverage:     classify(counts[i], avg),
		}
	}
	return out
}

func classify(count int, avg float64) Coverage {
	switch {
	case count == 0:
		return None
	case avg >= StrongMin:
		return Strong
	case avg >= ModerateMin:
		return Moderate
	default:
		return Weak
	}
}

// SortByEvidence orders summaries most-evidenced first (match count
// descending, index ascending on ties). Display ordering.
func SortByEvidence(s []Summary) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].MatchCount != s[j].MatchCount {
			return s[i].MatchCount > s[j].MatchCount
		}
		return s[i].Index < s[j].Index
	})
}

// SortWorstFirst orders summaries worst-evidenced first (average score
// ascending, index ascending on ties). Flagging ordering.
func SortWorstFirst(s []Summary) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].AverageScore != s[j].AverageScore {
			return s[i].AverageScore < s[j].AverageScore
		}
		return s[i].Index < s[j].Index
	})
}
