package matcher

import (
	"context"
	"errors"
	"testing"

	"github.com/careerlog/careerlog/models"
)

// fakeLLM returns a canned reply or error from ScoreMatches.
type fakeLLM struct {
	scored []models.ScoredMatch
	err    error
	calls  int
}

func (f *fakeLLM) ScoreMatches(_ context.Context, _ []string, _ []models.EntryItem) ([]models.ScoredMatch, error) {
	f.calls++
	return f.scored, f.err
}

func (f *fakeLLM) GenerateReview(_ context.Context, month, year int, _ []models.Entry) (models.Review, error) {
	return models.Review{}, errors.New("not used")
}

func testEntry() models.Entry {
	return models.Entry{
		ID:     "entry-1",
		UserID: "user-1",
		Items: []models.EntryItem{
			{Category: "win", Text: "shipped the billing migration"},
			{Category: "learning", Text: "paired with a junior on reviews"},
		},
	}
}

func TestMatchEntryBuildsRecords(t *testing.T) {
	llm := &fakeLLM{scored: []models.ScoredMatch{
		{ResponsibilityIndex: 0, MatchedItemIndices: []int{0}, Score: 0.8},
		{ResponsibilityIndex: 1, MatchedItemIndices: []int{1}, Score: 0.5},
	}}
	m := New(llm, nil)

	recs, err := m.MatchEntry(context.Background(), []string{"Ship features", "Mentor juniors"}, testEntry())
	if err != nil {
		t.Fatalf("MatchEntry: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	first := recs[0]
	if first.EntryID != "entry-1" || first.UserID != "user-1" {
		t.Fatalf("record not attributed to entry/user: %+v", first)
	}
	if first.ResponsibilityText != "Ship features" {
		t.Fatalf("responsibility text not frozen onto record: %+v", first)
	}
	if first.EvidenceType != models.EvidenceStrong {
		t.Fatalf("0.8 must be strong evidence, got %s", first.EvidenceType)
	}
	if recs[1].EvidenceType != models.EvidenceModerate {
		t.Fatalf("0.5 must be moderate evidence, got %s", recs[1].EvidenceType)
	}
	if len(first.MatchedItems) != 1 || first.MatchedItems[0].Text != "shipped the billing migration" {
		t.Fatalf("matched items not resolved from indices: %+v", first.MatchedItems)
	}
}

func TestMatchEntryDropsScoresAtOrBelowThreshold(t *testing.T) {
	llm := &fakeLLM{scored: []models.ScoredMatch{
		{ResponsibilityIndex: 0, Score: MatchThreshold},
		{ResponsibilityIndex: 1, Score: 0.21},
	}}
	m := New(llm, nil)

	recs, err := m.MatchEntry(context.Background(), []string{"A", "B"}, testEntry())
	if err != nil {
		t.Fatalf("MatchEntry: %v", err)
	}
	if len(recs) != 1 || recs[0].ResponsibilityIndex != 1 {
		t.Fatalf("threshold filtering wrong: %+v", recs)
	}
	if recs[0].EvidenceType != models.EvidenceWeak {
		t.Fatalf("0.21 must be weak evidence, got %s", recs[0].EvidenceType)
	}
}

func TestMatchEntrySkipsEmptyInputs(t *testing.T) {
	llm := &fakeLLM{}
	m := New(llm, nil)

	if recs, err := m.MatchEntry(context.Background(), nil, testEntry()); recs != nil || err != nil {
		t.Fatalf("no responsibilities must be a no-op, got %v %v", recs, err)
	}
	if recs, err := m.MatchEntry(context.Background(), []string{"A"}, models.Entry{}); recs != nil || err != nil {
		t.Fatalf("no items must be a no-op, got %v %v", recs, err)
	}
	if llm.calls != 0 {
		t.Fatalf("provider must not be called for empty inputs, got %d calls", llm.calls)
	}
}

func TestMatchEntrySchemaViolations(t *testing.T) {
	cases := []struct {
		name   string
		scored []models.ScoredMatch
	}{
		{"responsibility index out of range", []models.ScoredMatch{{ResponsibilityIndex: 5, Score: 0.5}}},
		{"negative responsibility index", []models.ScoredMatch{{ResponsibilityIndex: -1, Score: 0.5}}},
		{"duplicate responsibility index", []models.ScoredMatch{
			{ResponsibilityIndex: 0, Score: 0.5},
			{ResponsibilityIndex: 0, Score: 0.6},
		}},
		{"score above one", []models.ScoredMatch{{ResponsibilityIndex: 0, Score: 1.2}}},
		{"negative score", []models.ScoredMatch{{ResponsibilityIndex: 0, Score: -0.1}}},
		{"matched item index out of range", []models.ScoredMatch{{ResponsibilityIndex: 0, MatchedItemIndices: []int{9}, Score: 0.5}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := New(&fakeLLM{scored: tc.scored}, nil)
			_, err := m.MatchEntry(context.Background(), []string{"A", "B"}, testEntry())
			var se *models.SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("expected SchemaError, got %v", err)
			}
		})
	}
}

func TestMatchEntryPropagatesProviderError(t *testing.T) {
	boom := errors.New("upstream unavailable")
	m := New(&fakeLLM{err: boom}, nil)
	if _, err := m.MatchEntry(context.Background(), []string{"A"}, testEntry()); !errors.Is(err, boom) {
		t.Fatalf("provider error must pass through, got %v", err)
	}
}
