package review

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/careerlog/careerlog/models"
)

type fakeStore struct {
	entries []models.Entry
	listErr error
	saved   *models.Review
	saveErr error
}

func (f *fakeStore) ListEntriesBetween(_ context.Context, _ string, _, _ time.Time) ([]models.Entry, error) {
	return f.entries, f.listErr
}

func (f *fakeStore) UpsertReview(_ context.Context, r *models.Review) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	cp := *r
	f.saved = &cp
	return nil
}

type fakeLLM struct {
	review models.Review
	err    error
}

func (f *fakeLLM) ScoreMatches(_ context.Context, _ []string, _ []models.EntryItem) ([]models.ScoredMatch, error) {
	return nil, errors.New("not used")
}

func (f *fakeLLM) GenerateReview(_ context.Context, _, _ int, _ []models.Entry) (models.Review, error) {
	return f.review, f.err
}

func quietGenerator(st Store, llm *fakeLLM) *Generator {
	return NewGenerator(st, llm, log.New(io.Discard, "", 0))
}

func oneEntry() []models.Entry {
	return []models.Entry{{ID: "e1", UserID: "user-1", Items: []models.EntryItem{{Category: "win", Text: "shipped"}}}}
}

func TestGeneratePersistsReview(t *testing.T) {
	st := &fakeStore{entries: oneEntry()}
	llm := &fakeLLM{review: models.Review{Month: 7, Year: 2025, Summary: "A solid month.", Wins: []string{"shipped"}}}
	g := quietGenerator(st, llm)

	rev, err := g.Generate(context.Background(), "user-1", 7, 2025)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if rev.UserID != "user-1" {
		t.Fatalf("review must be attributed to the caller, got %q", rev.UserID)
	}
	if rev.Fallback {
		t.Fatal("valid reply must not be marked fallback")
	}
	if st.saved == nil || st.saved.Summary != "A solid month." {
		t.Fatalf("review not persisted: %+v", st.saved)
	}
}

func TestGenerateFallsBackOnSchemaError(t *testing.T) {
	st := &fakeStore{entries: oneEntry()}
	llm := &fakeLLM{err: &models.SchemaError{Op: "generate_review", Reason: "missing summary"}}
	g := quietGenerator(st, llm)

	rev, err := g.Generate(context.Background(), "user-1", 7, 2025)
	if err != nil {
		t.Fatalf("schema failure must fall back, not error: %v", err)
	}
	if !rev.Fallback {
		t.Fatalf("expected fallback review, got %+v", rev)
	}
	if rev.Month != 7 || rev.Year != 2025 || rev.UserID != "user-1" {
		t.Fatalf("fallback review mislabeled: %+v", rev)
	}
	if st.saved == nil || !st.saved.Fallback {
		t.Fatalf("fallback review must be persisted like any other: %+v", st.saved)
	}
}

func TestGenerateSurfacesHardProviderError(t *testing.T) {
	boom := errors.New("upstream unavailable")
	st := &fakeStore{entries: oneEntry()}
	g := quietGenerator(st, &fakeLLM{err: boom})

	if _, err := g.Generate(context.Background(), "user-1", 7, 2025); !errors.Is(err, boom) {
		t.Fatalf("non-schema provider error must surface, got %v", err)
	}
	if st.saved != nil {
		t.Fatalf("nothing must be persisted on hard failure: %+v", st.saved)
	}
}

func TestGenerateNoEntries(t *testing.T) {
	g := quietGenerator(&fakeStore{}, &fakeLLM{})
	if _, err := g.Generate(context.Background(), "user-1", 7, 2025); !errors.Is(err, ErrNoEntries) {
		t.Fatalf("expected ErrNoEntries, got %v", err)
	}
}

func TestGenerateRejectsBadMonth(t *testing.T) {
	g := quietGenerator(&fakeStore{entries: oneEntry()}, &fakeLLM{})
	for _, month := range []int{0, 13} {
		if _, err := g.Generate(context.Background(), "user-1", month, 2025); err == nil {
			t.Fatalf("month %d must be rejected", month)
		}
	}
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(2, 2024, time.UTC)
	if !start.Equal(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start: %v", start)
	}
	if end.Month() != time.February || end.Day() != 29 {
		t.Fatalf("leap February must end on the 29th: %v", end)
	}
}
