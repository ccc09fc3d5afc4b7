package search

import (
	"context"
	"testing"
	"time"

	"github.com/careerlog/careerlog/models"
)

func entry(id, userID, text string) models.Entry {
	return models.Entry{
		ID:        id,
		UserID:    userID,
		EntryDate: time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC),
		Items:     []models.EntryItem{{Category: "win", Text: text}},
	}
}

func TestSearchScopedToUser(t *testing.T) {
	idx, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	if err := idx.IndexEntry(entry("e1", "user-1", "shipped the billing migration")); err != nil {
		t.Fatalf("IndexEntry: %v", err)
	}
	if err := idx.IndexEntry(entry("e2", "user-2", "shipped the billing migration")); err != nil {
		t.Fatalf("IndexEntry: %v", err)
	}

	ids, err := idx.Search(context.Background(), "user-1", "billing", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(ids) != 1 || ids[0] != "e1" {
		t.Fatalf("search must only see the caller's entries, got %v", ids)
	}
}

func TestSearchAfterReindexAndDelete(t *testing.T) {
	idx, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	if err := idx.IndexEntry(entry("e1", "user-1", "onboarding docs rewrite")); err != nil {
		t.Fatalf("IndexEntry: %v", err)
	}
	// Re-index the same entry with new text; the old terms must be gone.
	if err := idx.IndexEntry(entry("e1", "user-1", "incident postmortem")); err != nil {
		t.Fatalf("IndexEntry: %v", err)
	}

	if ids, _ := idx.Search(context.Background(), "user-1", "onboarding", 10); len(ids) != 0 {
		t.Fatalf("stale terms survived reindex: %v", ids)
	}
	ids, err := idx.Search(context.Background(), "user-1", "postmortem", 10)
	if err != nil || len(ids) != 1 {
		t.Fatalf("expected the reindexed entry, got %v %v", ids, err)
	}

	if err := idx.DeleteEntry("e1"); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if ids, _ := idx.Search(context.Background(), "user-1", "postmortem", 10); len(ids) != 0 {
		t.Fatalf("deleted entry still searchable: %v", ids)
	}
}
