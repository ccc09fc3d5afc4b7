// Package search maintains a bleve full-text index over journal entries.
// The index is derived data: the store stays the source of truth, and the
// index is rebuilt per entry on every save.
package search

import (
	"context"
	"strings"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/mapping"

	"github.com/careerlog/careerlog/models"
)

// entryDoc is the flattened shape indexed per entry.
type entryDoc struct {
	UserID string `json:"user_id"`
	Date   string `json:"date"`
	Text   string `json:"text"`
}

// Index wraps a bleve index keyed by entry ID.
type Index struct {
	idx bleve.Index
}

// Open opens (or creates) the index at path. An empty path yields an
// in-memory index, which is what tests and dev setups use.
func Open(path string) (*Index, error) {
	mapping := buildMapping()
	if path == "" {
		idx, err := bleve.NewMemOnly(mapping)
		if err != nil {
			return nil, err
		}
		return &Index{idx: idx}, nil
	}
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, mapping)
	}
	if err != nil {
		return nil, err
	}
	return &Index{idx: idx}, nil
}

func buildMapping() *mapping.IndexMappingImpl {
	entry := bleve.NewDocumentMapping()

	// user_id must match exactly, never tokenized.
	userField := bleve.NewTextFieldMapping()
	userField.Analyzer = keyword.Name
	entry.AddFieldMappingsAt("user_id", userField)

	entry.AddFieldMappingsAt("text", bleve.NewTextFieldMapping())

	dateField := bleve.NewTextFieldMapping()
	dateField.Analyzer = keyword.Name
	entry.AddFieldMappingsAt("date", dateField)

	mapping := bleve.NewIndexMapping()
	mapping.DefaultMapping = entry
	return mapping
}

// IndexEntry adds or replaces the document for an entry.
func (i *Index) IndexEntry(e models.Entry) error {
	var b strings.Builder
	for _, item := range e.Items {
		b.WriteString(item.Category)
		b.WriteString(": ")
		b.WriteString(item.Text)
		b.WriteString("\n")
	}
	return i.idx.Index(e.ID, entryDoc{
		UserID: e.UserID,
		Date:   e.EntryDate.Format("2006-01-02"),
		Text:   b.String(),
	})
}

// DeleteEntry removes an entry's document.
func (i *Index) DeleteEntry(entryID string) error {
	return i.idx.Delete(entryID)
}

// Search returns matching entry IDs for a user, best first.
func (i *Index) Search(ctx context.Context, userID, queryString string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	userQ := bleve.NewTermQuery(userID)
	userQ.SetField("user_id")
	textQ := bleve.NewQueryStringQuery(queryString)
	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(userQ, textQ), limit, 0, false)

	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// Close releases the underlying index.
func (i *Index) Close() error { return i.idx.Close() }
