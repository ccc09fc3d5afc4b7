package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/careerlog/careerlog/internal/matcher"
	"github.com/careerlog/careerlog/internal/runtime"
	"github.com/careerlog/careerlog/internal/search"
	"github.com/careerlog/careerlog/internal/store"
	"github.com/careerlog/careerlog/models"
)

// EntriesHandler manages journal entries. Saving an entry re-matches it
// against the user's responsibilities (fail-soft) and refreshes the
// search index.
type EntriesHandler struct {
	Store   *store.Store
	Matcher *matcher.Matcher
	Index   *search.Index
}

func (h *EntriesHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/search", h.search)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *EntriesHandler) list(c echo.Context) error {
	userID := c.Get("user_id").(string)
	entries, err := h.Store.ListEntries(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *EntriesHandler) get(c echo.Context) error {
	userID := c.Get("user_id").(string)
	entry, err := h.Store.GetEntry(c.Request().Context(), userID, c.Param("id"))
	if errors.Is(err, models.ErrEntryNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "entry not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *EntriesHandler) create(c echo.Context) error {
	userID := c.Get("user_id").(string)
	entry, err := h.bindEntry(c, userID)
	if err != nil {
		return err
	}
	id, err := h.Store.CreateEntry(c.Request().Context(), userID, entry.EntryDate, entry.Items)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	entry.ID = id
	h.postSave(c, entry)
	return c.JSON(http.StatusCreated, IDResponse{ID: id})
}

func (h *EntriesHandler) update(c echo.Context) error {
	userID := c.Get("user_id").(string)
	entry, err := h.bindEntry(c, userID)
	if err != nil {
		return err
	}
	entry.ID = c.Param("id")
	err = h.Store.UpdateEntry(c.Request().Context(), userID, entry.ID, entry.EntryDate, entry.Items)
	if errors.Is(err, models.ErrEntryNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "entry not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.postSave(c, entry)
	return c.JSON(http.StatusOK, IDResponse{ID: entry.ID})
}

func (h *EntriesHandler) delete(c echo.Context) error {
	userID := c.Get("user_id").(string)
	entryID := c.Param("id")
	err := h.Store.DeleteEntry(c.Request().Context(), userID, entryID)
	if errors.Is(err, models.ErrEntryNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "entry not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if h.Index != nil {
		if err := h.Index.DeleteEntry(entryID); err != nil {
			log.Printf("[SEARCH] delete entry %s: %v", entryID, err)
		}
	}
	return c.NoContent(http.StatusOK)
}

// search queries the journal index and hydrates the hits from the store.
func (h *EntriesHandler) search(c echo.Context) error {
	userID := c.Get("user_id").(string)
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q required")
	}
	if h.Index == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search index not available")
	}
	ids, err := h.Index.Search(c.Request().Context(), userID, q, 20)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	entries := make([]models.Entry, 0, len(ids))
	for _, id := range ids {
		entry, err := h.Store.GetEntry(c.Request().Context(), userID, id)
		if errors.Is(err, models.ErrEntryNotFound) {
			// Index lagging behind a delete; skip.
			continue
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		entries = append(entries, entry)
	}
	return c.JSON(http.StatusOK, EntrySearchResponse{Entries: entries})
}

func (h *EntriesHandler) bindEntry(c echo.Context, userID string) (models.Entry, error) {
	var req EntryRequest
	if err := c.Bind(&req); err != nil {
		return models.Entry{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Items) == 0 {
		return models.Entry{}, echo.NewHTTPError(http.StatusBadRequest, "items required")
	}
	date, err := time.Parse("2006-01-02", req.EntryDate)
	if err != nil {
		return models.Entry{}, echo.NewHTTPError(http.StatusBadRequest, "entry_date must be YYYY-MM-DD")
	}
	return models.Entry{UserID: userID, EntryDate: date, Items: req.Items}, nil
}

// postSave runs the match + index side effects of saving an entry. Both
// fail soft: a dead inference service or index must never lose the entry
// itself, and existing match records stay untouched on failure.
func (h *EntriesHandler) postSave(c echo.Context, entry models.Entry) {
	ctx := c.Request().Context()

	if h.Index != nil {
		if err := h.Index.IndexEntry(entry); err != nil {
			log.Printf("[SEARCH] index entry %s: %v", entry.ID, err)
		}
	}

	job, err := h.Store.GetJob(ctx, entry.UserID)
	if errors.Is(err, models.ErrJobNotFound) || (err == nil && len(job.Responsibilities) == 0) {
		return // nothing to match against
	}
	if err != nil {
		log.Printf("[MATCH] load job for entry %s: %v", entry.ID, err)
		return
	}
	recs, err := h.Matcher.MatchEntry(ctx, job.Responsibilities, entry)
	if err != nil {
		log.Printf("[MATCH] entry %s: %v", entry.ID, err)
		return
	}
	if err := h.Store.ReplaceEntryMatches(ctx, entry.UserID, entry.ID, recs); err != nil {
		log.Printf("[MATCH] persist matches for entry %s: %v", entry.ID, err)
	}
}
