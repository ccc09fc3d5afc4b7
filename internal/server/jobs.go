package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/careerlog/careerlog/internal/coverage"
	"github.com/careerlog/careerlog/internal/runtime"
	"github.com/careerlog/careerlog/internal/store"
	"github.com/careerlog/careerlog/models"
)

// JobsHandler manages the user's job description and its coverage view.
type JobsHandler struct {
	Store *store.Store
}

func (h *JobsHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.GET("", h.get)
	g.PUT("", h.upsert)
	g.GET("/coverage", h.coverage)
}

func (h *JobsHandler) get(c echo.Context) error {
	userID := c.Get("user_id").(string)
	job, err := h.Store.GetJob(c.Request().Context(), userID)
	if errors.Is(err, models.ErrJobNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no job on file")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, job)
}

// upsert replaces the whole job description. Editing the responsibility
// list invalidates the positional indices of existing match records; that
// hazard is inherent to positional identity and deliberately not patched
// over here.
func (h *JobsHandler) upsert(c echo.Context) error {
	userID := c.Get("user_id").(string)
	var req UpsertJobRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title required")
	}
	id, err := h.Store.UpsertJob(c.Request().Context(), userID, req.Title, req.Responsibilities)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, IDResponse{ID: id})
}

// coverage computes the on-demand coverage view over all of the user's
// match records, most-evidenced first.
func (h *JobsHandler) coverage(c echo.Context) error {
	userID := c.Get("user_id").(string)
	ctx := c.Request().Context()

	job, err := h.Store.GetJob(ctx, userID)
	if errors.Is(err, models.ErrJobNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no job on file")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	matches, err := h.Store.ListMatches(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	summaries := coverage.Compute(job.Responsibilities, matches)
	coverage.SortByEvidence(summaries)
	return c.JSON(http.StatusOK, CoverageResponse{Summaries: summaries})
}
