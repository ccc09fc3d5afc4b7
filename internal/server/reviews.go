package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/careerlog/careerlog/internal/review"
	"github.com/careerlog/careerlog/internal/runtime"
	"github.com/careerlog/careerlog/internal/store"
)

// ReviewsHandler exposes monthly AI review generation and retrieval.
type ReviewsHandler struct {
	Store     *store.Store
	Generator *review.Generator
}

func (h *ReviewsHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.GET("", h.list)
	g.POST("/generate", h.generate)
}

func (h *ReviewsHandler) list(c echo.Context) error {
	userID := c.Get("user_id").(string)
	reviews, err := h.Store.ListReviews(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, reviews)
}

// generate builds the review for the requested month. A provider outage
// surfaces as an error here (unlike matching, silently proceeding would
// hand the user a review that misrepresents the month).
func (h *ReviewsHandler) generate(c echo.Context) error {
	userID := c.Get("user_id").(string)
	var req GenerateReviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Month < 1 || req.Month > 12 {
		return echo.NewHTTPError(http.StatusBadRequest, "month must be 1-12")
	}
	rev, err := h.Generator.Generate(c.Request().Context(), userID, req.Month, req.Year)
	if errors.Is(err, review.ErrNoEntries) {
		return echo.NewHTTPError(http.StatusNotFound, "no entries in that month")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, rev)
}
