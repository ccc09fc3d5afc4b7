package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/careerlog/careerlog/internal/checkin"
	"github.com/careerlog/careerlog/internal/runtime"
	"github.com/careerlog/careerlog/internal/store"
	"github.com/careerlog/careerlog/models"
)

// CheckinsHandler exposes the quarterly check-in workflow.
type CheckinsHandler struct {
	Store  *store.Store
	Engine *checkin.Engine
	Now    func() time.Time
}

func (h *CheckinsHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.POST("/generate", h.generate)
	g.GET("/current", h.current)
	g.GET("/banner", h.banner)
	g.PUT("/items/:index", h.updateItem)
	g.POST("/complete", h.complete)
}

func (h *CheckinsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// quarterParams resolves the target quarter: explicit ?quarter=&year= or
// the current calendar quarter.
func (h *CheckinsHandler) quarterParams(c echo.Context) (int, int, error) {
	q, year := checkin.QuarterOf(h.now())
	if s := c.QueryParam("quarter"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > 4 {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "quarter must be 1-4")
		}
		q = v
	}
	if s := c.QueryParam("year"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid year")
		}
		year = v
	}
	return q, year, nil
}

// generate runs the flagging engine for the target quarter. Idempotent:
// re-running against a pending checkin recomputes its flags; a completed
// checkin is returned untouched.
func (h *CheckinsHandler) generate(c echo.Context) error {
	userID := c.Get("user_id").(string)
	ctx := c.Request().Context()
	q, year, err := h.quarterParams(c)
	if err != nil {
		return err
	}

	job, err := h.Store.GetJob(ctx, userID)
	if errors.Is(err, models.ErrJobNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no job on file")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	from, to := checkin.QuarterRange(q, year, time.UTC)
	matches, err := h.Store.ListMatchesBetween(ctx, userID, from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	ck, err := h.Engine.Ensure(ctx, userID, q, year, job.Responsibilities, matches)
	if err != nil {
		return checkinHTTPError(err)
	}
	return c.JSON(http.StatusOK, ck)
}

func (h *CheckinsHandler) current(c echo.Context) error {
	userID := c.Get("user_id").(string)
	q, year, err := h.quarterParams(c)
	if err != nil {
		return err
	}
	ck, err := h.Store.GetCheckin(c.Request().Context(), userID, q, year)
	if err != nil {
		return checkinHTTPError(err)
	}
	return c.JSON(http.StatusOK, ck)
}

// banner is advisory UI guidance only; it never mutates stored state.
func (h *CheckinsHandler) banner(c echo.Context) error {
	userID := c.Get("user_id").(string)
	now := h.now()
	q, year := checkin.QuarterOf(now)
	dismissed := c.QueryParam("dismissed") == "true"

	ck, err := h.Store.GetCheckin(c.Request().Context(), userID, q, year)
	if err != nil && !errors.Is(err, checkin.ErrNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, BannerResponse{ShowPrompt: checkin.ShouldPrompt(now, ck, dismissed)})
}

func (h *CheckinsHandler) updateItem(c echo.Context) error {
	userID := c.Get("user_id").(string)
	q, year, err := h.quarterParams(c)
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item index")
	}
	var req UpdateCheckinItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ck, err := h.Engine.UpdateItem(c.Request().Context(), userID, q, year, index, req.Action, req.Note)
	if err != nil {
		return checkinHTTPError(err)
	}
	return c.JSON(http.StatusOK, ck)
}

func (h *CheckinsHandler) complete(c echo.Context) error {
	userID := c.Get("user_id").(string)
	q, year, err := h.quarterParams(c)
	if err != nil {
		return err
	}
	var req CompleteCheckinRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ck, err := h.Engine.Complete(c.Request().Context(), userID, q, year, req.FocusNextQuarter)
	if err != nil {
		return checkinHTTPError(err)
	}
	return c.JSON(http.StatusOK, ck)
}

// checkinHTTPError maps the engine's error taxonomy onto HTTP statuses.
func checkinHTTPError(err error) error {
	var ve *checkin.ValidationError
	if errors.As(err, &ve) {
		return echo.NewHTTPError(http.StatusBadRequest, ve.Reason)
	}
	var sc *checkin.StateConflictError
	if errors.As(err, &sc) {
		return echo.NewHTTPError(http.StatusConflict, sc.Reason)
	}
	if errors.Is(err, checkin.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "checkin not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
