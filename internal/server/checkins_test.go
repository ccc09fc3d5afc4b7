package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/careerlog/careerlog/internal/checkin"
	"github.com/careerlog/careerlog/internal/store"
)

func newCheckinsHandler(db *sql.DB) *CheckinsHandler {
	st := &store.Store{DB: db}
	eng := checkin.NewEngine(st)
	eng.Now = func() time.Time { return time.Date(2025, time.February, 1, 9, 0, 0, 0, time.UTC) }
	return &CheckinsHandler{
		Store:  st,
		Engine: eng,
		Now:    eng.Now,
	}
}

func TestGenerateCheckinCreatesPending(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	handler := newCheckinsHandler(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, user_id, title, responsibilities, created_at, updated_at FROM jobs WHERE user_id=\$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "responsibilities", "created_at", "updated_at"}).
			AddRow("job-1", "user-1", "Engineer", []byte(`["Ship features","Mentor juniors"]`), now, now))

	mock.ExpectQuery(`SELECT m\.id, m\.user_id, m\.entry_id, m\.responsibility_index`).
		WithArgs("user-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "entry_id", "responsibility_index", "responsibility_text", "match_score", "evidence_type", "matched_items", "created_at"}).
			AddRow("m-1", "user-1", "entry-1", 0, "Ship features", 0.8, "strong", []byte(`[]`), now))

	mock.ExpectQuery(`SELECT id, user_id, quarter, year, status, flagged, focus_next_quarter`).
		WithArgs("user-1", 1, 2025).
		WillReturnError(sql.ErrNoRows)

	mock.ExpectQuery(`INSERT INTO quarterly_checkins`).
		WithArgs("user-1", 1, 2025, "pending", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow("ck-1", now, now))

	req := httptest.NewRequest(http.MethodPost, "/api/checkins/generate", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.Set("user_id", "user-1")

	if err := handler.generate(ctx); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}

	var ck checkin.Checkin
	if err := json.Unmarshal(rec.Body.Bytes(), &ck); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if ck.Status != checkin.StatusPending {
		t.Fatalf("expected pending checkin, got %s", ck.Status)
	}
	if len(ck.Flagged) != 1 || ck.Flagged[0].Index != 1 {
		t.Fatalf("only the uncovered responsibility should be flagged: %+v", ck.Flagged)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGenerateCheckinWithoutJob(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	handler := newCheckinsHandler(db)

	mock.ExpectQuery(`SELECT id, user_id, title, responsibilities, created_at, updated_at FROM jobs WHERE user_id=\$1`).
		WithArgs("user-1").
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodPost, "/api/checkins/generate", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.Set("user_id", "user-1")

	err = handler.generate(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 error, got %#v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateItemOnCompletedCheckinConflicts(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	handler := newCheckinsHandler(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, user_id, quarter, year, status, flagged, focus_next_quarter`).
		WithArgs("user-1", 1, 2025).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "quarter", "year", "status", "flagged", "focus_next_quarter", "completed_at", "created_at", "updated_at"}).
			AddRow("ck-1", "user-1", 1, 2025, "completed",
				[]byte(`[{"index":0,"text":"Ship features","coverage":"none","match_count":0,"average_score":0,"action":"needs-focus","note":null}]`),
				[]byte(`[]`), now, now, now))

	req := httptest.NewRequest(http.MethodPut, "/api/checkins/items/0", strings.NewReader(`{"action":"not-captured"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.Set("user_id", "user-1")
	ctx.SetParamNames("index")
	ctx.SetParamValues("0")

	err = handler.updateItem(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409 error, got %#v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBannerQuietMidQuarter(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	handler := newCheckinsHandler(db)

	mock.ExpectQuery(`SELECT id, user_id, quarter, year, status, flagged, focus_next_quarter`).
		WithArgs("user-1", 1, 2025).
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/api/checkins/banner", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.Set("user_id", "user-1")

	if err := handler.banner(ctx); err != nil {
		t.Fatalf("banner: %v", err)
	}
	var resp BannerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ShowPrompt {
		t.Fatalf("no checkin mid-quarter must not prompt: %+v", resp)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBannerEndOfQuarterWindow(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	handler := newCheckinsHandler(db)
	handler.Now = func() time.Time { return time.Date(2025, time.March, 25, 9, 0, 0, 0, time.UTC) }

	mock.ExpectQuery(`SELECT id, user_id, quarter, year, status, flagged, focus_next_quarter`).
		WithArgs("user-1", 1, 2025).
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/api/checkins/banner", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.Set("user_id", "user-1")

	if err := handler.banner(ctx); err != nil {
		t.Fatalf("banner: %v", err)
	}
	var resp BannerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.ShowPrompt {
		t.Fatalf("last 14 days of the quarter must prompt: %+v", resp)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
