package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/careerlog/careerlog/internal/checkin"
	"github.com/careerlog/careerlog/models"
)

// Store wraps the relational datastore. Every method takes the caller's
// context and an explicit user id; there is no ambient identity.
type Store struct {
	DB *sql.DB
}

// NewWithDSN opens a postgres connection and verifies it.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Store{DB: db}, nil
}

// User operations

func (s *Store) CreateUser(ctx context.Context, email, hash string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2)`, email, hash)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}

func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id FROM users`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Job operations. One active job per user, enforced by a unique constraint
// on user_id; saving replaces the whole responsibility list.

func (s *Store) UpsertJob(ctx context.Context, userID, title string, responsibilities []string) (string, error) {
	resp, err := json.Marshal(responsibilities)
	if err != nil {
		return "", fmt.Errorf("marshal responsibilities: %w", err)
	}
	var id string
	err = s.DB.QueryRowContext(ctx, `
INSERT INTO jobs (user_id, title, responsibilities)
VALUES ($1,$2,$3)
ON CONFLICT (user_id) DO UPDATE SET title=EXCLUDED.title, responsibilities=EXCLUDED.responsibilities, updated_at=NOW()
RETURNING id`, userID, title, resp).Scan(&id)
	return id, err
}

func (s *Store) GetJob(ctx context.Context, userID string) (models.Job, error) {
	var j models.Job
	var resp []byte
	err := s.DB.QueryRowContext(ctx, `
SELECT id, user_id, title, responsibilities, created_at, updated_at FROM jobs WHERE user_id=$1`, userID).
		Scan(&j.ID, &j.UserID, &j.Title, &resp, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Job{}, models.ErrJobNotFound
	}
	if err != nil {
		return models.Job{}, err
	}
	if err := json.Unmarshal(resp, &j.Responsibilities); err != nil {
		return models.Job{}, fmt.Errorf("unmarshal responsibilities: %w", err)
	}
	return j, nil
}

// Entry operations

func (s *Store) CreateEntry(ctx context.Context, userID string, entryDate time.Time, items []models.EntryItem) (string, error) {
	itemsB, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal items: %w", err)
	}
	var id string
	err = s.DB.QueryRowContext(ctx, `
INSERT INTO entries (user_id, entry_date, items) VALUES ($1,$2,$3) RETURNING id`,
		userID, entryDate, itemsB).Scan(&id)
	return id, err
}

func (s *Store) UpdateEntry(ctx context.Context, userID, entryID string, entryDate time.Time, items []models.EntryItem) error {
	itemsB, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	res, err := s.DB.ExecContext(ctx, `
UPDATE entries SET entry_date=$1, items=$2, updated_at=NOW() WHERE id=$3 AND user_id=$4`,
		entryDate, itemsB, entryID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrEntryNotFound
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, userID, entryID string) (models.Entry, error) {
	var e models.Entry
	var itemsB []byte
	err := s.DB.QueryRowContext(ctx, `
SELECT id, user_id, entry_date, items, created_at, updated_at FROM entries WHERE id=$1 AND user_id=$2`,
		entryID, userID).Scan(&e.ID, &e.UserID, &e.EntryDate, &itemsB, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Entry{}, models.ErrEntryNotFound
	}
	if err != nil {
		return models.Entry{}, err
	}
	if err := json.Unmarshal(itemsB, &e.Items); err != nil {
		return models.Entry{}, fmt.Errorf("unmarshal items: %w", err)
	}
	return e, nil
}

func (s *Store) ListEntries(ctx context.Context, userID string) ([]models.Entry, error) {
	return s.listEntries(ctx, `
SELECT id, user_id, entry_date, items, created_at, updated_at FROM entries
WHERE user_id=$1 ORDER BY entry_date DESC`, userID)
}

func (s *Store) ListEntriesBetween(ctx context.Context, userID string, from, to time.Time) ([]models.Entry, error) {
	return s.listEntries(ctx, `
SELECT id, user_id, entry_date, items, created_at, updated_at FROM entries
WHERE user_id=$1 AND entry_date BETWEEN $2 AND $3 ORDER BY entry_date`, userID, from, to)
}

func (s *Store) listEntries(ctx context.Context, query string, args ...interface{}) ([]models.Entry, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Entry
	for rows.Next() {
		var e models.Entry
		var itemsB []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.EntryDate, &itemsB, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(itemsB, &e.Items); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) DeleteEntry(ctx context.Context, userID, entryID string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM entries WHERE id=$1 AND user_id=$2`, entryID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrEntryNotFound
	}
	return nil
}

// Match record operations

// ReplaceEntryMatches swaps the entry's match records for the fresh set in
// one transaction, so concurrent coverage reads never observe the
// partially-deleted state.
func (s *Store) ReplaceEntryMatches(ctx context.Context, userID, entryID string, recs []models.MatchRecord) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM match_records WHERE entry_id=$1 AND user_id=$2`, entryID, userID); err != nil {
		return err
	}
	for _, r := range recs {
		itemsB, err := json.Marshal(r.MatchedItems)
		if err != nil {
			return fmt.Errorf("marshal matched items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO match_records (user_id, entry_id, responsibility_index, responsibility_text, match_score, evidence_type, matched_items)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			userID, entryID, r.ResponsibilityIndex, r.ResponsibilityText, r.MatchScore, string(r.EvidenceType), itemsB); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) ListMatches(ctx context.Context, userID string) ([]models.MatchRecord, error) {
	return s.listMatches(ctx, `
SELECT id, user_id, entry_id, responsibility_index, responsibility_text, match_score, evidence_type, matched_items, created_at
FROM match_records WHERE user_id=$1`, userID)
}

// ListMatchesBetween returns the match records whose parent entry falls in
// [from, to] inclusive.
func (s *Store) ListMatchesBetween(ctx context.Context, userID string, from, to time.Time) ([]models.MatchRecord, error) {
	return s.listMatches(ctx, `
SELECT m.id, m.user_id, m.entry_id, m.responsibility_index, m.responsibility_text, m.match_score, m.evidence_type, m.matched_items, m.created_at
FROM match_records m JOIN entries e ON e.id = m.entry_id
WHERE m.user_id=$1 AND e.entry_date BETWEEN $2 AND $3`, userID, from, to)
}

func (s *Store) listMatches(ctx context.Context, query string, args ...interface{}) ([]models.MatchRecord, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.MatchRecord
	for rows.Next() {
		var m models.MatchRecord
		var evidence string
		var itemsB []byte
		if err := rows.Scan(&m.ID, &m.UserID, &m.EntryID, &m.ResponsibilityIndex, &m.ResponsibilityText, &m.MatchScore, &evidence, &itemsB, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.EvidenceType = models.EvidenceType(evidence)
		if err := json.Unmarshal(itemsB, &m.MatchedItems); err != nil {
			return nil, fmt.Errorf("unmarshal matched items: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Quarterly checkin operations. These satisfy checkin.Store.

func (s *Store) GetCheckin(ctx context.Context, userID string, quarter, year int) (*checkin.Checkin, error) {
	var c checkin.Checkin
	var status string
	var flaggedB, focusB []byte
	err := s.DB.QueryRowContext(ctx, `
SELECT id, user_id, quarter, year, status, flagged, focus_next_quarter, completed_at, created_at, updated_at
FROM quarterly_checkins WHERE user_id=$1 AND quarter=$2 AND year=$3`,
		userID, quarter, year).
		Scan(&c.ID, &c.UserID, &c.Quarter, &c.Year, &status, &flaggedB, &focusB, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, checkin.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Status = checkin.Status(status)
	if err := json.Unmarshal(flaggedB, &c.Flagged); err != nil {
		return nil, fmt.Errorf("unmarshal flagged: %w", err)
	}
	if err := json.Unmarshal(focusB, &c.FocusNextQuarter); err != nil {
		return nil, fmt.Errorf("unmarshal focus: %w", err)
	}
	return &c, nil
}

// UpsertCheckin inserts the checkin or, when a row already exists for
// (user, quarter, year), overwrites its flagged list and status. The
// unique constraint makes concurrent generation converge on a single row.
func (s *Store) UpsertCheckin(ctx context.Context, c *checkin.Checkin) error {
	flaggedB, err := json.Marshal(c.Flagged)
	if err != nil {
		return fmt.Errorf("marshal flagged: %w", err)
	}
	focus := c.FocusNextQuarter
	if focus == nil {
		focus = []string{}
	}
	focusB, err := json.Marshal(focus)
	if err != nil {
		return fmt.Errorf("marshal focus: %w", err)
	}
	return s.DB.QueryRowContext(ctx, `
INSERT INTO quarterly_checkins (user_id, quarter, year, status, flagged, focus_next_quarter)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (user_id, quarter, year)
DO UPDATE SET status=EXCLUDED.status, flagged=EXCLUDED.flagged, updated_at=NOW()
RETURNING id, created_at, updated_at`,
		c.UserID, c.Quarter, c.Year, string(c.Status), flaggedB, focusB).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// SaveCheckin persists dispositions, focus list, status and completed_at
// for an existing checkin row.
func (s *Store) SaveCheckin(ctx context.Context, c *checkin.Checkin) error {
	flaggedB, err := json.Marshal(c.Flagged)
	if err != nil {
		return fmt.Errorf("marshal flagged: %w", err)
	}
	focus := c.FocusNextQuarter
	if focus == nil {
		focus = []string{}
	}
	focusB, err := json.Marshal(focus)
	if err != nil {
		return fmt.Errorf("marshal focus: %w", err)
	}
	res, err := s.DB.ExecContext(ctx, `
UPDATE quarterly_checkins SET status=$1, flagged=$2, focus_next_quarter=$3, completed_at=$4, updated_at=NOW()
WHERE user_id=$5 AND quarter=$6 AND year=$7`,
		string(c.Status), flaggedB, focusB, c.CompletedAt, c.UserID, c.Quarter, c.Year)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return checkin.ErrNotFound
	}
	return nil
}

// Review operations

func (s *Store) UpsertReview(ctx context.Context, r *models.Review) error {
	winsB, _ := json.Marshal(orEmpty(r.Wins))
	growthB, _ := json.Marshal(orEmpty(r.Growth))
	themesB, _ := json.Marshal(orEmpty(r.Themes))
	return s.DB.QueryRowContext(ctx, `
INSERT INTO reviews (user_id, month, year, summary, wins, growth, themes, fallback)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (user_id, month, year)
DO UPDATE SET summary=EXCLUDED.summary, wins=EXCLUDED.wins, growth=EXCLUDED.growth, themes=EXCLUDED.themes, fallback=EXCLUDED.fallback
RETURNING id, created_at`,
		r.UserID, r.Month, r.Year, r.Summary, winsB, growthB, themesB, r.Fallback).
		Scan(&r.ID, &r.CreatedAt)
}

func (s *Store) GetReview(ctx context.Context, userID string, month, year int) (models.Review, error) {
	var r models.Review
	var winsB, growthB, themesB []byte
	err := s.DB.QueryRowContext(ctx, `
SELECT id, user_id, month, year, summary, wins, growth, themes, fallback, created_at
FROM reviews WHERE user_id=$1 AND month=$2 AND year=$3`, userID, month, year).
		Scan(&r.ID, &r.UserID, &r.Month, &r.Year, &r.Summary, &winsB, &growthB, &themesB, &r.Fallback, &r.CreatedAt)
	if err != nil {
		return models.Review{}, err
	}
	_ = json.Unmarshal(winsB, &r.Wins)
	_ = json.Unmarshal(growthB, &r.Growth)
	_ = json.Unmarshal(themesB, &r.Themes)
	return r, nil
}

func (s *Store) ListReviews(ctx context.Context, userID string) ([]models.Review, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, user_id, month, year, summary, wins, growth, themes, fallback, created_at
FROM reviews WHERE user_id=$1 ORDER BY year DESC, month DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Review
	for rows.Next() {
		var r models.Review
		var winsB, growthB, themesB []byte
		if err := rows.Scan(&r.ID, &r.UserID, &r.Month, &r.Year, &r.Summary, &winsB, &growthB, &themesB, &r.Fallback, &r.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(winsB, &r.Wins)
		_ = json.Unmarshal(growthB, &r.Growth)
		_ = json.Unmarshal(themesB, &r.Themes)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestReviewTime returns the created_at of the user's newest review, or
// nil when none exists. Drives the scheduler's cron cadence.
func (s *Store) LatestReviewTime(ctx context.Context, userID string) (*time.Time, error) {
	var t sql.NullTime
	err := s.DB.QueryRowContext(ctx, `SELECT MAX(created_at) FROM reviews WHERE user_id=$1`, userID).Scan(&t)
	if err != nil {
		return nil, err
	}
	if !t.Valid {
		return nil, nil
	}
	return &t.Time, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
