// Package history is the outcome recorder: a durable, append-only log of
// execution results. Entries are immutable once written and never
// deleted by the engine; the read side promises reverse-chronological
// retrieval and day/hour grouping, and nothing else.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"powerpilot/internal/actionable"
	"powerpilot/internal/logging"
)

// ErrInvalidDay is returned when a day argument is not a 2006-01-02
// date. Callers use it to tell a bad request apart from a store failure.
var ErrInvalidDay = errors.New("invalid day")

// Store persists outcomes in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes the outcome database at the given path, creating the
// directory and schema as needed.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryHistory, "history.Open")
	defer timer.Stop()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.HistoryDebug("failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.HistoryDebug("failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.HistoryDebug("failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	logging.History("outcome store ready at %s", path)
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS outcomes (
			seq            INTEGER PRIMARY KEY AUTOINCREMENT,
			batch_id       TEXT NOT NULL,
			actionable_id  TEXT NOT NULL,
			type           TEXT NOT NULL DEFAULT '',
			target         TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL,
			detail         TEXT NOT NULL DEFAULT '',
			completed_at   INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_outcomes_completed ON outcomes(completed_at DESC);
		CREATE INDEX IF NOT EXISTS idx_outcomes_batch ON outcomes(batch_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Entry is one recorded outcome.
type Entry struct {
	Seq          int64              `json:"seq"`
	BatchID      string             `json:"batch_id"`
	ActionableID string             `json:"actionable_id"`
	Type         actionable.TypeTag `json:"type"`
	Target       string             `json:"target,omitempty"`
	Status       actionable.Status  `json:"status"`
	Detail       string             `json:"detail,omitempty"`
	CompletedAt  time.Time          `json:"completed_at"`
}

// Append records one outcome. Append-only: the store exposes no update
// or delete path, which is what makes results immutable once recorded.
func (s *Store) Append(ctx context.Context, batchID string, rec actionable.Record, res actionable.Result) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outcomes (batch_id, actionable_id, type, target, status, detail, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		batchID, res.ActionableID, string(rec.Type), rec.Target,
		string(res.Status), res.Detail, res.CompletedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("append outcome: %w", err)
	}
	logging.HistoryDebug("recorded %s -> %s", res.ActionableID, res.Status)
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, batch_id, actionable_id, type, target, status, detail, completed_at
		FROM outcomes ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Batch returns all entries of one batch in execution order.
func (s *Store) Batch(ctx context.Context, batchID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, batch_id, actionable_id, type, target, status, detail, completed_at
		FROM outcomes WHERE batch_id = ? ORDER BY seq ASC`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query batch: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// DayGroup is the presentation grouping for one calendar day.
type DayGroup struct {
	Day     string  `json:"day"` // 2006-01-02, local time
	Entries []Entry `json:"entries"`
}

// GroupedByDay returns up to limit recent entries grouped by calendar
// day, days and entries both newest first.
func (s *Store) GroupedByDay(ctx context.Context, limit int) ([]DayGroup, error) {
	entries, err := s.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}

	var groups []DayGroup
	for _, e := range entries {
		day := e.CompletedAt.Local().Format("2006-01-02")
		if len(groups) == 0 || groups[len(groups)-1].Day != day {
			groups = append(groups, DayGroup{Day: day})
		}
		g := &groups[len(groups)-1]
		g.Entries = append(g.Entries, e)
	}
	return groups, nil
}

// HourGroup is the presentation grouping for one hour of a day.
type HourGroup struct {
	Hour    string  `json:"hour"` // 15:00
	Entries []Entry `json:"entries"`
}

// GroupedByHour returns the given day's entries grouped by hour, hours
// and entries both newest first. day is 2006-01-02 in local time.
func (s *Store) GroupedByHour(ctx context.Context, day string) ([]HourGroup, error) {
	start, err := time.ParseInLocation("2006-01-02", day, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDay, day)
	}
	end := start.Add(24 * time.Hour)

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, batch_id, actionable_id, type, target, status, detail, completed_at
		FROM outcomes WHERE completed_at >= ? AND completed_at < ?
		ORDER BY seq DESC`, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query day: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}

	var groups []HourGroup
	for _, e := range entries {
		hour := e.CompletedAt.Local().Format("15:00")
		if len(groups) == 0 || groups[len(groups)-1].Hour != hour {
			groups = append(groups, HourGroup{Hour: hour})
		}
		g := &groups[len(groups)-1]
		g.Entries = append(g.Entries, e)
	}
	return groups, nil
}

// Count returns the total number of recorded outcomes.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outcomes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count outcomes: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var typ, status string
		var completedAt int64
		if err := rows.Scan(&e.Seq, &e.BatchID, &e.ActionableID, &typ, &e.Target, &status, &e.Detail, &completedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		e.Type = actionable.TypeTag(typ)
		e.Status = actionable.Status(status)
		e.CompletedAt = time.UnixMilli(completedAt).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
