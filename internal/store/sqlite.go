package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"reportbot/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ QualityStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS quality_baseline (
	month        TEXT PRIMARY KEY,
	metric_value REAL NOT NULL,
	recorded_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS quality_history (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	month        TEXT NOT NULL,
	metric_value REAL NOT NULL,
	recorded_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS quality_history_month ON quality_history (month, recorded_at);
`

// SQLiteStore implements QualityStore backed by a SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// schema when missing and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	// One connection keeps read-then-write transactions serialised.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db, path: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get retrieves the current baseline for a month.
func (s *SQLiteStore) Get(ctx context.Context, monthKey string) (*domain.QualityRecord, error) {
	return getBaseline(ctx, s.db, monthKey)
}

// Put upserts the baseline and appends to the history in one transaction.
func (s *SQLiteStore) Put(ctx context.Context, rec domain.QualityRecord) error {
	_, err := s.Swap(ctx, rec)
	return err
}

// Swap reads the previous baseline and writes rec within one transaction.
func (s *SQLiteStore) Swap(ctx context.Context, rec domain.QualityRecord) (*domain.QualityRecord, error) {
	if rec.MonthKey == "" {
		return nil, errors.New("store: empty month key")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	prev, err := getBaseline(ctx, tx, rec.MonthKey)
	if err != nil {
		return nil, err
	}

	ts := formatTime(rec.RecordedAt)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO quality_baseline (month, metric_value, recorded_at) VALUES (?, ?, ?)
		ON CONFLICT (month) DO UPDATE SET metric_value = excluded.metric_value, recorded_at = excluded.recorded_at`,
		rec.MonthKey, rec.MetricValue, ts,
	); err != nil {
		return nil, fmt.Errorf("upsert baseline: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO quality_history (month, metric_value, recorded_at) VALUES (?, ?, ?)`,
		rec.MonthKey, rec.MetricValue, ts,
	); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return prev, nil
}

// History lists audit records, optionally restricted to one month.
func (s *SQLiteStore) History(ctx context.Context, monthKey string) ([]domain.QualityRecord, error) {
	query := `SELECT month, metric_value, recorded_at FROM quality_history ORDER BY id`
	args := []any{}
	if monthKey != "" {
		query = `SELECT month, metric_value, recorded_at FROM quality_history WHERE month = ? ORDER BY id`
		args = append(args, monthKey)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []domain.QualityRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Clear deletes all records.
func (s *SQLiteStore) Clear(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM quality_baseline`)
	if err != nil {
		return 0, fmt.Errorf("clear baseline: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM quality_history`); err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getBaseline(ctx context.Context, q queryer, monthKey string) (*domain.QualityRecord, error) {
	row := q.QueryRowContext(ctx,
		`SELECT month, metric_value, recorded_at FROM quality_baseline WHERE month = ?`, monthKey)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get baseline %s: %w", monthKey, err)
	}
	return &rec, nil
}

func scanRecord(s scanner) (domain.QualityRecord, error) {
	var (
		rec domain.QualityRecord
		ts  string
	)
	if err := s.Scan(&rec.MonthKey, &rec.MetricValue, &ts); err != nil {
		return domain.QualityRecord{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return domain.QualityRecord{}, fmt.Errorf("parse recorded_at %q: %w", ts, err)
	}
	rec.RecordedAt = t
	return rec, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}
