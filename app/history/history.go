// Package history keeps the outcome of check and navigate runs in a SQLite database, so a flaky
// environment can be told apart from a broken one by looking at recent runs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver
)

// ErrNotFound returned when a run id is unknown
var ErrNotFound = errors.New("run not found")

// Run is a single command execution
type Run struct {
	ID        string        `db:"id"`
	Command   string        `db:"command"`
	Target    string        `db:"target"`
	Status    Status        `db:"status"`
	StartedAt time.Time     `db:"-"`
	Duration  time.Duration `db:"-"`
	Message   string        `db:"message"`
}

// Summary is the aggregated status of stored runs
type Summary struct {
	Total  int `db:"total"`
	Passed int `db:"passed"`
	Failed int `db:"failed"`
	Errors int `db:"errors"`
}

// runRow is the stored form of Run, times are unix milliseconds
type runRow struct {
	Run
	StartedMs  int64 `db:"started_at"`
	DurationMs int64 `db:"duration_ms"`
}

// Store is sqlite-backed run history
type Store struct {
	db *sqlx.DB
}

// New opens or creates the history database and its schema
func New(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to set WAL mode: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			command TEXT NOT NULL,
			target TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			message TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}
	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to init history schema: %w", err)
		}
	}
	return nil
}

// Record stores the run and returns it with the id set, an empty id gets a new uuid
func (s *Store) Record(ctx context.Context, r Run) (Run, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	if r.Status == (Status{}) {
		r.Status = StatusRunning
	}
	row := runRow{Run: r, StartedMs: r.StartedAt.UnixMilli(), DurationMs: r.Duration.Milliseconds()}
	_, err := s.db.NamedExecContext(ctx, `INSERT OR REPLACE INTO runs
		(id, command, target, status, started_at, duration_ms, message)
		VALUES (:id, :command, :target, :status, :started_at, :duration_ms, :message)`, row)
	if err != nil {
		return r, fmt.Errorf("failed to record run %s: %w", r.ID, err)
	}
	log.Printf("[DEBUG] recorded run %s %s %s", r.ID, r.Command, r.Status)
	return r, nil
}

// Finish sets the final status, message and duration of a recorded run
func (s *Store) Finish(ctx context.Context, id string, status Status, message string, duration time.Duration) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET status = ?, message = ?, duration_ms = ? WHERE id = ?`,
		status, message, duration.Milliseconds(), id)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish %s: %w", id, ErrNotFound)
	}
	return nil
}

// Get returns the run by id
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM runs WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
		}
		return Run{}, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return row.run(), nil
}

// Recent returns up to limit runs, newest first. Non-empty command limits to that command.
func (s *Store) Recent(ctx context.Context, command string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []runRow
	query := `SELECT * FROM runs ORDER BY started_at DESC LIMIT ?`
	args := []any{limit}
	if command != "" {
		query = `SELECT * FROM runs WHERE command = ? ORDER BY started_at DESC LIMIT ?`
		args = []any{command, limit}
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load runs: %w", err)
	}
	res := make([]Run, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.run())
	}
	return res, nil
}

// Summary counts stored runs by outcome
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	var sum Summary
	err := s.db.GetContext(ctx, &sum, `SELECT COUNT(*) AS total,
		COALESCE(SUM(status = 'passed'), 0) AS passed,
		COALESCE(SUM(status = 'failed'), 0) AS failed,
		COALESCE(SUM(status = 'error'), 0) AS errors
		FROM runs`)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to summarize runs: %w", err)
	}
	return sum, nil
}

// Prune keeps the newest keep runs and removes the rest, returns the number removed
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id NOT IN
		(SELECT id FROM runs ORDER BY started_at DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned runs: %w", err)
	}
	return n, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (r runRow) run() Run {
	res := r.Run
	res.StartedAt = time.UnixMilli(r.StartedMs)
	res.Duration = time.Duration(r.DurationMs) * time.Millisecond
	return res
}

// Line formats the run for listings, start time is relative to now
func (r Run) Line(now time.Time) string {
	msg := ""
	if r.Message != "" {
		msg = " - " + r.Message
	}
	return fmt.Sprintf("%s %-8s %-7s %-30s %8s %s%s", r.ID[:min(8, len(r.ID))], r.Command, r.Status, r.Target,
		r.Duration.Round(time.Millisecond), humanize.RelTime(r.StartedAt, now, "ago", "from now"), msg)
}
