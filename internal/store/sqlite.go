package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    workers INTEGER NOT NULL,
    frames INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS frames (
    run_id TEXT NOT NULL,
    idx INTEGER NOT NULL,
    constant_re REAL NOT NULL,
    constant_im REAL NOT NULL,
    points INTEGER NOT NULL,
    empty INTEGER NOT NULL,
    latency_ns INTEGER NOT NULL,
    path TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, idx),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`

const timeLayout = time.RFC3339Nano

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Runs
// ============================================================================

func (s *SQLiteStore) CreateRun(name string, workers int) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Name:      name,
		Workers:   workers,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		"INSERT INTO runs (id, name, workers, status, started_at) VALUES (?, ?, ?, ?, ?)",
		run.ID, run.Name, run.Workers, run.Status, run.StartedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

func (s *SQLiteStore) FinishRun(id string, frames int, runErr error) error {
	status, msg := StatusCompleted, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}

	result, err := s.db.Exec(
		"UPDATE runs SET frames = ?, status = ?, error = ?, finished_at = ? WHERE id = ?",
		frames, status, msg, time.Now().UTC().Format(timeLayout), id,
	)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(
		"SELECT id, name, workers, frames, status, error, started_at, finished_at FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return run, err
}

func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		"SELECT id, name, workers, frames, status, error, started_at, finished_at FROM runs ORDER BY rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var started, finished string
	if err := row.Scan(&run.ID, &run.Name, &run.Workers, &run.Frames, &run.Status, &run.Error, &started, &finished); err != nil {
		return nil, err
	}

	var err error
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("run %s: bad started_at: %w", run.ID, err)
	}
	if finished != "" {
		if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("run %s: bad finished_at: %w", run.ID, err)
		}
	}
	return &run, nil
}

// ============================================================================
// Frames
// ============================================================================

func (s *SQLiteStore) SaveFrame(f Frame) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO frames (run_id, idx, constant_re, constant_im, points, empty, latency_ns, path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.RunID, f.Index, real(f.Constant), imag(f.Constant), f.Points, f.Empty, f.Latency.Nanoseconds(), f.Path,
	)
	return err
}

func (s *SQLiteStore) ListFrames(runID string) ([]Frame, error) {
	rows, err := s.db.Query(
		`SELECT run_id, idx, constant_re, constant_im, points, empty, latency_ns, path
		 FROM frames WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var f Frame
		var re, im float64
		var latency int64
		if err := rows.Scan(&f.RunID, &f.Index, &re, &im, &f.Points, &f.Empty, &latency, &f.Path); err != nil {
			return nil, err
		}
		f.Constant = complex(re, im)
		f.Latency = time.Duration(latency)
		frames = append(frames, f)
	}
	return frames, rows.Err()
}
