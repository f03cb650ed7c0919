// Package history keeps a journal of profile adjustment runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"profilescale/internal/transformer"

	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one journal entry.
type Run struct {
	ID          string
	Started     time.Time
	Finished    time.Time
	Factor      float64
	InputDir    string
	OutputDir   string
	Status      string
	Transformed int
	Copied      int
	Failed      int
	Error       string
	Files       []FileEntry
}

// FileEntry is the outcome of one file within a run.
type FileEntry struct {
	Name   string
	Action string
	Error  string
}

// FromReport converts a transformer report into a journal entry.
func FromReport(r *transformer.Report) Run {
	run := Run{
		ID:          r.RunID,
		Started:     r.Started,
		Finished:    r.Finished,
		Factor:      r.Factor.Float64(),
		InputDir:    r.InputDir,
		OutputDir:   r.OutputDir,
		Status:      StatusOK,
		Transformed: r.Count(transformer.ActionTransformed),
		Copied:      r.Count(transformer.ActionCopied),
		Failed:      len(r.Failures()),
	}
	if err := r.Err(); err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
	}
	for _, f := range r.Files {
		entry := FileEntry{Name: f.Name, Action: string(f.Action)}
		if f.Err != nil {
			entry.Error = f.Err.Error()
		}
		run.Files = append(run.Files, entry)
	}
	return run
}

// Store manages the run journal database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open creates or opens the journal at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db, dbPath: path}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		factor REAL NOT NULL,
		input_dir TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		status TEXT NOT NULL,
		transformed INTEGER NOT NULL,
		copied INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS run_files (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		name TEXT NOT NULL,
		action TEXT NOT NULL,
		error TEXT,
		PRIMARY KEY (run_id, seq),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores a run and its file results in one transaction.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, factor, input_dir, output_dir,
			status, transformed, copied, failed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, formatTime(run.Started), formatTime(run.Finished), run.Factor,
		run.InputDir, run.OutputDir, run.Status, run.Transformed, run.Copied,
		run.Failed, nullString(run.Error))
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	for i, f := range run.Files {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_files (run_id, seq, name, action, error) VALUES (?, ?, ?, ?, ?)
		`, run.ID, i, f.Name, f.Action, nullString(f.Error))
		if err != nil {
			return fmt.Errorf("failed to record file %s: %w", f.Name, err)
		}
	}

	return tx.Commit()
}

// Recent returns up to limit runs, newest first, with their files.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, factor, input_dir, output_dir,
			status, transformed, copied, failed, error
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		var runErr sql.NullString
		if err := rows.Scan(&r.ID, &started, &finished, &r.Factor, &r.InputDir, &r.OutputDir,
			&r.Status, &r.Transformed, &r.Copied, &r.Failed, &runErr); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Started = parseTime(started)
		r.Finished = parseTime(finished)
		r.Error = runErr.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range runs {
		files, err := s.files(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Files = files
	}
	return runs, nil
}

func (s *Store) files(ctx context.Context, runID string) ([]FileEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, action, error FROM run_files WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query files of run %s: %w", runID, err)
	}
	defer rows.Close()

	var files []FileEntry
	for rows.Next() {
		var f FileEntry
		var fileErr sql.NullString
		if err := rows.Scan(&f.Name, &f.Action, &fileErr); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		f.Error = fileErr.String
		files = append(files, f)
	}
	return files, rows.Err()
}

// timeLayout is fixed width so timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
