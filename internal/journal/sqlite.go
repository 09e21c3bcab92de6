package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens the journal database at path.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT,
			finished_at TEXT,
			scope TEXT,
			target TEXT,
			mode TEXT,
			diagnostics JSON,
			dry_run INTEGER,
			applied INTEGER,
			cancelled INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS run_documents (
			run_id TEXT,
			path TEXT,
			applied INTEGER,
			iterations INTEGER,
			counts JSON,
			PRIMARY KEY (run_id, path)
		);`,
		`CREATE TABLE IF NOT EXISTS run_failures (
			run_id TEXT,
			seq INTEGER,
			rule_id TEXT,
			path TEXT,
			code TEXT,
			reason TEXT,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) RecordRun(ctx context.Context, run *Run) error {
	diagnostics, err := json.Marshal(run.DiagnosticIDs)
	if err != nil {
		return fmt.Errorf("failed to encode diagnostics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, scope, target, mode, diagnostics, dry_run, applied, cancelled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt), run.Scope, run.Target, run.Mode, diagnostics,
		boolInt(run.DryRun), run.Applied, boolInt(run.Cancelled))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	docStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_documents (run_id, path, applied, iterations, counts) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer docStmt.Close()

	for _, d := range run.Documents {
		counts, err := json.Marshal(d.Counts)
		if err != nil {
			return fmt.Errorf("failed to encode counts for %s: %w", d.Path, err)
		}
		if _, err := docStmt.ExecContext(ctx, run.ID, d.Path, d.Applied, d.Iterations, counts); err != nil {
			return fmt.Errorf("failed to insert document %s: %w", d.Path, err)
		}
	}

	failStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_failures (run_id, seq, rule_id, path, code, reason) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer failStmt.Close()

	for i, f := range run.Failures {
		if _, err := failStmt.ExecContext(ctx, run.ID, i, f.RuleID, f.Path, f.Code, f.Reason); err != nil {
			return fmt.Errorf("failed to insert failure: %w", err)
		}
	}

	return tx.Commit()
}

const runColumns = "id, started_at, finished_at, scope, target, mode, diagnostics, dry_run, applied, cancelled"

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run               Run
		started, finished string
		diagnostics       []byte
		dryRun, cancelled int
	)
	if err := row.Scan(&run.ID, &started, &finished, &run.Scope, &run.Target, &run.Mode, &diagnostics, &dryRun, &run.Applied, &cancelled); err != nil {
		return nil, err
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	run.DryRun = dryRun != 0
	run.Cancelled = cancelled != 0
	if len(diagnostics) > 0 {
		_ = json.Unmarshal(diagnostics, &run.DiagnosticIDs)
	}
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	docRows, err := s.db.QueryContext(ctx, "SELECT path, applied, iterations, counts FROM run_documents WHERE run_id = ? ORDER BY path", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer docRows.Close()

	for docRows.Next() {
		var d DocumentRecord
		var counts []byte
		if err := docRows.Scan(&d.Path, &d.Applied, &d.Iterations, &counts); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if len(counts) > 0 {
			_ = json.Unmarshal(counts, &d.Counts)
		}
		run.Documents = append(run.Documents, d)
	}
	if err := docRows.Err(); err != nil {
		return nil, err
	}

	failRows, err := s.db.QueryContext(ctx, "SELECT rule_id, path, code, reason FROM run_failures WHERE run_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer failRows.Close()

	for failRows.Next() {
		var f FailureRecord
		if err := failRows.Scan(&f.RuleID, &f.Path, &f.Code, &f.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		run.Failures = append(run.Failures, f)
	}
	return run, failRows.Err()
}

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
