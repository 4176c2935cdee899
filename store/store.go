// Package store journals pipeline runs and their step executions in SQLite.
// The driver is pure Go, so the journal works anywhere the daemon runs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/input-output-hk/catalyst-forge-release/domain"
	"github.com/input-output-hk/catalyst-forge-release/errors"
)

// Store persists pipeline runs and step executions.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal database at the given path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New(errors.CodeInvalidConfig, "store path cannot be empty")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, errors.CodeStorage, "failed to create store directory")
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorage, "failed to open journal database")
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.CodeStorage, "failed to migrate journal database")
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		project TEXT NOT NULL,
		tag TEXT NOT NULL,
		commit_sha TEXT NOT NULL,
		triggered_by TEXT NOT NULL,
		trigger_type TEXT NOT NULL,
		status TEXT NOT NULL,
		halt_reason TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		started_at DATETIME,
		completed_at DATETIME,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS steps (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		sequence INTEGER NOT NULL,
		status TEXT NOT NULL,
		exit_code INTEGER NOT NULL DEFAULT 0,
		output TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		started_at DATETIME,
		completed_at DATETIME,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_steps_run ON steps(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// InsertRun records a new pipeline run.
func (s *Store) InsertRun(ctx context.Context, run *domain.PipelineRun) error {
	if run == nil || run.ID == "" {
		return errors.New(errors.CodeInvalidInput, "run requires an ID")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, project, tag, commit_sha, triggered_by, trigger_type,
			status, halt_reason, notes, started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Project, run.Tag, run.CommitSHA, run.TriggeredBy, run.TriggerType,
		string(run.Status), run.HaltReason, run.Notes,
		nullTime(run.StartedAt), nullTime(run.CompletedAt), run.CreatedAt.UTC())
	if err != nil {
		return errors.Wrap(err, errors.CodeStorage, "failed to insert run")
	}
	return nil
}

// UpdateRun persists the mutable fields of a run.
func (s *Store) UpdateRun(ctx context.Context, run *domain.PipelineRun) error {
	if run == nil || run.ID == "" {
		return errors.New(errors.CodeInvalidInput, "run requires an ID")
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, halt_reason = ?, notes = ?, started_at = ?, completed_at = ?
		WHERE id = ?
	`, string(run.Status), run.HaltReason, run.Notes,
		nullTime(run.StartedAt), nullTime(run.CompletedAt), run.ID)
	if err != nil {
		return errors.Wrap(err, errors.CodeStorage, "failed to update run")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.CodeStorage, "failed to check update result")
	}
	if affected == 0 {
		return errors.Newf(errors.CodeNotFound, "run %s not found", run.ID)
	}
	return nil
}

// RecordStep inserts or replaces a step execution record.
func (s *Store) RecordStep(ctx context.Context, step *domain.StepExecution) error {
	if step == nil || step.ID == "" || step.RunID == "" {
		return errors.New(errors.CodeInvalidInput, "step requires an ID and run ID")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO steps (id, run_id, name, kind, sequence, status, exit_code,
			output, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			exit_code = excluded.exit_code,
			output = excluded.output,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`, step.ID, step.RunID, step.Name, string(step.Kind), step.Sequence,
		string(step.Status), step.ExitCode, step.Output, step.Error,
		nullTime(step.StartedAt), nullTime(step.CompletedAt))
	if err != nil {
		return errors.Wrap(err, errors.CodeStorage, "failed to record step")
	}
	return nil
}

// GetRun returns a run with its step executions, ordered by sequence.
func (s *Store) GetRun(ctx context.Context, id string) (*domain.PipelineRun, []domain.StepExecution, error) {
	run := &domain.PipelineRun{}
	var status string
	var startedAt, completedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, project, tag, commit_sha, triggered_by, trigger_type,
			status, halt_reason, notes, started_at, completed_at, created_at
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.Project, &run.Tag, &run.CommitSHA, &run.TriggeredBy,
		&run.TriggerType, &status, &run.HaltReason, &run.Notes,
		&startedAt, &completedAt, &run.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, errors.Newf(errors.CodeNotFound, "run %s not found", id)
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeStorage, "failed to query run")
	}

	run.Status = domain.RunStatus(status)
	run.StartedAt = timePtr(startedAt)
	run.CompletedAt = timePtr(completedAt)

	steps, err := s.runSteps(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return run, steps, nil
}

func (s *Store) runSteps(ctx context.Context, runID string) ([]domain.StepExecution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, name, kind, sequence, status, exit_code,
			output, error, started_at, completed_at
		FROM steps WHERE run_id = ? ORDER BY sequence
	`, runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorage, "failed to query steps")
	}
	defer rows.Close()

	var steps []domain.StepExecution
	for rows.Next() {
		var step domain.StepExecution
		var kind, status string
		var startedAt, completedAt sql.NullTime

		if err := rows.Scan(&step.ID, &step.RunID, &step.Name, &kind, &step.Sequence,
			&status, &step.ExitCode, &step.Output, &step.Error,
			&startedAt, &completedAt); err != nil {
			return nil, errors.Wrap(err, errors.CodeStorage, "failed to scan step")
		}

		step.Kind = domain.StepKind(kind)
		step.Status = domain.RunStatus(status)
		step.StartedAt = timePtr(startedAt)
		step.CompletedAt = timePtr(completedAt)
		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeStorage, "failed to iterate steps")
	}
	return steps, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.PipelineRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project, tag, commit_sha, triggered_by, trigger_type,
			status, halt_reason, notes, started_at, completed_at, created_at
		FROM runs ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorage, "failed to query runs")
	}
	defer rows.Close()

	var runs []domain.PipelineRun
	for rows.Next() {
		var run domain.PipelineRun
		var status string
		var startedAt, completedAt sql.NullTime

		if err := rows.Scan(&run.ID, &run.Project, &run.Tag, &run.CommitSHA,
			&run.TriggeredBy, &run.TriggerType, &status, &run.HaltReason, &run.Notes,
			&startedAt, &completedAt, &run.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.CodeStorage, "failed to scan run")
		}

		run.Status = domain.RunStatus(status)
		run.StartedAt = timePtr(startedAt)
		run.CompletedAt = timePtr(completedAt)
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeStorage, "failed to iterate runs")
	}
	return runs, nil
}

// Close closes the journal database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close journal database: %w", err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	value := t.Time
	return &value
}
