package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const runColumns = "id, kind, source, output_dir, status, total, done, skipped, failed, started_at, finished_at"

// BeginRun inserts a new active run.
func (s *Store) BeginRun(ctx context.Context, kind, source, outputDir string, total int) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Source:    source,
		OutputDir: outputDir,
		Status:    RunActive,
		Total:     total,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, kind, source, output_dir, status, total, started_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, nullableString(run.Source), nullableString(run.OutputDir),
		string(run.Status), run.Total, run.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stores the run's final counts and status.
func (s *Store) FinishRun(ctx context.Context, run *Run) error {
	if run.FinishedAt == nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
	}
	if run.Status == RunActive {
		run.Status = RunCompleted
	}
	_, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, done = ?, skipped = ?, failed = ?, finished_at = ? WHERE id = ?`,
		string(run.Status), run.Done, run.Skipped, run.Failed, nullableTime(run.FinishedAt), run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// GetRun fetches a run by id, or a unique id prefix. It returns nil when
// nothing matches.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ORDER BY started_at DESC LIMIT 2`,
		id, id+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.ID == id {
			return run, nil
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// MarkInterrupted closes active runs left behind by a crash or kill.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE status = ?`,
		string(RunInterrupted), now, string(RunActive),
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}
	if _, err := s.execWithRetry(ctx,
		`UPDATE run_items SET status = ?, error_kind = ?, error_message = ?, finished_at = ?
         WHERE status IN (?, ?)`,
		string(StatusFailed), "interrupted", "run interrupted before the item finished", now,
		string(StatusPending), string(StatusRunning),
	); err != nil {
		return 0, fmt.Errorf("mark interrupted items: %w", err)
	}
	return res.RowsAffected()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		source      sql.NullString
		outputDir   sql.NullString
		status      string
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID, &run.Kind, &source, &outputDir, &status,
		&run.Total, &run.Done, &run.Skipped, &run.Failed,
		&startedRaw, &finishedRaw,
	); err != nil {
		return nil, err
	}
	run.Source = source.String
	run.OutputDir = outputDir.String
	run.Status = RunStatus(status)
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}
