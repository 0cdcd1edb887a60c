package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const itemColumns = "id, run_id, position, identity, origin, status, error_kind, error_message, report_path, workspace_id, source_ready, started_at, finished_at"

// AddItem records a pending item for run.
func (s *Store) AddItem(ctx context.Context, runID string, position int, identity, origin string) (*RunItem, error) {
	res, err := s.execWithRetry(ctx,
		`INSERT INTO run_items (run_id, position, identity, origin, status) VALUES (?, ?, ?, ?, ?)`,
		runID, position, identity, origin, string(StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &RunItem{
		ID:       id,
		RunID:    runID,
		Position: position,
		Identity: identity,
		Origin:   origin,
		Status:   StatusPending,
	}, nil
}

// UpdateItem persists the item's mutable fields.
func (s *Store) UpdateItem(ctx context.Context, item *RunItem) error {
	var ready any
	if item.SourceReady != nil {
		ready = boolToInt(*item.SourceReady)
	}
	_, err := s.execWithRetry(ctx,
		`UPDATE run_items SET status = ?, error_kind = ?, error_message = ?, report_path = ?,
             workspace_id = ?, source_ready = ?, started_at = ?, finished_at = ?
         WHERE id = ?`,
		string(item.Status),
		nullableString(item.ErrorKind),
		nullableString(item.ErrorMessage),
		nullableString(item.ReportPath),
		nullableString(item.WorkspaceID),
		ready,
		nullableTime(item.StartedAt),
		nullableTime(item.FinishedAt),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update run item: %w", err)
	}
	return nil
}

// RunItems returns a run's items in manifest order.
func (s *Store) RunItems(ctx context.Context, runID string) ([]*RunItem, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM run_items WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run items: %w", err)
	}
	defer rows.Close()

	var items []*RunItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// LastFailure returns the most recent failed record for identity, or nil.
func (s *Store) LastFailure(ctx context.Context, identity string) (*RunItem, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM run_items WHERE identity = ? AND status = ?
         ORDER BY finished_at DESC, id DESC LIMIT 1`,
		identity, string(StatusFailed),
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last failure: %w", err)
	}
	return item, nil
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*RunItem, error) {
	var (
		item         RunItem
		status       string
		errorKind    sql.NullString
		errorMessage sql.NullString
		reportPath   sql.NullString
		workspaceID  sql.NullString
		sourceReady  sql.NullInt64
		startedRaw   sql.NullString
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&item.ID, &item.RunID, &item.Position, &item.Identity, &item.Origin, &status,
		&errorKind, &errorMessage, &reportPath, &workspaceID, &sourceReady,
		&startedRaw, &finishedRaw,
	); err != nil {
		return nil, err
	}
	item.Status = Status(status)
	item.ErrorKind = errorKind.String
	item.ErrorMessage = errorMessage.String
	item.ReportPath = reportPath.String
	item.WorkspaceID = workspaceID.String
	if sourceReady.Valid {
		ready := sourceReady.Int64 != 0
		item.SourceReady = &ready
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			item.StartedAt = &started
		}
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			item.FinishedAt = &finished
		}
	}
	return &item, nil
}
