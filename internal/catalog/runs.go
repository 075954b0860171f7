package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// RunFilter narrows ListRuns results. Bookmark enables pagination: only
// runs with an id below it are returned.
type RunFilter struct {
	PipelineID *int64
	Status     RunStatus
	Bookmark   *int64
	Limit      int
}

// AddRun records a completed pipeline run and returns its identifier.
func (s *Store) AddRun(ctx context.Context, run *Run) (int64, error) {
	if run == nil {
		return 0, errors.New("run is nil")
	}
	if run.LogHash == "" {
		return 0, errors.New("run log hash is required")
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO pipeline_runs (pipeline_id, log_hash, status, completed_at) VALUES (?, ?, ?, ?)`,
		run.PipelineID,
		run.LogHash,
		string(run.Status),
		formatTime(run.CompletedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	run.ID = id
	return id, nil
}

// GetRun fetches a single run by identifier, or nil when absent.
func (s *Store) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, pipeline_id, log_hash, status, completed_at FROM pipeline_runs WHERE id = ?`,
		id,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns run history matching the filter, newest first.
func (s *Store) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	var clauses []string
	var args []any
	if filter.PipelineID != nil {
		clauses = append(clauses, "pipeline_id = ?")
		args = append(args, *filter.PipelineID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Bookmark != nil {
		clauses = append(clauses, "id < ?")
		args = append(args, *filter.Bookmark)
	}

	query := `SELECT id, pipeline_id, log_hash, status, completed_at FROM pipeline_runs`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
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

func scanRun(row rowScanner) (*Run, error) {
	var (
		run         Run
		status      string
		completedAt string
	)
	if err := row.Scan(&run.ID, &run.PipelineID, &run.LogHash, &status, &completedAt); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.CompletedAt = parseTime(completedAt)
	return &run, nil
}
