package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreatePipeline inserts a new pipeline and returns its identifier.
// streamID may be nil for pipelines whose stream is chosen at run time.
func (s *Store) CreatePipeline(ctx context.Context, name string, streamID *int64) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, errors.New("pipeline name is required")
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO pipelines (name, stream_id, created_at) VALUES (?, ?, ?)`,
		name,
		streamID,
		formatTime(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert pipeline: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// AppendStep stores a serialized step descriptor at the end of a pipeline's
// chain. Order is append-only; steps are never reordered or removed.
func (s *Store) AppendStep(ctx context.Context, pipelineID int64, stepJSON string) error {
	if strings.TrimSpace(stepJSON) == "" {
		return errors.New("step descriptor is required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO pipeline_steps (pipeline_id, step_json) VALUES (?, ?)`,
		pipelineID,
		stepJSON,
	)
	if err != nil {
		return fmt.Errorf("append step: %w", err)
	}
	return nil
}

// GetPipeline fetches a pipeline with its ordered step descriptors, or nil
// when absent.
func (s *Store) GetPipeline(ctx context.Context, id int64) (*Pipeline, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, name, stream_id, created_at FROM pipelines WHERE id = ?`,
		id,
	)
	p, err := scanPipeline(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pipeline: %w", err)
	}

	steps, err := s.stepsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Steps = steps
	return p, nil
}

// ListPipelines returns all pipelines (without materialized steps) ordered
// by identifier.
func (s *Store) ListPipelines(ctx context.Context) ([]*Pipeline, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, stream_id, created_at FROM pipelines ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list pipelines: %w", err)
	}
	defer rows.Close()

	var pipelines []*Pipeline
	for rows.Next() {
		p, err := scanPipeline(rows)
		if err != nil {
			return nil, err
		}
		pipelines = append(pipelines, p)
	}
	return pipelines, rows.Err()
}

func (s *Store) stepsFor(ctx context.Context, pipelineID int64) ([]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT step_json FROM pipeline_steps WHERE pipeline_id = ? ORDER BY id ASC`,
		pipelineID,
	)
	if err != nil {
		return nil, fmt.Errorf("query pipeline steps: %w", err)
	}
	defer rows.Close()

	var steps []string
	for rows.Next() {
		var stepJSON string
		if err := rows.Scan(&stepJSON); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, stepJSON)
	}
	return steps, rows.Err()
}

func scanPipeline(row rowScanner) (*Pipeline, error) {
	var (
		p         Pipeline
		streamID  sql.NullInt64
		createdAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &streamID, &createdAt); err != nil {
		return nil, err
	}
	if streamID.Valid {
		p.StreamID = &streamID.Int64
	}
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}
