package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AddStream persists a stream definition and returns its identifier.
func (s *Store) AddStream(ctx context.Context, name, streamType, paramsJSON string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, errors.New("stream name is required")
	}
	if strings.TrimSpace(streamType) == "" {
		return 0, errors.New("stream type is required")
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO streams (name, type, params_json, created_at) VALUES (?, ?, ?, ?)`,
		name,
		streamType,
		nullableString(paramsJSON),
		formatTime(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert stream: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// GetStream fetches a stream definition by identifier, or nil when absent.
func (s *Store) GetStream(ctx context.Context, id int64) (*StreamDef, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, name, type, params_json, created_at FROM streams WHERE id = ?`,
		id,
	)
	def, err := scanStream(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}
	return def, nil
}

// ListStreams returns all stream definitions ordered by identifier.
func (s *Store) ListStreams(ctx context.Context) ([]*StreamDef, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, type, params_json, created_at FROM streams ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}
	defer rows.Close()

	var defs []*StreamDef
	for rows.Next() {
		def, err := scanStream(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// RemoveStream deletes a stream definition.
func (s *Store) RemoveStream(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM streams WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove stream: %w", err)
	}
	return nil
}

func scanStream(row rowScanner) (*StreamDef, error) {
	var (
		def       StreamDef
		params    sql.NullString
		createdAt string
	)
	if err := row.Scan(&def.ID, &def.Name, &def.Type, &params, &createdAt); err != nil {
		return nil, err
	}
	def.Params = params.String
	def.CreatedAt = parseTime(createdAt)
	return &def, nil
}
