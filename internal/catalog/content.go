package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"kinetic/internal/media"
)

// ContentFilter narrows QueryContent results. All present fields are
// combined with AND; absent fields are no-ops. Orientation matches the
// derived metadata field rather than a stored column.
type ContentFilter struct {
	SourceID      string
	StreamID      *int64
	PipelineID    *int64
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Orientation   media.Orientation
}

const contentColumns = `id, created_at, processed_at, width, height, source_id, metadata_json, stream_id, pipeline_id, versions_json`

// SaveContent upserts a content record keyed by its content hash. Saving
// the same id twice leaves exactly one row.
func (s *Store) SaveContent(ctx context.Context, c *media.Content) error {
	if c == nil {
		return errors.New("content is nil")
	}
	if c.ID == "" {
		return errors.New("content id is required")
	}
	if len(c.Versions) == 0 {
		return errors.New("content must carry at least the original version")
	}

	var metadataJSON any
	if c.Metadata != nil {
		data, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshal content metadata: %w", err)
		}
		metadataJSON = string(data)
	}
	versionsJSON, err := json.Marshal(c.Versions)
	if err != nil {
		return fmt.Errorf("marshal content versions: %w", err)
	}

	var width, height any
	if c.Resolution != nil {
		width = c.Resolution.Width
		height = c.Resolution.Height
	}

	_, err = s.db.ExecContext(
		ctx,
		`REPLACE INTO content (`+contentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		formatTime(c.CreatedAt),
		formatTime(c.ProcessedAt),
		width,
		height,
		nullableString(c.SourceID),
		metadataJSON,
		c.StreamID,
		c.PipelineID,
		string(versionsJSON),
	)
	if err != nil {
		return fmt.Errorf("save content: %w", err)
	}
	return nil
}

// GetContent fetches a single content record by hash, or nil when absent.
func (s *Store) GetContent(ctx context.Context, id string) (*media.Content, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM content WHERE id = ?`, id)
	c, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}
	return c, nil
}

// QueryContent returns up to limit content records matching the filter,
// newest created_at first.
func (s *Store) QueryContent(ctx context.Context, limit int, filter ContentFilter) ([]*media.Content, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	var clauses []string
	var args []any
	if filter.SourceID != "" {
		clauses = append(clauses, "source_id = ?")
		args = append(args, filter.SourceID)
	}
	if filter.StreamID != nil {
		clauses = append(clauses, "stream_id = ?")
		args = append(args, *filter.StreamID)
	}
	if filter.PipelineID != nil {
		clauses = append(clauses, "pipeline_id = ?")
		args = append(args, *filter.PipelineID)
	}
	if filter.CreatedAfter != nil {
		clauses = append(clauses, "created_at > ?")
		args = append(args, formatTime(*filter.CreatedAfter))
	}
	if filter.CreatedBefore != nil {
		clauses = append(clauses, "created_at < ?")
		args = append(args, formatTime(*filter.CreatedBefore))
	}
	if filter.Orientation != "" {
		clauses = append(clauses, "json_extract(metadata_json, '$.orientation') = ?")
		args = append(args, string(filter.Orientation))
	}

	query := `SELECT ` + contentColumns + ` FROM content`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}
	defer rows.Close()

	var results []*media.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContent(row rowScanner) (*media.Content, error) {
	var (
		c            media.Content
		createdAt    string
		processedAt  string
		width        sql.NullInt64
		height       sql.NullInt64
		sourceID     sql.NullString
		metadataJSON sql.NullString
		streamID     sql.NullInt64
		pipelineID   sql.NullInt64
		versionsJSON string
	)
	err := row.Scan(
		&c.ID, &createdAt, &processedAt, &width, &height,
		&sourceID, &metadataJSON, &streamID, &pipelineID, &versionsJSON,
	)
	if err != nil {
		return nil, err
	}

	c.CreatedAt = parseTime(createdAt)
	c.ProcessedAt = parseTime(processedAt)
	if width.Valid && height.Valid {
		c.Resolution = &media.Resolution{Width: int(width.Int64), Height: int(height.Int64)}
	}
	c.SourceID = sourceID.String
	if streamID.Valid {
		c.StreamID = &streamID.Int64
	}
	if pipelineID.Valid {
		c.PipelineID = &pipelineID.Int64
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &c.Metadata); err != nil {
			return nil, fmt.Errorf("decode content metadata: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(versionsJSON), &c.Versions); err != nil {
		return nil, fmt.Errorf("decode content versions: %w", err)
	}
	return &c, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
