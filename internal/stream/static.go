package stream

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"kinetic/internal/media"
)

// TypeStatic streams a fixed list of records stored in the definition
// itself. Useful for remote sources whose listings are snapshotted ahead
// of time and for exercising pipelines.
const TypeStatic = "static"

type staticRecord struct {
	Identifier string         `json:"identifier"`
	IsVideo    bool           `json:"is_video"`
	CreatedAt  time.Time      `json:"created_at"`
	URL        string         `json:"url,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type staticParams struct {
	Records []staticRecord `json:"records"`
}

type staticStream struct {
	id      int64
	records []staticRecord
	next    int
}

func newStaticFromParams(id int64, raw json.RawMessage, _ Deps) (Stream, error) {
	var params staticParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return &staticStream{id: id, records: params.Records}, nil
}

func (s *staticStream) Next(ctx context.Context) (*media.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.records) {
		return nil, io.EOF
	}
	r := s.records[s.next]
	s.next++

	metadata := r.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &media.Record{
		Identifier: r.Identifier,
		StreamID:   s.id,
		IsVideo:    r.IsVideo,
		CreatedAt:  r.CreatedAt,
		Metadata:   metadata,
		URL:        r.URL,
	}, nil
}
