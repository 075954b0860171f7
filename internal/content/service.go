package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kinetic/internal/catalog"
	"kinetic/internal/media"
	"kinetic/internal/objectstore"
)

// Service builds and persists content records. The content hash of the
// original bytes doubles as the record id, so re-processing identical
// media is idempotent.
type Service struct {
	store   *catalog.Store
	objects *objectstore.Store
}

// NewService constructs a content service over the catalog and object store.
func NewService(store *catalog.Store, objects *objectstore.Store) *Service {
	return &Service{store: store, objects: objects}
}

// BuildParams carries the inputs for assembling a new content record.
type BuildParams struct {
	Original   []byte
	CreatedAt  time.Time
	SourceID   string
	StreamID   *int64
	Resolution *media.Resolution
	Metadata   map[string]any
	// Extra labeled byte variants stored alongside the original,
	// e.g. a poster image.
	Versions map[string][]byte
}

// Build stores the blobs and assembles a content record without writing
// the catalog row. The engine persists the row once the record survives
// the whole step chain.
func (s *Service) Build(ctx context.Context, params BuildParams) (*media.Content, error) {
	if len(params.Original) == 0 {
		return nil, errors.New("original bytes are required")
	}

	hash, err := s.objects.Put(params.Original)
	if err != nil {
		return nil, fmt.Errorf("store original: %w", err)
	}

	versions := map[string]string{media.VersionOriginal: hash}
	for label, data := range params.Versions {
		versionHash, err := s.objects.Put(data)
		if err != nil {
			return nil, fmt.Errorf("store version %s: %w", label, err)
		}
		versions[label] = versionHash
	}

	return &media.Content{
		ID:          hash,
		CreatedAt:   params.CreatedAt,
		ProcessedAt: time.Now(),
		SourceID:    params.SourceID,
		StreamID:    params.StreamID,
		Resolution:  params.Resolution,
		Metadata:    params.Metadata,
		Versions:    versions,
	}, nil
}

// Save upserts the content catalog row.
func (s *Service) Save(ctx context.Context, c *media.Content) error {
	return s.store.SaveContent(ctx, c)
}

// Query returns catalog content matching the filter, newest first.
func (s *Service) Query(ctx context.Context, limit int, filter catalog.ContentFilter) ([]*media.Content, error) {
	return s.store.QueryContent(ctx, limit, filter)
}

// Seen reports whether content derived from (sourceID, streamID) already
// exists, optionally restricted to one pipeline.
func (s *Service) Seen(ctx context.Context, sourceID string, streamID int64, pipelineID *int64) (bool, error) {
	results, err := s.store.QueryContent(ctx, 1, catalog.ContentFilter{
		SourceID:   sourceID,
		StreamID:   &streamID,
		PipelineID: pipelineID,
	})
	if err != nil {
		return false, err
	}
	return len(results) > 0, nil
}

// Objects exposes the backing object store for version byte access.
func (s *Service) Objects() *objectstore.Store {
	return s.objects
}
