package api

import (
	"context"
	"fmt"

	"kinetic/internal/catalog"
	"kinetic/internal/content"
)

// ContentService exposes read access to the content catalog and its
// backing blobs.
type ContentService struct {
	store   *catalog.Store
	content *content.Service
}

// NewContentService wires the content query surface.
func NewContentService(store *catalog.Store, svc *content.Service) *ContentService {
	return &ContentService{store: store, content: svc}
}

// Query returns catalog content matching the filter, newest first.
func (s *ContentService) Query(ctx context.Context, limit int, filter catalog.ContentFilter) ([]Content, error) {
	matches, err := s.content.Query(ctx, limit, filter)
	if err != nil {
		return nil, err
	}
	return FromContents(matches), nil
}

// Get returns one content row by id.
func (s *ContentService) Get(ctx context.Context, id string) (Content, error) {
	c, err := s.store.GetContent(ctx, id)
	if err != nil {
		return Content{}, err
	}
	if c == nil {
		return Content{}, fmt.Errorf("no content with id %s", id)
	}
	return FromContent(c), nil
}

// VersionBytes fetches the stored blob for one version of a content row.
func (s *ContentService) VersionBytes(ctx context.Context, contentID, version string) ([]byte, error) {
	c, err := s.store.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("no content with id %s", contentID)
	}
	hash, ok := c.Versions[version]
	if !ok {
		return nil, fmt.Errorf("content %s has no %q version", contentID, version)
	}
	data, err := s.content.Objects().Get(hash)
	if err != nil {
		return nil, fmt.Errorf("fetch version %s: %w", version, err)
	}
	return data, nil
}
