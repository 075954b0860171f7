package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"kinetic/internal/catalog"
	"kinetic/internal/logging"
	"kinetic/internal/stream"
)

// StreamService manages stream definitions.
type StreamService struct {
	store  *catalog.Store
	logger *slog.Logger
}

// NewStreamService wires the stream management surface.
func NewStreamService(store *catalog.Store, logger *slog.Logger) *StreamService {
	return &StreamService{store: store, logger: logging.WithComponent(logger, "api")}
}

// Add registers a stream definition after checking the type is known and
// the params are valid JSON.
func (s *StreamService) Add(ctx context.Context, name, streamType, paramsJSON string) (Stream, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Stream{}, fmt.Errorf("stream name must not be empty")
	}
	if !stream.ValidateType(streamType) {
		return Stream{}, fmt.Errorf("unknown stream type %q (known: %s)",
			streamType, strings.Join(stream.Types(), ", "))
	}
	if paramsJSON == "" {
		paramsJSON = "{}"
	}
	if !json.Valid([]byte(paramsJSON)) {
		return Stream{}, fmt.Errorf("stream params must be valid JSON")
	}
	id, err := s.store.AddStream(ctx, name, streamType, paramsJSON)
	if err != nil {
		return Stream{}, err
	}
	def, err := s.store.GetStream(ctx, id)
	if err != nil {
		return Stream{}, err
	}
	s.logger.Info("added stream", logging.FieldStreamID, id, "name", name, "type", streamType)
	return FromStreamDef(def), nil
}

// List returns all stream definitions.
func (s *StreamService) List(ctx context.Context) ([]Stream, error) {
	defs, err := s.store.ListStreams(ctx)
	if err != nil {
		return nil, err
	}
	return FromStreamDefs(defs), nil
}

// Get returns one stream definition.
func (s *StreamService) Get(ctx context.Context, id int64) (Stream, error) {
	def, err := s.store.GetStream(ctx, id)
	if err != nil {
		return Stream{}, err
	}
	if def == nil {
		return Stream{}, fmt.Errorf("no stream with id %d", id)
	}
	return FromStreamDef(def), nil
}

// Remove deletes a stream definition. Pipelines bound to it keep their
// reference and fail at run time until rebound.
func (s *StreamService) Remove(ctx context.Context, id int64) error {
	if err := s.store.RemoveStream(ctx, id); err != nil {
		return err
	}
	s.logger.Info("removed stream", logging.FieldStreamID, id)
	return nil
}
