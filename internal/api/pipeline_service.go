package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"kinetic/internal/catalog"
	"kinetic/internal/logging"
	"kinetic/internal/objectstore"
	"kinetic/internal/pipeline"
	"kinetic/internal/runlock"
	"kinetic/internal/step"
	"kinetic/internal/stream"
)

// PipelineService manages pipeline definitions and executes runs.
type PipelineService struct {
	store   *catalog.Store
	objects *objectstore.Store
	engine  *pipeline.Engine
	lockDir string
	logger  *slog.Logger
}

// NewPipelineService wires the pipeline management surface.
func NewPipelineService(store *catalog.Store, objects *objectstore.Store, engine *pipeline.Engine, lockDir string, logger *slog.Logger) *PipelineService {
	return &PipelineService{
		store:   store,
		objects: objects,
		engine:  engine,
		lockDir: lockDir,
		logger:  logging.WithComponent(logger, "api"),
	}
}

// Create registers an empty pipeline, optionally bound to a default stream.
func (s *PipelineService) Create(ctx context.Context, name string, streamID *int64) (Pipeline, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Pipeline{}, fmt.Errorf("pipeline name must not be empty")
	}
	if streamID != nil {
		def, err := s.store.GetStream(ctx, *streamID)
		if err != nil {
			return Pipeline{}, fmt.Errorf("resolve stream %d: %w", *streamID, err)
		}
		if def == nil {
			return Pipeline{}, fmt.Errorf("no stream with id %d", *streamID)
		}
	}
	id, err := s.store.CreatePipeline(ctx, name, streamID)
	if err != nil {
		return Pipeline{}, err
	}
	created, err := s.store.GetPipeline(ctx, id)
	if err != nil {
		return Pipeline{}, err
	}
	s.logger.Info("created pipeline", logging.FieldPipelineID, id, "name", name)
	return FromPipeline(created), nil
}

// AppendStep validates a step descriptor against the registry and
// appends it to the pipeline's chain. The stored form is the canonical
// re-encoding of the materialized step, so the catalog never holds a
// descriptor the registry cannot rebuild.
func (s *PipelineService) AppendStep(ctx context.Context, pipelineID int64, descriptorJSON string) (Pipeline, error) {
	existing, err := s.store.GetPipeline(ctx, pipelineID)
	if err != nil {
		return Pipeline{}, fmt.Errorf("resolve pipeline %d: %w", pipelineID, err)
	}
	if existing == nil {
		return Pipeline{}, fmt.Errorf("no pipeline with id %d", pipelineID)
	}
	built, err := step.Decode(descriptorJSON)
	if err != nil {
		return Pipeline{}, fmt.Errorf("validate step: %w", err)
	}
	canonical, err := step.Encode(built)
	if err != nil {
		return Pipeline{}, fmt.Errorf("encode step: %w", err)
	}
	if err := s.store.AppendStep(ctx, pipelineID, canonical); err != nil {
		return Pipeline{}, err
	}
	updated, err := s.store.GetPipeline(ctx, pipelineID)
	if err != nil {
		return Pipeline{}, err
	}
	s.logger.Info("appended step",
		logging.FieldPipelineID, pipelineID, logging.FieldStep, built.Type())
	return FromPipeline(updated), nil
}

// List returns all pipelines with materialized steps.
func (s *PipelineService) List(ctx context.Context) ([]Pipeline, error) {
	pipelines, err := s.store.ListPipelines(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]Pipeline, 0, len(pipelines))
	for _, p := range pipelines {
		// List rows carry no steps; fetch them for display.
		full, err := s.store.GetPipeline(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if full == nil {
			continue
		}
		dtos = append(dtos, FromPipeline(full))
	}
	return dtos, nil
}

// Get returns one pipeline with materialized steps.
func (s *PipelineService) Get(ctx context.Context, id int64) (Pipeline, error) {
	p, err := s.store.GetPipeline(ctx, id)
	if err != nil {
		return Pipeline{}, err
	}
	if p == nil {
		return Pipeline{}, fmt.Errorf("no pipeline with id %d", id)
	}
	return FromPipeline(p), nil
}

// RunOptions controls a pipeline invocation.
type RunOptions struct {
	// StreamID overrides the pipeline's default stream when non-nil.
	StreamID *int64
	// Limit caps consumed stream items when positive.
	Limit int
}

// Run executes a pipeline against its stream. The per-pipeline run lock
// is held for the duration, so concurrent invocations of the same
// pipeline fail fast instead of interleaving.
func (s *PipelineService) Run(ctx context.Context, pipelineID int64, opts RunOptions) (Run, error) {
	p, err := s.store.GetPipeline(ctx, pipelineID)
	if err != nil {
		return Run{}, fmt.Errorf("resolve pipeline %d: %w", pipelineID, err)
	}
	if p == nil {
		return Run{}, fmt.Errorf("no pipeline with id %d", pipelineID)
	}

	streamID := p.StreamID
	if opts.StreamID != nil {
		streamID = opts.StreamID
	}
	if streamID == nil {
		return Run{}, fmt.Errorf("pipeline %d has no stream bound and none was given", pipelineID)
	}
	def, err := s.store.GetStream(ctx, *streamID)
	if err != nil {
		return Run{}, fmt.Errorf("resolve stream %d: %w", *streamID, err)
	}
	if def == nil {
		return Run{}, fmt.Errorf("no stream with id %d", *streamID)
	}
	src, err := stream.New(def, stream.Deps{Objects: s.objects})
	if err != nil {
		return Run{}, fmt.Errorf("open stream %s: %w", def.Name, err)
	}

	lock, err := runlock.Acquire(s.lockDir, pipelineID)
	if err != nil {
		return Run{}, err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			s.logger.Warn("failed to release run lock", logging.Error(releaseErr))
		}
	}()

	runErr := s.engine.Run(ctx, p, src, opts.Limit)

	// The run row is written before Engine.Run returns, so even a
	// failed run is visible in history.
	latest, lookupErr := s.store.ListRuns(ctx, catalog.RunFilter{PipelineID: &pipelineID, Limit: 1})
	if lookupErr != nil || len(latest) == 0 {
		if runErr != nil {
			return Run{}, runErr
		}
		return Run{}, fmt.Errorf("run completed but history lookup failed: %w", lookupErr)
	}
	return FromRun(latest[0]), runErr
}

// ListRuns returns run history, newest first.
func (s *PipelineService) ListRuns(ctx context.Context, filter catalog.RunFilter) ([]Run, error) {
	runs, err := s.store.ListRuns(ctx, filter)
	if err != nil {
		return nil, err
	}
	return FromRuns(runs), nil
}

// GetRun returns one run record.
func (s *PipelineService) GetRun(ctx context.Context, id int64) (Run, error) {
	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return Run{}, err
	}
	if run == nil {
		return Run{}, fmt.Errorf("no run with id %d", id)
	}
	return FromRun(run), nil
}

// RunLog fetches the captured log text for a run from the object store.
func (s *PipelineService) RunLog(ctx context.Context, id int64) (string, error) {
	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return "", err
	}
	if run == nil {
		return "", fmt.Errorf("no run with id %d", id)
	}
	if run.LogHash == "" {
		return "", fmt.Errorf("run %d recorded no log", id)
	}
	data, err := s.objects.Get(run.LogHash)
	if err != nil {
		return "", fmt.Errorf("fetch run log: %w", err)
	}
	return string(data), nil
}

// StepTypes lists the registered step types.
func (s *PipelineService) StepTypes() []string {
	return step.Types()
}

// DescribeStep builds the canonical JSON encoding for a step descriptor,
// primarily for CLI validation and display.
func DescribeStep(descriptorJSON string) (StepInfo, error) {
	built, err := step.Decode(descriptorJSON)
	if err != nil {
		return StepInfo{}, err
	}
	raw, err := built.Params()
	if err != nil {
		return StepInfo{}, err
	}
	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		return StepInfo{}, err
	}
	return StepInfo{Type: built.Type(), Params: params}, nil
}
