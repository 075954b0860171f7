package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"kinetic/internal/catalog"
	"kinetic/internal/logging"
	"kinetic/internal/media"
	"kinetic/internal/objectstore"
	"kinetic/internal/runlog"
	"kinetic/internal/step"
	"kinetic/internal/stream"
)

// ErrAllItemsFailed is returned when a run failed every item it touched.
// Partial failure is tolerated; failing everything indicates systemic
// misconfiguration worth surfacing loudly.
var ErrAllItemsFailed = errors.New("pipeline failed all media")

// Engine executes pipelines: it threads each stream record through the
// ordered step chain, isolates per-item failures, persists terminal
// content, and records an auditable run history.
type Engine struct {
	store   *catalog.Store
	objects *objectstore.Store
	env     *step.Env
	logger  *slog.Logger
}

// New constructs an engine around the shared infrastructure.
func New(store *catalog.Store, objects *objectstore.Store, env *step.Env, logger *slog.Logger) *Engine {
	return &Engine{
		store:   store,
		objects: objects,
		env:     env,
		logger:  logging.WithComponent(logger, "engine"),
	}
}

// Run executes one pipeline invocation against a media stream. When
// limit is positive, exactly limit items are consumed before stopping.
// The captured log and terminal status are durably recorded before any
// error is returned; the returned error reports total failure only.
func (e *Engine) Run(ctx context.Context, p *catalog.Pipeline, src stream.Stream, limit int) error {
	recorder, err := runlog.Begin(e.logger, e.store, e.objects, p.ID, p.Name)
	if err != nil {
		return fmt.Errorf("begin run log: %w", err)
	}

	runErr := e.process(ctx, recorder.Logger(), p, src, limit)

	run, finishErr := recorder.Finish(ctx, runErr)
	if finishErr != nil {
		e.logger.Error("failed to record pipeline run", logging.Error(finishErr))
	} else {
		e.logger.Info("recorded pipeline run",
			logging.FieldPipelineID, p.ID, "run", run.ID, "status", string(run.Status))
	}
	return runErr
}

func (e *Engine) process(ctx context.Context, log *slog.Logger, p *catalog.Pipeline, src stream.Stream, limit int) error {
	steps, err := step.DecodeAll(p.Steps)
	if err != nil {
		log.Error("could not materialize pipeline steps", logging.Error(err))
		return fmt.Errorf("materialize steps for pipeline %d: %w", p.ID, err)
	}

	env := *e.env
	env.Logger = log

	var succeeded, failed, consumed int
	for {
		if limit > 0 && consumed >= limit {
			log.Info("reached item limit, stopping", "limit", limit)
			break
		}
		record, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Error("stream failed", logging.Error(err))
			return fmt.Errorf("read stream: %w", err)
		}
		consumed++

		created, err := e.processItem(ctx, &env, p, steps, record)
		switch {
		case err != nil:
			// One bad item never aborts the batch.
			log.Error("failed to process media",
				logging.FieldMediaID, record.Identifier, logging.Error(err))
			failed++
		case created == nil:
			log.Debug("media dropped by step chain", logging.FieldMediaID, record.Identifier)
		default:
			log.Info("persisted content",
				logging.FieldMediaID, record.Identifier,
				logging.FieldContentID, created.ID)
			succeeded++
		}
	}

	log.Info("stream exhausted", "consumed", consumed, "succeeded", succeeded, "failed", failed)
	if failed > 0 && succeeded == 0 {
		return fmt.Errorf("%w: pipeline %s (%d) failed %d item(s) with no successes, see run log",
			ErrAllItemsFailed, p.Name, p.ID, failed)
	}
	return nil
}

// processItem threads one record through the step chain. It returns the
// persisted content, or (nil, nil) when a step dropped the item.
func (e *Engine) processItem(ctx context.Context, env *step.Env, p *catalog.Pipeline, steps []step.Step, record *media.Record) (*media.Content, error) {
	var value media.Value = record
	for _, s := range steps {
		next, err := s.Apply(ctx, env, value)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", s.Type(), err)
		}
		if next == nil {
			return nil, nil
		}
		value = next
	}

	switch terminal := value.(type) {
	case *media.Content:
		terminal.PipelineID = &p.ID
		if err := env.Content.Save(ctx, terminal); err != nil {
			return nil, fmt.Errorf("persist content %s: %w", terminal.ID, err)
		}
		return terminal, nil
	case *media.Record:
		return nil, fmt.Errorf("step chain ended without creating content for media %s", terminal.Identifier)
	default:
		return nil, fmt.Errorf("step chain produced unexpected value %T", value)
	}
}
