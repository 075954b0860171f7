package runlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"kinetic/internal/catalog"
	"kinetic/internal/logging"
	"kinetic/internal/objectstore"
)

// Recorder captures all log output for one pipeline invocation and, on
// Finish, persists the captured log as a blob plus a run row with the
// terminal status. The capture buffer is a temp file removed on every
// exit path.
type Recorder struct {
	store      *catalog.Store
	objects    *objectstore.Store
	pipelineID int64
	name       string
	runID      string
	file       *os.File
	logger     *slog.Logger
}

// Begin starts capturing. Records emitted through Logger are duplicated
// to the base logger and to the capture buffer at debug level.
func Begin(base *slog.Logger, store *catalog.Store, objects *objectstore.Store, pipelineID int64, name string) (*Recorder, error) {
	file, err := os.CreateTemp("", "kinetic-run-*.log")
	if err != nil {
		return nil, fmt.Errorf("create run log buffer: %w", err)
	}

	var baseHandler slog.Handler = logging.NoopHandler{}
	if base != nil {
		baseHandler = base.Handler()
	}
	capture := logging.NewLineHandler(file, slog.LevelDebug)
	logger := slog.New(logging.Tee(baseHandler, capture)).With(
		slog.Int64(logging.FieldPipelineID, pipelineID),
		slog.String(logging.FieldRunID, uuid.NewString()),
	)

	return &Recorder{
		store:      store,
		objects:    objects,
		pipelineID: pipelineID,
		name:       name,
		file:       file,
		logger:     logger,
	}, nil
}

// Logger returns the capturing logger for the run.
func (r *Recorder) Logger() *slog.Logger {
	return r.logger
}

// Finish closes the capture scope. The run error determines the persisted
// status; the error itself is never re-raised from here — recording
// problems are reported via the returned error but the caller's own
// failure handling operates on the original run error.
func (r *Recorder) Finish(ctx context.Context, runErr error) (*catalog.Run, error) {
	defer func() {
		name := r.file.Name()
		_ = r.file.Close()
		_ = os.Remove(name)
	}()

	status := catalog.RunSuccessful
	if runErr != nil {
		status = catalog.RunFailed
		r.logger.Error(fmt.Sprintf("could not execute pipeline %s (%d)", r.name, r.pipelineID),
			logging.Error(runErr))
	}
	r.logger.Info("pipeline run finished", "status", string(status))

	data, err := os.ReadFile(r.file.Name())
	if err != nil {
		return nil, fmt.Errorf("read run log buffer: %w", err)
	}
	logHash, err := r.objects.Put(data)
	if err != nil {
		return nil, fmt.Errorf("store run log: %w", err)
	}

	run := &catalog.Run{
		PipelineID:  r.pipelineID,
		LogHash:     logHash,
		Status:      status,
		CompletedAt: time.Now(),
	}
	if _, err := r.store.AddRun(ctx, run); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}
