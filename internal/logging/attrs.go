package logging

import "log/slog"

// Standardized structured logging keys.
const (
	// FieldComponent names the subsystem emitting the record.
	FieldComponent = "component"
	// FieldPipelineID carries the pipeline identifier.
	FieldPipelineID = "pipeline_id"
	// FieldRunID carries the pipeline run correlation identifier.
	FieldRunID = "run_id"
	// FieldMediaID carries the stream media identifier.
	FieldMediaID = "media_id"
	// FieldStreamID carries the stream identifier.
	FieldStreamID = "stream_id"
	// FieldStep carries the step type name.
	FieldStep = "step"
	// FieldContentID carries the content hash.
	FieldContentID = "content_id"
)

func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// WithComponent returns a logger scoped to a named subsystem.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger.With(slog.String(FieldComponent, component))
}
