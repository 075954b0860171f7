package step

import (
	"log/slog"
	"net/http"

	"kinetic/internal/content"
	"kinetic/internal/ffmpeg"
	"kinetic/internal/inference"
	"kinetic/internal/logging"
	"kinetic/internal/objectstore"
)

// Env is the narrow accessor layer through which steps reach shared
// infrastructure during a run. It is owned by the engine and passed at
// apply time, never captured in serialized step state.
type Env struct {
	Objects   *objectstore.Store
	Content   *content.Service
	HTTP      *http.Client
	FFmpeg    *ffmpeg.Tool
	Inference *inference.Pool
	// DepthServiceURL is the default inference endpoint for steps that
	// do not configure their own.
	DepthServiceURL string
	Logger          *slog.Logger
}

// Log returns the run logger, falling back to the default logger.
func (e *Env) Log() *slog.Logger {
	if e == nil || e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Env) stepLog(stepType string) *slog.Logger {
	return e.Log().With(slog.String(logging.FieldStep, stepType))
}
