package catalog

import "time"

// RunStatus is the terminal outcome of a pipeline run.
type RunStatus string

const (
	RunSuccessful RunStatus = "Successful"
	RunFailed     RunStatus = "Failed"
)

// Pipeline is a named, ordered, persisted chain of steps. Steps are stored
// as opaque serialized descriptors; materialization happens in the step
// registry, not here.
type Pipeline struct {
	ID        int64
	Name      string
	StreamID  *int64
	CreatedAt time.Time
	Steps     []string
}

// Run records one execution of a pipeline: the captured log blob and the
// terminal status.
type Run struct {
	ID          int64
	PipelineID  int64
	LogHash     string
	Status      RunStatus
	CompletedAt time.Time
}

// StreamDef is a persisted stream definition. Params is the serialized
// adapter configuration interpreted by the stream registry.
type StreamDef struct {
	ID        int64
	Name      string
	Type      string
	Params    string
	CreatedAt time.Time
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
