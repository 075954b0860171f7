package api

import "time"

// Pipeline is the management view of a pipeline definition.
type Pipeline struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	StreamID  *int64     `json:"stream_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	Steps     []StepInfo `json:"steps,omitempty"`
}

// StepInfo is a materialized step descriptor.
type StepInfo struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// Run is the management view of one pipeline invocation.
type Run struct {
	ID          int64     `json:"id"`
	PipelineID  int64     `json:"pipeline_id"`
	LogHash     string    `json:"log_hash"`
	Status      string    `json:"status"`
	CompletedAt time.Time `json:"completed_at"`
}

// Content is the management view of a derived artifact.
type Content struct {
	ID          string            `json:"id"`
	CreatedAt   time.Time         `json:"created_at"`
	ProcessedAt time.Time         `json:"processed_at"`
	PipelineID  *int64            `json:"pipeline_id,omitempty"`
	SourceID    string            `json:"source_id,omitempty"`
	StreamID    *int64            `json:"stream_id,omitempty"`
	Width       int               `json:"width,omitempty"`
	Height      int               `json:"height,omitempty"`
	Versions    map[string]string `json:"versions"`
}

// Stream is the management view of a stream definition.
type Stream struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Params    string    `json:"params,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
