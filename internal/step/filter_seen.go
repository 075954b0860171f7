package step

import (
	"context"
	"encoding/json"
	"fmt"

	"kinetic/internal/logging"
	"kinetic/internal/media"
)

// TypeFilterSeen drops stream media whose derived content already exists
// in the catalog.
const TypeFilterSeen = "filter_seen"

type filterSeenParams struct {
	// PipelineID restricts the lookup to content produced by one
	// pipeline. When nil, content from any pipeline counts as seen.
	PipelineID *int64 `json:"pipeline_id,omitempty"`
}

// FilterSeen skips media that was already processed.
type FilterSeen struct {
	pipelineID *int64
}

// NewFilterSeen builds a dedup filter, optionally scoped to a pipeline.
func NewFilterSeen(pipelineID *int64) *FilterSeen {
	return &FilterSeen{pipelineID: pipelineID}
}

func newFilterSeenFromParams(raw json.RawMessage) (Step, error) {
	var params filterSeenParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return NewFilterSeen(params.PipelineID), nil
}

func (f *FilterSeen) Type() string { return TypeFilterSeen }

func (f *FilterSeen) Params() (json.RawMessage, error) {
	return marshalParams(filterSeenParams{PipelineID: f.pipelineID})
}

func (f *FilterSeen) Apply(ctx context.Context, env *Env, value media.Value) (media.Value, error) {
	record, err := wantRecord(TypeFilterSeen, value)
	if err != nil {
		return nil, err
	}
	seen, err := env.Content.Seen(ctx, record.Identifier, record.StreamID, f.pipelineID)
	if err != nil {
		return nil, fmt.Errorf("dedup lookup for %s: %w", record.Identifier, err)
	}
	if seen {
		env.stepLog(TypeFilterSeen).Debug("dropping already processed media",
			logging.FieldMediaID, record.Identifier)
		return nil, nil
	}
	return record, nil
}
