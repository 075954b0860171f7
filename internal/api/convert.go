package api

import (
	"encoding/json"

	"kinetic/internal/catalog"
	"kinetic/internal/media"
	"kinetic/internal/step"
)

// FromPipeline converts a catalog pipeline, materializing step params
// for display.
func FromPipeline(p *catalog.Pipeline) Pipeline {
	dto := Pipeline{
		ID:        p.ID,
		Name:      p.Name,
		StreamID:  p.StreamID,
		CreatedAt: p.CreatedAt,
	}
	for _, raw := range p.Steps {
		var desc step.Descriptor
		if err := json.Unmarshal([]byte(raw), &desc); err != nil {
			dto.Steps = append(dto.Steps, StepInfo{Type: "invalid"})
			continue
		}
		var params map[string]any
		_ = json.Unmarshal(desc.Params, &params)
		dto.Steps = append(dto.Steps, StepInfo{Type: desc.Type, Params: params})
	}
	return dto
}

// FromPipelines converts a catalog pipeline list.
func FromPipelines(pipelines []*catalog.Pipeline) []Pipeline {
	dtos := make([]Pipeline, 0, len(pipelines))
	for _, p := range pipelines {
		dtos = append(dtos, FromPipeline(p))
	}
	return dtos
}

// FromRun converts a catalog run record.
func FromRun(run *catalog.Run) Run {
	return Run{
		ID:          run.ID,
		PipelineID:  run.PipelineID,
		LogHash:     run.LogHash,
		Status:      string(run.Status),
		CompletedAt: run.CompletedAt,
	}
}

// FromRuns converts a catalog run list.
func FromRuns(runs []*catalog.Run) []Run {
	dtos := make([]Run, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, FromRun(run))
	}
	return dtos
}

// FromContent converts a content record.
func FromContent(c *media.Content) Content {
	dto := Content{
		ID:          c.ID,
		CreatedAt:   c.CreatedAt,
		ProcessedAt: c.ProcessedAt,
		PipelineID:  c.PipelineID,
		SourceID:    c.SourceID,
		StreamID:    c.StreamID,
		Versions:    c.Versions,
	}
	if c.Resolution != nil {
		dto.Width = c.Resolution.Width
		dto.Height = c.Resolution.Height
	}
	return dto
}

// FromContents converts a content list.
func FromContents(contents []*media.Content) []Content {
	dtos := make([]Content, 0, len(contents))
	for _, c := range contents {
		dtos = append(dtos, FromContent(c))
	}
	return dtos
}

// FromStreamDef converts a stream definition.
func FromStreamDef(def *catalog.StreamDef) Stream {
	return Stream{
		ID:        def.ID,
		Name:      def.Name,
		Type:      def.Type,
		Params:    def.Params,
		CreatedAt: def.CreatedAt,
	}
}

// FromStreamDefs converts a stream definition list.
func FromStreamDefs(defs []*catalog.StreamDef) []Stream {
	dtos := make([]Stream, 0, len(defs))
	for _, def := range defs {
		dtos = append(dtos, FromStreamDef(def))
	}
	return dtos
}
