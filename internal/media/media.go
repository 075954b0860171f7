package media

import (
	"strings"
	"time"
)

// Resolution is the pixel dimensions of a piece of media.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Orientation classifies media by aspect ratio.
type Orientation string

const (
	OrientationWide   Orientation = "Wide"
	OrientationTall   Orientation = "Tall"
	OrientationSquare Orientation = "Square"
)

// Value is the unit that flows between pipeline steps. Implemented by
// *Record (source media) and *Content (derived artifacts).
type Value interface {
	pipelineValue()
}

// Record is a normalized media item produced by a stream. Identity is
// (Identifier, StreamID); Metadata is augmented in place as the record
// moves through a pipeline.
type Record struct {
	Identifier string         `json:"identifier"`
	StreamID   int64          `json:"stream_id"`
	IsVideo    bool           `json:"is_video"`
	CreatedAt  time.Time      `json:"created_at"`
	Metadata   map[string]any `json:"metadata"`
	URL        string         `json:"url,omitempty"`
}

func (*Record) pipelineValue() {}

// Version labels for the byte-level variants of a piece of content.
const (
	VersionOriginal = "original"
	VersionFaded    = "faded"
	VersionDepth    = "depth"
)

// Content is a derived artifact. ID is the object-store hash of the
// "original" version; Versions always contains at least that entry.
type Content struct {
	ID          string            `json:"id"`
	CreatedAt   time.Time         `json:"created_at"`
	ProcessedAt time.Time         `json:"processed_at"`
	PipelineID  *int64            `json:"pipeline_id,omitempty"`
	SourceID    string            `json:"source_id,omitempty"`
	StreamID    *int64            `json:"stream_id,omitempty"`
	Resolution  *Resolution       `json:"resolution,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	Versions    map[string]string `json:"versions"`
}

func (*Content) pipelineValue() {}

// SetMetadata assigns a metadata key, allocating the map when needed.
func (c *Content) SetMetadata(key string, value any) {
	if c.Metadata == nil {
		c.Metadata = make(map[string]any, 1)
	}
	c.Metadata[key] = value
}

// ResolutionOf derives the resolution and orientation from a record's
// width/height metadata. Returns nil when the stream did not report
// dimensions.
func ResolutionOf(r *Record) (*Resolution, Orientation) {
	width := metadataInt(r.Metadata, "width")
	height := metadataInt(r.Metadata, "height")
	if width <= 0 || height <= 0 {
		return nil, ""
	}
	res := &Resolution{Width: width, Height: height}
	switch {
	case width > height:
		return res, OrientationWide
	case height > width:
		return res, OrientationTall
	default:
		return res, OrientationSquare
	}
}

// ParseOrientation validates a user-supplied orientation label.
func ParseOrientation(value string) (Orientation, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "wide":
		return OrientationWide, true
	case "tall":
		return OrientationTall, true
	case "square":
		return OrientationSquare, true
	default:
		return "", false
	}
}

func metadataInt(metadata map[string]any, key string) int {
	if metadata == nil {
		return 0
	}
	switch v := metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		var n int
		for _, r := range v {
			if r < '0' || r > '9' {
				return 0
			}
			n = n*10 + int(r-'0')
		}
		return n
	default:
		return 0
	}
}
