package step

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"kinetic/internal/content"
	"kinetic/internal/logging"
	"kinetic/internal/media"
)

// TypeCopyVideo creates content by copying stream video into the library.
const TypeCopyVideo = "copy_video"

type copyVideoParams struct{}

// CopyVideo is a creator step: it downloads the record's video (or loads
// upload bytes from the object store), derives resolution and
// orientation, and assembles the content record with its original
// version and optional poster.
type CopyVideo struct{}

// NewCopyVideo builds the copy creator.
func NewCopyVideo() *CopyVideo {
	return &CopyVideo{}
}

func newCopyVideoFromParams(raw json.RawMessage) (Step, error) {
	var params copyVideoParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return NewCopyVideo(), nil
}

func (c *CopyVideo) Type() string { return TypeCopyVideo }

func (c *CopyVideo) Params() (json.RawMessage, error) {
	return marshalParams(copyVideoParams{})
}

func (c *CopyVideo) Apply(ctx context.Context, env *Env, value media.Value) (media.Value, error) {
	record, err := wantRecord(TypeCopyVideo, value)
	if err != nil {
		return nil, err
	}
	log := env.stepLog(TypeCopyVideo).With(logging.FieldMediaID, record.Identifier)

	if !record.IsVideo {
		log.Info("skipping non-video media")
		return nil, nil
	}

	resolution, orientation := media.ResolutionOf(record)
	metadata := record.Metadata
	if orientation != "" {
		if metadata == nil {
			metadata = make(map[string]any, 1)
		}
		metadata["orientation"] = string(orientation)
	}

	videoBytes, err := c.loadVideo(ctx, env, record, log)
	if err != nil {
		return nil, err
	}
	if videoBytes == nil {
		return nil, nil
	}

	versions := map[string][]byte{}
	if posterURL, ok := metadata["poster_url"].(string); ok && posterURL != "" {
		poster, posterErr := fetch(ctx, env.HTTP, posterURL)
		if posterErr != nil {
			log.Warn("could not download poster", "url", posterURL, logging.Error(posterErr))
		} else {
			versions["poster"] = poster
		}
	}

	artifact, err := env.Content.Build(ctx, content.BuildParams{
		Original:   videoBytes,
		CreatedAt:  record.CreatedAt,
		SourceID:   record.Identifier,
		StreamID:   &record.StreamID,
		Resolution: resolution,
		Metadata:   metadata,
		Versions:   versions,
	})
	if err != nil {
		return nil, fmt.Errorf("create content for %s: %w", record.Identifier, err)
	}
	log.Info("created content", logging.FieldContentID, artifact.ID)
	return artifact, nil
}

func (c *CopyVideo) loadVideo(ctx context.Context, env *Env, record *media.Record, log *slog.Logger) ([]byte, error) {
	if record.URL != "" {
		log.Info("downloading media", "url", record.URL)
		data, err := fetch(ctx, env.HTTP, record.URL)
		if err != nil {
			return nil, fmt.Errorf("download %s for media %s: %w", record.URL, record.Identifier, err)
		}
		return data, nil
	}
	// Uploads are stored in the object store under their own hash.
	if env.Objects.Exists(record.Identifier) {
		data, err := env.Objects.Get(record.Identifier)
		if err != nil {
			return nil, fmt.Errorf("load upload %s: %w", record.Identifier, err)
		}
		return data, nil
	}
	log.Info("no video bytes available for media")
	return nil, nil
}

func fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
