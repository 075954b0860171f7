package step

import (
	"context"
	"encoding/json"
	"errors"

	"kinetic/internal/logging"
	"kinetic/internal/media"
)

// TypeDepthMap augments content with a depth image computed by a remote
// inference service.
const TypeDepthMap = "depth_map"

type depthMapParams struct {
	// BaseURL overrides the configured inference endpoint.
	BaseURL string `json:"base_url,omitempty"`
}

// DepthMap is an augmentor step: it sends the original bytes to the depth
// inference service and stores the result as the "depth" version. On
// inference failure the content passes through unchanged.
type DepthMap struct {
	params depthMapParams
}

// NewDepthMap builds a depth augmentor. baseURL may be empty to use the
// service configured for the run.
func NewDepthMap(baseURL string) *DepthMap {
	return &DepthMap{params: depthMapParams{BaseURL: baseURL}}
}

func newDepthMapFromParams(raw json.RawMessage) (Step, error) {
	var params depthMapParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return NewDepthMap(params.BaseURL), nil
}

func (d *DepthMap) Type() string { return TypeDepthMap }

func (d *DepthMap) Params() (json.RawMessage, error) {
	return marshalParams(d.params)
}

func (d *DepthMap) Apply(ctx context.Context, env *Env, value media.Value) (media.Value, error) {
	c, err := wantContent(TypeDepthMap, value)
	if err != nil {
		return nil, err
	}
	if _, done := c.Versions[media.VersionDepth]; done {
		return c, nil
	}
	log := env.stepLog(TypeDepthMap).With(logging.FieldContentID, c.ID)

	baseURL := d.params.BaseURL
	if baseURL == "" {
		baseURL = env.DepthServiceURL
	}
	if baseURL == "" {
		return nil, errors.New("depth_map: no inference endpoint configured")
	}

	original, err := env.Objects.Get(c.ID)
	if err != nil {
		log.Warn("could not load original bytes", logging.Error(err))
		return c, nil
	}

	depth, err := env.Inference.Client(baseURL).DepthMap(ctx, original)
	if err != nil {
		log.Warn("depth inference failed", logging.Error(err))
		return c, nil
	}

	hash, err := env.Objects.Put(depth)
	if err != nil {
		log.Warn("could not store depth image", logging.Error(err))
		return c, nil
	}
	c.Versions[media.VersionDepth] = hash
	c.SetMetadata("depth_map", hash)
	log.Info("computed depth map", "version_hash", hash)
	return c, nil
}
