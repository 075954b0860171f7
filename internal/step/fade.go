package step

import (
	"context"
	"encoding/json"
	"fmt"

	"kinetic/internal/ffmpeg"
	"kinetic/internal/logging"
	"kinetic/internal/media"
)

// TypeFade re-encodes a video with a fade to and from black, smoothing
// transitions on playback devices.
const TypeFade = "fade"

const (
	defaultFadeDuration = 1.0
	defaultVideoBitrate = 1200
)

type fadeParams struct {
	FadeDuration    float64 `json:"fade_duration"`
	VideoBitrate    int     `json:"video_bitrate"`
	MaxShortsideRes int     `json:"max_shortside_res,omitempty"`
	MaxLongsideRes  int     `json:"max_longside_res,omitempty"`
}

// Fade is an augmentor step: it adds a "faded" version to existing
// content and records the video duration. On transform failure the
// content passes through unchanged.
type Fade struct {
	params fadeParams
}

// NewFade builds a fade augmentor. Zero values fall back to the defaults.
func NewFade(fadeDuration float64, videoBitrate, maxShortside, maxLongside int) *Fade {
	if fadeDuration <= 0 {
		fadeDuration = defaultFadeDuration
	}
	if videoBitrate <= 0 {
		videoBitrate = defaultVideoBitrate
	}
	return &Fade{params: fadeParams{
		FadeDuration:    fadeDuration,
		VideoBitrate:    videoBitrate,
		MaxShortsideRes: maxShortside,
		MaxLongsideRes:  maxLongside,
	}}
}

func newFadeFromParams(raw json.RawMessage) (Step, error) {
	var params fadeParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return NewFade(params.FadeDuration, params.VideoBitrate, params.MaxShortsideRes, params.MaxLongsideRes), nil
}

func (f *Fade) Type() string { return TypeFade }

func (f *Fade) Params() (json.RawMessage, error) {
	return marshalParams(f.params)
}

func (f *Fade) Apply(ctx context.Context, env *Env, value media.Value) (media.Value, error) {
	c, err := wantContent(TypeFade, value)
	if err != nil {
		return nil, err
	}
	if _, done := c.Versions[media.VersionFaded]; done {
		return c, nil
	}
	log := env.stepLog(TypeFade).With(logging.FieldContentID, c.ID)

	original, err := env.Objects.Get(c.ID)
	if err != nil {
		log.Warn("could not load original video", logging.Error(err))
		return c, nil
	}

	scale := f.targetResolution(c.Resolution)
	if scale != nil {
		log.Info("rescaling video", "width", scale.Width, "height", scale.Height)
	}

	faded, duration, err := env.FFmpeg.Fade(ctx, ffmpeg.FadeRequest{
		Input:        original,
		FadeDuration: f.params.FadeDuration,
		VideoBitrate: f.params.VideoBitrate,
		Scale:        scale,
	})
	if err != nil {
		log.Warn("could not create faded video", logging.Error(err))
		return c, nil
	}

	hash, err := env.Objects.Put(faded)
	if err != nil {
		log.Warn("could not store faded video", logging.Error(err))
		return c, nil
	}
	c.Versions[media.VersionFaded] = hash
	c.SetMetadata("duration", duration)
	log.Info("generated faded version", "version_hash", hash,
		"duration", fmt.Sprintf("%.2fs", duration))
	return c, nil
}

// targetResolution applies the short/long side caps, preserving aspect
// ratio. Nil means keep the original resolution.
func (f *Fade) targetResolution(res *media.Resolution) *media.Resolution {
	if res == nil || res.Width <= 0 || res.Height <= 0 {
		return nil
	}
	longside := max(res.Width, res.Height)
	shortside := min(res.Width, res.Height)

	scale := 0.0
	if f.params.MaxLongsideRes > 0 && longside > f.params.MaxLongsideRes {
		scale = float64(f.params.MaxLongsideRes) / float64(longside)
		shortside = int(scale * float64(shortside))
	}
	if f.params.MaxShortsideRes > 0 && shortside > f.params.MaxShortsideRes {
		if scale == 0 {
			scale = 1
		}
		scale *= float64(f.params.MaxShortsideRes) / float64(shortside)
	}
	if scale == 0 {
		return nil
	}
	return &media.Resolution{
		Width:  int(float64(res.Width) * scale),
		Height: int(float64(res.Height) * scale),
	}
}
