package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"kinetic/internal/config"
	"kinetic/internal/media"
)

// Tool invokes the external ffmpeg/ffprobe binaries for the opaque video
// transforms pipelines rely on.
type Tool struct {
	ffmpegBin  string
	ffprobeBin string
	timeout    time.Duration
}

// NewTool builds a Tool from application config.
func NewTool(cfg *config.Config) *Tool {
	return &Tool{
		ffmpegBin:  cfg.FFmpegBinary(),
		ffprobeBin: cfg.FFprobeBinary(),
		timeout:    time.Duration(cfg.FFmpeg.TimeoutSeconds) * time.Second,
	}
}

// TimeInfo describes the temporal shape of a video file.
type TimeInfo struct {
	FrameRate  float64
	FrameCount int
	Duration   float64
}

// FadeRequest describes a fade re-encode.
type FadeRequest struct {
	Input        []byte
	FadeDuration float64
	VideoBitrate int
	// Scale rescales the output when set; nil keeps the input resolution.
	Scale *media.Resolution
}

// Probe reads frame rate, frame count, and duration from a video file.
func (t *Tool) Probe(ctx context.Context, path string) (TimeInfo, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.ffprobeBin,
		"-v", "error",
		"-select_streams", "v:0",
		"-count_frames",
		"-show_entries", "stream=nb_read_frames,r_frame_rate",
		"-show_entries", "format=duration",
		"-print_format", "json",
		path,
	)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return TimeInfo{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbeOutput(stdout.Bytes())
}

// Fade re-encodes a video with fade-in/fade-out and returns the new bytes
// plus the source duration in seconds.
func (t *Tool) Fade(ctx context.Context, req FadeRequest) ([]byte, float64, error) {
	workDir, err := os.MkdirTemp("", "kinetic-fade-*")
	if err != nil {
		return nil, 0, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inputPath := filepath.Join(workDir, "input")
	if err := os.WriteFile(inputPath, req.Input, 0o644); err != nil {
		return nil, 0, fmt.Errorf("write input video: %w", err)
	}

	info, err := t.Probe(ctx, inputPath)
	if err != nil {
		return nil, 0, err
	}

	outputPath := filepath.Join(workDir, "output.mp4")
	args := fadeArgs(inputPath, outputPath, info, req)

	runCtx, cancel := t.withTimeout(ctx)
	defer cancel()
	cmd := exec.CommandContext(runCtx, t.ffmpegBin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, 0, fmt.Errorf("ffmpeg fade: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	output, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, 0, fmt.Errorf("read faded video: %w", err)
	}
	return output, info.Duration, nil
}

func (t *Tool) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t.timeout)
}

// fadeArgs builds the ffmpeg invocation for a fade re-encode.
func fadeArgs(inputPath, outputPath string, info TimeInfo, req FadeRequest) []string {
	framesToFade := int(req.FadeDuration * info.FrameRate)
	fadeOutStart := info.FrameCount - framesToFade
	if fadeOutStart < 0 {
		fadeOutStart = 0
	}

	filters := fmt.Sprintf("fade=t=in:s=0:n=%d,fade=t=out:s=%d:n=%d",
		framesToFade, fadeOutStart, framesToFade)
	if req.Scale != nil {
		filters += fmt.Sprintf(",scale=%d:%d", req.Scale.Width, req.Scale.Height)
	}

	return []string{
		"-i", inputPath,
		"-loglevel", "error",
		"-hide_banner",
		"-vf", filters,
		"-b:v", strconv.Itoa(req.VideoBitrate) + "k",
		"-c:a", "copy",
		"-f", "mp4",
		"-movflags", "+faststart",
		"-y", outputPath,
	}
}

type probeOutput struct {
	Streams []struct {
		FrameRate  string `json:"r_frame_rate"`
		FrameCount string `json:"nb_read_frames"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbeOutput(data []byte) (TimeInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return TimeInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return TimeInfo{}, fmt.Errorf("ffprobe reported no video streams")
	}

	rate, err := parseFrameRate(out.Streams[0].FrameRate)
	if err != nil {
		return TimeInfo{}, err
	}
	frames, err := strconv.Atoi(strings.TrimSpace(out.Streams[0].FrameCount))
	if err != nil {
		return TimeInfo{}, fmt.Errorf("parse frame count %q: %w", out.Streams[0].FrameCount, err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64)
	if err != nil {
		return TimeInfo{}, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
	}
	return TimeInfo{FrameRate: rate, FrameCount: frames, Duration: duration}, nil
}

// parseFrameRate evaluates ffprobe's fractional rate form, e.g. "30/1" or
// "30000/1001".
func parseFrameRate(value string) (float64, error) {
	trimmed := strings.TrimSpace(value)
	num, den, found := strings.Cut(trimmed, "/")
	if !found {
		rate, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, fmt.Errorf("parse frame rate %q: %w", value, err)
		}
		return rate, nil
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", value, err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("parse frame rate %q: bad denominator", value)
	}
	return n / d, nil
}
