package ffmpeg

import (
	"strings"
	"testing"

	"kinetic/internal/media"
)

func TestParseFrameRate(t *testing.T) {
	cases := []struct {
		input string
		want  float64
	}{
		{"30/1", 30},
		{"30000/1001", 29.97002997002997},
		{"25", 25},
		{" 24/1 ", 24},
	}
	for _, tc := range cases {
		got, err := parseFrameRate(tc.input)
		if err != nil {
			t.Fatalf("parseFrameRate(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("parseFrameRate(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestParseFrameRateRejectsBadInput(t *testing.T) {
	for _, input := range []string{"", "abc", "30/0", "30/"} {
		if _, err := parseFrameRate(input); err == nil {
			t.Fatalf("expected %q to be rejected", input)
		}
	}
}

func TestParseProbeOutput(t *testing.T) {
	data := []byte(`{
		"streams": [{"r_frame_rate": "30/1", "nb_read_frames": "90"}],
		"format": {"duration": "3.000000"}
	}`)
	info, err := parseProbeOutput(data)
	if err != nil {
		t.Fatalf("parseProbeOutput: %v", err)
	}
	if info.FrameRate != 30 || info.FrameCount != 90 || info.Duration != 3 {
		t.Fatalf("unexpected info: %#v", info)
	}
}

func TestParseProbeOutputRequiresStreams(t *testing.T) {
	if _, err := parseProbeOutput([]byte(`{"streams": [], "format": {"duration": "1"}}`)); err == nil {
		t.Fatal("expected error for probe output without streams")
	}
}

func TestFadeArgs(t *testing.T) {
	info := TimeInfo{FrameRate: 30, FrameCount: 90, Duration: 3}
	req := FadeRequest{FadeDuration: 1, VideoBitrate: 1200}

	args := fadeArgs("in.mp4", "out.mp4", info, req)
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "fade=t=in:s=0:n=30") {
		t.Fatalf("fade-in filter missing: %s", joined)
	}
	if !strings.Contains(joined, "fade=t=out:s=60:n=30") {
		t.Fatalf("fade-out filter missing: %s", joined)
	}
	if !strings.Contains(joined, "-b:v 1200k") {
		t.Fatalf("bitrate missing: %s", joined)
	}
	if strings.Contains(joined, "scale=") {
		t.Fatalf("no scale expected without a target resolution: %s", joined)
	}
}

func TestFadeArgsWithScale(t *testing.T) {
	info := TimeInfo{FrameRate: 30, FrameCount: 90, Duration: 3}
	req := FadeRequest{
		FadeDuration: 1,
		VideoBitrate: 1200,
		Scale:        &media.Resolution{Width: 1280, Height: 720},
	}

	joined := strings.Join(fadeArgs("in.mp4", "out.mp4", info, req), " ")
	if !strings.Contains(joined, "scale=1280:720") {
		t.Fatalf("scale filter missing: %s", joined)
	}
}

func TestFadeArgsClampsFadeOutStart(t *testing.T) {
	// A clip shorter than the fade window must not produce a negative
	// start frame.
	info := TimeInfo{FrameRate: 30, FrameCount: 10, Duration: 0.33}
	req := FadeRequest{FadeDuration: 1, VideoBitrate: 1200}

	joined := strings.Join(fadeArgs("in.mp4", "out.mp4", info, req), " ")
	if !strings.Contains(joined, "fade=t=out:s=0:n=30") {
		t.Fatalf("fade-out start not clamped: %s", joined)
	}
}
