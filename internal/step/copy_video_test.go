package step_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kinetic/internal/content"
	"kinetic/internal/media"
	"kinetic/internal/step"
	"kinetic/internal/testsupport"
)

func newStepEnv(t *testing.T) *step.Env {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	objects := testsupport.MustOpenObjects(t, cfg)
	return &step.Env{
		Objects: objects,
		Content: content.NewService(store, objects),
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

func TestCopyVideoDownloadsAndCreatesContent(t *testing.T) {
	videoBytes := []byte("fake video payload")
	posterBytes := []byte("fake poster payload")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/clip.mp4":
			w.Write(videoBytes)
		case "/poster.jpg":
			w.Write(posterBytes)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	env := newStepEnv(t)
	record := &media.Record{
		Identifier: "clip-1",
		StreamID:   3,
		IsVideo:    true,
		CreatedAt:  time.Now(),
		URL:        server.URL + "/clip.mp4",
		Metadata: map[string]any{
			"width":      float64(1920),
			"height":     float64(1080),
			"poster_url": server.URL + "/poster.jpg",
		},
	}

	out, err := step.NewCopyVideo().Apply(context.Background(), env, record)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	c, ok := out.(*media.Content)
	if !ok {
		t.Fatalf("expected content, got %T", out)
	}
	if c.SourceID != "clip-1" || c.StreamID == nil || *c.StreamID != 3 {
		t.Fatalf("source identity lost: %#v", c)
	}
	if c.Resolution == nil || c.Resolution.Width != 1920 {
		t.Fatalf("resolution not derived: %#v", c.Resolution)
	}
	if c.Metadata["orientation"] != "Wide" {
		t.Fatalf("orientation not derived: %#v", c.Metadata)
	}
	if !env.Objects.Exists(c.Versions["original"]) {
		t.Fatal("original bytes not stored")
	}
	if !env.Objects.Exists(c.Versions["poster"]) {
		t.Fatal("poster bytes not stored")
	}
	stored, err := env.Objects.Get(c.ID)
	if err != nil {
		t.Fatalf("Get original: %v", err)
	}
	if string(stored) != string(videoBytes) {
		t.Fatal("stored bytes do not match the download")
	}
}

func TestCopyVideoDownloadFailureIsAnError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	env := newStepEnv(t)
	record := &media.Record{
		Identifier: "clip-404",
		IsVideo:    true,
		URL:        server.URL + "/gone.mp4",
	}

	if _, err := step.NewCopyVideo().Apply(context.Background(), env, record); err == nil {
		t.Fatal("expected download failure to fail the item")
	}
}

func TestCopyVideoPosterFailureIsTolerated(t *testing.T) {
	videoBytes := []byte("payload")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/clip.mp4" {
			w.Write(videoBytes)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	env := newStepEnv(t)
	record := &media.Record{
		Identifier: "clip-2",
		IsVideo:    true,
		URL:        server.URL + "/clip.mp4",
		Metadata:   map[string]any{"poster_url": server.URL + "/missing.jpg"},
	}

	out, err := step.NewCopyVideo().Apply(context.Background(), env, record)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	c := out.(*media.Content)
	if _, ok := c.Versions["poster"]; ok {
		t.Fatal("poster version should be absent after a failed download")
	}
	if _, ok := c.Versions["original"]; !ok {
		t.Fatal("original version missing")
	}
}

func TestCopyVideoSkipsNonVideo(t *testing.T) {
	env := newStepEnv(t)
	out, err := step.NewCopyVideo().Apply(context.Background(), env, &media.Record{
		Identifier: "photo-1",
		IsVideo:    false,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out != nil {
		t.Fatal("expected non-video media to be dropped")
	}
}

func TestCopyVideoLoadsUploadsFromObjectStore(t *testing.T) {
	env := newStepEnv(t)
	payload := []byte("uploaded video")
	hash, err := env.Objects.Put(payload)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	out, err := step.NewCopyVideo().Apply(context.Background(), env, &media.Record{
		Identifier: hash,
		StreamID:   1,
		IsVideo:    true,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	c, ok := out.(*media.Content)
	if !ok {
		t.Fatalf("expected content, got %T", out)
	}
	if c.ID != hash {
		t.Fatalf("content id %s should equal the upload hash %s", c.ID, hash)
	}
}

func TestCopyVideoDropsWhenNoBytesAvailable(t *testing.T) {
	env := newStepEnv(t)
	out, err := step.NewCopyVideo().Apply(context.Background(), env, &media.Record{
		Identifier: "nowhere",
		IsVideo:    true,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out != nil {
		t.Fatal("expected record without bytes to be dropped")
	}
}
