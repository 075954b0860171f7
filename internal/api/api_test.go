package api_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"kinetic/internal/api"
	"kinetic/internal/catalog"
	"kinetic/internal/config"
	"kinetic/internal/content"
	"kinetic/internal/logging"
	"kinetic/internal/media"
	"kinetic/internal/objectstore"
	"kinetic/internal/pipeline"
	"kinetic/internal/step"
	"kinetic/internal/testsupport"
)

type fixture struct {
	cfg       *config.Config
	store     *catalog.Store
	objects   *objectstore.Store
	content   *content.Service
	pipelines *api.PipelineService
	streams   *api.StreamService
	contents  *api.ContentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	objects := testsupport.MustOpenObjects(t, cfg)
	svc := content.NewService(store, objects)

	logger, err := logging.New(logging.Options{Writer: io.Discard})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	env := &step.Env{Objects: objects, Content: svc}
	engine := pipeline.New(store, objects, env, logger)

	return &fixture{
		cfg:       cfg,
		store:     store,
		objects:   objects,
		content:   svc,
		pipelines: api.NewPipelineService(store, objects, engine, cfg.LockDir(), logger),
		streams:   api.NewStreamService(store, logger),
		contents:  api.NewContentService(store, svc),
	}
}

func TestCreateAndAppendStep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.pipelines.Create(ctx, "ingest", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Name != "ingest" || len(created.Steps) != 0 {
		t.Fatalf("unexpected pipeline: %#v", created)
	}

	updated, err := f.pipelines.AppendStep(ctx, created.ID,
		`{"type":"filter","params":{"expression":"is_video == true"}}`)
	if err != nil {
		t.Fatalf("AppendStep: %v", err)
	}
	if len(updated.Steps) != 1 || updated.Steps[0].Type != "filter" {
		t.Fatalf("step not materialized: %#v", updated.Steps)
	}
	if updated.Steps[0].Params["expression"] != "is_video == true" {
		t.Fatalf("params not materialized: %#v", updated.Steps[0].Params)
	}
}

func TestAppendStepRejectsUnknownType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.pipelines.Create(ctx, "ingest", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = f.pipelines.AppendStep(ctx, created.ID, `{"type":"transmogrify","params":{}}`)
	if err == nil {
		t.Fatal("expected unknown step type to be rejected")
	}

	// The invalid descriptor must not reach storage.
	got, err := f.pipelines.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Steps) != 0 {
		t.Fatalf("invalid step was stored: %#v", got.Steps)
	}
}

func TestAppendStepRejectsInvalidExpression(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.pipelines.Create(ctx, "ingest", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = f.pipelines.AppendStep(ctx, created.ID,
		`{"type":"filter","params":{"expression":"import os"}}`)
	if err == nil {
		t.Fatal("expected invalid expression to be rejected")
	}
}

func TestAppendStepToMissingPipeline(t *testing.T) {
	f := newFixture(t)
	_, err := f.pipelines.AppendStep(context.Background(), 42, `{"type":"copy_video","params":{}}`)
	if err == nil || !strings.Contains(err.Error(), "no pipeline") {
		t.Fatalf("expected missing pipeline error, got %v", err)
	}
}

func TestCreateRejectsMissingStream(t *testing.T) {
	f := newFixture(t)
	missing := int64(99)
	if _, err := f.pipelines.Create(context.Background(), "ingest", &missing); err == nil {
		t.Fatal("expected unknown stream binding to be rejected")
	}
}

func TestStreamAddValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.streams.Add(ctx, "bad", "carrier-pigeon", "{}"); err == nil {
		t.Fatal("expected unknown stream type to be rejected")
	}
	if _, err := f.streams.Add(ctx, "bad", "static", "{not json"); err == nil {
		t.Fatal("expected invalid params JSON to be rejected")
	}
	if _, err := f.streams.Add(ctx, "  ", "static", "{}"); err == nil {
		t.Fatal("expected blank name to be rejected")
	}

	added, err := f.streams.Add(ctx, "snapshot", "static", `{"records":[]}`)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if added.Type != "static" || added.Name != "snapshot" {
		t.Fatalf("unexpected stream: %#v", added)
	}
}

func TestRunPipelineEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payload := []byte("uploaded clip bytes")
	hash, err := f.objects.Put(payload)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	added, err := f.streams.Add(ctx, "snapshot", "static",
		`{"records":[{"identifier":"`+hash+`","is_video":true}]}`)
	if err != nil {
		t.Fatalf("Add stream: %v", err)
	}

	created, err := f.pipelines.Create(ctx, "ingest", &added.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.pipelines.AppendStep(ctx, created.ID, `{"type":"copy_video","params":{}}`); err != nil {
		t.Fatalf("AppendStep: %v", err)
	}

	run, err := f.pipelines.Run(ctx, created.ID, api.RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Status != string(catalog.RunSuccessful) {
		t.Fatalf("expected Successful run, got %s", run.Status)
	}

	logText, err := f.pipelines.RunLog(ctx, run.ID)
	if err != nil {
		t.Fatalf("RunLog: %v", err)
	}
	if !strings.Contains(logText, "pipeline run finished") {
		t.Fatalf("run log incomplete:\n%s", logText)
	}

	results, err := f.contents.Query(ctx, 10, catalog.ContentFilter{PipelineID: &created.ID})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 || results[0].ID != hash {
		t.Fatalf("unexpected content: %#v", results)
	}

	data, err := f.contents.VersionBytes(ctx, hash, media.VersionOriginal)
	if err != nil {
		t.Fatalf("VersionBytes: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatal("exported bytes do not match the upload")
	}
}

func TestRunRequiresStreamBinding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.pipelines.Create(ctx, "unbound", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.pipelines.Run(ctx, created.ID, api.RunOptions{}); err == nil {
		t.Fatal("expected run without a stream to fail")
	}
}

func TestRunStreamOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.streams.Add(ctx, "empty", "static", `{"records":[]}`)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	other, err := f.streams.Add(ctx, "other", "static", `{"records":[]}`)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	created, err := f.pipelines.Create(ctx, "ingest", &empty.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	run, err := f.pipelines.Run(ctx, created.ID, api.RunOptions{StreamID: &other.ID})
	if err != nil {
		t.Fatalf("Run with override: %v", err)
	}
	if run.Status != string(catalog.RunSuccessful) {
		t.Fatalf("expected Successful run, got %s", run.Status)
	}
}

func TestRunLogForMissingRun(t *testing.T) {
	f := newFixture(t)
	if _, err := f.pipelines.RunLog(context.Background(), 12345); err == nil {
		t.Fatal("expected missing run to error")
	}
}

func TestContentQueryFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pipelineID := int64(5)
	c := &media.Content{
		ID:         "hash-a",
		CreatedAt:  time.Now(),
		SourceID:   "clip-a",
		PipelineID: &pipelineID,
		Resolution: &media.Resolution{Width: 1080, Height: 1920},
		Metadata:   map[string]any{"orientation": "Tall"},
		Versions:   map[string]string{"original": "hash-a"},
	}
	if err := f.content.Save(ctx, c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	results, err := f.contents.Query(ctx, 10, catalog.ContentFilter{Orientation: media.OrientationTall})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 || results[0].Height != 1920 {
		t.Fatalf("unexpected results: %#v", results)
	}
}
