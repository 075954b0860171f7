package pipeline_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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

// memoryStream feeds a fixed record list and counts consumption.
type memoryStream struct {
	records []*media.Record
	next    int
}

func (s *memoryStream) Next(ctx context.Context) (*media.Record, error) {
	if s.next >= len(s.records) {
		return nil, io.EOF
	}
	r := s.records[s.next]
	s.next++
	return r, nil
}

type engineFixture struct {
	cfg     *config.Config
	store   *catalog.Store
	objects *objectstore.Store
	content *content.Service
	engine  *pipeline.Engine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	objects := testsupport.MustOpenObjects(t, cfg)
	svc := content.NewService(store, objects)

	logger, err := logging.New(logging.Options{Writer: io.Discard})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	env := &step.Env{
		Objects: objects,
		Content: svc,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
	return &engineFixture{
		cfg:     cfg,
		store:   store,
		objects: objects,
		content: svc,
		engine:  pipeline.New(store, objects, env, logger),
	}
}

func (f *engineFixture) makePipeline(t *testing.T, steps ...string) *catalog.Pipeline {
	t.Helper()
	ctx := context.Background()
	id, err := f.store.CreatePipeline(ctx, "test-pipeline", nil)
	if err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}
	for _, s := range steps {
		if err := f.store.AppendStep(ctx, id, s); err != nil {
			t.Fatalf("AppendStep: %v", err)
		}
	}
	p, err := f.store.GetPipeline(ctx, id)
	if err != nil {
		t.Fatalf("GetPipeline: %v", err)
	}
	return p
}

func (f *engineFixture) uploadRecord(t *testing.T, payload []byte) *media.Record {
	t.Helper()
	hash, err := f.objects.Put(payload)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	return &media.Record{
		Identifier: hash,
		StreamID:   1,
		IsVideo:    true,
		CreatedAt:  time.Now(),
	}
}

func (f *engineFixture) lastRun(t *testing.T, pipelineID int64) *catalog.Run {
	t.Helper()
	runs, err := f.store.ListRuns(context.Background(), catalog.RunFilter{PipelineID: &pipelineID, Limit: 1})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) == 0 {
		t.Fatal("expected a recorded run")
	}
	return runs[0]
}

const copyVideoStep = `{"type":"copy_video","params":{}}`

func TestRunPersistsContentAndRecordsHistory(t *testing.T) {
	f := newEngineFixture(t)
	p := f.makePipeline(t, copyVideoStep)
	src := &memoryStream{records: []*media.Record{f.uploadRecord(t, []byte("video one"))}}

	if err := f.engine.Run(context.Background(), p, src, 0); err != nil {
		t.Fatalf("Run: %v", err)
	}

	run := f.lastRun(t, p.ID)
	if run.Status != catalog.RunSuccessful {
		t.Fatalf("expected Successful run, got %s", run.Status)
	}
	logData, err := f.objects.Get(run.LogHash)
	if err != nil {
		t.Fatalf("run log not stored: %v", err)
	}
	if len(logData) == 0 {
		t.Fatal("run log is empty")
	}

	results, err := f.store.QueryContent(context.Background(), 10, catalog.ContentFilter{PipelineID: &p.ID})
	if err != nil {
		t.Fatalf("QueryContent: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one content row stamped with the pipeline, got %d", len(results))
	}
}

func TestRunFailsWhenEveryItemFails(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	f := newEngineFixture(t)
	p := f.makePipeline(t, copyVideoStep)
	src := &memoryStream{records: []*media.Record{
		{Identifier: "bad-1", IsVideo: true, URL: server.URL + "/gone-1.mp4"},
		{Identifier: "bad-2", IsVideo: true, URL: server.URL + "/gone-2.mp4"},
	}}

	err := f.engine.Run(context.Background(), p, src, 0)
	if !errors.Is(err, pipeline.ErrAllItemsFailed) {
		t.Fatalf("expected ErrAllItemsFailed, got %v", err)
	}

	run := f.lastRun(t, p.ID)
	if run.Status != catalog.RunFailed {
		t.Fatalf("expected Failed run, got %s", run.Status)
	}
	if _, err := f.objects.Get(run.LogHash); err != nil {
		t.Fatalf("failed run must still store its log: %v", err)
	}
}

func TestRunToleratesPartialFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	f := newEngineFixture(t)
	p := f.makePipeline(t, copyVideoStep)
	src := &memoryStream{records: []*media.Record{
		{Identifier: "bad", IsVideo: true, URL: server.URL + "/gone.mp4"},
		f.uploadRecord(t, []byte("good video")),
	}}

	if err := f.engine.Run(context.Background(), p, src, 0); err != nil {
		t.Fatalf("partial failure must not fail the run: %v", err)
	}

	if run := f.lastRun(t, p.ID); run.Status != catalog.RunSuccessful {
		t.Fatalf("expected Successful run, got %s", run.Status)
	}
	results, err := f.store.QueryContent(context.Background(), 10, catalog.ContentFilter{PipelineID: &p.ID})
	if err != nil {
		t.Fatalf("QueryContent: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one content row, got %d", len(results))
	}
}

func TestRunDroppedItemsAreNotFailures(t *testing.T) {
	f := newEngineFixture(t)
	p := f.makePipeline(t, copyVideoStep)
	src := &memoryStream{records: []*media.Record{
		{Identifier: "photo-1", IsVideo: false},
		{Identifier: "photo-2", IsVideo: false},
	}}

	if err := f.engine.Run(context.Background(), p, src, 0); err != nil {
		t.Fatalf("dropped items must not fail the run: %v", err)
	}
	if run := f.lastRun(t, p.ID); run.Status != catalog.RunSuccessful {
		t.Fatalf("expected Successful run, got %s", run.Status)
	}
}

func TestRunHonorsItemLimit(t *testing.T) {
	f := newEngineFixture(t)
	p := f.makePipeline(t, copyVideoStep)
	src := &memoryStream{records: []*media.Record{
		f.uploadRecord(t, []byte("one")),
		f.uploadRecord(t, []byte("two")),
		f.uploadRecord(t, []byte("three")),
	}}

	if err := f.engine.Run(context.Background(), p, src, 2); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if src.next != 2 {
		t.Fatalf("expected exactly 2 items consumed, got %d", src.next)
	}
	results, err := f.store.QueryContent(context.Background(), 10, catalog.ContentFilter{PipelineID: &p.ID})
	if err != nil {
		t.Fatalf("QueryContent: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 content rows, got %d", len(results))
	}
}

func TestRunFailsWhenChainCreatesNoContent(t *testing.T) {
	f := newEngineFixture(t)
	p := f.makePipeline(t, `{"type":"filter","params":{"expression":"is_video == true"}}`)
	src := &memoryStream{records: []*media.Record{
		{Identifier: "clip", IsVideo: true},
	}}

	// The item survives the filter but no creator step ran, which is a
	// misconfigured chain: the lone item fails, so the whole run fails.
	err := f.engine.Run(context.Background(), p, src, 0)
	if !errors.Is(err, pipeline.ErrAllItemsFailed) {
		t.Fatalf("expected ErrAllItemsFailed, got %v", err)
	}
}

func TestRunFailsOnUnknownStepType(t *testing.T) {
	f := newEngineFixture(t)
	p := f.makePipeline(t)
	p.Steps = []string{`{"type":"transmogrify","params":{}}`}
	src := &memoryStream{records: []*media.Record{{Identifier: "clip", IsVideo: true}}}

	err := f.engine.Run(context.Background(), p, src, 0)
	if err == nil {
		t.Fatal("expected run to fail on an unknown step type")
	}
	if errors.Is(err, pipeline.ErrAllItemsFailed) {
		t.Fatal("step materialization failure is a run failure, not an item failure")
	}
	if src.next != 0 {
		t.Fatal("no items should be consumed when the chain cannot be built")
	}
	if run := f.lastRun(t, p.ID); run.Status != catalog.RunFailed {
		t.Fatalf("expected Failed run, got %s", run.Status)
	}
}
