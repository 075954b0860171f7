package content_test

import (
	"context"
	"testing"
	"time"

	"kinetic/internal/catalog"
	"kinetic/internal/content"
	"kinetic/internal/media"
	"kinetic/internal/testsupport"
)

func newService(t *testing.T) *content.Service {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	objects := testsupport.MustOpenObjects(t, cfg)
	return content.NewService(store, objects)
}

func int64Ptr(v int64) *int64 { return &v }

func TestBuildStoresBlobsWithoutCatalogRow(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	c, err := svc.Build(ctx, content.BuildParams{
		Original:  []byte("original bytes"),
		CreatedAt: time.Now(),
		SourceID:  "clip-1",
		StreamID:  int64Ptr(2),
		Versions:  map[string][]byte{"poster": []byte("poster bytes")},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if c.ID == "" || c.Versions["original"] != c.ID {
		t.Fatalf("content id must be the original hash: %#v", c)
	}
	if !svc.Objects().Exists(c.Versions["poster"]) {
		t.Fatal("poster blob not stored")
	}
	if c.ProcessedAt.IsZero() {
		t.Fatal("processed_at not stamped")
	}

	// Build must not persist the catalog row; that is the engine's call.
	results, err := svc.Query(ctx, 10, catalog.ContentFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no catalog rows before Save, got %d", len(results))
	}
}

func TestBuildRequiresOriginalBytes(t *testing.T) {
	svc := newService(t)
	if _, err := svc.Build(context.Background(), content.BuildParams{}); err == nil {
		t.Fatal("expected error without original bytes")
	}
}

func TestBuildIsIdempotentForIdenticalBytes(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	first, err := svc.Build(ctx, content.BuildParams{Original: []byte("same"), CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := svc.Build(ctx, content.BuildParams{Original: []byte("same"), CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("identical bytes produced different ids: %s vs %s", first.ID, second.ID)
	}
}

func TestSeen(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	c := &media.Content{
		ID:         "hash",
		CreatedAt:  time.Now(),
		SourceID:   "clip-1",
		StreamID:   int64Ptr(2),
		PipelineID: int64Ptr(7),
		Versions:   map[string]string{"original": "hash"},
	}
	if err := svc.Save(ctx, c); err != nil {
		t.Fatalf("Save: %v", err)
	}

	seen, err := svc.Seen(ctx, "clip-1", 2, nil)
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if !seen {
		t.Fatal("expected saved content to count as seen")
	}

	seen, err = svc.Seen(ctx, "clip-1", 3, nil)
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if seen {
		t.Fatal("a different stream must not count as seen")
	}

	seen, err = svc.Seen(ctx, "clip-1", 2, int64Ptr(8))
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if seen {
		t.Fatal("a different pipeline must not count as seen")
	}
}
