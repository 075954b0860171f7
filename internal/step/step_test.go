package step_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"kinetic/internal/content"
	"kinetic/internal/media"
	"kinetic/internal/step"
	"kinetic/internal/testsupport"
)

func int64Ptr(v int64) *int64 { return &v }

func mustFilter(t *testing.T, expression string) *step.Filter {
	t.Helper()
	f, err := step.NewFilter(expression)
	if err != nil {
		t.Fatalf("NewFilter(%q): %v", expression, err)
	}
	return f
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	steps := []step.Step{
		mustFilter(t, `is_video == true`),
		step.NewFilterSeen(int64Ptr(4)),
		step.NewFilterSeen(nil),
		step.NewCopyVideo(),
		step.NewFade(2.5, 900, 1080, 1920),
		step.NewDepthMap("http://inference.local"),
	}

	for _, original := range steps {
		encoded, err := step.Encode(original)
		if err != nil {
			t.Fatalf("Encode %s: %v", original.Type(), err)
		}
		decoded, err := step.Decode(encoded)
		if err != nil {
			t.Fatalf("Decode %s: %v", original.Type(), err)
		}
		if decoded.Type() != original.Type() {
			t.Fatalf("type changed through round trip: %s -> %s", original.Type(), decoded.Type())
		}
		reencoded, err := step.Encode(decoded)
		if err != nil {
			t.Fatalf("re-Encode %s: %v", original.Type(), err)
		}
		if reencoded != encoded {
			t.Fatalf("%s not stable through round trip:\n  %s\n  %s", original.Type(), encoded, reencoded)
		}
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := step.Decode(`{"type":"transmogrify","params":{}}`)
	if !errors.Is(err, step.ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestDecodeRejectsBadParams(t *testing.T) {
	if _, err := step.Decode(`{"type":"filter","params":{"expression":""}}`); err == nil {
		t.Fatal("expected empty expression to be rejected at decode time")
	}
}

func TestDecodeAllPreservesOrder(t *testing.T) {
	encoded := []string{
		`{"type":"filter","params":{"expression":"is_video == true"}}`,
		`{"type":"copy_video","params":{}}`,
	}
	steps, err := step.DecodeAll(encoded)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(steps) != 2 || steps[0].Type() != step.TypeFilter || steps[1].Type() != step.TypeCopyVideo {
		t.Fatalf("unexpected chain: %v", stepTypes(steps))
	}
}

func stepTypes(steps []step.Step) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		out = append(out, s.Type())
	}
	return out
}

func TestTypesIsSorted(t *testing.T) {
	types := step.Types()
	if len(types) < 5 {
		t.Fatalf("expected the built-in steps to be registered, got %v", types)
	}
	if !strings.Contains(strings.Join(types, ","), step.TypeCopyVideo) {
		t.Fatalf("copy_video missing from %v", types)
	}
	for i := 1; i < len(types); i++ {
		if types[i-1] >= types[i] {
			t.Fatalf("types not sorted: %v", types)
		}
	}
}

func TestFilterDropsNonMatching(t *testing.T) {
	f := mustFilter(t, `is_video == true`)
	env := &step.Env{}

	kept, err := f.Apply(context.Background(), env, &media.Record{Identifier: "a", IsVideo: true})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if kept == nil {
		t.Fatal("expected matching record to pass through")
	}

	dropped, err := f.Apply(context.Background(), env, &media.Record{Identifier: "b", IsVideo: false})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if dropped != nil {
		t.Fatal("expected non-matching record to be dropped")
	}
}

func TestFilterMatchesContentMetadata(t *testing.T) {
	f := mustFilter(t, `metadata.orientation == "Wide"`)
	c := &media.Content{
		ID:       "hash",
		Metadata: map[string]any{"orientation": "Wide"},
		Versions: map[string]string{"original": "hash"},
	}
	kept, err := f.Apply(context.Background(), &step.Env{}, c)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if kept != c {
		t.Fatal("expected content to pass through")
	}
}

func TestFilterSeenDropsProcessedMedia(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	objects := testsupport.MustOpenObjects(t, cfg)
	svc := content.NewService(store, objects)
	ctx := context.Background()

	seen := &media.Content{
		ID:         "hash-1",
		CreatedAt:  time.Now(),
		SourceID:   "clip-1",
		StreamID:   int64Ptr(2),
		PipelineID: int64Ptr(9),
		Versions:   map[string]string{"original": "hash-1"},
	}
	if err := svc.Save(ctx, seen); err != nil {
		t.Fatalf("Save: %v", err)
	}

	env := &step.Env{Content: svc}

	t.Run("any pipeline", func(t *testing.T) {
		f := step.NewFilterSeen(nil)
		out, err := f.Apply(ctx, env, &media.Record{Identifier: "clip-1", StreamID: 2})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if out != nil {
			t.Fatal("expected processed media to be dropped")
		}
	})

	t.Run("scoped to pipeline", func(t *testing.T) {
		f := step.NewFilterSeen(int64Ptr(5))
		out, err := f.Apply(ctx, env, &media.Record{Identifier: "clip-1", StreamID: 2})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if out == nil {
			t.Fatal("content from another pipeline should not count as seen")
		}
	})

	t.Run("unseen media passes", func(t *testing.T) {
		f := step.NewFilterSeen(nil)
		record := &media.Record{Identifier: "clip-2", StreamID: 2}
		out, err := f.Apply(ctx, env, record)
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if out != record {
			t.Fatal("expected unseen media to pass through")
		}
	})
}

func TestFilterSeenRejectsContentInput(t *testing.T) {
	f := step.NewFilterSeen(nil)
	_, err := f.Apply(context.Background(), &step.Env{}, &media.Content{ID: "x"})
	if !errors.Is(err, step.ErrWrongInput) {
		t.Fatalf("expected ErrWrongInput, got %v", err)
	}
}
