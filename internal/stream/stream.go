package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"kinetic/internal/catalog"
	"kinetic/internal/media"
	"kinetic/internal/objectstore"
)

// Stream yields normalized media records, one per call. It is lazy,
// single-pass, and finite or unbounded; Next returns io.EOF when the
// source is exhausted.
type Stream interface {
	Next(ctx context.Context) (*media.Record, error)
}

// Deps carries the infrastructure stream adapters may need.
type Deps struct {
	Objects *objectstore.Store
}

// Factory constructs a stream adapter from its stored parameters.
type Factory func(id int64, params json.RawMessage, deps Deps) (Stream, error)

// registry is the static stream-type table, mirroring the step registry.
var registry = map[string]Factory{
	TypeDirectory: newDirectoryFromParams,
	TypeStatic:    newStaticFromParams,
}

// New materializes a stream adapter from its stored definition.
func New(def *catalog.StreamDef, deps Deps) (Stream, error) {
	factory, ok := registry[def.Type]
	if !ok {
		return nil, fmt.Errorf("unknown stream type %q", def.Type)
	}
	params := json.RawMessage(def.Params)
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	s, err := factory(def.ID, params, deps)
	if err != nil {
		return nil, fmt.Errorf("construct stream %d (%s): %w", def.ID, def.Type, err)
	}
	return s, nil
}

// ValidateType reports whether a stream type is registered.
func ValidateType(streamType string) bool {
	_, ok := registry[streamType]
	return ok
}

// Types lists the registered stream type names, sorted.
func Types() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
