package step

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Factory constructs a step from its serialized parameters.
type Factory func(params json.RawMessage) (Step, error)

// registry is the static step-type table. Types are registered explicitly
// here rather than discovered through reflection so the set of loadable
// steps is visible in one place.
var registry = map[string]Factory{
	TypeFilter:     newFilterFromParams,
	TypeFilterSeen: newFilterSeenFromParams,
	TypeCopyVideo:  newCopyVideoFromParams,
	TypeFade:       newFadeFromParams,
	TypeDepthMap:   newDepthMapFromParams,
}

// New constructs a step from a descriptor via the registry.
func New(desc Descriptor) (Step, error) {
	factory, ok := registry[desc.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, desc.Type)
	}
	params := desc.Params
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	s, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("construct step %s: %w", desc.Type, err)
	}
	return s, nil
}

// Types lists the registered step type names, sorted.
func Types() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
