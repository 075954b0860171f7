package step

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"kinetic/internal/media"
)

// ErrWrongInput marks a step applied to the wrong value shape. This is a
// pipeline misconfiguration and must surface loudly rather than pass the
// value through.
var ErrWrongInput = errors.New("step input type mismatch")

// ErrUnknownType marks a descriptor whose type has no registered factory.
var ErrUnknownType = errors.New("unknown step type")

// Step is a configured unit of pipeline work. Apply returns the value for
// the next step, nil to drop the item (the filtering contract, not a
// failure), or an error to fail the item.
//
// Steps serialize losslessly to {type, params} using only their
// construction parameters; infrastructure is reached through the Env
// passed at apply time so a serialized step never embeds infra state.
type Step interface {
	Type() string
	Params() (json.RawMessage, error)
	Apply(ctx context.Context, env *Env, value media.Value) (media.Value, error)
}

// Descriptor is the durable serialized form of a step.
type Descriptor struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params"`
}

// Encode serializes a step to its durable descriptor string.
func Encode(s Step) (string, error) {
	params, err := s.Params()
	if err != nil {
		return "", fmt.Errorf("serialize %s params: %w", s.Type(), err)
	}
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	data, err := json.Marshal(Descriptor{Type: s.Type(), Params: params})
	if err != nil {
		return "", fmt.Errorf("serialize step %s: %w", s.Type(), err)
	}
	return string(data), nil
}

// Decode reconstructs a step from its descriptor string via the registry.
func Decode(encoded string) (Step, error) {
	var desc Descriptor
	if err := json.Unmarshal([]byte(encoded), &desc); err != nil {
		return nil, fmt.Errorf("decode step descriptor: %w", err)
	}
	return New(desc)
}

// DecodeAll materializes an ordered step chain from stored descriptors.
func DecodeAll(encoded []string) ([]Step, error) {
	steps := make([]Step, 0, len(encoded))
	for i, raw := range encoded {
		s, err := Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		steps = append(steps, s)
	}
	return steps, nil
}

func wantRecord(stepType string, value media.Value) (*media.Record, error) {
	record, ok := value.(*media.Record)
	if !ok {
		return nil, fmt.Errorf("%w: %s accepts stream media, got %T", ErrWrongInput, stepType, value)
	}
	return record, nil
}

func wantContent(stepType string, value media.Value) (*media.Content, error) {
	c, ok := value.(*media.Content)
	if !ok {
		return nil, fmt.Errorf("%w: %s accepts content, got %T", ErrWrongInput, stepType, value)
	}
	return c, nil
}

func marshalParams(params any) (json.RawMessage, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return data, nil
}
