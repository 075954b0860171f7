package step

import (
	"context"
	"encoding/json"
	"fmt"

	"kinetic/internal/media"
)

// TypeFilter drops items that do not match a restricted metadata
// expression. It accepts either value shape.
const TypeFilter = "filter"

type filterParams struct {
	Expression string `json:"expression"`
}

// Filter keeps items matching its expression and drops the rest.
type Filter struct {
	expr *Expression
}

// NewFilter builds a filter step from an expression.
func NewFilter(expression string) (*Filter, error) {
	expr, err := ParseExpression(expression)
	if err != nil {
		return nil, err
	}
	return &Filter{expr: expr}, nil
}

func newFilterFromParams(raw json.RawMessage) (Step, error) {
	var params filterParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	return NewFilter(params.Expression)
}

func (f *Filter) Type() string { return TypeFilter }

func (f *Filter) Params() (json.RawMessage, error) {
	return marshalParams(filterParams{Expression: f.expr.Source()})
}

func (f *Filter) Apply(ctx context.Context, env *Env, value media.Value) (media.Value, error) {
	doc, err := documentOf(value)
	if err != nil {
		return nil, err
	}
	if f.expr.Match(doc) {
		return value, nil
	}
	env.stepLog(TypeFilter).Debug("dropping item", "expression", f.expr.Source())
	return nil, nil
}

// documentOf flattens a pipeline value into the generic form expressions
// evaluate against.
func documentOf(value media.Value) (map[string]any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("flatten item for filtering: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("flatten item for filtering: %w", err)
	}
	return doc, nil
}
