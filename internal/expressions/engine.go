// Package expressions provides the pluggable engines transform nodes use
// to reshape the value flowing through a workflow run.
package expressions

import (
	"context"

	"github.com/rendis/flowforge/pkg/schema"
)

// Engine evaluates a transform expression against the data visible to a
// node. Implementations must be safe for concurrent use, a single engine
// instance is shared across runs.
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// Registry maps engine names from workflow documents to live engines.
type Registry struct {
	engines map[string]Engine
	fall    Engine
}

// NewRegistry builds a registry with the jq and expr engines installed.
// jq is the fallback for documents that omit the engine field.
func NewRegistry() *Registry {
	jq := NewJQEngine()
	ex := NewExprEngine()
	return &Registry{
		engines: map[string]Engine{
			jq.Name(): jq,
			ex.Name(): ex,
		},
		fall: jq,
	}
}

// ForName returns the engine registered under name, or the fallback when
// name is empty.
func (r *Registry) ForName(name string) (Engine, error) {
	if name == "" {
		return r.fall, nil
	}
	engine, ok := r.engines[name]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown transform engine %q", name)
	}
	return engine, nil
}
