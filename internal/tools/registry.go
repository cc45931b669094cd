package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/liubx8864/supportloop/internal/llm"
)

// Handler executes one tool. A returned error means infrastructure failure
// and aborts the inference loop; domain outcomes (not found, refusals) are
// ordinary results.
type Handler func(ctx context.Context, input map[string]interface{}) (interface{}, error)

// Registry holds the static tool set declared to the model.
type Registry struct {
	defs     map[string]llm.Tool
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:     make(map[string]llm.Tool),
		handlers: make(map[string]Handler),
	}
}

// Register adds a tool definition with its handler. Duplicate names are a
// programming error.
func (r *Registry) Register(def llm.Tool, handler Handler) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("tool already registered: %s", def.Name)
	}
	if handler == nil {
		return fmt.Errorf("tool %s has no handler", def.Name)
	}

	r.defs[def.Name] = def
	r.handlers[def.Name] = handler
	return nil
}

// Definitions returns the declared tools in stable name order, ready to hand
// to the inference request.
func (r *Registry) Definitions() []llm.Tool {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]llm.Tool, 0, len(names))
	for _, name := range names {
		defs = append(defs, r.defs[name])
	}
	return defs
}

func (r *Registry) lookup(name string) (llm.Tool, Handler, bool) {
	def, ok := r.defs[name]
	if !ok {
		return llm.Tool{}, nil, false
	}
	return def, r.handlers[name], true
}
