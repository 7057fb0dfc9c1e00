package protocol

import (
	"context"
	"sort"
	"sync"
)

// Handler executes a tool. Returning a *ToolError controls the reported
// error kind; any other error is reported as ToolExecutionFailed.
type Handler interface {
	Handle(ctx context.Context, params Params) (any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, params Params) (any, error)

// Handle calls f(ctx, params).
func (f HandlerFunc) Handle(ctx context.Context, params Params) (any, error) {
	return f(ctx, params)
}

// Tool is a named capability registered by an agent.
type Tool struct {
	Name        string
	Owner       string
	Description string
	Handler     Handler
}

// Registry maps tool names to their registrations.
// A later registration under the same name replaces the earlier one.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register binds tool.Name to the tool and reports whether a previous
// binding was replaced.
func (r *Registry) Register(tool Tool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, replaced := r.tools[tool.Name]
	r.tools[tool.Name] = tool
	return replaced
}

// Unregister removes the binding for name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Lookup returns the tool bound to name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns all registrations sorted by name.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
