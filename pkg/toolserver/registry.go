package toolserver

import "fmt"

// Registry is the static tool catalog. It is built once at process start
// and read-only afterwards; duplicate names are a startup-time
// programming error, not a runtime condition.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Panics on a duplicate name or missing handler;
// both are programming errors surfaced at startup.
func (r *Registry) Register(tool Tool) {
	if tool.Name == "" {
		panic("toolserver: tool with empty name")
	}
	if tool.Handler == nil {
		panic(fmt.Sprintf("toolserver: tool %q has no handler", tool.Name))
	}
	if _, exists := r.tools[tool.Name]; exists {
		panic(fmt.Sprintf("toolserver: duplicate tool name %q", tool.Name))
	}
	r.order = append(r.order, tool.Name)
	r.tools[tool.Name] = tool
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns all tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }
