package mcp

// Backend is the pluggable implementation behind one tool name. Invoke is a
// pure function of the arguments mapping; argument validation failures come
// back as *Error (InvalidParams), everything else as a tool result.
type Backend interface {
	// Descriptor returns the tool's entry for tools/list.
	Descriptor() Tool
	// Invoke runs the tool against a decoded arguments object.
	Invoke(args map[string]any) (*ToolCallResult, *Error)
}

// Factory creates a provider's backends with implementation-specific options.
type Factory func(opts map[string]any) ([]Backend, error)

var factories = map[string]Factory{}

// Register makes a provider available by name.
func Register(name string, f Factory) {
	factories[name] = f
}

// Lookup finds a provider factory by name.
func Lookup(name string) Factory {
	return factories[name]
}

// Registry is the static tool catalog for one server run. Built at startup,
// never mutated afterwards.
type Registry struct {
	order  []string
	byName map[string]Backend
}

func NewRegistry() *Registry {
	return &Registry{byName: map[string]Backend{}}
}

// Add appends backends, keeping registration order for tools/list. A later
// backend with a duplicate name replaces the earlier one in place.
func (r *Registry) Add(backends ...Backend) {
	for _, b := range backends {
		name := b.Descriptor().Name
		if _, exists := r.byName[name]; !exists {
			r.order = append(r.order, name)
		}
		r.byName[name] = b
	}
}

// Tools returns the descriptors in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name].Descriptor())
	}
	return out
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (Backend, bool) {
	b, ok := r.byName[name]
	return b, ok
}
