package tooling

import (
	"encoding/json"
	"fmt"

	"ghbridge/internal/domain"
)

// ToolRegistry holds SchemaTool implementations keyed by name and remembers
// registration order, which is the order discovery clients see. All
// registration happens during server initialization; Seal makes that
// explicit, after which the read path needs no locking.
type ToolRegistry struct {
	tools  map[string]SchemaTool
	order  []string
	sealed bool
}

// NewToolRegistry returns an empty, ready-to-use registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]SchemaTool)}
}

// Register adds a tool. Returns an error if the tool is nil, the registry is
// sealed, or a tool with the same name is already registered.
func (r *ToolRegistry) Register(tool SchemaTool) error {
	if tool == nil {
		return fmt.Errorf("tool must not be nil")
	}
	if r.sealed {
		return fmt.Errorf("registry is sealed; tools register at startup only")
	}
	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return domain.NewToolError(domain.KindDuplicateToolName, "tool %q is already registered", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Seal marks initialization as finished. Further Register calls fail.
func (r *ToolRegistry) Seal() { r.sealed = true }

// Get returns the tool with the given name or an unknown_tool error.
func (r *ToolRegistry) Get(name string) (SchemaTool, error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, domain.NewToolError(domain.KindUnknownTool, "unknown tool: %q", name)
	}
	return tool, nil
}

// List returns all registered tools in registration order.
func (r *ToolRegistry) List() []SchemaTool {
	out := make([]SchemaTool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Definitions returns domain.ToolDefinition for every registered tool, in
// registration order, suitable for the tools/list discovery response.
func (r *ToolRegistry) Definitions() []domain.ToolDefinition {
	out := make([]domain.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, domain.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: json.RawMessage(t.Definition()),
		})
	}
	return out
}
