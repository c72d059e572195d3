package compute

import (
	"context"
	"encoding/json"
	"strings"

	"ghbridge/internal/domain"
	"ghbridge/internal/schema"
)

// RunInput is the input structure for the generic definition runner.
type RunInput struct {
	Definition string         `json:"definition" jsonschema:"description=Name of a configured Grasshopper definition"`
	Params     map[string]any `json:"params,omitempty" jsonschema:"description=Named input values for the definition's slots"`
}

// RunTool runs any configured Grasshopper definition by name. It delegates
// to the same per-definition adapters that are registered as standalone
// tools, so input mapping and decoding behave identically either way.
type RunTool struct {
	adapters map[string]*Adapter
	names    []string
}

// NewRunTool builds the runner over the given adapters (registration order
// preserved for the description).
func NewRunTool(adapters []*Adapter) *RunTool {
	byName := make(map[string]*Adapter, len(adapters))
	names := make([]string, 0, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
		names = append(names, a.Name())
	}
	return &RunTool{adapters: byName, names: names}
}

func (r *RunTool) Name() string { return "run_grasshopper" }

func (r *RunTool) Description() string {
	desc := "Run a configured Grasshopper definition via Rhino.Compute with named parameters"
	if len(r.names) > 0 {
		desc += ". Available definitions: " + strings.Join(r.names, ", ")
	}
	return desc
}

func (r *RunTool) Definition() string {
	return schema.Generate(RunInput{})
}

func (r *RunTool) Call(ctx context.Context, callID string, args json.RawMessage) (*domain.ToolResult, error) {
	var input RunInput
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, domain.WrapToolError(domain.KindInputMapping, err, "runner arguments")
	}
	adapter, ok := r.adapters[input.Definition]
	if !ok {
		return nil, domain.NewToolError(domain.KindInputMapping,
			"no configured definition named %q", input.Definition)
	}
	return adapter.Run(ctx, callID, input.Params)
}
