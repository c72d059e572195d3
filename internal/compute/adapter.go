package compute

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"ghbridge/internal/artifact"
	"ghbridge/internal/domain"
)

// Adapter exposes one Grasshopper definition as a SchemaTool: one adapter
// instance per target definition. It maps validated arguments onto the
// definition's declared input slots by name, submits a synchronous job, and
// decodes the result into a text summary plus at most one persisted
// artifact.
type Adapter struct {
	def       domain.DefinitionConfig
	client    *Client
	store     *artifact.Store
	schemaStr string
}

// NewAdapter builds the adapter and its input schema from the definition's
// declared slots.
func NewAdapter(def domain.DefinitionConfig, client *Client, store *artifact.Store) *Adapter {
	return &Adapter{
		def:       def,
		client:    client,
		store:     store,
		schemaStr: buildSlotSchema(def.Inputs),
	}
}

func (a *Adapter) Name() string { return a.def.Name }

func (a *Adapter) Description() string {
	if a.def.Description != "" {
		return a.def.Description
	}
	return fmt.Sprintf("Run the %s Grasshopper definition via Rhino.Compute", a.def.Name)
}

func (a *Adapter) Definition() string { return a.schemaStr }

// buildSlotSchema renders a JSON Schema for the definition's input slots.
// Definitions are configured, not reflected from Go structs, so the schema
// is assembled directly.
func buildSlotSchema(slots []domain.InputSlotConfig) string {
	props := make(map[string]any, len(slots))
	var required []string
	for _, slot := range slots {
		prop := map[string]any{"type": slotJSONType(slot.Type)}
		if slot.Description != "" {
			prop["description"] = slot.Description
		}
		props[slot.Name] = prop
		if slot.Required {
			required = append(required, slot.Name)
		}
	}
	s := map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return ""
	}
	return string(out)
}

func slotJSONType(t string) string {
	switch t {
	case "number", "integer", "string", "boolean":
		return t
	default:
		return "string"
	}
}

func (a *Adapter) Call(ctx context.Context, callID string, args json.RawMessage) (*domain.ToolResult, error) {
	var in map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, domain.WrapToolError(domain.KindInputMapping, err, "arguments for %s", a.def.Name)
		}
	}
	return a.Run(ctx, callID, in)
}

// Run maps the arguments, submits the job, and decodes the outcome. It is
// the entry point shared by the adapter's own Call and the generic runner
// tool.
func (a *Adapter) Run(ctx context.Context, callID string, in map[string]any) (*domain.ToolResult, error) {
	params, err := a.mapInputs(in)
	if err != nil {
		return nil, err
	}
	result, err := a.client.Evaluate(ctx, a.def.Pointer, params)
	if err != nil {
		return nil, err
	}
	return a.decodeResult(callID, result)
}

// mapInputs binds arguments to declared slots by name. Unknown names and
// unrepresentable values are rejected here, before any network submission:
// a job spec's inputs must be a strict subset of the declared slot set.
func (a *Adapter) mapInputs(in map[string]any) ([]Param, error) {
	declared := make(map[string]domain.InputSlotConfig, len(a.def.Inputs))
	for _, slot := range a.def.Inputs {
		declared[slot.Name] = slot
	}
	for name := range in {
		if _, ok := declared[name]; !ok {
			return nil, domain.NewToolError(domain.KindInputMapping,
				"definition %s has no input slot %q", a.def.Name, name)
		}
	}

	params := make([]Param, 0, len(a.def.Inputs))
	for _, slot := range a.def.Inputs {
		value, ok := in[slot.Name]
		if !ok {
			if slot.Required {
				return nil, domain.NewToolError(domain.KindInputMapping,
					"definition %s requires input %q", a.def.Name, slot.Name)
			}
			continue
		}
		coerced, err := coerceSlotValue(slot, value)
		if err != nil {
			return nil, err
		}
		param, err := FormatParam(slot.Name, coerced)
		if err != nil {
			return nil, err
		}
		params = append(params, param)
	}
	return params, nil
}

// coerceSlotValue checks a JSON-decoded value against the slot's declared
// type. JSON numbers arrive as float64; integer slots additionally require a
// whole value.
func coerceSlotValue(slot domain.InputSlotConfig, value any) (any, error) {
	mismatch := func() error {
		return domain.NewToolError(domain.KindInputMapping,
			"input %q expects %s, got %T", slot.Name, slot.Type, value)
	}
	switch slot.Type {
	case "number":
		v, ok := value.(float64)
		if !ok {
			return nil, mismatch()
		}
		return v, nil
	case "integer":
		v, ok := value.(float64)
		if !ok || v != float64(int64(v)) {
			return nil, mismatch()
		}
		return int64(v), nil
	case "boolean":
		v, ok := value.(bool)
		if !ok {
			return nil, mismatch()
		}
		return v, nil
	default: // string
		v, ok := value.(string)
		if !ok {
			return nil, mismatch()
		}
		return v, nil
	}
}

// decodeResult turns the job result into a client-facing summary and, when
// the outputs include geometry, one aggregated artifact. A lone 3dm model is
// persisted as-is; everything else geometric is flattened in branch-then-item
// order and serialized into a single JSON artifact.
func (a *Adapter) decodeResult(callID string, result *Result) (*domain.ToolResult, error) {
	if len(result.Values) == 0 {
		return nil, domain.NewToolError(domain.KindOutputDecoding,
			"no output values in compute response for %s", a.def.Name)
	}

	type geomEntry struct {
		Output string          `json:"output"`
		Kind   string          `json:"kind"`
		Data   json.RawMessage `json:"data"`
	}
	var (
		lines       []string
		geometry    []geomEntry
		modelBytes  []byte
		modelCount  int
		scalarCount int
	)

	for _, out := range result.Values {
		values, err := DecodeParam(out)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			switch v.Kind {
			case ValueNumber, ValueText:
				scalarCount++
				lines = append(lines, fmt.Sprintf("%s: %s", out.ParamName, v.Text))
			case ValueGeometry:
				geometry = append(geometry, geomEntry{Output: out.ParamName, Kind: "geometry", Data: v.JSON})
			case ValueBinary:
				modelCount++
				modelBytes = v.Bytes
				encoded, _ := json.Marshal(base64.StdEncoding.EncodeToString(v.Bytes))
				geometry = append(geometry, geomEntry{Output: out.ParamName, Kind: "model", Data: encoded})
			}
		}
	}

	var ref *domain.ArtifactRef
	switch {
	case modelCount == 1 && len(geometry) == 1:
		// The single output is a whole 3dm model; keep its native form.
		saved, err := a.store.Save(callID, "model.3dm", modelBytes)
		if err != nil {
			return nil, err
		}
		ref = saved
	case len(geometry) > 0:
		aggregated, err := json.MarshalIndent(geometry, "", "  ")
		if err != nil {
			return nil, domain.WrapToolError(domain.KindOutputDecoding, err, "aggregate outputs for %s", a.def.Name)
		}
		saved, err := a.store.Save(callID, "objects.json", aggregated)
		if err != nil {
			return nil, err
		}
		ref = saved
	}

	summary := fmt.Sprintf("Definition %s produced %d scalar output(s) and %d geometry object(s).",
		a.def.Name, scalarCount, len(geometry))
	if len(lines) > 0 {
		summary += "\n" + strings.Join(lines, "\n")
	}
	if ref != nil {
		summary += fmt.Sprintf("\nArtifact: %s (%s, %d bytes)", ref.ID, ref.MediaType, ref.Size)
	}

	return &domain.ToolResult{
		Data: summary,
		Metadata: map[string]string{
			"definition": a.def.Name,
			"scalars":    fmt.Sprintf("%d", scalarCount),
			"geometry":   fmt.Sprintf("%d", len(geometry)),
		},
		Artifact: ref,
	}, nil
}
