package compute

import (
	"context"
	"encoding/json"
	"fmt"

	"ghbridge/internal/artifact"
	"ghbridge/internal/domain"
	"ghbridge/internal/geocode"
	"ghbridge/internal/schema"
)

// Defaults matching the context-generator definition's slot names.
const (
	defaultContextInput  = "osmURL"
	defaultContextOutput = "RH_OUT:context_model_3dm"
	defaultBoxSize       = 100
)

// ContextInput is the input structure for the generate_context tool.
type ContextInput struct {
	Location      string  `json:"location" jsonschema:"description=Location name or 'lat, lon' coordinates"`
	BoxSizeMeters float64 `json:"boxSizeMeters,omitempty" jsonschema:"minimum=0,description=Bounding box side length in meters"`
}

// ContextTool generates a 3D context model for a location: it geocodes the
// location into an Overpass map URL, feeds that to the context-generator
// Grasshopper definition, and persists the returned 3dm model as an
// artifact.
type ContextTool struct {
	cfg      domain.ContextGenConfig
	geocoder *geocode.Geocoder
	client   *Client
	store    *artifact.Store
}

// NewContextTool builds the tool, filling unset slot names with the
// definition's conventional defaults.
func NewContextTool(cfg domain.ContextGenConfig, g *geocode.Geocoder, client *Client, store *artifact.Store) *ContextTool {
	if cfg.Input == "" {
		cfg.Input = defaultContextInput
	}
	if cfg.Output == "" {
		cfg.Output = defaultContextOutput
	}
	if cfg.BoxSize <= 0 {
		cfg.BoxSize = defaultBoxSize
	}
	return &ContextTool{cfg: cfg, geocoder: g, client: client, store: store}
}

func (t *ContextTool) Name() string { return "generate_context" }

func (t *ContextTool) Description() string {
	return "Generate a 3D context model (3dm) for a location from OpenStreetMap data"
}

func (t *ContextTool) Definition() string {
	return schema.Generate(ContextInput{})
}

func (t *ContextTool) Call(ctx context.Context, callID string, args json.RawMessage) (*domain.ToolResult, error) {
	var input ContextInput
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, domain.WrapToolError(domain.KindInputMapping, err, "context arguments")
	}
	boxSize := input.BoxSizeMeters
	if boxSize <= 0 {
		boxSize = t.cfg.BoxSize
	}

	overpassURL, err := t.geocoder.LocationToOverpassURL(ctx, input.Location, boxSize)
	if err != nil {
		return nil, err
	}

	param, err := FormatParam(t.cfg.Input, overpassURL)
	if err != nil {
		return nil, err
	}
	result, err := t.client.Evaluate(ctx, t.cfg.Pointer, []Param{param})
	if err != nil {
		return nil, err
	}

	model, err := t.extractModel(result)
	if err != nil {
		return nil, err
	}

	ref, err := t.store.Save(callID, "context_model.3dm", model)
	if err != nil {
		return nil, err
	}

	return &domain.ToolResult{
		Data: fmt.Sprintf("Generated context model for %q (%.0fm box).\nArtifact: %s (%s, %d bytes)",
			input.Location, boxSize, ref.ID, ref.MediaType, ref.Size),
		Metadata: map[string]string{"location": input.Location},
		Artifact: ref,
	}, nil
}

// extractModel finds the configured model output and decodes its 3dm bytes.
func (t *ContextTool) extractModel(result *Result) ([]byte, error) {
	for _, out := range result.Values {
		if out.ParamName != t.cfg.Output {
			continue
		}
		values, err := DecodeParam(out)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			if v.Kind == ValueBinary {
				return v.Bytes, nil
			}
		}
	}
	return nil, domain.NewToolError(domain.KindOutputDecoding,
		"no %s model found in compute response", t.cfg.Output)
}
