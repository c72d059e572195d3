package tooling

import (
	"context"
	"encoding/json"
	"fmt"

	"ghbridge/internal/domain"
	"ghbridge/internal/geocode"
	"ghbridge/internal/schema"
)

// LocateInput is the input structure for the locate tool.
type LocateInput struct {
	Location      string  `json:"location" jsonschema:"description=Location name or 'lat, lon' coordinates"`
	BoxSizeMeters float64 `json:"boxSizeMeters,omitempty" jsonschema:"minimum=0,description=Bounding box side length in meters (default 100)"`
}

// LocateTool converts a human-readable location into an Overpass API URL
// with a bounding box, suitable as input for the context generator.
type LocateTool struct {
	geocoder *geocode.Geocoder
}

func NewLocateTool(g *geocode.Geocoder) *LocateTool {
	return &LocateTool{geocoder: g}
}

func (l *LocateTool) Name() string { return "locate" }

func (l *LocateTool) Description() string {
	return "Convert a location name, address, or intersection into an Overpass API URL with a bounding box"
}

func (l *LocateTool) Definition() string {
	return schema.Generate(LocateInput{})
}

func (l *LocateTool) Call(ctx context.Context, _ string, args json.RawMessage) (*domain.ToolResult, error) {
	var input LocateInput
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}

	overpassURL, err := l.geocoder.LocationToOverpassURL(ctx, input.Location, input.BoxSizeMeters)
	if err != nil {
		return nil, err
	}

	return &domain.ToolResult{
		Data:     overpassURL,
		Metadata: map[string]string{"location": input.Location},
	}, nil
}
