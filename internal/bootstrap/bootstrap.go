// Package bootstrap assembles the tool registry and its collaborators from
// configuration. All registration happens here, once, before any transport
// accepts a call; the registry is sealed afterwards.
package bootstrap

import (
	"fmt"
	"log/slog"

	"ghbridge/internal/artifact"
	"ghbridge/internal/compute"
	"ghbridge/internal/domain"
	"ghbridge/internal/geocode"
	"ghbridge/internal/tooling"
)

// BuildRegistry constructs every tool the server exposes, in a stable
// registration order: pure tools first, then one tool per configured
// Grasshopper definition, then the compute conveniences.
func BuildRegistry(cfg *domain.Config, logger *slog.Logger) (*tooling.ToolRegistry, error) {
	store, err := artifact.NewStore(cfg.Artifacts.Dir)
	if err != nil {
		return nil, err
	}
	client := compute.NewClient(cfg.Compute, compute.WithLogger(logger))
	geocoder := geocode.New()

	registry := tooling.NewToolRegistry()
	register := func(t tooling.SchemaTool) error {
		if err := registry.Register(t); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
		return nil
	}

	if err := register(&tooling.CalculatorTool{}); err != nil {
		return nil, err
	}
	if err := register(tooling.NewWeatherTool(cfg.Weather.APIKey)); err != nil {
		return nil, err
	}
	if err := register(tooling.NewLocateTool(geocoder)); err != nil {
		return nil, err
	}

	adapters := make([]*compute.Adapter, 0, len(cfg.Definitions))
	for _, def := range cfg.Definitions {
		adapter := compute.NewAdapter(def, client, store)
		if err := register(adapter); err != nil {
			return nil, err
		}
		adapters = append(adapters, adapter)
	}
	if len(adapters) > 0 {
		if err := register(compute.NewRunTool(adapters)); err != nil {
			return nil, err
		}
	}
	if cfg.ContextGen.Pointer != "" {
		if err := register(compute.NewContextTool(cfg.ContextGen, geocoder, client, store)); err != nil {
			return nil, err
		}
	}

	registry.Seal()
	logger.Info("tool registry built", "tools", len(registry.List()))
	return registry, nil
}
