// Package config loads the ghbridge YAML configuration. Configuration is
// read once at startup and treated as immutable for the process lifetime.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"ghbridge/internal/domain"
)

// WriteDefault writes a default Config to path (e.g. ghbridge.yaml).
// Parent directories are not created.
func WriteDefault(path string) error {
	cfg := &domain.Config{
		Server: domain.ServerConfig{Port: 8080},
		Compute: domain.ComputeConfig{
			URL:            "http://localhost:6001",
			TimeoutSeconds: 30,
		},
		Artifacts: domain.ArtifactsConfig{Dir: "artifacts"},
		Infra:     domain.InfraConfig{LogFormat: "text", LogLevel: "info"},
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads path, unmarshals into domain.Config, applies environment
// overrides, and cleans path fields to mitigate traversal. Returns an error
// if the file is missing or invalid YAML.
func Load(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	var c domain.Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config parse: %w", err)
	}
	applyEnv(&c)
	applyDefaults(&c)
	CleanPaths(&c)
	return &c, nil
}

// applyEnv lets environment variables override file values, so credentials
// can stay out of the config file (a .env is loaded at startup).
func applyEnv(cfg *domain.Config) {
	if v := os.Getenv("COMPUTE_URL"); v != "" {
		cfg.Compute.URL = v
	}
	if v := os.Getenv("COMPUTE_API_KEY"); v != "" {
		cfg.Compute.APIKey = v
	}
	if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		cfg.Weather.APIKey = v
	}
	if v := os.Getenv("GHBRIDGE_AUTH_TOKEN"); v != "" {
		cfg.Server.AuthToken = v
	}
	if v := os.Getenv("GHBRIDGE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

func applyDefaults(cfg *domain.Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Compute.URL == "" {
		cfg.Compute.URL = "http://localhost:6001"
	}
	if cfg.Compute.TimeoutSeconds == 0 {
		cfg.Compute.TimeoutSeconds = 30
	}
	if cfg.Artifacts.Dir == "" {
		cfg.Artifacts.Dir = "artifacts"
	}
	if cfg.Infra.LogFormat == "" {
		cfg.Infra.LogFormat = "text"
	}
	if cfg.Infra.LogLevel == "" {
		cfg.Infra.LogLevel = "info"
	}
}

// CleanPaths applies filepath.Clean to all path fields in cfg.
func CleanPaths(cfg *domain.Config) {
	if cfg == nil {
		return
	}
	cfg.Artifacts.Dir = filepath.Clean(cfg.Artifacts.Dir)
}

// Validate checks the parts of cfg that would otherwise fail at first use.
func Validate(cfg *domain.Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("config: server port %d out of range", cfg.Server.Port)
	}
	if cfg.Compute.URL == "" {
		return fmt.Errorf("config: compute url is required")
	}
	seen := make(map[string]bool, len(cfg.Definitions))
	for _, def := range cfg.Definitions {
		if def.Name == "" || def.Pointer == "" {
			return fmt.Errorf("config: definitions need both name and pointer")
		}
		if seen[def.Name] {
			return fmt.Errorf("config: duplicate definition name %q", def.Name)
		}
		seen[def.Name] = true
		for _, slot := range def.Inputs {
			switch slot.Type {
			case "number", "integer", "string", "boolean":
			default:
				return fmt.Errorf("config: definition %q input %q has unknown type %q",
					def.Name, slot.Name, slot.Type)
			}
		}
	}
	return nil
}
