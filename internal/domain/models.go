package domain

import (
	"encoding/json"
)

// =============================================================================
// Core Configuration
// =============================================================================

type Config struct {
	Server      ServerConfig       `yaml:"server"`
	Compute     ComputeConfig      `yaml:"compute"`
	Artifacts   ArtifactsConfig    `yaml:"artifacts"`
	Weather     WeatherConfig      `yaml:"weather"`
	Infra       InfraConfig        `yaml:"infra"`
	Definitions []DefinitionConfig `yaml:"definitions"`
	ContextGen  ContextGenConfig   `yaml:"contextGenerator"`
}

type ServerConfig struct {
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"authToken,omitempty"` // When set, gateway requires Authorization: Bearer <authToken>
}

// ComputeConfig points at the Rhino.Compute endpoint. TimeoutSeconds bounds a
// single job submission; MaxInFlight caps concurrent backend jobs (0 = no cap).
type ComputeConfig struct {
	URL            string `yaml:"url"`
	APIKey         string `yaml:"apiKey,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	MaxInFlight    int    `yaml:"maxInFlight"`
}

type ArtifactsConfig struct {
	Dir string `yaml:"dir"`
}

type WeatherConfig struct {
	APIKey string `yaml:"apiKey,omitempty"` // OpenWeatherMap key; mock data when empty
}

type InfraConfig struct {
	LogFormat string `yaml:"logFormat"` // "json" | "text"
	LogLevel  string `yaml:"logLevel"`
}

// DefinitionConfig describes one Grasshopper definition exposed as a tool.
// Pointer is the definition path as the compute server resolves it.
type DefinitionConfig struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Pointer     string            `yaml:"pointer"`
	Inputs      []InputSlotConfig `yaml:"inputs"`
}

// InputSlotConfig is one declared input slot of a Grasshopper definition.
// Type is one of "number", "integer", "string", "boolean".
type InputSlotConfig struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description,omitempty"`
	Required    bool   `yaml:"required"`
}

// ContextGenConfig configures the generate_context tool. Disabled when
// Pointer is empty.
type ContextGenConfig struct {
	Pointer string  `yaml:"pointer"`
	Input   string  `yaml:"inputParam"`  // slot that receives the Overpass URL
	Output  string  `yaml:"outputParam"` // output carrying the 3dm model
	BoxSize float64 `yaml:"boxSizeMeters"`
}

// =============================================================================
// Tool Protocol
// =============================================================================

// ToolDefinition is the discovery shape for one registered tool: its unique
// name, a human-readable description, and the JSON Schema for its input.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ToolResult is what a tool hands back to the dispatcher on success. Data is
// the client-facing text. Artifact references a persisted binary output, if
// any; the binary itself never rides in the protocol response.
type ToolResult struct {
	Data     string            `json:"data"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Artifact *ArtifactRef      `json:"artifact,omitempty"`
}

// ArtifactRef points at a persisted compute output. ID is scoped by the call
// identifier, so two concurrent calls can never collide. The core never
// deletes artifacts; retention is an external concern.
type ArtifactRef struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	MediaType string `json:"mediaType"`
	Size      int64  `json:"size"`
}
