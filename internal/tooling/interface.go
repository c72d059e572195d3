package tooling

import (
	"context"
	"encoding/json"

	"ghbridge/internal/domain"
)

// SchemaTool is a tool whose input is described by a JSON Schema. The
// dispatcher passes Definition() to discovery clients and validates incoming
// arguments against it before Call runs, so implementations may unmarshal
// args without re-checking shape. Call receives a context because
// compute-backed tools block on a network round trip.
type SchemaTool interface {
	// Name returns the unique tool name used in tool-call envelopes.
	Name() string
	// Description returns a human-readable description for discovery.
	Description() string
	// Definition returns the JSON Schema string for the tool's input.
	Definition() string
	// Call executes the tool with schema-validated JSON arguments. The call
	// identifier scopes any artifacts the tool persists.
	Call(ctx context.Context, callID string, args json.RawMessage) (*domain.ToolResult, error)
}
