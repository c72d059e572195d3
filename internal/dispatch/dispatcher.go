// Package dispatch is the request/response engine: it resolves a tool-call
// envelope through the registry, validates arguments, invokes the handler,
// and wraps the outcome into a response envelope. Calls share nothing but
// the read-only registry, so concurrent dispatch needs no locking.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"ghbridge/internal/domain"
	"ghbridge/internal/schema"
	"ghbridge/internal/tooling"
)

// Request is one inbound tool call. CallID may be empty; the dispatcher
// assigns one so artifact scoping is always collision-free.
type Request struct {
	CallID string
	Tool   string
	Args   json.RawMessage
}

// Response carries exactly one outcome: Result on success, Err on failure.
type Response struct {
	CallID string
	Result *domain.ToolResult
	Err    *domain.ToolError
}

// state tracks a call through its lifecycle for logging.
type state string

const (
	stateReceived   state = "received"
	stateValidating state = "validating"
	stateExecuting  state = "executing"
	stateCompleted  state = "completed"
	stateFailed     state = "failed"
)

// Dispatcher routes tool calls. Construct once at startup and share across
// transports; it holds no per-call state.
type Dispatcher struct {
	registry *tooling.ToolRegistry
	logger   *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the slog logger. Nil uses slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// New creates a dispatcher backed by the given registry.
// Panics if registry is nil.
func New(registry *tooling.ToolRegistry, opts ...Option) *Dispatcher {
	if registry == nil {
		panic("dispatch: registry must not be nil")
	}
	d := &Dispatcher{registry: registry}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) log() *slog.Logger {
	if d.logger != nil {
		return d.logger
	}
	return slog.Default()
}

// Definitions exposes the registry's discovery list in registration order.
func (d *Dispatcher) Definitions() []domain.ToolDefinition {
	return d.registry.Definitions()
}

// Dispatch runs one call through Received → Validating → Executing →
// Completed, short-circuiting to Failed on any error. The handler is never
// invoked for an unknown tool or invalid arguments, and no fault escapes
// unconverted: handler panics become handler_error outcomes.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	callID := req.CallID
	if callID == "" {
		callID = uuid.NewString()
	}
	log := d.log().With("tool", req.Tool, "callId", callID)
	log.Debug("tool call", "state", stateReceived)

	tool, err := d.registry.Get(req.Tool)
	if err != nil {
		return d.fail(log, callID, err)
	}

	log.Debug("tool call", "state", stateValidating)
	if verr := schema.Validate(tool.Definition(), req.Args); verr != nil {
		return d.fail(log, callID, verr)
	}

	log.Debug("tool call", "state", stateExecuting)
	result, err := d.invoke(ctx, tool, callID, req.Args)
	if err != nil {
		return d.fail(log, callID, err)
	}

	log.Debug("tool call", "state", stateCompleted)
	return Response{CallID: callID, Result: result}
}

// invoke calls the tool, converting a panic into an error so one misbehaving
// handler cannot take down the transport.
func (d *Dispatcher) invoke(ctx context.Context, tool tooling.SchemaTool, callID string, args json.RawMessage) (result *domain.ToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = domain.NewToolError(domain.KindHandlerError, "tool %q panicked: %v", tool.Name(), r)
		}
	}()
	result, err = tool.Call(ctx, callID, args)
	if err == nil && result == nil {
		err = fmt.Errorf("tool %q returned no result", tool.Name())
	}
	return result, err
}

func (d *Dispatcher) fail(log *slog.Logger, callID string, err error) Response {
	te := domain.CoerceToolError(err)
	log.Warn("tool call failed", "state", stateFailed, "kind", te.Kind, "error", te.Message)
	return Response{CallID: callID, Err: te}
}
