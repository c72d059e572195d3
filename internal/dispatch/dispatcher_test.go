package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"ghbridge/internal/domain"
	"ghbridge/internal/tooling"
)

// echoTool doubles its numeric input. invoked counts handler entries so
// tests can prove the handler never ran on invalid input.
type echoTool struct {
	name    string
	invoked atomic.Int64
	panicky bool
	fail    error
}

func (e *echoTool) Name() string        { return e.name }
func (e *echoTool) Description() string { return "doubles x" }
func (e *echoTool) Definition() string {
	return `{"type":"object","properties":{"x":{"type":"number","minimum":0}},"required":["x"],"additionalProperties":false}`
}

func (e *echoTool) Call(_ context.Context, callID string, args json.RawMessage) (*domain.ToolResult, error) {
	e.invoked.Add(1)
	if e.panicky {
		panic("handler exploded")
	}
	if e.fail != nil {
		return nil, e.fail
	}
	var in struct {
		X float64 `json:"x"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, err
	}
	return &domain.ToolResult{
		Data:     fmt.Sprintf("%g", in.X*2),
		Metadata: map[string]string{"callId": callID},
	}, nil
}

func newDispatcher(t *testing.T, tools ...tooling.SchemaTool) *Dispatcher {
	t.Helper()
	reg := tooling.NewToolRegistry()
	for _, tool := range tools {
		if err := reg.Register(tool); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	reg.Seal()
	return New(reg)
}

func TestNew_ShouldPanicOnNilRegistry(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for nil registry")
		}
	}()
	New(nil)
}

func TestDispatch_ShouldReturnSuccessForValidCall(t *testing.T) {
	tool := &echoTool{name: "double"}
	d := newDispatcher(t, tool)

	resp := d.Dispatch(context.Background(), Request{Tool: "double", Args: json.RawMessage(`{"x":21}`)})
	if resp.Err != nil {
		t.Fatalf("Expected success, got: %v", resp.Err)
	}
	if resp.Result.Data != "42" {
		t.Errorf("Expected '42', got %q", resp.Result.Data)
	}
	if resp.CallID == "" {
		t.Error("Expected a generated call identifier")
	}
}

func TestDispatch_ShouldPreserveSuppliedCallID(t *testing.T) {
	tool := &echoTool{name: "double"}
	d := newDispatcher(t, tool)

	resp := d.Dispatch(context.Background(), Request{CallID: "call-77", Tool: "double", Args: json.RawMessage(`{"x":1}`)})
	if resp.CallID != "call-77" {
		t.Errorf("Expected call-77, got %q", resp.CallID)
	}
	if resp.Result.Metadata["callId"] != "call-77" {
		t.Error("Expected handler to receive the supplied call identifier")
	}
}

func TestDispatch_ShouldFailUnknownToolWithoutInvokingHandlers(t *testing.T) {
	tool := &echoTool{name: "double"}
	d := newDispatcher(t, tool)

	resp := d.Dispatch(context.Background(), Request{Tool: "missing", Args: json.RawMessage(`{}`)})
	if resp.Err == nil {
		t.Fatal("Expected failure for unknown tool")
	}
	if resp.Err.Kind != domain.KindUnknownTool {
		t.Errorf("Expected unknown_tool, got %s", resp.Err.Kind)
	}
	if tool.invoked.Load() != 0 {
		t.Error("Handler must not run for an unknown tool")
	}
}

func TestDispatch_ShouldFailValidationBeforeHandler(t *testing.T) {
	tests := []struct {
		name string
		args string
		kind domain.ErrorKind
	}{
		{"missing required", `{}`, domain.KindMissingParameter},
		{"wrong type", `{"x":"nope"}`, domain.KindTypeMismatch},
		{"constraint", `{"x":-3}`, domain.KindConstraintViolation},
		{"unknown key", `{"x":1,"y":2}`, domain.KindUnknownParameter},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tool := &echoTool{name: "double"}
			d := newDispatcher(t, tool)
			resp := d.Dispatch(context.Background(), Request{Tool: "double", Args: json.RawMessage(tc.args)})
			if resp.Err == nil {
				t.Fatal("Expected validation failure")
			}
			if resp.Err.Kind != tc.kind {
				t.Errorf("Expected %s, got %s", tc.kind, resp.Err.Kind)
			}
			if tool.invoked.Load() != 0 {
				t.Error("Handler must not run on invalid input")
			}
		})
	}
}

func TestDispatch_ShouldConvertPanicToHandlerError(t *testing.T) {
	tool := &echoTool{name: "double", panicky: true}
	d := newDispatcher(t, tool)

	resp := d.Dispatch(context.Background(), Request{Tool: "double", Args: json.RawMessage(`{"x":1}`)})
	if resp.Err == nil {
		t.Fatal("Expected failure from panicking handler")
	}
	if resp.Err.Kind != domain.KindHandlerError {
		t.Errorf("Expected handler_error, got %s", resp.Err.Kind)
	}
}

func TestDispatch_ShouldKeepTypedErrorKinds(t *testing.T) {
	tool := &echoTool{name: "double", fail: domain.NewToolError(domain.KindBackendTimeout, "too slow")}
	d := newDispatcher(t, tool)

	resp := d.Dispatch(context.Background(), Request{Tool: "double", Args: json.RawMessage(`{"x":1}`)})
	if resp.Err == nil || resp.Err.Kind != domain.KindBackendTimeout {
		t.Fatalf("Expected backend_timeout to pass through, got: %v", resp.Err)
	}
}

func TestDispatch_ShouldCoerceUntypedErrors(t *testing.T) {
	tool := &echoTool{name: "double", fail: fmt.Errorf("plain failure")}
	d := newDispatcher(t, tool)

	resp := d.Dispatch(context.Background(), Request{Tool: "double", Args: json.RawMessage(`{"x":1}`)})
	if resp.Err == nil || resp.Err.Kind != domain.KindHandlerError {
		t.Fatalf("Expected handler_error for untyped failure, got: %v", resp.Err)
	}
}

func TestDispatch_ShouldIsolateConcurrentCalls(t *testing.T) {
	tool := &echoTool{name: "double"}
	d := newDispatcher(t, tool)

	const n = 32
	var wg sync.WaitGroup
	responses := make([]Response, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			args := json.RawMessage(fmt.Sprintf(`{"x":%d}`, i))
			responses[i] = d.Dispatch(context.Background(), Request{Tool: "double", Args: args})
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i, resp := range responses {
		if resp.Err != nil {
			t.Fatalf("Call %d failed: %v", i, resp.Err)
		}
		want := fmt.Sprintf("%g", float64(i*2))
		if resp.Result.Data != want {
			t.Errorf("Call %d: expected %s, got %s (cross-contamination?)", i, want, resp.Result.Data)
		}
		if seen[resp.CallID] {
			t.Errorf("Duplicate call identifier %q", resp.CallID)
		}
		seen[resp.CallID] = true
	}
}
