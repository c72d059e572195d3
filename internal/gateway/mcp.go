package gateway

import (
	"context"
	"encoding/json"

	"ghbridge/internal/dispatch"
)

// protocolVersion is the MCP revision this server speaks.
const protocolVersion = "2025-03-26"

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// JSONRPCMessage is a JSON-RPC 2.0 request or response.
type JSONRPCMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// toolsCallParams are the params of a tools/call request.
type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// contentBlock is one element of a tool result's content array.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// toolsCallResult is the tools/call response shape. The artifact reference
// rides in structuredContent; the binary itself never does.
type toolsCallResult struct {
	Content           []contentBlock `json:"content"`
	IsError           bool           `json:"isError,omitempty"`
	StructuredContent any            `json:"structuredContent,omitempty"`
}

// Handler answers MCP JSON-RPC messages. It is transport-agnostic: the HTTP
// endpoint, the WebSocket loop, and the stdio loop all feed it. Stateless
// per message, so concurrent calls need no coordination.
type Handler struct {
	dispatcher *dispatch.Dispatcher
	serverName string
	version    string
}

// NewHandler builds a handler over the dispatcher.
func NewHandler(d *dispatch.Dispatcher, serverName, version string) *Handler {
	return &Handler{dispatcher: d, serverName: serverName, version: version}
}

// Handle processes one message and returns the response, or nil for
// notifications (which get no reply).
func (h *Handler) Handle(ctx context.Context, msg *JSONRPCMessage) *JSONRPCMessage {
	switch msg.Method {
	case "initialize":
		return h.respond(msg.ID, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": h.serverName, "version": h.version},
		})
	case "notifications/initialized":
		return nil
	case "ping":
		return h.respond(msg.ID, map[string]any{})
	case "tools/list":
		return h.respond(msg.ID, map[string]any{"tools": h.dispatcher.Definitions()})
	case "tools/call":
		return h.handleToolCall(ctx, msg)
	default:
		return h.respondError(msg.ID, codeMethodNotFound, "method not found: "+msg.Method, nil)
	}
}

// handleToolCall dispatches the named tool. Tool failures come back as
// well-formed tool results with isError set, never as dropped connections;
// only malformed params are JSON-RPC level errors.
func (h *Handler) handleToolCall(ctx context.Context, msg *JSONRPCMessage) *JSONRPCMessage {
	var params toolsCallParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return h.respondError(msg.ID, codeInvalidParams, "invalid tools/call params", err.Error())
	}
	if params.Name == "" {
		return h.respondError(msg.ID, codeInvalidParams, "tool name is required", nil)
	}

	resp := h.dispatcher.Dispatch(ctx, dispatch.Request{
		Tool: params.Name,
		Args: params.Arguments,
	})

	if resp.Err != nil {
		return h.respond(msg.ID, toolsCallResult{
			Content: []contentBlock{{Type: "text", Text: resp.Err.Error()}},
			IsError: true,
			StructuredContent: map[string]any{
				"errorKind": string(resp.Err.Kind),
				"callId":    resp.CallID,
			},
		})
	}

	structured := map[string]any{"callId": resp.CallID}
	if resp.Result.Artifact != nil {
		structured["artifact"] = resp.Result.Artifact
	}
	return h.respond(msg.ID, toolsCallResult{
		Content:           []contentBlock{{Type: "text", Text: resp.Result.Data}},
		StructuredContent: structured,
	})
}

func (h *Handler) respond(id any, result any) *JSONRPCMessage {
	return &JSONRPCMessage{JSONRPC: "2.0", ID: id, Result: result}
}

func (h *Handler) respondError(id any, code int, message string, data any) *JSONRPCMessage {
	return &JSONRPCMessage{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: code, Message: message, Data: data},
	}
}
