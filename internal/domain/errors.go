package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure that may cross the dispatcher boundary.
// No unstructured fault ever reaches the transport: anything a handler
// produces that is not already a *ToolError is coerced to KindHandlerError.
type ErrorKind string

const (
	KindUnknownTool         ErrorKind = "unknown_tool"
	KindDuplicateToolName   ErrorKind = "duplicate_tool_name"
	KindMissingParameter    ErrorKind = "missing_parameter"
	KindTypeMismatch        ErrorKind = "type_mismatch"
	KindConstraintViolation ErrorKind = "constraint_violation"
	KindUnknownParameter    ErrorKind = "unknown_parameter"
	KindInputMapping        ErrorKind = "input_mapping_error"
	KindBackendUnavailable  ErrorKind = "backend_unavailable"
	KindBackendTimeout      ErrorKind = "backend_timeout"
	KindBackendProtocol     ErrorKind = "backend_protocol_error"
	KindOutputDecoding      ErrorKind = "output_decoding_error"
	KindArtifactPersist     ErrorKind = "artifact_persist_error"
	KindHandlerError        ErrorKind = "handler_error"
)

// ToolError is the typed failure carried in a response envelope.
type ToolError struct {
	Kind    ErrorKind
	Message string
	Err     error // underlying cause, if any
}

func (e *ToolError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError builds a ToolError with a formatted message.
func NewToolError(kind ErrorKind, format string, args ...any) *ToolError {
	return &ToolError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapToolError attaches a kind and message to an underlying error.
func WrapToolError(kind ErrorKind, err error, format string, args ...any) *ToolError {
	return &ToolError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// CoerceToolError returns err as a *ToolError, converting anything else to
// KindHandlerError so raw faults never cross the dispatcher.
func CoerceToolError(err error) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{Kind: KindHandlerError, Message: err.Error(), Err: err}
}

// KindOf reports the ErrorKind of err, or KindHandlerError when untyped.
func KindOf(err error) ErrorKind {
	return CoerceToolError(err).Kind
}
