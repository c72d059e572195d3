// Package schema generates JSON Schemas from Go structs and validates raw
// tool arguments against them. It is the safety boundary between loose wire
// input and typed handler input: a request only reaches a handler after
// Validate accepts it.
package schema

import (
	"encoding/json"
	"errors"
	"strings"

	invopopSchema "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"ghbridge/internal/domain"
)

// marshalFunc is the JSON marshaler used by Generate. Package-level so tests
// can inject a failing marshaler to cover the error return path.
var marshalFunc = func(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// Generate produces a JSON Schema string from a Go struct using
// invopop/jsonschema reflection. Unknown keys are disallowed, which is what
// lets Validate classify them as unknown_parameter.
func Generate(input interface{}) string {
	reflector := invopopSchema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	s := reflector.Reflect(input)

	schemaBytes, err := marshalFunc(s)
	if err != nil {
		return ""
	}
	return string(schemaBytes)
}

// Validate checks raw JSON arguments against a JSON Schema string and
// classifies any violation into the error taxonomy. Validation is pure: no
// side effects, same inputs always produce the same outcome. A nil return
// means the arguments conform.
func Validate(schemaStr string, args json.RawMessage) *domain.ToolError {
	compiled, err := jsonschema.CompileString("", schemaStr)
	if err != nil {
		return domain.WrapToolError(domain.KindHandlerError, err, "invalid tool schema")
	}

	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	var inputData interface{}
	if err := json.Unmarshal(args, &inputData); err != nil {
		return domain.WrapToolError(domain.KindTypeMismatch, err, "arguments are not valid JSON")
	}

	if err := compiled.Validate(inputData); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return classify(ve)
		}
		return domain.WrapToolError(domain.KindHandlerError, err, "schema validation failed")
	}
	return nil
}

// classify maps the first leaf cause of a validation error onto the taxonomy
// by its failing keyword.
func classify(ve *jsonschema.ValidationError) *domain.ToolError {
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}

	kind := domain.KindConstraintViolation
	switch keyword(leaf.KeywordLocation) {
	case "required":
		kind = domain.KindMissingParameter
	case "type":
		kind = domain.KindTypeMismatch
	case "additionalProperties":
		kind = domain.KindUnknownParameter
	}

	msg := leaf.Message
	if loc := strings.TrimPrefix(leaf.InstanceLocation, "/"); loc != "" {
		msg = loc + ": " + msg
	}
	return &domain.ToolError{Kind: kind, Message: msg, Err: ve}
}

// keyword extracts the final schema keyword from a keyword location such as
// "/properties/a/minimum".
func keyword(location string) string {
	if i := strings.LastIndex(location, "/"); i >= 0 {
		return location[i+1:]
	}
	return location
}
