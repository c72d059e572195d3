package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"ghbridge/internal/domain"
)

type sampleInput struct {
	Operation string  `json:"operation" jsonschema:"enum=add,enum=subtract"`
	A         float64 `json:"a"`
	B         float64 `json:"b" jsonschema:"minimum=0"`
	Note      string  `json:"note,omitempty"`
}

func TestGenerate_ShouldProduceObjectSchema(t *testing.T) {
	s := Generate(sampleInput{})
	if s == "" {
		t.Fatal("Expected non-empty schema")
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		t.Fatalf("Schema is not valid JSON: %v", err)
	}
	if parsed["type"] != "object" {
		t.Errorf("Expected object schema, got %v", parsed["type"])
	}
	if parsed["additionalProperties"] != false {
		t.Error("Expected additionalProperties=false so unknown keys are rejected")
	}
}

func TestGenerate_ShouldReturnEmptyOnMarshalError(t *testing.T) {
	orig := marshalFunc
	marshalFunc = func(v interface{}) ([]byte, error) { return nil, errors.New("boom") }
	defer func() { marshalFunc = orig }()

	if s := Generate(sampleInput{}); s != "" {
		t.Errorf("Expected empty schema on marshal error, got %q", s)
	}
}

func TestValidate_ShouldAcceptConformingArgs(t *testing.T) {
	s := Generate(sampleInput{})
	args := json.RawMessage(`{"operation":"add","a":10,"b":5}`)
	if err := Validate(s, args); err != nil {
		t.Fatalf("Expected valid args to pass, got: %v", err)
	}
}

func TestValidate_ShouldClassifyMissingParameter(t *testing.T) {
	s := Generate(sampleInput{})
	err := Validate(s, json.RawMessage(`{"operation":"add","a":10}`))
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if err.Kind != domain.KindMissingParameter {
		t.Errorf("Expected missing_parameter, got %s", err.Kind)
	}
}

func TestValidate_ShouldClassifyTypeMismatch(t *testing.T) {
	s := Generate(sampleInput{})
	err := Validate(s, json.RawMessage(`{"operation":"add","a":"ten","b":5}`))
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if err.Kind != domain.KindTypeMismatch {
		t.Errorf("Expected type_mismatch, got %s", err.Kind)
	}
}

func TestValidate_ShouldClassifyConstraintViolation(t *testing.T) {
	s := Generate(sampleInput{})
	err := Validate(s, json.RawMessage(`{"operation":"divide","a":10,"b":5}`))
	if err == nil {
		t.Fatal("Expected validation error for enum violation")
	}
	if err.Kind != domain.KindConstraintViolation {
		t.Errorf("Expected constraint_violation, got %s", err.Kind)
	}
}

func TestValidate_ShouldClassifyUnknownParameter(t *testing.T) {
	s := Generate(sampleInput{})
	err := Validate(s, json.RawMessage(`{"operation":"add","a":10,"b":5,"bogus":1}`))
	if err == nil {
		t.Fatal("Expected validation error for unknown key")
	}
	if err.Kind != domain.KindUnknownParameter {
		t.Errorf("Expected unknown_parameter, got %s", err.Kind)
	}
}

func TestValidate_ShouldRejectMalformedJSON(t *testing.T) {
	s := Generate(sampleInput{})
	err := Validate(s, json.RawMessage(`{not json`))
	if err == nil {
		t.Fatal("Expected error for malformed JSON")
	}
	if err.Kind != domain.KindTypeMismatch {
		t.Errorf("Expected type_mismatch, got %s", err.Kind)
	}
}

func TestValidate_ShouldTreatEmptyArgsAsEmptyObject(t *testing.T) {
	s := Generate(sampleInput{})
	err := Validate(s, nil)
	if err == nil {
		t.Fatal("Expected missing required fields for empty args")
	}
	if err.Kind != domain.KindMissingParameter {
		t.Errorf("Expected missing_parameter, got %s", err.Kind)
	}
}

func TestValidate_ShouldBeDeterministic(t *testing.T) {
	s := Generate(sampleInput{})
	args := json.RawMessage(`{"operation":"add","a":10}`)
	first := Validate(s, args)
	second := Validate(s, args)
	if first == nil || second == nil {
		t.Fatal("Expected both validations to fail")
	}
	if first.Kind != second.Kind {
		t.Errorf("Expected identical outcomes, got %s then %s", first.Kind, second.Kind)
	}
}
