package tooling

import (
	"context"
	"encoding/json"
	"fmt"

	"ghbridge/internal/domain"
	"ghbridge/internal/schema"
)

// CalculatorInput is the input structure for calculator operations.
type CalculatorInput struct {
	Operation string  `json:"operation" jsonschema:"enum=add,enum=subtract,enum=multiply,enum=divide,description=Arithmetic operation to perform"`
	A         float64 `json:"a" jsonschema:"description=First operand"`
	B         float64 `json:"b" jsonschema:"description=Second operand"`
}

// calculate performs the arithmetic. Divide-by-zero is a domain error, not
// a validation failure: zero is a valid-typed value for b.
func calculate(input CalculatorInput) (float64, error) {
	switch input.Operation {
	case "add":
		return input.A + input.B, nil
	case "subtract":
		return input.A - input.B, nil
	case "multiply":
		return input.A * input.B, nil
	case "divide":
		if input.B == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return input.A / input.B, nil
	default:
		return 0, fmt.Errorf("unknown operation: %s", input.Operation)
	}
}

// CalculatorTool performs basic arithmetic without touching any backend.
type CalculatorTool struct{}

func (c *CalculatorTool) Name() string { return "calculator" }

func (c *CalculatorTool) Description() string {
	return "Performs basic arithmetic operations (add, subtract, multiply, divide)"
}

func (c *CalculatorTool) Definition() string {
	return schema.Generate(CalculatorInput{})
}

func (c *CalculatorTool) Call(_ context.Context, _ string, args json.RawMessage) (*domain.ToolResult, error) {
	var input CalculatorInput
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}

	result, err := calculate(input)
	if err != nil {
		return nil, err
	}

	return &domain.ToolResult{
		Data: fmt.Sprintf("%g", result),
		Metadata: map[string]string{
			"operation": input.Operation,
		},
	}, nil
}
