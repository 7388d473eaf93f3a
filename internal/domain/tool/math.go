package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrDivideByZero is raised by the divide tool; it surfaces to the model
// as a recoverable execution failure rather than crashing the run.
var ErrDivideByZero = errors.New("cannot divide by zero")

type binaryArgs struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// numberSchema is the shared schema for the two-operand arithmetic tools.
func numberSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number", "description": "first operand"},
			"b": map[string]any{"type": "number", "description": "second operand"},
		},
		"required":             []string{"a", "b"},
		"additionalProperties": false,
	}
}

// formatNumber renders whole results without a trailing ".0".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RegisterMathTools adds the add, multiply and divide tools to the registry.
func RegisterMathTools(r *Registry) error {
	tools := []struct {
		desc Descriptor
		exec Executor
	}{
		{
			desc: Descriptor{
				Name:        "add",
				Description: "Add two numbers and return the sum.",
				Parameters:  numberSchema(),
			},
			exec: ExecutorFunc(executeAdd),
		},
		{
			desc: Descriptor{
				Name:        "multiply",
				Description: "Multiply two numbers and return the product.",
				Parameters:  numberSchema(),
			},
			exec: ExecutorFunc(executeMultiply),
		},
		{
			desc: Descriptor{
				Name:        "divide",
				Description: "Divide the first number by the second and return the quotient.",
				Parameters:  numberSchema(),
			},
			exec: ExecutorFunc(executeDivide),
		},
	}
	for _, t := range tools {
		if err := r.Register(t.desc, t.exec); err != nil {
			return err
		}
	}
	return nil
}

func executeAdd(_ context.Context, args json.RawMessage) (*Result, error) {
	var in binaryArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("decode arguments: %v", err)
	}
	sum := in.A + in.B
	return &Result{
		Content:  fmt.Sprintf("Adding %s and %s gives %s", formatNumber(in.A), formatNumber(in.B), formatNumber(sum)),
		Artifact: sum,
	}, nil
}

func executeMultiply(_ context.Context, args json.RawMessage) (*Result, error) {
	var in binaryArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("decode arguments: %v", err)
	}
	product := in.A * in.B
	return &Result{
		Content:  fmt.Sprintf("Multiplying %s and %s gives %s", formatNumber(in.A), formatNumber(in.B), formatNumber(product)),
		Artifact: product,
	}, nil
}

func executeDivide(_ context.Context, args json.RawMessage) (*Result, error) {
	var in binaryArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("decode arguments: %v", err)
	}
	if in.B == 0 {
		return nil, ErrDivideByZero
	}
	quotient := in.A / in.B
	return &Result{
		Content:  fmt.Sprintf("Dividing %s by %s gives %s", formatNumber(in.A), formatNumber(in.B), formatNumber(quotient)),
		Artifact: quotient,
	}, nil
}
