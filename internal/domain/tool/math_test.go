package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/matiasleandrokruk/iris/internal/infra/llm"
)

func mathRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	if err := RegisterMathTools(r); err != nil {
		t.Fatalf("RegisterMathTools: %v", err)
	}
	return r
}

func TestMathTools_Add(t *testing.T) {
	t.Parallel()

	r := mathRegistry(t)
	result, err := r.Dispatch(context.Background(), llm.ToolCall{
		Name:      "add",
		Arguments: `{"a":11,"b":53}`,
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if result.Content != "Adding 11 and 53 gives 64" {
		t.Errorf("content = %q", result.Content)
	}
	if result.Artifact != float64(64) {
		t.Errorf("artifact = %v, want 64", result.Artifact)
	}
}

func TestMathTools_AddIdempotent(t *testing.T) {
	t.Parallel()

	r := mathRegistry(t)
	call := llm.ToolCall{Name: "add", Arguments: `{"a":11,"b":53}`}

	first, err := r.Dispatch(context.Background(), call)
	if err != nil {
		t.Fatalf("first Dispatch failed: %v", err)
	}
	second, err := r.Dispatch(context.Background(), call)
	if err != nil {
		t.Fatalf("second Dispatch failed: %v", err)
	}
	if first.Content != second.Content || first.Artifact != second.Artifact {
		t.Errorf("dispatch not idempotent: %+v vs %+v", first, second)
	}
}

func TestMathTools_Multiply(t *testing.T) {
	t.Parallel()

	r := mathRegistry(t)
	result, err := r.Dispatch(context.Background(), llm.ToolCall{
		Name:      "multiply",
		Arguments: `{"a":64,"b":2}`,
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if result.Content != "Multiplying 64 and 2 gives 128" {
		t.Errorf("content = %q", result.Content)
	}
	if result.Artifact != float64(128) {
		t.Errorf("artifact = %v, want 128", result.Artifact)
	}
}

func TestMathTools_Divide(t *testing.T) {
	t.Parallel()

	r := mathRegistry(t)
	result, err := r.Dispatch(context.Background(), llm.ToolCall{
		Name:      "divide",
		Arguments: `{"a":128,"b":16}`,
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if result.Content != "Dividing 128 by 16 gives 8" {
		t.Errorf("content = %q", result.Content)
	}
	if result.Artifact != float64(8) {
		t.Errorf("artifact = %v, want 8", result.Artifact)
	}
}

func TestMathTools_DivideByZero(t *testing.T) {
	t.Parallel()

	r := mathRegistry(t)
	_, err := r.Dispatch(context.Background(), llm.ToolCall{
		Name:      "divide",
		Arguments: `{"a":128,"b":0}`,
	})
	if !errors.Is(err, ErrExecutionFailed) {
		t.Errorf("expected ErrExecutionFailed, got %v", err)
	}
}

func TestMathTools_FractionalResult(t *testing.T) {
	t.Parallel()

	r := mathRegistry(t)
	result, err := r.Dispatch(context.Background(), llm.ToolCall{
		Name:      "divide",
		Arguments: `{"a":1,"b":4}`,
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if result.Content != "Dividing 1 by 4 gives 0.25" {
		t.Errorf("content = %q", result.Content)
	}
}

func TestMathTools_MissingOperandRejected(t *testing.T) {
	t.Parallel()

	r := mathRegistry(t)
	_, err := r.Dispatch(context.Background(), llm.ToolCall{
		Name:      "add",
		Arguments: `{"a":11}`,
	})
	if !errors.Is(err, ErrInvalidArguments) {
		t.Errorf("expected ErrInvalidArguments, got %v", err)
	}
}
