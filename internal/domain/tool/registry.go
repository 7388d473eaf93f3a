package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/matiasleandrokruk/iris/internal/infra/llm"
)

var (
	// ErrUnknownTool reports a dispatched call naming a tool that was never
	// registered. This is a caller bug, not a recoverable model mistake.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArguments reports model-produced arguments that fail the
	// tool's schema. Recoverable: the result is fed back so the model can
	// correct itself.
	ErrInvalidArguments = errors.New("invalid tool arguments")

	// ErrExecutionFailed wraps an error raised by the tool body itself.
	// Recoverable in the same way as ErrInvalidArguments.
	ErrExecutionFailed = errors.New("tool execution failed")

	ErrAlreadyRegistered = errors.New("tool already registered")
)

// Descriptor is the model-facing description of a registered tool.
// Parameters is a JSON-schema object map advertised to the provider.
type Descriptor struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type registration struct {
	descriptor Descriptor
	executor   Executor
}

// Registry maps tool names to executors and validates dispatched calls
// against each tool's declared schema before execution.
type Registry struct {
	tools map[string]registration
	order []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registration)}
}

// Register adds a tool under its descriptor name. The descriptor is
// validated at registration time so a malformed schema fails fast instead
// of at first dispatch.
func (r *Registry) Register(desc Descriptor, executor Executor) error {
	name := strings.TrimSpace(desc.Name)
	if name == "" {
		return fmt.Errorf("tool name is required")
	}
	if executor == nil {
		return fmt.Errorf("tool %q: executor is required", name)
	}
	if err := validateSchema(desc.Parameters); err != nil {
		return fmt.Errorf("tool %q: %w", name, err)
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, name)
	}
	desc.Name = name
	r.tools[name] = registration{descriptor: desc, executor: executor}
	r.order = append(r.order, name)
	return nil
}

// Specs returns the registered tools as provider tool specs, in
// registration order.
func (r *Registry) Specs() []llm.ToolSpec {
	out := make([]llm.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		reg := r.tools[name]
		out = append(out, llm.ToolSpec{
			Name:        reg.descriptor.Name,
			Description: reg.descriptor.Description,
			Parameters:  reg.descriptor.Parameters,
		})
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Dispatch resolves a model tool call: looks up the executor, validates
// the arguments against the tool's schema and runs it.
//
// Error contract:
//   - ErrUnknownTool when the name is not registered
//   - ErrInvalidArguments when the arguments fail schema validation
//   - ErrExecutionFailed wrapping whatever the tool body returned
func (r *Registry) Dispatch(ctx context.Context, call llm.ToolCall) (*Result, error) {
	reg, ok := r.tools[call.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, call.Name)
	}

	args := json.RawMessage(call.Arguments)
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	if err := validateArguments(args, reg.descriptor.Parameters); err != nil {
		return nil, fmt.Errorf("%w: tool %q: %v", ErrInvalidArguments, call.Name, err)
	}

	result, err := reg.executor.Execute(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("%w: tool %q: %v", ErrExecutionFailed, call.Name, err)
	}
	return result, nil
}

// validateSchema checks a descriptor schema at registration time:
// it must be an object schema and its required list must only name
// declared properties.
func validateSchema(schema map[string]any) error {
	if schema == nil {
		return nil
	}
	if typ, ok := schema["type"].(string); ok && typ != "object" {
		return fmt.Errorf("schema type must be %q, got %q", "object", typ)
	}
	props, _ := schema["properties"].(map[string]any)
	for _, key := range extractStringSlice(schema["required"]) {
		if _, ok := props[key]; !ok {
			return fmt.Errorf("required field %q not declared in properties", key)
		}
	}
	return nil
}

// validateArguments applies minimal JSON-schema checks: the arguments
// must be an object, required keys must be present, and unknown keys are
// rejected when additionalProperties is false.
func validateArguments(args json.RawMessage, schema map[string]any) error {
	var input map[string]any
	if err := json.Unmarshal(args, &input); err != nil {
		return fmt.Errorf("arguments must be a json object")
	}
	if schema == nil {
		return nil
	}

	for _, key := range extractStringSlice(schema["required"]) {
		if _, ok := input[key]; !ok {
			return fmt.Errorf("missing required field %q", key)
		}
	}

	allowAdditional := true
	if v, ok := schema["additionalProperties"].(bool); ok {
		allowAdditional = v
	}
	if !allowAdditional {
		allowed := map[string]struct{}{}
		if props, ok := schema["properties"].(map[string]any); ok {
			for key := range props {
				allowed[key] = struct{}{}
			}
		}
		for key := range input {
			if _, ok := allowed[key]; !ok {
				return fmt.Errorf("unknown field %q", key)
			}
		}
	}
	return nil
}

func extractStringSlice(v any) []string {
	switch arr := v.(type) {
	case []string:
		return arr
	case []any:
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
