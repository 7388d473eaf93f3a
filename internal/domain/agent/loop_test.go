package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/matiasleandrokruk/iris/internal/domain/conversation"
	"github.com/matiasleandrokruk/iris/internal/domain/tool"
	"github.com/matiasleandrokruk/iris/internal/infra/llm"
)

// scriptProvider replays a fixed sequence of chat responses.
type scriptProvider struct {
	responses []llm.ChatResponse
	calls     int
	requests  []llm.ChatRequest
}

func (p *scriptProvider) ChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	p.requests = append(p.requests, req)
	if p.calls >= len(p.responses) {
		return nil, errors.New("script exhausted")
	}
	resp := p.responses[p.calls]
	p.calls++
	return &resp, nil
}

func (p *scriptProvider) Embed(_ context.Context, _ llm.EmbedRequest) (*llm.EmbedResponse, error) {
	return &llm.EmbedResponse{}, nil
}

func (p *scriptProvider) ModelInfo() llm.ModelMeta {
	return llm.ModelMeta{ID: "script", Provider: "test"}
}

func (p *scriptProvider) HealthCheck(_ context.Context) error { return nil }

func assistantWithCalls(calls ...llm.ToolCall) llm.ChatResponse {
	return llm.ChatResponse{
		Message:    llm.Message{Role: "assistant", ToolCalls: calls},
		StopReason: "tool_calls",
	}
}

func assistantText(content string) llm.ChatResponse {
	return llm.ChatResponse{
		Message:    llm.Message{Role: "assistant", Content: content},
		StopReason: "stop",
	}
}

func mathDriver(t *testing.T, provider llm.Provider, opts ...Option) *Driver {
	t.Helper()
	registry := tool.NewRegistry()
	if err := tool.RegisterMathTools(registry); err != nil {
		t.Fatalf("RegisterMathTools: %v", err)
	}
	return NewDriver(provider, registry, opts...)
}

func TestDriver_ChainedArithmetic(t *testing.T) {
	t.Parallel()

	provider := &scriptProvider{responses: []llm.ChatResponse{
		assistantWithCalls(llm.ToolCall{ID: "call_0", Name: "add", Arguments: `{"a":11,"b":53}`}),
		assistantWithCalls(llm.ToolCall{ID: "call_1", Name: "multiply", Arguments: `{"a":64,"b":2}`}),
		assistantWithCalls(llm.ToolCall{ID: "call_2", Name: "divide", Arguments: `{"a":128,"b":16}`}),
		assistantText("The final result is 8."),
	}}

	driver := mathDriver(t, provider)
	state := conversation.NewState("t1")
	state.Append(conversation.NewUserMessage("Add 11 and 53. Multiply the output by 2. Then divide it by 16"))

	if err := driver.Run(context.Background(), state); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// user + 4 assistant + 3 tool
	if len(state.Messages) != 8 {
		t.Fatalf("expected 8 messages, got %d", len(state.Messages))
	}

	wantContents := []string{
		"Adding 11 and 53 gives 64",
		"Multiplying 64 and 2 gives 128",
		"Dividing 128 by 16 gives 8",
	}
	wantArtifacts := []string{"64", "128", "8"}
	toolIdx := 0
	for _, m := range state.Messages {
		if m.Role != conversation.RoleTool {
			continue
		}
		if m.Content != wantContents[toolIdx] {
			t.Errorf("tool turn %d content = %q, want %q", toolIdx, m.Content, wantContents[toolIdx])
		}
		if string(m.Artifact) != wantArtifacts[toolIdx] {
			t.Errorf("tool turn %d artifact = %s, want %s", toolIdx, m.Artifact, wantArtifacts[toolIdx])
		}
		toolIdx++
	}
	if toolIdx != 3 {
		t.Errorf("expected 3 tool turns, got %d", toolIdx)
	}

	last, _ := state.Last()
	if last.Role != conversation.RoleAssistant || len(last.ToolCalls) != 0 {
		t.Errorf("final message must be a plain assistant turn: %+v", last)
	}
	if !strings.Contains(last.Content, "8") {
		t.Errorf("final content = %q, want it to report 8", last.Content)
	}
	if err := state.CheckIntegrity(); err != nil {
		t.Errorf("CheckIntegrity: %v", err)
	}
}

func TestDriver_GreetingStopsImmediately(t *testing.T) {
	t.Parallel()

	provider := &scriptProvider{responses: []llm.ChatResponse{
		assistantText("Hello! How can I help you today?"),
	}}

	driver := mathDriver(t, provider)
	state := conversation.NewState("t1")
	state.Append(conversation.NewUserMessage("Hi there!"))

	if err := driver.Run(context.Background(), state); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(state.Messages) != 2 {
		t.Fatalf("expected 2 messages (user + assistant), got %d", len(state.Messages))
	}
	if provider.calls != 1 {
		t.Errorf("expected a single model invocation, got %d", provider.calls)
	}
}

func TestDriver_StepBudgetExceeded(t *testing.T) {
	t.Parallel()

	// a model that never stops asking for tools
	responses := make([]llm.ChatResponse, 10)
	for i := range responses {
		responses[i] = assistantWithCalls(llm.ToolCall{ID: "call_0", Name: "add", Arguments: `{"a":1,"b":1}`})
	}
	provider := &scriptProvider{responses: responses}

	driver := mathDriver(t, provider, WithStepBudget(3))
	state := conversation.NewState("t1")
	state.Append(conversation.NewUserMessage("loop forever"))

	err := driver.Run(context.Background(), state)
	if !errors.Is(err, ErrStepBudgetExceeded) {
		t.Fatalf("expected ErrStepBudgetExceeded, got %v", err)
	}
	if provider.calls != 3 {
		t.Errorf("expected exactly 3 model invocations, got %d", provider.calls)
	}
	// partial state is preserved: user + 3 × (assistant + tool)
	if len(state.Messages) != 7 {
		t.Errorf("expected 7 messages in partial state, got %d", len(state.Messages))
	}
}

func TestDriver_UnknownToolIsFatal(t *testing.T) {
	t.Parallel()

	provider := &scriptProvider{responses: []llm.ChatResponse{
		assistantWithCalls(llm.ToolCall{ID: "call_0", Name: "teleport", Arguments: `{}`}),
	}}

	driver := mathDriver(t, provider)
	state := conversation.NewState("t1")
	state.Append(conversation.NewUserMessage("teleport me"))

	err := driver.Run(context.Background(), state)
	if !errors.Is(err, tool.ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestDriver_DivideByZeroRecoverable(t *testing.T) {
	t.Parallel()

	provider := &scriptProvider{responses: []llm.ChatResponse{
		assistantWithCalls(llm.ToolCall{ID: "call_0", Name: "divide", Arguments: `{"a":128,"b":0}`}),
		assistantText("I can't divide by zero; please pick a non-zero divisor."),
	}}

	driver := mathDriver(t, provider)
	state := conversation.NewState("t1")
	state.Append(conversation.NewUserMessage("divide 128 by 0"))

	if err := driver.Run(context.Background(), state); err != nil {
		t.Fatalf("Run must not fail on a recoverable tool error: %v", err)
	}

	toolTurn := state.Messages[2]
	if toolTurn.Role != conversation.RoleTool {
		t.Fatalf("message 2 role = %q, want tool", toolTurn.Role)
	}
	if !strings.HasPrefix(toolTurn.Content, "ERROR:") {
		t.Errorf("tool turn content = %q, want ERROR prefix", toolTurn.Content)
	}
	last, _ := state.Last()
	if last.Role != conversation.RoleAssistant || len(last.ToolCalls) != 0 {
		t.Errorf("final message must be a plain assistant turn: %+v", last)
	}
}

func TestDriver_InvalidArgumentsRecoverable(t *testing.T) {
	t.Parallel()

	provider := &scriptProvider{responses: []llm.ChatResponse{
		assistantWithCalls(llm.ToolCall{ID: "call_0", Name: "add", Arguments: `{"a":11}`}),
		assistantText("I need both operands."),
	}}

	driver := mathDriver(t, provider)
	state := conversation.NewState("t1")
	state.Append(conversation.NewUserMessage("add 11"))

	if err := driver.Run(context.Background(), state); err != nil {
		t.Fatalf("Run must not fail on invalid arguments: %v", err)
	}
	if !strings.HasPrefix(state.Messages[2].Content, "ERROR:") {
		t.Errorf("tool turn content = %q, want ERROR prefix", state.Messages[2].Content)
	}
}

func TestDriver_ParallelToolCallsPreserveOrder(t *testing.T) {
	t.Parallel()

	provider := &scriptProvider{responses: []llm.ChatResponse{
		assistantWithCalls(
			llm.ToolCall{ID: "call_0", Name: "add", Arguments: `{"a":1,"b":2}`},
			llm.ToolCall{ID: "call_1", Name: "multiply", Arguments: `{"a":3,"b":4}`},
		),
		assistantText("done"),
	}}

	driver := mathDriver(t, provider, WithParallelToolCalls(true))
	state := conversation.NewState("t1")
	state.Append(conversation.NewUserMessage("add 1+2 and multiply 3*4"))

	if err := driver.Run(context.Background(), state); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if state.Messages[2].ToolCallID != "call_0" || state.Messages[3].ToolCallID != "call_1" {
		t.Errorf("tool results out of order: %q then %q",
			state.Messages[2].ToolCallID, state.Messages[3].ToolCallID)
	}
	if err := state.CheckIntegrity(); err != nil {
		t.Errorf("CheckIntegrity: %v", err)
	}
}

func TestDriver_SystemPromptAndToolsForwarded(t *testing.T) {
	t.Parallel()

	provider := &scriptProvider{responses: []llm.ChatResponse{assistantText("hi")}}
	driver := mathDriver(t, provider, WithSystemPrompt("You are Iris."))
	state := conversation.NewState("t1")
	state.Append(conversation.NewUserMessage("hello"))

	if err := driver.Run(context.Background(), state); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	req := provider.requests[0]
	if req.System != "You are Iris." {
		t.Errorf("system = %q", req.System)
	}
	if len(req.Tools) != 3 {
		t.Errorf("expected 3 tool specs, got %d", len(req.Tools))
	}
}

func TestDriver_ArtifactsStayOffTheWire(t *testing.T) {
	t.Parallel()

	provider := &scriptProvider{responses: []llm.ChatResponse{
		assistantWithCalls(llm.ToolCall{ID: "call_0", Name: "add", Arguments: `{"a":11,"b":53}`}),
		assistantText("64"),
	}}

	driver := mathDriver(t, provider)
	state := conversation.NewState("t1")
	state.Append(conversation.NewUserMessage("add 11 and 53"))

	if err := driver.Run(context.Background(), state); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// the second request carries the tool result; only content travels
	second := provider.requests[1]
	var toolMsg *llm.Message
	for i := range second.Messages {
		if second.Messages[i].Role == "tool" {
			toolMsg = &second.Messages[i]
		}
	}
	if toolMsg == nil {
		t.Fatal("expected a tool message in the second request")
	}
	if toolMsg.Content != "Adding 11 and 53 gives 64" {
		t.Errorf("tool message content = %q", toolMsg.Content)
	}

	raw, _ := json.Marshal(second.Messages)
	if strings.Contains(string(raw), "artifact") {
		t.Error("artifacts must not be serialized into provider messages")
	}
}
