// Package llm defines the model-agnostic LLM provider abstraction.
// All types here are shared between the provider interface and adapters.
package llm

// ToolCall represents a single tool invocation requested by the model.
// Arguments is the raw JSON-encoded argument object.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message represents a single turn in a conversation.
// ToolCalls is set on assistant turns that request tool execution;
// ToolCallID correlates a tool turn with the call it answers.
type Message struct {
	Role       string // "system" | "user" | "assistant" | "tool"
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolSpec is a provider-agnostic description of a tool offered to the model.
// Parameters is a JSON-schema object map.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ChatRequest is the input for a non-streaming chat completion.
type ChatRequest struct {
	// Model overrides the provider default when non-empty.
	Model       string
	System      string
	Messages    []Message
	Tools       []ToolSpec
	Temperature float32
	MaxTokens   int
}

// ChatResponse is the output from a non-streaming chat completion.
type ChatResponse struct {
	Message    Message // Assistant message, possibly carrying tool calls.
	StopReason string  // "stop" | "tool_calls" | "length" | "error"
	Tokens     int     // Total tokens consumed (prompt + completion).
}

// EmbedRequest is the input for a batch embedding call.
type EmbedRequest struct {
	// Model overrides the provider default when non-empty.
	Model string
	Texts []string
}

// EmbedResponse is the output from a batch embedding call.
// Embeddings[i] corresponds to Texts[i] in the request.
type EmbedResponse struct {
	Embeddings [][]float32
	Tokens     int
}

// ModelMeta describes the model / provider identity.
type ModelMeta struct {
	ID        string // e.g. "qwen2.5:7b", "gpt-4o-mini"
	Provider  string // e.g. "ollama", "openai", "anthropic"
	Version   string
	MaxTokens int // Maximum context window size.
}
