package llm

import "context"

// Provider is the model-agnostic interface for LLM operations.
// Adapters (Ollama, OpenAI, Anthropic) implement this interface so the
// application is never coupled to a specific vendor.
type Provider interface {
	// ChatCompletion performs a non-streaming chat completion.
	// When the request carries tool specs the response message may contain
	// tool calls instead of (or alongside) text content.
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Embed computes dense vector representations for a batch of texts.
	Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error)

	// ModelInfo returns static metadata about the provider/model.
	ModelInfo() ModelMeta

	// HealthCheck returns nil if the provider is reachable and operational.
	HealthCheck(ctx context.Context) error
}
