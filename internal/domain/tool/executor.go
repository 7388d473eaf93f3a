package tool

import (
	"context"
	"encoding/json"
)

// Result is what a tool hands back to the conversation: Content is the
// text the model reads on the next turn, Artifact is the raw typed value
// kept alongside for programmatic consumers.
type Result struct {
	Content  string
	Artifact any
}

// Executor defines the runtime contract for executable tools.
// Arguments arrive as the raw JSON object the model produced.
type Executor interface {
	Execute(ctx context.Context, args json.RawMessage) (*Result, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, args json.RawMessage) (*Result, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	return f(ctx, args)
}
