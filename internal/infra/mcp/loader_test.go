package mcp

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/matiasleandrokruk/iris/internal/domain/tool"
	"github.com/matiasleandrokruk/iris/internal/infra/config"
	"github.com/matiasleandrokruk/iris/internal/infra/llm"
)

type stubSession struct {
	tools     []*mcpsdk.Tool
	listErr   error
	callErr   error
	result    *mcpsdk.CallToolResult
	lastCall  *mcpsdk.CallToolParams
	closed    bool
}

func (s *stubSession) ListTools(_ context.Context, _ *mcpsdk.ListToolsParams) (*mcpsdk.ListToolsResult, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return &mcpsdk.ListToolsResult{Tools: s.tools}, nil
}

func (s *stubSession) CallTool(_ context.Context, params *mcpsdk.CallToolParams) (*mcpsdk.CallToolResult, error) {
	s.lastCall = params
	if s.callErr != nil {
		return nil, s.callErr
	}
	return s.result, nil
}

func (s *stubSession) Close() error {
	s.closed = true
	return nil
}

func stubLoader(sess session, dialErr error) *Loader {
	return &Loader{
		dial: func(_ context.Context, _ config.MCPServer) (session, error) {
			if dialErr != nil {
				return nil, dialErr
			}
			return sess, nil
		},
		logger: slog.Default(),
	}
}

func echoTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "echo",
		Description: "Echo the input back.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []any{"text"},
		},
	}
}

func TestLoadAll_RegistersAndDispatches(t *testing.T) {
	t.Parallel()

	sess := &stubSession{
		tools: []*mcpsdk.Tool{echoTool()},
		result: &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "echo: hi"}},
		},
	}
	loader := stubLoader(sess, nil)
	registry := tool.NewRegistry()

	n, err := loader.LoadAll(context.Background(), registry, map[string]config.MCPServer{
		"local": {Command: "echo-server"},
	})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if n != 1 {
		t.Fatalf("registered %d tools, want 1", n)
	}

	res, err := registry.Dispatch(context.Background(), llm.ToolCall{
		ID:        "call_0",
		Name:      "echo",
		Arguments: `{"text":"hi"}`,
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Content != "echo: hi" {
		t.Errorf("content = %q", res.Content)
	}
	if sess.lastCall == nil || sess.lastCall.Name != "echo" {
		t.Fatalf("call not proxied: %+v", sess.lastCall)
	}
	args, ok := sess.lastCall.Arguments.(map[string]any)
	if !ok || args["text"] != "hi" {
		t.Errorf("arguments not forwarded: %+v", sess.lastCall.Arguments)
	}
}

func TestLoadAll_ServerErrorReturnedToModel(t *testing.T) {
	t.Parallel()

	sess := &stubSession{
		tools: []*mcpsdk.Tool{echoTool()},
		result: &mcpsdk.CallToolResult{
			IsError: true,
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "boom"}},
		},
	}
	loader := stubLoader(sess, nil)
	registry := tool.NewRegistry()
	if _, err := loader.LoadAll(context.Background(), registry, map[string]config.MCPServer{
		"local": {Command: "echo-server"},
	}); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	_, err := registry.Dispatch(context.Background(), llm.ToolCall{
		ID:        "call_0",
		Name:      "echo",
		Arguments: `{"text":"hi"}`,
	})
	if !errors.Is(err, tool.ErrExecutionFailed) {
		t.Fatalf("err = %v, want ErrExecutionFailed", err)
	}
}

func TestLoadAll_UnreachableServerSkipped(t *testing.T) {
	t.Parallel()

	loader := stubLoader(nil, errors.New("connection refused"))
	registry := tool.NewRegistry()
	n, err := loader.LoadAll(context.Background(), registry, map[string]config.MCPServer{
		"down": {URL: "http://127.0.0.1:1/sse"},
	})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if n != 0 {
		t.Errorf("registered %d tools, want 0", n)
	}
}

func TestLoadAll_ToolWithoutSchemaGetsEmptyObject(t *testing.T) {
	t.Parallel()

	sess := &stubSession{
		tools: []*mcpsdk.Tool{{Name: "ping", Description: "No-argument ping."}},
		result: &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "pong"}},
		},
	}
	loader := stubLoader(sess, nil)
	registry := tool.NewRegistry()
	if _, err := loader.LoadAll(context.Background(), registry, map[string]config.MCPServer{
		"local": {Command: "ping-server"},
	}); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	res, err := registry.Dispatch(context.Background(), llm.ToolCall{ID: "call_0", Name: "ping"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Content != "pong" {
		t.Errorf("content = %q", res.Content)
	}
}

func TestClose_ClosesSessions(t *testing.T) {
	t.Parallel()

	sess := &stubSession{tools: []*mcpsdk.Tool{echoTool()}}
	loader := stubLoader(sess, nil)
	if _, err := loader.LoadAll(context.Background(), tool.NewRegistry(), map[string]config.MCPServer{
		"local": {Command: "echo-server"},
	}); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if err := loader.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !sess.closed {
		t.Error("session not closed")
	}
}
