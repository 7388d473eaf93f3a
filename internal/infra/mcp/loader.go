// Package mcp loads tools from external Model Context Protocol servers into
// the tool registry. Each configured server is dialed once at startup; its
// advertised tools become registry entries whose executors proxy CallTool.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/matiasleandrokruk/iris/internal/domain/tool"
	"github.com/matiasleandrokruk/iris/internal/infra/config"
)

const (
	clientName    = "iris"
	clientVersion = "1.0.0"
)

// session is the slice of mcpsdk.ClientSession the loader needs. Tests stub it.
type session interface {
	ListTools(ctx context.Context, params *mcpsdk.ListToolsParams) (*mcpsdk.ListToolsResult, error)
	CallTool(ctx context.Context, params *mcpsdk.CallToolParams) (*mcpsdk.CallToolResult, error)
	Close() error
}

// dialer opens a session against one configured server.
type dialer func(ctx context.Context, spec config.MCPServer) (session, error)

// Loader connects to MCP servers and registers their tools.
type Loader struct {
	dial     dialer
	logger   *slog.Logger
	sessions []session
}

// NewLoader builds a Loader using the real SDK transport.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{dial: dialSDK, logger: logger}
}

func dialSDK(ctx context.Context, spec config.MCPServer) (session, error) {
	var transport mcpsdk.Transport
	switch {
	case spec.Command != "":
		transport = &mcpsdk.CommandTransport{Command: exec.CommandContext(ctx, spec.Command, spec.Args...)}
	case spec.URL != "":
		transport = &mcpsdk.SSEClientTransport{Endpoint: spec.URL}
	default:
		return nil, fmt.Errorf("mcp: server spec needs a command or a url")
	}

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: clientName, Version: clientVersion}, nil)
	return client.Connect(ctx, transport, nil)
}

// LoadAll dials every configured server and registers its tools into r.
// Servers that fail to connect or list are logged and skipped so one broken
// server does not take the whole registry down. Returns the number of tools
// registered.
func (l *Loader) LoadAll(ctx context.Context, r *tool.Registry, servers map[string]config.MCPServer) (int, error) {
	total := 0
	for name, spec := range servers {
		sess, err := l.dial(ctx, spec)
		if err != nil {
			l.logger.Warn("mcp server unreachable", "server", name, "error", err)
			continue
		}
		l.sessions = append(l.sessions, sess)

		n, err := l.registerServerTools(ctx, r, name, sess)
		if err != nil {
			l.logger.Warn("mcp tool listing failed", "server", name, "error", err)
			continue
		}
		l.logger.Info("mcp tools loaded", "server", name, "count", n)
		total += n
	}
	return total, nil
}

func (l *Loader) registerServerTools(ctx context.Context, r *tool.Registry, server string, sess session) (int, error) {
	resp, err := sess.ListTools(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("list tools: %w", err)
	}

	registered := 0
	for _, t := range resp.Tools {
		params, err := schemaToMap(t.InputSchema)
		if err != nil {
			l.logger.Warn("mcp tool schema rejected", "server", server, "tool", t.Name, "error", err)
			continue
		}
		desc := tool.Descriptor{Name: t.Name, Description: t.Description, Parameters: params}
		exec := proxyExecutor(sess, t.Name)
		if err := r.Register(desc, exec); err != nil {
			l.logger.Warn("mcp tool registration failed", "server", server, "tool", t.Name, "error", err)
			continue
		}
		registered++
	}
	return registered, nil
}

// proxyExecutor forwards a dispatched call to the owning server and flattens
// the result content into one string.
func proxyExecutor(sess session, name string) tool.Executor {
	return tool.ExecutorFunc(func(ctx context.Context, args json.RawMessage) (*tool.Result, error) {
		var decoded map[string]any
		if len(args) > 0 {
			if err := json.Unmarshal(args, &decoded); err != nil {
				return nil, fmt.Errorf("decode arguments: %w", err)
			}
		}
		res, err := sess.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: decoded})
		if err != nil {
			return nil, err
		}
		if res.IsError {
			return nil, fmt.Errorf("tool %s reported an error: %s", name, flattenContent(res))
		}
		return &tool.Result{Content: flattenContent(res), Artifact: res.StructuredContent}, nil
	})
}

// flattenContent joins the text blocks of a tool result; non-text blocks are
// carried as their JSON encoding.
func flattenContent(res *mcpsdk.CallToolResult) string {
	out := ""
	for _, c := range res.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			if out != "" {
				out += "\n"
			}
			out += tc.Text
			continue
		}
		raw, err := json.Marshal(c)
		if err != nil {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += string(raw)
	}
	return out
}

// schemaToMap converts the SDK's schema value into the registry's parameter
// map. Servers that advertise no schema get an empty object schema.
func schemaToMap(schema any) (map[string]any, error) {
	if schema == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}, nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	if m["type"] == nil {
		m["type"] = "object"
	}
	if m["properties"] == nil {
		m["properties"] = map[string]any{}
	}
	return m, nil
}

// Close shuts down every open server session.
func (l *Loader) Close() error {
	var firstErr error
	for _, s := range l.sessions {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.sessions = nil
	return firstErr
}
