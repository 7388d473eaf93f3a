// Package conversation holds the message model and the append-only thread
// state the agent loop operates on.
package conversation

import (
	"encoding/json"
	"time"

	"github.com/matiasleandrokruk/iris/internal/infra/llm"
)

// Message roles. Tool messages answer exactly one assistant tool call,
// correlated through ToolCallID.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn in a thread. Seq is the insertion order within the
// thread; it is assigned by the store on append.
type Message struct {
	ID         string
	ThreadID   string
	Seq        int
	Role       string
	Content    string
	ToolCalls  []llm.ToolCall
	ToolCallID string
	Artifact   json.RawMessage
	CreatedAt  time.Time
}

// NewUserMessage builds an unpersisted user turn.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage builds an unpersisted assistant turn, tool calls
// included when the model requested execution.
func NewAssistantMessage(content string, toolCalls []llm.ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: toolCalls}
}

// NewToolMessage builds an unpersisted tool-result turn answering the
// call identified by toolCallID. artifact may be nil.
func NewToolMessage(toolCallID, content string, artifact json.RawMessage) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID, Artifact: artifact}
}

// ToLLM converts a persisted turn into the provider message shape.
// Artifacts never travel to the model; only the content does.
func (m Message) ToLLM() llm.Message {
	return llm.Message{
		Role:       m.Role,
		Content:    m.Content,
		ToolCalls:  m.ToolCalls,
		ToolCallID: m.ToolCallID,
	}
}
