package conversation

import (
	"fmt"

	"github.com/matiasleandrokruk/iris/internal/infra/llm"
)

// State is the ordered, append-only message list for one thread.
// It never mutates existing entries; the loop only appends.
type State struct {
	ThreadID string
	Messages []Message
}

// NewState returns an empty state for a thread.
func NewState(threadID string) *State {
	return &State{ThreadID: threadID}
}

// Append adds a message to the end of the state and returns it with the
// next sequence number filled in.
func (s *State) Append(m Message) Message {
	m.ThreadID = s.ThreadID
	m.Seq = len(s.Messages)
	s.Messages = append(s.Messages, m)
	return m
}

// Last returns the final message, or false when the state is empty.
func (s *State) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// ToLLM projects the state onto provider messages in order.
func (s *State) ToLLM() []llm.Message {
	out := make([]llm.Message, len(s.Messages))
	for i, m := range s.Messages {
		out[i] = m.ToLLM()
	}
	return out
}

// CheckIntegrity verifies that every tool message answers exactly one
// tool call from the immediately preceding assistant message.
func (s *State) CheckIntegrity() error {
	for i, m := range s.Messages {
		if m.Role != RoleTool {
			continue
		}
		callIDs := map[string]struct{}{}
		for j := i - 1; j >= 0; j-- {
			prev := s.Messages[j]
			if prev.Role == RoleTool {
				continue
			}
			if prev.Role == RoleAssistant {
				for _, tc := range prev.ToolCalls {
					callIDs[tc.ID] = struct{}{}
				}
			}
			break
		}
		if _, ok := callIDs[m.ToolCallID]; !ok {
			return fmt.Errorf("tool message %d answers unknown call %q", i, m.ToolCallID)
		}
	}
	return nil
}
