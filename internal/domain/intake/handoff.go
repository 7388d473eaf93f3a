package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/matiasleandrokruk/iris/internal/domain/agent"
	"github.com/matiasleandrokruk/iris/internal/domain/conversation"
	"github.com/matiasleandrokruk/iris/internal/infra/eventbus"
)

// ErrConversationEnded reports a turn posted to a thread that has already
// been handed off.
var ErrConversationEnded = errors.New("conversation already ended")

// HandoffEventPayload travels on the intake.handoff topic when a
// conversation wraps up.
type HandoffEventPayload struct {
	ThreadID   string            `json:"thread_id"`
	LegalAreas []string          `json:"legal_areas"`
	ClientInfo map[string]string `json:"client_info"`
	HandoffTo  string            `json:"handoff_to"`
}

// TurnResult is what one intake turn produced.
type TurnResult struct {
	Reply      string            `json:"reply"`
	Ended      bool              `json:"ended"`
	LegalAreas []string          `json:"legal_areas,omitempty"`
	Run        *agent.Run        `json:"run,omitempty"`
	State      *conversation.State `json:"-"`
}

// Service runs intake turns and performs the handoff side effects when
// the agent ends a conversation.
type Service struct {
	agents  *agent.Service
	threads *conversation.Store
	bus     eventbus.EventBus
	logger  *slog.Logger
}

func NewService(agents *agent.Service, threads *conversation.Store, bus eventbus.EventBus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{agents: agents, threads: threads, bus: bus, logger: logger}
}

// HandleTurn runs one conversation turn. When the agent calls
// end_conversation the thread is completed with the classified areas and
// a handoff event is published for the drafting side.
func (s *Service) HandleTurn(ctx context.Context, threadID, text string) (*TurnResult, error) {
	thread, err := s.threads.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread.Status == conversation.ThreadCompleted {
		return nil, ErrConversationEnded
	}

	state, run, err := s.agents.ProcessMessage(ctx, threadID, text)
	if err != nil {
		return nil, err
	}

	// Scan the persisted transcript, not the in-run state: without memory
	// each run carries only the newest turn, and a classification from an
	// earlier turn must still make it into the handoff.
	full, err := s.threads.LoadState(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load thread state: %w", err)
	}

	areas, ended := scanToolTurns(full)
	result := &TurnResult{Ended: ended, LegalAreas: areas, Run: run, State: state}
	if last, ok := state.Last(); ok && last.Role == conversation.RoleAssistant {
		result.Reply = last.Content
	}
	if ended {
		// Collection of structured client details is left to the drafting
		// side; the transcript carries everything gathered so far.
		clientInfo := map[string]string{}
		if err := s.threads.CompleteThread(ctx, threadID, areas, clientInfo); err != nil {
			return nil, fmt.Errorf("complete thread: %w", err)
		}
		s.bus.Publish(eventbus.TopicIntakeHandoff, HandoffEventPayload{
			ThreadID:   threadID,
			LegalAreas: areas,
			ClientInfo: clientInfo,
			HandoffTo:  HandoffTarget,
		})
		s.logger.Info("intake handed off", "thread_id", threadID, "legal_areas", strings.Join(areas, ","))
	}
	return result, nil
}

// scanToolTurns walks the thread's tool results collecting classified
// areas and detecting a conversation end.
func scanToolTurns(state *conversation.State) (areas []string, ended bool) {
	seen := map[string]bool{}
	for _, m := range state.Messages {
		if m.Role != conversation.RoleTool || len(m.Artifact) == 0 {
			continue
		}
		var probe struct {
			Status    string `json:"status"`
			LegalArea string `json:"legal_area"`
		}
		if err := json.Unmarshal(m.Artifact, &probe); err != nil {
			continue
		}
		switch probe.Status {
		case "classified":
			if probe.LegalArea != "" && !seen[probe.LegalArea] {
				seen[probe.LegalArea] = true
				areas = append(areas, probe.LegalArea)
			}
		case "conversation_ended":
			ended = true
		}
	}
	return areas, ended
}
