package agent

import (
	"context"
	"fmt"

	"github.com/matiasleandrokruk/iris/internal/domain/conversation"
)

// Service ties the loop driver to thread persistence: it appends the
// incoming user turn, runs the loop, persists every produced turn and
// records the run outcome.
type Service struct {
	threads   *conversation.Store
	runs      *RunStore
	driver    *Driver
	useMemory bool
}

// NewService builds a Service. When useMemory is true the full thread
// history is replayed to the model; otherwise each run starts from the
// incoming message alone.
func NewService(threads *conversation.Store, runs *RunStore, driver *Driver, useMemory bool) *Service {
	return &Service{threads: threads, runs: runs, driver: driver, useMemory: useMemory}
}

// ProcessMessage handles one user turn end to end and returns the state
// the loop produced together with the recorded run. On a failed run the
// partial state is persisted and returned alongside the error.
func (s *Service) ProcessMessage(ctx context.Context, threadID, text string) (*conversation.State, *Run, error) {
	if _, err := s.threads.GetThread(ctx, threadID); err != nil {
		return nil, nil, err
	}

	userMsg, err := s.threads.AppendMessage(ctx, threadID, conversation.NewUserMessage(text))
	if err != nil {
		return nil, nil, fmt.Errorf("append user message: %w", err)
	}

	var state *conversation.State
	if s.useMemory {
		state, err = s.threads.LoadState(ctx, threadID)
		if err != nil {
			return nil, nil, fmt.Errorf("load state: %w", err)
		}
	} else {
		state = conversation.NewState(threadID)
		state.Append(*userMsg)
	}

	run, err := s.runs.Begin(ctx, threadID)
	if err != nil {
		return nil, nil, fmt.Errorf("begin run: %w", err)
	}

	mark := len(state.Messages)
	runErr := s.driver.Run(ctx, state)

	steps := 0
	output := ""
	for _, m := range state.Messages[mark:] {
		if _, persistErr := s.threads.AppendMessage(ctx, threadID, m); persistErr != nil {
			return state, run, fmt.Errorf("persist message: %w", persistErr)
		}
		if m.Role == conversation.RoleAssistant {
			steps++
			output = m.Content
		}
	}

	if completeErr := s.runs.Complete(ctx, run.ID, steps, traceFromState(state, mark), output, runErr); completeErr != nil {
		return state, run, fmt.Errorf("complete run: %w", completeErr)
	}

	run, err = s.runs.Get(ctx, run.ID)
	if err != nil {
		return state, nil, err
	}
	return state, run, runErr
}
