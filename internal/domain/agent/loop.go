package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/matiasleandrokruk/iris/internal/domain/conversation"
	"github.com/matiasleandrokruk/iris/internal/domain/tool"
	"github.com/matiasleandrokruk/iris/internal/infra/llm"
)

// ErrStepBudgetExceeded reports a run that consumed every allowed model
// invocation without terminating. The partial state is still returned so
// callers can persist and inspect it.
var ErrStepBudgetExceeded = errors.New("step budget exceeded")

const defaultStepBudget = 25

// Driver runs the conversation loop against one provider and registry.
type Driver struct {
	provider   llm.Provider
	registry   *tool.Registry
	router     Router
	system     string
	stepBudget int
	parallel   bool
	logger     *slog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithSystemPrompt sets the system instruction sent on every invocation.
func WithSystemPrompt(prompt string) Option {
	return func(d *Driver) { d.system = prompt }
}

// WithStepBudget caps model invocations per run (default 25).
func WithStepBudget(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.stepBudget = n
		}
	}
}

// WithParallelToolCalls dispatches a multi-call assistant turn concurrently.
// Result order still follows the request order.
func WithParallelToolCalls(enabled bool) Option {
	return func(d *Driver) { d.parallel = enabled }
}

// WithRouter replaces the default tool-call router.
func WithRouter(r Router) Option {
	return func(d *Driver) { d.router = r }
}

// WithLogger sets the structured logger (default slog.Default).
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// NewDriver builds a Driver over a provider and tool registry.
func NewDriver(provider llm.Provider, registry *tool.Registry, opts ...Option) *Driver {
	d := &Driver{
		provider:   provider,
		registry:   registry,
		router:     ToolCallRouter{},
		stepBudget: defaultStepBudget,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run advances the state until the router stops the loop or the step
// budget runs out. The state always reflects every turn produced,
// including on error.
//
// Each iteration is one step: invoke the model, append the assistant
// turn, then either stop or dispatch its tool calls and append one tool
// turn per call. A recoverable tool failure (bad arguments, tool body
// error) becomes an error tool turn the model can react to; an unknown
// tool name aborts the run.
func (d *Driver) Run(ctx context.Context, state *conversation.State) error {
	specs := d.registry.Specs()

	for step := 0; ; step++ {
		if step >= d.stepBudget {
			d.logger.Warn("run aborted", "thread", state.ThreadID, "steps", step, "reason", "step budget")
			return fmt.Errorf("%w: %d steps", ErrStepBudgetExceeded, d.stepBudget)
		}

		resp, err := d.provider.ChatCompletion(ctx, llm.ChatRequest{
			System:   d.system,
			Messages: state.ToLLM(),
			Tools:    specs,
		})
		if err != nil {
			return fmt.Errorf("model invocation: %w", err)
		}

		assistant := state.Append(conversation.NewAssistantMessage(resp.Message.Content, resp.Message.ToolCalls))
		d.logger.Debug("assistant turn",
			"thread", state.ThreadID, "step", step, "tool_calls", len(assistant.ToolCalls))

		if d.router.Decide(assistant) == DecisionStop {
			return nil
		}

		results, err := d.dispatchAll(ctx, assistant.ToolCalls)
		if err != nil {
			return err
		}
		for _, m := range results {
			state.Append(m)
		}
	}
}

type dispatchOutcome struct {
	message conversation.Message
	fatal   error
}

// dispatchAll executes every call from one assistant turn and returns the
// tool turns in request order.
func (d *Driver) dispatchAll(ctx context.Context, calls []llm.ToolCall) ([]conversation.Message, error) {
	outcomes := make([]dispatchOutcome, len(calls))

	if d.parallel && len(calls) > 1 {
		var wg sync.WaitGroup
		for i, call := range calls {
			wg.Add(1)
			go func(i int, call llm.ToolCall) {
				defer wg.Done()
				outcomes[i] = d.dispatchOne(ctx, call)
			}(i, call)
		}
		wg.Wait()
	} else {
		for i, call := range calls {
			outcomes[i] = d.dispatchOne(ctx, call)
		}
	}

	messages := make([]conversation.Message, len(outcomes))
	for i, out := range outcomes {
		if out.fatal != nil {
			return nil, out.fatal
		}
		messages[i] = out.message
	}
	return messages, nil
}

// dispatchOne runs a single call. Unknown tools are fatal; validation and
// execution failures come back as error tool turns for the model to
// retry against.
func (d *Driver) dispatchOne(ctx context.Context, call llm.ToolCall) dispatchOutcome {
	result, err := d.registry.Dispatch(ctx, call)
	if err != nil {
		if errors.Is(err, tool.ErrUnknownTool) {
			return dispatchOutcome{fatal: err}
		}
		d.logger.Warn("tool call failed", "tool", call.Name, "error", err)
		return dispatchOutcome{
			message: conversation.NewToolMessage(call.ID, "ERROR: "+err.Error(), nil),
		}
	}

	var artifact json.RawMessage
	if result.Artifact != nil {
		if raw, marshalErr := json.Marshal(result.Artifact); marshalErr == nil {
			artifact = raw
		}
	}
	return dispatchOutcome{
		message: conversation.NewToolMessage(call.ID, result.Content, artifact),
	}
}
