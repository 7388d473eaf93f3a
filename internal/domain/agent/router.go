// Package agent drives the model/tool loop: invoke the model, route the
// reply, dispatch requested tools, repeat until the model stops asking.
package agent

import "github.com/matiasleandrokruk/iris/internal/domain/conversation"

// Decision is the router verdict after each model invocation.
type Decision string

const (
	DecisionContinue Decision = "continue"
	DecisionStop     Decision = "stop"
)

// Router inspects the assistant turn the model just produced and decides
// whether the loop dispatches tools or terminates.
type Router interface {
	Decide(assistant conversation.Message) Decision
}

// ToolCallRouter is the default router: continue exactly when the
// assistant requested at least one tool call.
type ToolCallRouter struct{}

// Decide implements Router.
func (ToolCallRouter) Decide(assistant conversation.Message) Decision {
	if len(assistant.ToolCalls) > 0 {
		return DecisionContinue
	}
	return DecisionStop
}
