package intake

import (
	"fmt"
	"log/slog"

	"github.com/matiasleandrokruk/iris/internal/domain/agent"
	"github.com/matiasleandrokruk/iris/internal/domain/tool"
	"github.com/matiasleandrokruk/iris/internal/infra/llm"
)

// SystemPrompt steers the intake conversation. Iris triages incoming
// clients, classifies their matter and gathers what a pitch needs.
const SystemPrompt = `You are Iris, the AI front-of-house for a prestigious law firm. Your role is to understand client needs and get them in front of the right person as quickly as possible.

Your process:
1. If this is the first interaction (no prior messages), introduce yourself as Iris and explain your role
2. Use the classify_legal_area tool when you can determine their legal area based on what they've told you
3. Ask targeted questions based on the classification guidance you receive
4. Gather key information efficiently to enable a great pitch deck
5. When you have sufficient information, call end_conversation

IMPORTANT: Only introduce yourself once at the beginning. After that, focus on gathering information efficiently.

Guidelines:
- Be professional, efficient, and helpful
- Don't provide legal advice - you're triaging and gathering information
- Use the classify_legal_area tool early to get area-specific guidance
- Be thorough but respectful of the client's time
- Focus on information that will help create a compelling pitch deck

Key information to gather (based on legal area):
- Company/Individual name and background
- Industry and company size (if applicable)
- Specific legal challenges or needs
- Timeline and urgency
- Budget considerations (if appropriate)
- Any specific requirements or preferences

Remember: Your goal is efficiency - gather enough information for the legal team to create a compelling, targeted pitch deck that demonstrates the firm's relevant expertise.`

// NewRegistry assembles the intake tool set: classification, conversation
// end, web search and, when a searcher is supplied, retrieval over the
// firm's knowledge base.
func NewRegistry(searcher tool.Searcher, web WebSearcher) (*tool.Registry, error) {
	r := tool.NewRegistry()
	if err := RegisterIntakeTools(r, web); err != nil {
		return nil, fmt.Errorf("register intake tools: %w", err)
	}
	if searcher != nil {
		if err := tool.RegisterRetrieveTool(r, searcher, 0); err != nil {
			return nil, fmt.Errorf("register retrieve tool: %w", err)
		}
	}
	return r, nil
}

// NewDriver builds the intake loop driver around the Iris persona.
func NewDriver(provider llm.Provider, searcher tool.Searcher, web WebSearcher, logger *slog.Logger) (*agent.Driver, error) {
	registry, err := NewRegistry(searcher, web)
	if err != nil {
		return nil, err
	}
	opts := []agent.Option{agent.WithSystemPrompt(SystemPrompt)}
	if logger != nil {
		opts = append(opts, agent.WithLogger(logger))
	}
	return agent.NewDriver(provider, registry, opts...), nil
}
