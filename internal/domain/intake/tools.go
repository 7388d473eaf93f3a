package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matiasleandrokruk/iris/internal/domain/tool"
	"github.com/matiasleandrokruk/iris/internal/infra/websearch"
)

const (
	// HandoffTarget identifies the downstream agent a completed intake is
	// handed to.
	HandoffTarget = "deck_drafting_agent"

	// HandoffMessage is spoken to the client when the intake wraps up.
	HandoffMessage = "Perfect! I have all the information I need. I'm now passing this on to the relevant parties who specialize in your legal area. They will be getting back to you with a tailored pitch deck that showcases our expertise and proposed approach for your specific needs. You can expect to hear from them within 24-48 hours. Thank you for your time!"

	// webSearchUnavailable is returned by search_web when no API key is set.
	webSearchUnavailable = "Web search is not available. Please set TAVILY_API_KEY environment variable."

	webSearchDefaultResults = 3
	webSearchMaxResults     = 5
)

// WebSearcher runs web queries for the search_web tool.
type WebSearcher interface {
	Configured() bool
	Search(ctx context.Context, query string, maxResults int) ([]websearch.Result, error)
}

// HandoffResult is the payload end_conversation hands back.
type HandoffResult struct {
	Status    string `json:"status"`
	HandoffTo string `json:"handoff_to"`
	Message   string `json:"message"`
}

type classifyArgs struct {
	LegalArea string `json:"legal_area"`
}

func classifySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"legal_area": map[string]any{
				"type":        "string",
				"description": "The legal area the client's matter falls under.",
				"enum":        LegalAreas,
			},
		},
		"required":             []string{"legal_area"},
		"additionalProperties": false,
	}
}

func classifyExecutor(_ context.Context, args json.RawMessage) (*tool.Result, error) {
	var in classifyArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	c, err := Classify(in.LegalArea)
	if err != nil {
		return nil, err
	}
	content, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode classification: %w", err)
	}
	return &tool.Result{Content: string(content), Artifact: c}, nil
}

func endConversationExecutor(_ context.Context, _ json.RawMessage) (*tool.Result, error) {
	h := &HandoffResult{
		Status:    "conversation_ended",
		HandoffTo: HandoffTarget,
		Message:   HandoffMessage,
	}
	return &tool.Result{Content: h.Message, Artifact: h}, nil
}

type searchWebArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

func searchWebSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query to look up.",
			},
			"max_results": map[string]any{
				"type":        "number",
				"description": "Maximum number of results to return (capped at 5).",
			},
		},
		"required":             []string{"query"},
		"additionalProperties": false,
	}
}

// searchWebExecutor proxies the query to the web search client. With no
// configured key the tool stays callable and tells the model search is
// unavailable, like the rest of the intake toolset it never hard-fails
// the conversation.
func searchWebExecutor(web WebSearcher) tool.ExecutorFunc {
	return func(ctx context.Context, args json.RawMessage) (*tool.Result, error) {
		var in searchWebArgs
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, fmt.Errorf("decode arguments: %w", err)
		}
		if web == nil || !web.Configured() {
			return &tool.Result{Content: webSearchUnavailable}, nil
		}

		maxResults := in.MaxResults
		if maxResults <= 0 {
			maxResults = webSearchDefaultResults
		}
		if maxResults > webSearchMaxResults {
			maxResults = webSearchMaxResults
		}

		results, err := web.Search(ctx, in.Query, maxResults)
		if err != nil {
			return nil, fmt.Errorf("web search: %w", err)
		}

		formatted := make([]string, len(results))
		for i, res := range results {
			formatted[i] = fmt.Sprintf("Title: %s\nURL: %s\nContent: %s\n", res.Title, res.URL, res.Content)
		}
		return &tool.Result{Content: strings.Join(formatted, "\n---\n")}, nil
	}
}

// RegisterIntakeTools adds classify_legal_area, end_conversation and
// search_web to r. web may be nil or unconfigured; search_web then
// reports that search is unavailable.
func RegisterIntakeTools(r *tool.Registry, web WebSearcher) error {
	if err := r.Register(tool.Descriptor{
		Name:        "classify_legal_area",
		Description: "Classify the client's matter into one of the firm's legal practice areas and get guidance on what to ask next.",
		Parameters:  classifySchema(),
	}, tool.ExecutorFunc(classifyExecutor)); err != nil {
		return err
	}
	if err := r.Register(tool.Descriptor{
		Name:        "end_conversation",
		Description: "End the intake conversation once all required information has been gathered and hand the matter off for pitch preparation.",
		Parameters: map[string]any{
			"type":                 "object",
			"properties":           map[string]any{},
			"additionalProperties": false,
		},
	}, tool.ExecutorFunc(endConversationExecutor)); err != nil {
		return err
	}
	return r.Register(tool.Descriptor{
		Name:        "search_web",
		Description: "Search the web for information about legal topics or general information.",
		Parameters:  searchWebSchema(),
	}, searchWebExecutor(web))
}
