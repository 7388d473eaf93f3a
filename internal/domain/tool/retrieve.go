package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// retrievePreamble frames retrieved chunks for the model's next turn.
const retrievePreamble = "Use the following pieces of retrieved context to answer the question. " +
	"If you don't know the answer, say that you don't know. " +
	"Use three sentences maximum and keep the answer concise.\n\n"

// SearchHit is one ranked chunk returned by a similarity search.
type SearchHit struct {
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Searcher finds the k most similar knowledge chunks for a query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]SearchHit, error)
}

type retrieveArgs struct {
	Query string `json:"query"`
}

// RetrieveExecutor backs the retrieve tool with a vector search.
type RetrieveExecutor struct {
	searcher Searcher
	k        int
}

// NewRetrieveExecutor wraps a Searcher; k is the number of chunks to
// return per query (0 falls back to 2).
func NewRetrieveExecutor(searcher Searcher, k int) *RetrieveExecutor {
	if k <= 0 {
		k = 2
	}
	return &RetrieveExecutor{searcher: searcher, k: k}
}

// Execute runs the similarity search and serializes the hits for the model.
// The raw hits ride along as the artifact.
func (e *RetrieveExecutor) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	var in retrieveArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("decode arguments: %v", err)
	}

	hits, err := e.searcher.Search(ctx, in.Query, e.k)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	parts := make([]string, len(hits))
	for i, hit := range hits {
		parts[i] = fmt.Sprintf("Source: %s\nContent: %s", hit.Source, hit.Content)
	}
	return &Result{
		Content:  retrievePreamble + strings.Join(parts, "\n\n"),
		Artifact: hits,
	}, nil
}

// RegisterRetrieveTool adds the retrieve tool backed by the given searcher.
func RegisterRetrieveTool(r *Registry, searcher Searcher, k int) error {
	return r.Register(Descriptor{
		Name:        "retrieve",
		Description: "Retrieve information related to a query.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "search query"},
			},
			"required":             []string{"query"},
			"additionalProperties": false,
		},
	}, NewRetrieveExecutor(searcher, k))
}
