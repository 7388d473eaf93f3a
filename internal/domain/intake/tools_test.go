package intake

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/matiasleandrokruk/iris/internal/domain/tool"
	"github.com/matiasleandrokruk/iris/internal/infra/llm"
	"github.com/matiasleandrokruk/iris/internal/infra/websearch"
)

func intakeRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	r := tool.NewRegistry()
	if err := RegisterIntakeTools(r, nil); err != nil {
		t.Fatalf("RegisterIntakeTools: %v", err)
	}
	return r
}

func TestClassifyTool_ValidArea(t *testing.T) {
	t.Parallel()

	r := intakeRegistry(t)
	res, err := r.Dispatch(context.Background(), llm.ToolCall{
		ID:        "call_0",
		Name:      "classify_legal_area",
		Arguments: `{"legal_area":"data_protection"}`,
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	c, ok := res.Artifact.(*Classification)
	if !ok {
		t.Fatalf("artifact type = %T, want *Classification", res.Artifact)
	}
	if c.LegalArea != AreaDataProtection || c.Status != "classified" {
		t.Errorf("unexpected classification: %+v", c)
	}

	var decoded Classification
	if err := json.Unmarshal([]byte(res.Content), &decoded); err != nil {
		t.Fatalf("content is not valid JSON: %v", err)
	}
	if decoded.AreaDisplayName != "Data Protection" {
		t.Errorf("AreaDisplayName = %q, want %q", decoded.AreaDisplayName, "Data Protection")
	}
}

func TestClassifyTool_UnknownAreaIsRecoverable(t *testing.T) {
	t.Parallel()

	r := intakeRegistry(t)
	_, err := r.Dispatch(context.Background(), llm.ToolCall{
		ID:        "call_0",
		Name:      "classify_legal_area",
		Arguments: `{"legal_area":"space_law"}`,
	})
	if !errors.Is(err, tool.ErrExecutionFailed) {
		t.Fatalf("err = %v, want ErrExecutionFailed", err)
	}
}

func TestClassifyTool_MissingArgument(t *testing.T) {
	t.Parallel()

	r := intakeRegistry(t)
	_, err := r.Dispatch(context.Background(), llm.ToolCall{
		ID:        "call_0",
		Name:      "classify_legal_area",
		Arguments: `{}`,
	})
	if !errors.Is(err, tool.ErrInvalidArguments) {
		t.Fatalf("err = %v, want ErrInvalidArguments", err)
	}
}

func TestEndConversationTool(t *testing.T) {
	t.Parallel()

	r := intakeRegistry(t)
	res, err := r.Dispatch(context.Background(), llm.ToolCall{
		ID:   "call_0",
		Name: "end_conversation",
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Content != HandoffMessage {
		t.Errorf("content = %q, want handoff message", res.Content)
	}
	h, ok := res.Artifact.(*HandoffResult)
	if !ok {
		t.Fatalf("artifact type = %T, want *HandoffResult", res.Artifact)
	}
	if h.Status != "conversation_ended" || h.HandoffTo != HandoffTarget {
		t.Errorf("unexpected handoff result: %+v", h)
	}
}

func TestNewRegistry_WithSearcherIncludesRetrieve(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry(stubSearcher{}, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	names := r.Names()
	want := map[string]bool{"classify_legal_area": false, "end_conversation": false, "search_web": false, "retrieve": false}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, seen := range want {
		if !seen {
			t.Errorf("registry missing tool %q (have %v)", n, names)
		}
	}
}

func TestNewRegistry_WithoutSearcher(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry(nil, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	for _, n := range r.Names() {
		if n == "retrieve" {
			t.Fatal("retrieve registered without a searcher")
		}
	}
}

func TestSearchWebTool_UnconfiguredReportsUnavailable(t *testing.T) {
	t.Parallel()

	r := intakeRegistry(t)
	res, err := r.Dispatch(context.Background(), llm.ToolCall{
		ID:        "call_0",
		Name:      "search_web",
		Arguments: `{"query":"gdpr fines"}`,
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Content != webSearchUnavailable {
		t.Errorf("content = %q, want unavailable message", res.Content)
	}
}

func TestSearchWebTool_FormatsResults(t *testing.T) {
	t.Parallel()

	web := &stubWebSearcher{results: []websearch.Result{
		{Title: "GDPR fines", URL: "https://example.com/a", Content: "Up to 4% of turnover."},
		{Title: "DPA powers", URL: "https://example.com/b", Content: "Enforcement notices."},
	}}
	r := tool.NewRegistry()
	if err := RegisterIntakeTools(r, web); err != nil {
		t.Fatalf("RegisterIntakeTools: %v", err)
	}

	res, err := r.Dispatch(context.Background(), llm.ToolCall{
		ID:        "call_0",
		Name:      "search_web",
		Arguments: `{"query":"gdpr fines"}`,
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	want := "Title: GDPR fines\nURL: https://example.com/a\nContent: Up to 4% of turnover.\n" +
		"\n---\n" +
		"Title: DPA powers\nURL: https://example.com/b\nContent: Enforcement notices.\n"
	if res.Content != want {
		t.Errorf("content = %q, want %q", res.Content, want)
	}
	if web.lastQuery != "gdpr fines" {
		t.Errorf("query = %q, want %q", web.lastQuery, "gdpr fines")
	}
	if web.lastMax != 3 {
		t.Errorf("max results = %d, want default 3", web.lastMax)
	}
}

func TestSearchWebTool_CapsMaxResults(t *testing.T) {
	t.Parallel()

	web := &stubWebSearcher{}
	r := tool.NewRegistry()
	if err := RegisterIntakeTools(r, web); err != nil {
		t.Fatalf("RegisterIntakeTools: %v", err)
	}

	if _, err := r.Dispatch(context.Background(), llm.ToolCall{
		ID:        "call_0",
		Name:      "search_web",
		Arguments: `{"query":"case law","max_results":50}`,
	}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if web.lastMax != 5 {
		t.Errorf("max results = %d, want cap 5", web.lastMax)
	}
}

func TestSearchWebTool_SearchErrorIsRecoverable(t *testing.T) {
	t.Parallel()

	web := &stubWebSearcher{err: errors.New("upstream down")}
	r := tool.NewRegistry()
	if err := RegisterIntakeTools(r, web); err != nil {
		t.Fatalf("RegisterIntakeTools: %v", err)
	}

	_, err := r.Dispatch(context.Background(), llm.ToolCall{
		ID:        "call_0",
		Name:      "search_web",
		Arguments: `{"query":"case law"}`,
	})
	if !errors.Is(err, tool.ErrExecutionFailed) {
		t.Fatalf("err = %v, want ErrExecutionFailed", err)
	}
}

func TestSearchWebTool_MissingQuery(t *testing.T) {
	t.Parallel()

	r := intakeRegistry(t)
	_, err := r.Dispatch(context.Background(), llm.ToolCall{
		ID:        "call_0",
		Name:      "search_web",
		Arguments: `{}`,
	})
	if !errors.Is(err, tool.ErrInvalidArguments) {
		t.Fatalf("err = %v, want ErrInvalidArguments", err)
	}
}

type stubSearcher struct{}

func (stubSearcher) Search(_ context.Context, _ string, k int) ([]tool.SearchHit, error) {
	return []tool.SearchHit{{Source: "handbook", Content: "stub", Score: 1}}, nil
}

type stubWebSearcher struct {
	results   []websearch.Result
	err       error
	lastQuery string
	lastMax   int
}

func (s *stubWebSearcher) Configured() bool { return true }

func (s *stubWebSearcher) Search(_ context.Context, query string, maxResults int) ([]websearch.Result, error) {
	s.lastQuery = query
	s.lastMax = maxResults
	return s.results, s.err
}
