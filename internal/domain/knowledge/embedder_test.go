package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/matiasleandrokruk/iris/internal/infra/eventbus"
	"github.com/matiasleandrokruk/iris/internal/infra/llm"
)

// stubEmbedder is a Provider stub returning canned vectors per text.
type stubEmbedder struct {
	vec      []float32
	err      error
	embedded int
}

func (s *stubEmbedder) ChatCompletion(_ context.Context, _ llm.ChatRequest) (*llm.ChatResponse, error) {
	return nil, errors.New("not implemented")
}

func (s *stubEmbedder) Embed(_ context.Context, req llm.EmbedRequest) (*llm.EmbedResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.embedded += len(req.Texts)
	out := make([][]float32, len(req.Texts))
	for i := range out {
		out[i] = s.vec
	}
	return &llm.EmbedResponse{Embeddings: out}, nil
}

func (s *stubEmbedder) ModelInfo() llm.ModelMeta        { return llm.ModelMeta{ID: "stub"} }
func (s *stubEmbedder) HealthCheck(_ context.Context) error { return nil }

func TestEmbedChunks_MarksEmbedded(t *testing.T) {
	t.Parallel()

	db := knowledgeTestDB(t)
	bus := eventbus.New()
	ingest := NewIngestService(db, bus)

	item, err := ingest.Ingest(context.Background(), CreateItemInput{
		Title:   "Billing",
		Content: "Retainers are billed monthly.",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	embedder := NewEmbedderService(db, &stubEmbedder{vec: []float32{0.1, 0.2}})
	if err := embedder.EmbedChunks(context.Background(), item.ID); err != nil {
		t.Fatalf("EmbedChunks: %v", err)
	}

	var status, embRaw string
	err = db.QueryRow(
		"SELECT embedding_status, embedding FROM chunk WHERE knowledge_item_id = ?", item.ID,
	).Scan(&status, &embRaw)
	if err != nil {
		t.Fatalf("query chunk: %v", err)
	}
	if status != EmbeddingStatusEmbedded {
		t.Errorf("status = %q, want embedded", status)
	}
	if embRaw != "[0.1,0.2]" {
		t.Errorf("embedding = %q", embRaw)
	}
}

func TestEmbedChunks_FailureMarksFailed(t *testing.T) {
	t.Parallel()

	db := knowledgeTestDB(t)
	ingest := NewIngestService(db, eventbus.New())

	item, err := ingest.Ingest(context.Background(), CreateItemInput{
		Title:   "Billing",
		Content: "Retainers are billed monthly.",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	embedder := NewEmbedderService(db, &stubEmbedder{err: errors.New("provider offline")})
	if err := embedder.EmbedChunks(context.Background(), item.ID); err == nil {
		t.Fatal("expected embed error")
	}

	var status string
	err = db.QueryRow(
		"SELECT embedding_status FROM chunk WHERE knowledge_item_id = ?", item.ID,
	).Scan(&status)
	if err != nil {
		t.Fatalf("query chunk: %v", err)
	}
	if status != EmbeddingStatusFailed {
		t.Errorf("status = %q, want failed", status)
	}
}

func TestEmbedChunks_NoPendingIsNoop(t *testing.T) {
	t.Parallel()

	db := knowledgeTestDB(t)
	embedder := NewEmbedderService(db, &stubEmbedder{vec: []float32{1}})
	if err := embedder.EmbedChunks(context.Background(), "missing-item"); err != nil {
		t.Errorf("expected noop, got %v", err)
	}
}
