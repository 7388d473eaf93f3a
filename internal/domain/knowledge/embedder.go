// EmbedderService consumes knowledge.ingested events, batches the item's
// pending chunks through Provider.Embed and stores the vectors as JSON
// TEXT on the chunk rows.
package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/matiasleandrokruk/iris/internal/infra/eventbus"
	"github.com/matiasleandrokruk/iris/internal/infra/llm"
)

const (
	embedMaxRetries = 3
	embedBaseDelay  = 100 * time.Millisecond
)

// EmbedderService processes pending chunks.
type EmbedderService struct {
	db     *sql.DB
	llm    llm.Provider
	logger *slog.Logger
}

// NewEmbedderService creates an EmbedderService backed by the given DB
// and embedding-capable provider.
func NewEmbedderService(db *sql.DB, provider llm.Provider) *EmbedderService {
	return &EmbedderService{db: db, llm: provider, logger: slog.Default()}
}

// Start subscribes to TopicKnowledgeIngested and embeds each ingested
// item. Runs in the calling goroutine — launch with: go svc.Start(ctx, bus)
// Stops when ctx is cancelled.
func (s *EmbedderService) Start(ctx context.Context, bus eventbus.EventBus) {
	ch := bus.Subscribe(eventbus.TopicKnowledgeIngested)
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-ch:
			payload, ok := evt.Payload.(IngestedEventPayload)
			if !ok {
				continue
			}
			if err := s.EmbedChunks(ctx, payload.KnowledgeItemID); err != nil {
				s.logger.Warn("embed chunks failed", "item", payload.KnowledgeItemID, "error", err)
			}
		}
	}
}

// EmbedChunks fetches the item's pending chunks, embeds them in one batch
// and marks them embedded. After all retries fail the chunks are marked
// failed and the embed error is returned.
func (s *EmbedderService) EmbedChunks(ctx context.Context, knowledgeItemID string) error {
	chunks, err := s.fetchPendingChunks(ctx, knowledgeItemID)
	if err != nil {
		return fmt.Errorf("embedder: fetch chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vecs, err := s.callEmbedWithRetry(ctx, texts)
	if err != nil {
		s.markAllFailed(ctx, chunks)
		return fmt.Errorf("embedder: embed: %w", err)
	}
	if len(vecs) != len(chunks) {
		s.markAllFailed(ctx, chunks)
		return fmt.Errorf("embedder: got %d vectors for %d chunks", len(vecs), len(chunks))
	}

	if storeErr := s.storeVectors(ctx, chunks, vecs); storeErr != nil {
		s.markAllFailed(ctx, chunks)
		return fmt.Errorf("embedder: store vectors: %w", storeErr)
	}
	return nil
}

func (s *EmbedderService) fetchPendingChunks(ctx context.Context, itemID string) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, knowledge_item_id, position, content
		FROM chunk
		WHERE knowledge_item_id = ? AND embedding_status = ?
		ORDER BY position ASC
	`, itemID, EmbeddingStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.KnowledgeItemID, &c.Position, &c.Content); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// callEmbedWithRetry calls Provider.Embed with exponential backoff
// (100ms, 200ms, 400ms delays).
func (s *EmbedderService) callEmbedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	delay := embedBaseDelay
	for attempt := 0; attempt < embedMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
		resp, err := s.llm.Embed(ctx, llm.EmbedRequest{Texts: texts})
		if err == nil {
			return resp.Embeddings, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all %d retries failed: %w", embedMaxRetries, lastErr)
}

// storeVectors writes the vectors and flips status to embedded in a
// single transaction.
func (s *EmbedderService) storeVectors(ctx context.Context, chunks []Chunk, vecs [][]float32) error {
	now := time.Now().UTC().Format(time.RFC3339)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for i, chunk := range chunks {
		embJSON, encErr := encodeEmbedding(vecs[i])
		if encErr != nil {
			return fmt.Errorf("encode embedding[%d]: %w", i, encErr)
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE chunk
			SET embedding = ?, embedding_status = ?, embedded_at = ?
			WHERE id = ?
		`, embJSON, EmbeddingStatusEmbedded, now, chunk.ID)
		if err != nil {
			return fmt.Errorf("update chunk[%d]: %w", i, err)
		}
	}
	return tx.Commit()
}

// markAllFailed sets embedding_status='failed' on all given chunks.
// Errors are ignored to avoid masking the original embed error.
func (s *EmbedderService) markAllFailed(ctx context.Context, chunks []Chunk) {
	for _, chunk := range chunks {
		_, _ = s.db.ExecContext(ctx, `
			UPDATE chunk SET embedding_status = ? WHERE id = ?
		`, EmbeddingStatusFailed, chunk.ID)
	}
}

// encodeEmbedding serialises a float32 slice to JSON TEXT for storage.
func encodeEmbedding(vec []float32) (string, error) {
	b, err := json.Marshal(vec)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
