package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matiasleandrokruk/iris/internal/infra/eventbus"
)

// Ingestion chunking defaults.
const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 50
)

// IngestedEventPayload carries identifiers for the downstream embedder.
type IngestedEventPayload struct {
	KnowledgeItemID string
	ChunkCount      int
}

// IngestService creates knowledge items with pending chunks and notifies
// the embedder through the event bus.
type IngestService struct {
	db  *sql.DB
	bus eventbus.EventBus
}

// NewIngestService creates an IngestService backed by the given DB and bus.
func NewIngestService(db *sql.DB, bus eventbus.EventBus) *IngestService {
	return &IngestService{db: db, bus: bus}
}

// Ingest inserts a knowledge_item, splits its content into chunks with
// status=pending and publishes a knowledge.ingested event.
func (s *IngestService) Ingest(ctx context.Context, input CreateItemInput) (*Item, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("title is required")
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, fmt.Errorf("content is required")
	}
	source := input.Source
	if source == "" {
		source = "document"
	}

	now := time.Now().UTC()
	item := &Item{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(input.Title),
		Source:    source,
		Content:   input.Content,
		CreatedBy: input.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO knowledge_item (id, title, source, content, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.Title, item.Source, item.Content, item.CreatedBy,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert knowledge_item: %w", err)
	}

	chunks := SplitChunks(input.Content, DefaultChunkSize, DefaultChunkOverlap)
	for i, content := range chunks {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO chunk (id, knowledge_item_id, position, content, embedding_status, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, uuid.NewString(), item.ID, i, content, EmbeddingStatusPending, now.Format(time.RFC3339))
		if err != nil {
			return nil, fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.bus.Publish(eventbus.TopicKnowledgeIngested, IngestedEventPayload{
		KnowledgeItemID: item.ID,
		ChunkCount:      len(chunks),
	})
	return item, nil
}

// GetItem loads a knowledge item by id.
func (s *IngestService) GetItem(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, source, content, created_by, created_at, updated_at
		FROM knowledge_item
		WHERE id = ?
	`, id)

	var (
		item       Item
		createdRaw string
		updatedRaw string
	)
	if err := row.Scan(&item.ID, &item.Title, &item.Source, &item.Content, &item.CreatedBy, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	item.CreatedAt, _ = time.Parse(time.RFC3339, createdRaw)
	item.UpdatedAt, _ = time.Parse(time.RFC3339, updatedRaw)
	return &item, nil
}
