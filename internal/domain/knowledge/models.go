// Package knowledge implements the ingestion pipeline behind the retrieve
// tool: documents are chunked, embedded asynchronously and searched by
// cosine similarity.
package knowledge

import "time"

// Embedding statuses for a chunk.
const (
	EmbeddingStatusPending  = "pending"
	EmbeddingStatusEmbedded = "embedded"
	EmbeddingStatusFailed   = "failed"
)

// Item is a stored document.
type Item struct {
	ID        string
	Title     string
	Source    string
	Content   string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chunk is one embeddable slice of an item's content.
type Chunk struct {
	ID              string
	KnowledgeItemID string
	Position        int
	Content         string
	Embedding       []float32
	EmbeddingStatus string
	EmbeddedAt      *time.Time
	CreatedAt       time.Time
}

// CreateItemInput carries the fields needed to ingest a document.
type CreateItemInput struct {
	Title   string
	Source  string
	Content string
	// CreatedBy records the ingesting operator; empty for system loads.
	CreatedBy string
}

// SearchResult is a single ranked chunk from a similarity search.
type SearchResult struct {
	ChunkID         string
	KnowledgeItemID string
	Title           string
	Source          string
	Content         string
	Score           float64
}
