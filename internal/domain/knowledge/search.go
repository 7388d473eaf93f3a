// SearchService embeds the query and ranks stored chunks by cosine
// similarity in memory. The corpus is small enough that a linear scan
// beats maintaining an index.
package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/matiasleandrokruk/iris/internal/infra/llm"
)

const (
	defaultK = 2
	maxK     = 50
)

// SearchService runs similarity search over embedded chunks.
type SearchService struct {
	db  *sql.DB
	llm llm.Provider
}

// NewSearchService creates a SearchService backed by the given DB and
// embedding-capable provider.
func NewSearchService(db *sql.DB, provider llm.Provider) *SearchService {
	return &SearchService{db: db, llm: provider}
}

// Search embeds the query and returns the k most similar chunks,
// best first. k <= 0 falls back to 2, capped at 50.
func (s *SearchService) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	k = resolveK(k)

	resp, err := s.llm.Embed(ctx, llm.EmbedRequest{Texts: []string{query}})
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("search: provider returned no query vector")
	}
	queryVec := resp.Embeddings[0]

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.knowledge_item_id, ki.title, ki.source, c.content, c.embedding
		FROM chunk c
		JOIN knowledge_item ki ON ki.id = c.knowledge_item_id
		WHERE c.embedding_status = ?
	`, EmbeddingStatusEmbedded)
	if err != nil {
		return nil, fmt.Errorf("search: fetch chunks: %w", err)
	}
	defer rows.Close()

	scored := make([]SearchResult, 0)
	for rows.Next() {
		var (
			r      SearchResult
			embRaw string
		)
		if err := rows.Scan(&r.ChunkID, &r.KnowledgeItemID, &r.Title, &r.Source, &r.Content, &embRaw); err != nil {
			return nil, fmt.Errorf("search: scan chunk: %w", err)
		}
		vec, decodeErr := decodeEmbedding(embRaw)
		if decodeErr != nil {
			continue // skip malformed vectors
		}
		r.Score = float64(cosineSimilarity(queryVec, vec))
		scored = append(scored, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// cosineSimilarity computes cosine similarity between two float32 vectors.
// Returns 0 if either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}

// decodeEmbedding deserialises a JSON TEXT vector back to []float32.
func decodeEmbedding(jsonStr string) ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal([]byte(jsonStr), &vec); err != nil {
		return nil, fmt.Errorf("decodeEmbedding: %w", err)
	}
	return vec, nil
}

func resolveK(k int) int {
	if k <= 0 {
		return defaultK
	}
	if k > maxK {
		return maxK
	}
	return k
}
