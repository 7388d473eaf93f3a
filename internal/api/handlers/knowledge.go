// HTTP handlers for knowledge ingestion and search.
// POST /api/v1/knowledge ingests a document; POST /api/v1/knowledge/search
// runs vector search over embedded chunks.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/matiasleandrokruk/iris/internal/domain/knowledge"
)

// KnowledgeHandler handles knowledge HTTP requests.
type KnowledgeHandler struct {
	ingest *knowledge.IngestService
	search *knowledge.SearchService
}

// NewKnowledgeHandler creates a KnowledgeHandler.
func NewKnowledgeHandler(ingest *knowledge.IngestService, search *knowledge.SearchService) *KnowledgeHandler {
	return &KnowledgeHandler{ingest: ingest, search: search}
}

// ingestRequest is the JSON request body for POST /api/v1/knowledge.
type ingestRequest struct {
	Title   string `json:"title"`
	Source  string `json:"source,omitempty"`
	Content string `json:"content"`
}

// ingestResponse is the JSON response body for a successful ingest.
type ingestResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Source    string `json:"source"`
	CreatedBy string `json:"createdBy"`
	CreatedAt string `json:"createdAt"`
}

// searchRequest is the JSON request body for POST /api/v1/knowledge/search.
type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// searchResultItem is a single item in the search response.
type searchResultItem struct {
	ChunkID string  `json:"chunkId"`
	ItemID  string  `json:"itemId"`
	Title   string  `json:"title"`
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// searchResponse is the JSON response body for a search.
type searchResponse struct {
	Results []searchResultItem `json:"results"`
	Query   string             `json:"query"`
}

// Ingest handles POST /api/v1/knowledge.
func (h *KnowledgeHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	if err := validateIngestRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	operatorID, err := getOperatorID(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing operator identity")
		return
	}

	item, err := h.ingest.Ingest(r.Context(), knowledge.CreateItemInput{
		Title:     req.Title,
		Source:    req.Source,
		Content:   req.Content,
		CreatedBy: operatorID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to ingest document")
		return
	}

	writeJSON(w, http.StatusCreated, ingestResponse{
		ID:        item.ID,
		Title:     item.Title,
		Source:    item.Source,
		CreatedBy: item.CreatedBy,
		CreatedAt: item.CreatedAt.Format(time.RFC3339),
	})
}

// Search handles POST /api/v1/knowledge/search.
func (h *KnowledgeHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.search.Search(r.Context(), req.Query, req.K)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	items := make([]searchResultItem, len(results))
	for i, res := range results {
		items[i] = searchResultItem{
			ChunkID: res.ChunkID,
			ItemID:  res.KnowledgeItemID,
			Title:   res.Title,
			Source:  res.Source,
			Content: res.Content,
			Score:   res.Score,
		}
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: items, Query: req.Query})
}

func validateIngestRequest(req ingestRequest) error {
	if req.Title == "" {
		return errors.New("title is required")
	}
	if req.Content == "" {
		return errors.New("content is required")
	}
	return nil
}
