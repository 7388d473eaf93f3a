// HTTP handler for the handoff package of a completed intake thread.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matiasleandrokruk/iris/internal/domain/conversation"
	"github.com/matiasleandrokruk/iris/internal/domain/intake"
)

// HandoffHandler serves the handoff package for completed threads.
type HandoffHandler struct {
	threads  *conversation.Store
	drafting *intake.DraftingService
}

// NewHandoffHandler creates a HandoffHandler.
func NewHandoffHandler(threads *conversation.Store, drafting *intake.DraftingService) *HandoffHandler {
	return &HandoffHandler{threads: threads, drafting: drafting}
}

type draftResponse struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

type handoffResponse struct {
	ThreadID   string            `json:"threadId"`
	Status     string            `json:"status"`
	HandoffTo  string            `json:"handoffTo"`
	LegalAreas []string          `json:"legalAreas"`
	ClientInfo map[string]string `json:"clientInfo"`
	Drafts     []draftResponse   `json:"drafts"`
}

// Get handles GET /api/v1/threads/{id}/handoff.
//
// Response codes:
//   - 200 OK: thread completed, handoff package returned
//   - 404 Not Found: unknown thread
//   - 409 Conflict: thread still open (no handoff yet)
func (h *HandoffHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	thread, err := h.threads.GetThread(r.Context(), id)
	if err != nil {
		if errors.Is(err, conversation.ErrThreadNotFound) {
			writeError(w, http.StatusNotFound, "thread not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load thread")
		return
	}
	if thread.Status != conversation.ThreadCompleted {
		writeError(w, http.StatusConflict, "thread has not been handed off yet")
		return
	}

	drafts, err := h.drafting.ListByThread(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load drafts")
		return
	}
	out := make([]draftResponse, len(drafts))
	for i, d := range drafts {
		out[i] = draftResponse{
			ID:        d.ID,
			Content:   d.Content,
			CreatedAt: d.CreatedAt.Format(time.RFC3339),
		}
	}

	areas := thread.LegalAreas
	if areas == nil {
		areas = []string{}
	}
	info := thread.ClientInfo
	if info == nil {
		info = map[string]string{}
	}
	writeJSON(w, http.StatusOK, handoffResponse{
		ThreadID:   thread.ID,
		Status:     thread.Status,
		HandoffTo:  intake.HandoffTarget,
		LegalAreas: areas,
		ClientInfo: info,
		Drafts:     out,
	})
}
