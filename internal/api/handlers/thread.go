// HTTP handlers for conversation threads: creation, inspection and running
// intake turns.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matiasleandrokruk/iris/internal/domain/agent"
	"github.com/matiasleandrokruk/iris/internal/domain/conversation"
	"github.com/matiasleandrokruk/iris/internal/domain/intake"
)

// ThreadHandler handles thread HTTP requests.
type ThreadHandler struct {
	threads *conversation.Store
	intake  *intake.Service
	runs    *agent.RunStore
}

// NewThreadHandler creates a ThreadHandler.
func NewThreadHandler(threads *conversation.Store, intakeSvc *intake.Service, runs *agent.RunStore) *ThreadHandler {
	return &ThreadHandler{threads: threads, intake: intakeSvc, runs: runs}
}

// threadResponse is the JSON shape of one thread.
type threadResponse struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	LegalAreas []string          `json:"legalAreas"`
	ClientInfo map[string]string `json:"clientInfo"`
	CreatedAt  string            `json:"createdAt"`
	UpdatedAt  string            `json:"updatedAt"`
}

// messageResponse is the JSON shape of one transcript message.
type messageResponse struct {
	Seq        int             `json:"seq"`
	Role       string          `json:"role"`
	Content    string          `json:"content"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	Artifact   json.RawMessage `json:"artifact,omitempty"`
	CreatedAt  string          `json:"createdAt"`
}

// turnRequest is the request body for POST /threads/{id}/messages.
type turnRequest struct {
	Message string `json:"message"`
}

// turnResponse is the response for one intake turn.
type turnResponse struct {
	Reply      string   `json:"reply"`
	Ended      bool     `json:"ended"`
	LegalAreas []string `json:"legalAreas,omitempty"`
	RunID      string   `json:"runId,omitempty"`
	RunStatus  string   `json:"runStatus,omitempty"`
	Steps      int      `json:"steps,omitempty"`
}

// runResponse is the JSON shape of one persisted run.
type runResponse struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Steps       int             `json:"steps"`
	ToolCalls   json.RawMessage `json:"toolCalls,omitempty"`
	Output      string          `json:"output,omitempty"`
	Error       *string         `json:"error,omitempty"`
	StartedAt   string          `json:"startedAt"`
	CompletedAt *string         `json:"completedAt,omitempty"`
}

// Create handles POST /api/v1/threads.
func (h *ThreadHandler) Create(w http.ResponseWriter, r *http.Request) {
	thread, err := h.threads.CreateThread(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create thread")
		return
	}
	writeJSON(w, http.StatusCreated, toThreadResponse(thread))
}

// List handles GET /api/v1/threads.
func (h *ThreadHandler) List(w http.ResponseWriter, r *http.Request) {
	threads, err := h.threads.ListThreads(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list threads")
		return
	}
	out := make([]threadResponse, len(threads))
	for i, t := range threads {
		out[i] = toThreadResponse(t)
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /api/v1/threads/{id}: thread metadata plus transcript.
func (h *ThreadHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	state, err := h.threads.LoadState(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}
	messages := make([]messageResponse, len(state.Messages))
	for i, m := range state.Messages {
		messages[i] = messageResponse{
			Seq:        m.Seq,
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Artifact:   m.Artifact,
			CreatedAt:  m.CreatedAt.Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, struct {
		threadResponse
		Messages []messageResponse `json:"messages"`
	}{toThreadResponse(thread), messages})
}

// PostMessage handles POST /api/v1/threads/{id}/messages: one intake turn.
func (h *ThreadHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	result, err := h.intake.HandleTurn(r.Context(), id, req.Message)
	if err != nil {
		if errors.Is(err, conversation.ErrThreadNotFound) {
			writeError(w, http.StatusNotFound, "thread not found")
			return
		}
		if errors.Is(err, intake.ErrConversationEnded) {
			writeError(w, http.StatusConflict, "conversation already ended")
			return
		}
		if errors.Is(err, agent.ErrStepBudgetExceeded) {
			writeError(w, http.StatusUnprocessableEntity, "run exceeded its step budget")
			return
		}
		writeError(w, http.StatusInternalServerError, "conversation turn failed")
		return
	}

	resp := turnResponse{
		Reply:      result.Reply,
		Ended:      result.Ended,
		LegalAreas: result.LegalAreas,
	}
	if result.Run != nil {
		resp.RunID = result.Run.ID
		resp.RunStatus = result.Run.Status
		resp.Steps = result.Run.Steps
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRuns handles GET /api/v1/threads/{id}/runs: the audit trail of loop
// executions for a thread.
func (h *ThreadHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.threads.GetThread(r.Context(), id); err != nil {
		if errors.Is(err, conversation.ErrThreadNotFound) {
			writeError(w, http.StatusNotFound, "thread not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load thread")
		return
	}

	runs, err := h.runs.ListByThread(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	out := make([]runResponse, len(runs))
	for i, run := range runs {
		out[i] = runResponse{
			ID:        run.ID,
			Status:    run.Status,
			Steps:     run.Steps,
			ToolCalls: run.ToolCalls,
			Output:    run.Output,
			Error:     run.Error,
			StartedAt: run.StartedAt.Format(time.RFC3339),
		}
		if run.CompletedAt != nil {
			s := run.CompletedAt.Format(time.RFC3339)
			out[i].CompletedAt = &s
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func toThreadResponse(t *conversation.Thread) threadResponse {
	areas := t.LegalAreas
	if areas == nil {
		areas = []string{}
	}
	info := t.ClientInfo
	if info == nil {
		info = map[string]string{}
	}
	return threadResponse{
		ID:         t.ID,
		Status:     t.Status,
		LegalAreas: areas,
		ClientInfo: info,
		CreatedAt:  t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  t.UpdatedAt.Format(time.RFC3339),
	}
}
