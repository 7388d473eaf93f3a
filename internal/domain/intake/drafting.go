package intake

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matiasleandrokruk/iris/internal/domain/conversation"
	"github.com/matiasleandrokruk/iris/internal/infra/eventbus"
	"github.com/matiasleandrokruk/iris/internal/infra/llm"
)

const draftSystemPrompt = `You prepare internal pitch briefs for a law firm. From the intake transcript, summarise the client's situation, their legal area, the key facts gathered and any urgency signals. Write a concise brief the legal team can turn into a tailored pitch deck.`

// Draft is one generated pitch brief.
type Draft struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// DraftingService turns completed intakes into pitch briefs. It listens on
// the intake.handoff topic and stores one draft per handoff.
type DraftingService struct {
	db      *sql.DB
	threads *conversation.Store
	llm     llm.Provider
	logger  *slog.Logger
}

func NewDraftingService(db *sql.DB, threads *conversation.Store, provider llm.Provider, logger *slog.Logger) *DraftingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DraftingService{db: db, threads: threads, llm: provider, logger: logger}
}

// Start consumes handoff events until ctx is cancelled.
func (s *DraftingService) Start(ctx context.Context, bus eventbus.EventBus) {
	events := bus.Subscribe(eventbus.TopicIntakeHandoff)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			payload, ok := evt.Payload.(HandoffEventPayload)
			if !ok {
				s.logger.Warn("unexpected handoff payload", "topic", evt.Topic)
				continue
			}
			if _, err := s.DraftForThread(ctx, payload.ThreadID, payload.LegalAreas); err != nil {
				s.logger.Error("drafting failed", "thread_id", payload.ThreadID, "error", err)
			}
		}
	}
}

// DraftForThread summarises the thread's transcript into a pitch brief and
// persists it.
func (s *DraftingService) DraftForThread(ctx context.Context, threadID string, legalAreas []string) (*Draft, error) {
	state, err := s.threads.LoadState(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	prompt := buildDraftPrompt(state, legalAreas)
	resp, err := s.llm.ChatCompletion(ctx, llm.ChatRequest{
		System:   draftSystemPrompt,
		Messages: []llm.Message{{Role: conversation.RoleUser, Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("generate draft: %w", err)
	}

	draft := &Draft{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Content:   resp.Message.Content,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO draft_document (id, thread_id, content, created_at) VALUES (?, ?, ?, ?)`,
		draft.ID, draft.ThreadID, draft.Content, draft.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("store draft: %w", err)
	}
	s.logger.Info("draft stored", "thread_id", threadID, "draft_id", draft.ID)
	return draft, nil
}

// ListByThread returns the drafts produced for a thread, newest first.
func (s *DraftingService) ListByThread(ctx context.Context, threadID string) ([]*Draft, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thread_id, content, created_at FROM draft_document WHERE thread_id = ? ORDER BY created_at DESC`,
		threadID)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var drafts []*Draft
	for rows.Next() {
		var d Draft
		var createdAt string
		if err := rows.Scan(&d.ID, &d.ThreadID, &d.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		d.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		drafts = append(drafts, &d)
	}
	return drafts, rows.Err()
}

func buildDraftPrompt(state *conversation.State, legalAreas []string) string {
	var b strings.Builder
	if len(legalAreas) > 0 {
		fmt.Fprintf(&b, "Legal areas: %s\n\n", strings.Join(legalAreas, ", "))
	}
	b.WriteString("Intake transcript:\n")
	for _, m := range state.Messages {
		if m.Role != conversation.RoleUser && m.Role != conversation.RoleAssistant {
			continue
		}
		if m.Content == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}
