package agent

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matiasleandrokruk/iris/internal/domain/conversation"
)

var ErrRunNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Run records one loop execution over a thread: how many steps it took,
// which tool calls it dispatched and what the final assistant said.
type Run struct {
	ID          string
	ThreadID    string
	Status      string
	Steps       int
	ToolCalls   json.RawMessage
	Output      string
	Error       *string
	StartedAt   time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// TraceEntry is one dispatched call in a run's tool-call trace.
type TraceEntry struct {
	CallID    string `json:"call_id"`
	Tool      string `json:"tool"`
	Arguments string `json:"arguments"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// RunStore persists run records in sqlite.
type RunStore struct {
	db *sql.DB
}

// NewRunStore wraps a database handle.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Begin inserts a running record for a thread and returns it.
func (s *RunStore) Begin(ctx context.Context, threadID string) (*Run, error) {
	now := time.Now().UTC()
	run := &Run{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Status:    StatusRunning,
		ToolCalls: json.RawMessage(`[]`),
		StartedAt: now,
		CreatedAt: now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO intake_run (id, thread_id, status, steps, tool_calls, output, started_at, created_at)
		VALUES (?, ?, ?, 0, '[]', '', ?, ?)
	`, run.ID, run.ThreadID, run.Status, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, err
	}
	return run, nil
}

// Complete finalizes a run with its outcome. runErr may be nil.
func (s *RunStore) Complete(ctx context.Context, runID string, steps int, trace []TraceEntry, output string, runErr error) error {
	status := StatusSuccess
	var errText any
	if runErr != nil {
		status = StatusFailed
		errText = runErr.Error()
	}
	traceRaw, err := json.Marshal(trace)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE intake_run
		SET status = ?, steps = ?, tool_calls = ?, output = ?, error = ?, completed_at = ?
		WHERE id = ?
	`, status, steps, string(traceRaw), output, errText, time.Now().UTC().Format(time.RFC3339Nano), runID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Get loads a run by id.
func (s *RunStore) Get(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, thread_id, status, steps, tool_calls, output, error, started_at, completed_at, created_at
		FROM intake_run
		WHERE id = ?
	`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListByThread returns the runs for a thread, newest first.
func (s *RunStore) ListByThread(ctx context.Context, threadID string) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, thread_id, status, steps, tool_calls, output, error, started_at, completed_at, created_at
		FROM intake_run
		WHERE thread_id = ?
		ORDER BY created_at DESC
	`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Run, 0)
	for rows.Next() {
		run, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type runScanner interface {
	Scan(dest ...any) error
}

func scanRun(scan runScanner) (*Run, error) {
	var (
		r            Run
		errText      sql.NullString
		startedRaw   string
		completedRaw sql.NullString
		createdRaw   string
		toolCallsRaw string
	)
	if err := scan.Scan(&r.ID, &r.ThreadID, &r.Status, &r.Steps, &toolCallsRaw,
		&r.Output, &errText, &startedRaw, &completedRaw, &createdRaw); err != nil {
		return nil, err
	}
	r.ToolCalls = json.RawMessage(toolCallsRaw)
	if errText.Valid {
		r.Error = &errText.String
	}
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedRaw)
	if completedRaw.Valid {
		t, _ := time.Parse(time.RFC3339Nano, completedRaw.String)
		r.CompletedAt = &t
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdRaw)
	return &r, nil
}

// traceFromState extracts the dispatched-call trace for the messages
// appended during a run.
func traceFromState(state *conversation.State, fromIndex int) []TraceEntry {
	argsByID := map[string]struct {
		tool string
		args string
	}{}
	trace := make([]TraceEntry, 0)
	for _, m := range state.Messages[fromIndex:] {
		switch m.Role {
		case conversation.RoleAssistant:
			for _, tc := range m.ToolCalls {
				argsByID[tc.ID] = struct {
					tool string
					args string
				}{tc.Name, tc.Arguments}
			}
		case conversation.RoleTool:
			entry := TraceEntry{CallID: m.ToolCallID, Content: m.Content}
			if meta, ok := argsByID[m.ToolCallID]; ok {
				entry.Tool = meta.tool
				entry.Arguments = meta.args
			}
			if len(m.Content) >= 6 && m.Content[:6] == "ERROR:" {
				entry.IsError = true
			}
			trace = append(trace, entry)
		}
	}
	return trace
}
