package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matiasleandrokruk/iris/internal/infra/llm"
)

var (
	ErrThreadNotFound = errors.New("thread not found")
)

// Thread statuses.
const (
	ThreadOpen      = "open"
	ThreadCompleted = "completed"
)

// Thread is a persisted conversation with intake metadata attached as it
// is collected.
type Thread struct {
	ID         string
	Status     string
	LegalAreas []string
	ClientInfo map[string]string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store persists threads and their messages in sqlite.
type Store struct {
	db *sql.DB
}

// NewStore wraps a database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateThread inserts a new open thread.
func (s *Store) CreateThread(ctx context.Context) (*Thread, error) {
	now := time.Now().UTC()
	t := &Thread{
		ID:         uuid.NewString(),
		Status:     ThreadOpen,
		LegalAreas: []string{},
		ClientInfo: map[string]string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO thread (id, status, legal_areas, client_info, created_at, updated_at)
		VALUES (?, ?, '[]', '{}', ?, ?)
	`, t.ID, t.Status, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	return t, nil
}

// GetThread loads a thread by id.
func (s *Store) GetThread(ctx context.Context, id string) (*Thread, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, legal_areas, client_info, created_at, updated_at
		FROM thread
		WHERE id = ?
	`, id)

	t, err := scanThread(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListThreads returns all threads, newest first.
func (s *Store) ListThreads(ctx context.Context) ([]*Thread, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, legal_areas, client_info, created_at, updated_at
		FROM thread
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Thread, 0)
	for rows.Next() {
		t, scanErr := scanThread(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CompleteThread marks a thread completed and records the intake metadata
// collected during the conversation.
func (s *Store) CompleteThread(ctx context.Context, id string, legalAreas []string, clientInfo map[string]string) error {
	areasRaw, err := json.Marshal(legalAreas)
	if err != nil {
		return err
	}
	infoRaw, err := json.Marshal(clientInfo)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE thread
		SET status = ?, legal_areas = ?, client_info = ?, updated_at = ?
		WHERE id = ?
	`, ThreadCompleted, string(areasRaw), string(infoRaw), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("complete thread: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrThreadNotFound
	}
	return nil
}

// AppendMessage persists a message at the end of the thread and returns
// it with id, sequence and timestamp assigned.
func (s *Store) AppendMessage(ctx context.Context, threadID string, m Message) (*Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck
	}()

	var seq int
	row := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq)+1, 0) FROM message WHERE thread_id = ?", threadID)
	if err := row.Scan(&seq); err != nil {
		return nil, fmt.Errorf("next seq: %w", err)
	}

	m.ID = uuid.NewString()
	m.ThreadID = threadID
	m.Seq = seq
	m.CreatedAt = time.Now().UTC()

	var toolCallsRaw any
	if len(m.ToolCalls) > 0 {
		b, marshalErr := json.Marshal(m.ToolCalls)
		if marshalErr != nil {
			return nil, marshalErr
		}
		toolCallsRaw = string(b)
	}
	var artifactRaw any
	if len(m.Artifact) > 0 {
		artifactRaw = string(m.Artifact)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO message (id, thread_id, seq, role, content, tool_calls, tool_call_id, artifact, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.ThreadID, m.Seq, m.Role, m.Content, toolCallsRaw, nullableString(m.ToolCallID), artifactRaw,
		m.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &m, nil
}

// LoadState reads the full ordered message list for a thread.
func (s *Store) LoadState(ctx context.Context, threadID string) (*State, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, thread_id, seq, role, content, tool_calls, tool_call_id, artifact, created_at
		FROM message
		WHERE thread_id = ?
		ORDER BY seq ASC
	`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	state := NewState(threadID)
	for rows.Next() {
		m, scanErr := scanMessage(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		state.Messages = append(state.Messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return state, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThread(scan rowScanner) (*Thread, error) {
	var (
		t            Thread
		areasRaw     string
		infoRaw      string
		createdAtRaw string
		updatedAtRaw string
	)
	if err := scan.Scan(&t.ID, &t.Status, &areasRaw, &infoRaw, &createdAtRaw, &updatedAtRaw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(areasRaw), &t.LegalAreas); err != nil {
		return nil, fmt.Errorf("decode legal_areas: %w", err)
	}
	if err := json.Unmarshal([]byte(infoRaw), &t.ClientInfo); err != nil {
		return nil, fmt.Errorf("decode client_info: %w", err)
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAtRaw)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAtRaw)
	return &t, nil
}

func scanMessage(scan rowScanner) (*Message, error) {
	var (
		m            Message
		toolCallsRaw sql.NullString
		toolCallID   sql.NullString
		artifactRaw  sql.NullString
		createdAtRaw string
	)
	if err := scan.Scan(&m.ID, &m.ThreadID, &m.Seq, &m.Role, &m.Content,
		&toolCallsRaw, &toolCallID, &artifactRaw, &createdAtRaw); err != nil {
		return nil, err
	}
	if toolCallsRaw.Valid && toolCallsRaw.String != "" {
		var calls []llm.ToolCall
		if err := json.Unmarshal([]byte(toolCallsRaw.String), &calls); err != nil {
			return nil, fmt.Errorf("decode tool_calls: %w", err)
		}
		m.ToolCalls = calls
	}
	if toolCallID.Valid {
		m.ToolCallID = toolCallID.String
	}
	if artifactRaw.Valid && artifactRaw.String != "" {
		m.Artifact = json.RawMessage(artifactRaw.String)
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtRaw)
	return &m, nil
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
