// Package memory implements the Memory Store (spec §4.3): durable session
// snapshots and long-term, append-only per-user memory. It is the only
// component permitted to mutate sessions/user_memories (spec §5).
package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pagbank/agent-router/pkg/database"
	"github.com/pagbank/agent-router/pkg/session"
)

// Store is the Memory Store.
type Store struct {
	db *database.Client
}

// New wraps a database client as a Memory Store.
func New(db *database.Client) *Store {
	return &Store{db: db}
}

// GetSession loads a session's durable snapshot, or nil if none exists yet
// (a brand new session lives only in pkg/session.Manager until its first
// PutSession).
func (s *Store) GetSession(ctx context.Context, sessionID string) (*session.State, error) {
	row := s.db.Pool.QueryRow(ctx, `SELECT state FROM sessions WHERE session_id = $1`, sessionID)

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("memory: get session: %w", err)
	}

	st := &session.State{}
	if err := json.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("memory: decode session state: %w", err)
	}
	return st, nil
}

// PutSession persists a session snapshot, upserting by session_id. Callers
// pass session.State.Snapshot() — never the live, mutex-holding *State.
func (s *Store) PutSession(ctx context.Context, st session.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("memory: encode session state: %w", err)
	}

	_, err = s.db.Pool.Exec(ctx, `
		INSERT INTO sessions (session_id, customer_id, state, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (session_id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id, state = EXCLUDED.state, updated_at = now()`,
		st.SessionID, st.CustomerID, raw,
	)
	if err != nil {
		return fmt.Errorf("memory: put session: %w", err)
	}
	return nil
}

// ClearSession deletes a session's durable record. Spec §4.3: "deletions are
// limited to an explicit clear_session(session_id) used for demos."
func (s *Store) ClearSession(ctx context.Context, sessionID string) error {
	_, err := s.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("memory: clear session: %w", err)
	}
	return nil
}

// SummarizeSession produces a short human-readable summary of a session,
// used by the Human Handoff specialist (spec §4.3, §4.7). This is a
// deterministic, template-based summary over structured session fields —
// not an LLM call, which keeps it usable from tests without a live model.
func (s *Store) SummarizeSession(ctx context.Context, sessionID string) (string, error) {
	st, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if st == nil {
		return "", fmt.Errorf("memory: summarize: %w", pgx.ErrNoRows)
	}
	return Summarize(st), nil
}

// Summarize is the pure template used by SummarizeSession. It is exported
// so the Human Handoff specialist (pkg/specialist) can summarize the live,
// in-memory *session.State directly — without a round trip through
// PutSession/GetSession — right before closing a session.
func Summarize(st *session.State) string {
	topic := st.CurrentTopic
	if topic == "" {
		topic = "não identificado"
	}
	return fmt.Sprintf(
		"Sessão %s: %d interações, tópico atual %q, nível de frustração %d/3, %d protocolo(s) emitido(s).",
		st.SessionID, st.InteractionCount, topic, st.FrustrationLevel, len(st.Protocols),
	)
}

// UserMemory is one append-only long-term memory record for a user (spec §3
// "UserMemory").
type UserMemory struct {
	MemoryID  string
	UserID    string
	Content   string
	Tags      []string
	CreatedAt string
}

// AddUserMemory appends a long-term memory record. Writes are append-only
// (spec §4.3).
func (s *Store) AddUserMemory(ctx context.Context, userID, content string, tags []string) (string, error) {
	memoryID := uuid.New().String()
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO user_memories (memory_id, user_id, content, tags)
		VALUES ($1, $2, $3, $4)`,
		memoryID, userID, content, tags,
	)
	if err != nil {
		return "", fmt.Errorf("memory: add user memory: %w", err)
	}
	return memoryID, nil
}

// SearchUserMemory finds a user's memories matching a tag (exact) or a
// free-text query (ILIKE substring), newest first, bounded by limit (spec
// §4.3 "search_user_memory(user_id, query | tag, limit)").
func (s *Store) SearchUserMemory(ctx context.Context, userID, query, tag string, limit int) ([]UserMemory, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error
	switch {
	case tag != "":
		rows, err = s.db.Pool.Query(ctx, `
			SELECT memory_id, user_id, content, tags, created_at::text
			FROM user_memories WHERE user_id = $1 AND $2 = ANY(tags)
			ORDER BY created_at DESC LIMIT $3`,
			userID, tag, limit,
		)
	case query != "":
		rows, err = s.db.Pool.Query(ctx, `
			SELECT memory_id, user_id, content, tags, created_at::text
			FROM user_memories WHERE user_id = $1 AND content ILIKE '%' || $2 || '%'
			ORDER BY created_at DESC LIMIT $3`,
			userID, query, limit,
		)
	default:
		rows, err = s.db.Pool.Query(ctx, `
			SELECT memory_id, user_id, content, tags, created_at::text
			FROM user_memories WHERE user_id = $1
			ORDER BY created_at DESC LIMIT $2`,
			userID, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("memory: search user memory: %w", err)
	}
	defer rows.Close()

	var out []UserMemory
	for rows.Next() {
		var m UserMemory
		if err := rows.Scan(&m.MemoryID, &m.UserID, &m.Content, &m.Tags, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("memory: scan user memory: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
