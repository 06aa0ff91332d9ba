// Package database provides Postgres connectivity and the repository
// types backing chat persistence and the robots.txt cache: sqlx plus
// the lib/pq driver, no ORM.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/scoutline/relay/internal/domain"
)

// ChatStore persists chat sessions and messages. Session ownership and
// message ordering are enforced here rather than trusted to callers:
// GetSession filters on user_id, and every append bumps the parent
// session's updated_at in the same statement set.
type ChatStore struct {
	db *sqlx.DB
}

// NewChatStore constructs a ChatStore backed by db.
func NewChatStore(db *sqlx.DB) *ChatStore {
	return &ChatStore{db: db}
}

// CreateSession inserts a new ChatSession owned by userID, truncating
// title to domain.MaxTitleLength.
func (s *ChatStore) CreateSession(ctx context.Context, userID, title string) (string, error) {
	if len(title) > domain.MaxTitleLength {
		title = title[:domain.MaxTitleLength]
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	const query = `
		INSERT INTO chat_sessions (id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)`

	if _, err := s.db.ExecContext(ctx, query, id, userID, title, now); err != nil {
		return "", fmt.Errorf("database: create session: %w", err)
	}

	return id, nil
}

// AppendMessage inserts a ChatMessage and bumps the parent session's
// updated_at so ListRecentSessions reflects the latest activity.
func (s *ChatStore) AppendMessage(ctx context.Context, chatID string, role domain.ChatRole, content, eventsJSON, usageJSON string) error {
	if eventsJSON == "" {
		eventsJSON = "[]"
	}
	if usageJSON == "" {
		usageJSON = "{}"
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("database: begin append message tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback no-ops after Commit

	now := time.Now().UTC()
	id := uuid.NewString()

	const insertMessage = `
		INSERT INTO chat_messages (id, chat_id, role, content, events_json, usage_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := tx.ExecContext(ctx, insertMessage, id, chatID, role, content, eventsJSON, usageJSON, now); err != nil {
		return fmt.Errorf("database: insert message: %w", err)
	}

	const bumpSession = `UPDATE chat_sessions SET updated_at = $1 WHERE id = $2`
	if _, err := tx.ExecContext(ctx, bumpSession, now, chatID); err != nil {
		return fmt.Errorf("database: bump session updated_at: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("database: commit append message: %w", err)
	}

	return nil
}

// GetSession returns the session with id owned by userID, or nil if no
// such session exists or it belongs to a different user — ownership is
// enforced in the query itself rather than checked afterward.
func (s *ChatStore) GetSession(ctx context.Context, chatID, userID string) (*domain.ChatSession, error) {
	const query = `
		SELECT id, user_id, title, created_at, updated_at
		FROM chat_sessions
		WHERE id = $1 AND user_id = $2`

	var session domain.ChatSession
	if err := s.db.GetContext(ctx, &session, query, chatID, userID); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("database: get session: %w", err)
	}

	return &session, nil
}

// ListMessages returns every message in chatID ordered oldest-first.
func (s *ChatStore) ListMessages(ctx context.Context, chatID string) ([]domain.ChatMessage, error) {
	const query = `
		SELECT id, chat_id, role, content, events_json, usage_json, created_at
		FROM chat_messages
		WHERE chat_id = $1
		ORDER BY created_at ASC`

	var messages []domain.ChatMessage
	if err := s.db.SelectContext(ctx, &messages, query, chatID); err != nil {
		return nil, fmt.Errorf("database: list messages: %w", err)
	}

	return messages, nil
}

// ListRecentSessions returns userID's sessions newest-updated first,
// limited to limit rows starting at offset, so page=N pagination can be
// expressed without a second query method.
func (s *ChatStore) ListRecentSessions(ctx context.Context, userID string, limit, offset int) ([]domain.ChatSession, error) {
	const query = `
		SELECT id, user_id, title, created_at, updated_at
		FROM chat_sessions
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3`

	var sessions []domain.ChatSession
	if err := s.db.SelectContext(ctx, &sessions, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("database: list recent sessions: %w", err)
	}

	return sessions, nil
}

// PendingResponse reports whether chatID's most recent message is from
// the user and so still awaits an assistant response.
func (s *ChatStore) PendingResponse(ctx context.Context, chatID string) (bool, error) {
	const query = `
		SELECT role FROM chat_messages
		WHERE chat_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var role domain.ChatRole
	if err := s.db.GetContext(ctx, &role, query, chatID); err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("database: pending response: %w", err)
	}

	return role == domain.RoleUser, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
