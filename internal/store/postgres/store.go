// Package postgres implements the conversation store on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tommylisiak/portfolio-chat/internal/model"
	"github.com/tommylisiak/portfolio-chat/internal/store"
)

// Compile-time check to ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store persists conversations in PostgreSQL via a pgx pool.
type Store struct {
	db *pgxpool.Pool
}

// New connects a pool to databaseURL and returns a Store.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.db.Close()
}

// EnsureSchema creates the conversation tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id UUID PRIMARY KEY,
			visitor_id TEXT NOT NULL,
			last_activity TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_conversations_visitor
			ON conversations (visitor_id, last_activity DESC);
		CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			conversation_id UUID NOT NULL REFERENCES conversations (id),
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages (conversation_id, created_at ASC)`

	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("database error creating schema: %w", err)
	}
	return nil
}

// CreateConversation starts a new conversation row for a visitor.
func (s *Store) CreateConversation(ctx context.Context, visitorID string) (*model.Conversation, error) {
	conv := &model.Conversation{
		ID:           uuid.New().String(),
		VisitorID:    visitorID,
		LastActivity: time.Now(),
	}

	query := `
		INSERT INTO conversations (id, visitor_id, last_activity)
		VALUES ($1, $2, $3)`

	if _, err := s.db.Exec(ctx, query, conv.ID, conv.VisitorID, conv.LastActivity); err != nil {
		return nil, fmt.Errorf("database error creating conversation: %w", err)
	}

	return conv, nil
}

// AppendMessage inserts a message and bumps the conversation's last activity.
func (s *Store) AppendMessage(ctx context.Context, conversationID string, msg model.Message) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO messages (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := tx.Exec(ctx, query, msg.ID, conversationID, string(msg.Role), msg.Content, msg.CreatedAt); err != nil {
		return fmt.Errorf("database error inserting message: %w", err)
	}

	bump := `UPDATE conversations SET last_activity = $2 WHERE id = $1`
	if _, err := tx.Exec(ctx, bump, conversationID, time.Now()); err != nil {
		return fmt.Errorf("database error updating conversation: %w", err)
	}

	return tx.Commit(ctx)
}

// LatestConversation loads the visitor's most recent conversation and its
// messages in creation order.
func (s *Store) LatestConversation(ctx context.Context, visitorID string) (*model.Conversation, error) {
	query := `
		SELECT id, visitor_id, last_activity
		FROM conversations
		WHERE visitor_id = $1
		ORDER BY last_activity DESC
		LIMIT 1`

	conv := &model.Conversation{}
	err := s.db.QueryRow(ctx, query, visitorID).Scan(&conv.ID, &conv.VisitorID, &conv.LastActivity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error fetching conversation: %w", err)
	}

	msgQuery := `
		SELECT id, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC`

	rows, err := s.db.Query(ctx, msgQuery, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("database error fetching messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg model.Message
		var role string
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("database error scanning message: %w", err)
		}
		msg.Role = model.Role(role)
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating messages: %w", err)
	}

	return conv, nil
}

// DeleteConversations removes a visitor's conversations and their messages.
func (s *Store) DeleteConversations(ctx context.Context, visitorID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	delMsgs := `
		DELETE FROM messages
		WHERE conversation_id IN (SELECT id FROM conversations WHERE visitor_id = $1)`
	if _, err := tx.Exec(ctx, delMsgs, visitorID); err != nil {
		return fmt.Errorf("database error deleting messages: %w", err)
	}

	delConvs := `DELETE FROM conversations WHERE visitor_id = $1`
	if _, err := tx.Exec(ctx, delConvs, visitorID); err != nil {
		return fmt.Errorf("database error deleting conversations: %w", err)
	}

	return tx.Commit(ctx)
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
