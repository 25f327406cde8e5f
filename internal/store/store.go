// Package store defines the durable conversation store keyed by visitor ID.
package store

import (
	"context"
	"errors"

	"github.com/tommylisiak/portfolio-chat/internal/model"
)

// ErrNotFound is returned when a visitor has no stored conversation.
var ErrNotFound = errors.New("not found")

// Store persists conversations and messages per visitor. Writes are
// best-effort from the caller's point of view: failures are logged upstream,
// never surfaced to the UI.
type Store interface {
	// CreateConversation starts a new conversation for a visitor.
	CreateConversation(ctx context.Context, visitorID string) (*model.Conversation, error)

	// AppendMessage adds a finalized message to a conversation.
	AppendMessage(ctx context.Context, conversationID string, msg model.Message) error

	// LatestConversation loads the visitor's most recent conversation with
	// its messages. Returns ErrNotFound if none exists.
	LatestConversation(ctx context.Context, visitorID string) (*model.Conversation, error)

	// DeleteConversations removes all of a visitor's conversations.
	DeleteConversations(ctx context.Context, visitorID string) error

	// Ping checks backing-store connectivity.
	Ping(ctx context.Context) error
}
