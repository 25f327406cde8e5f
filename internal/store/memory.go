package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tommylisiak/portfolio-chat/internal/model"
)

// MemoryStore is an in-memory Store for tests and databaseless deployments.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*model.Conversation // by conversation ID
	byVisitor     map[string][]string            // visitor ID -> conversation IDs, oldest first
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*model.Conversation),
		byVisitor:     make(map[string][]string),
	}
}

// CreateConversation starts a new conversation for a visitor.
func (s *MemoryStore) CreateConversation(_ context.Context, visitorID string) (*model.Conversation, error) {
	conv := &model.Conversation{
		ID:           uuid.New().String(),
		VisitorID:    visitorID,
		LastActivity: time.Now(),
	}

	s.mu.Lock()
	s.conversations[conv.ID] = conv
	s.byVisitor[visitorID] = append(s.byVisitor[visitorID], conv.ID)
	s.mu.Unlock()

	return conv, nil
}

// AppendMessage adds a finalized message to a conversation.
func (s *MemoryStore) AppendMessage(_ context.Context, conversationID string, msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}

	conv.Messages = append(conv.Messages, msg)
	conv.LastActivity = time.Now()
	return nil
}

// LatestConversation loads the visitor's most recent conversation.
func (s *MemoryStore) LatestConversation(_ context.Context, visitorID string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byVisitor[visitorID]
	if len(ids) == 0 {
		return nil, ErrNotFound
	}

	conv := s.conversations[ids[len(ids)-1]]
	cp := *conv
	cp.Messages = append([]model.Message(nil), conv.Messages...)
	return &cp, nil
}

// DeleteConversations removes all of a visitor's conversations.
func (s *MemoryStore) DeleteConversations(_ context.Context, visitorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.byVisitor[visitorID] {
		delete(s.conversations, id)
	}
	delete(s.byVisitor, visitorID)
	return nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}
