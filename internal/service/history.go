package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tommylisiak/portfolio-chat/internal/model"
	"github.com/tommylisiak/portfolio-chat/internal/store"
	"github.com/tommylisiak/portfolio-chat/pkg/logger"
	"github.com/tommylisiak/portfolio-chat/pkg/metrics"
)

// HistoryService maintains the durable, visitor-keyed conversation mirror.
type HistoryService struct {
	store  store.Store
	logger *logger.Logger
}

// NewHistoryService creates a history service.
func NewHistoryService(st store.Store, log *logger.Logger) *HistoryService {
	return &HistoryService{
		store:  st,
		logger: log,
	}
}

// Load returns the visitor's most recent conversation, or nil if none exists.
func (s *HistoryService) Load(ctx context.Context, visitorID string) (*model.Conversation, error) {
	conv, err := s.store.LatestConversation(ctx, visitorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return conv, nil
}

// Append records a finalized message under the visitor's latest conversation,
// creating one if needed.
func (s *HistoryService) Append(ctx context.Context, visitorID string, role model.Role, content string) (*model.Message, error) {
	conv, err := s.store.LatestConversation(ctx, visitorID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			metrics.HistoryWritesTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("failed to load conversation: %w", err)
		}
		conv, err = s.store.CreateConversation(ctx, visitorID)
		if err != nil {
			metrics.HistoryWritesTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("failed to create conversation: %w", err)
		}
	}

	msg := model.Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}

	if err := s.store.AppendMessage(ctx, conv.ID, msg); err != nil {
		metrics.HistoryWritesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	metrics.HistoryWritesTotal.WithLabelValues("success").Inc()
	return &msg, nil
}

// Clear deletes the visitor's stored conversations.
func (s *HistoryService) Clear(ctx context.Context, visitorID string) error {
	if err := s.store.DeleteConversations(ctx, visitorID); err != nil {
		return fmt.Errorf("failed to delete conversations: %w", err)
	}
	s.logger.Info("history cleared", "visitor_id", visitorID)
	return nil
}

// Ping checks backing-store connectivity.
func (s *HistoryService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
