package service

import (
	"context"

	"github.com/tommylisiak/portfolio-chat/internal/assistant"
	"github.com/tommylisiak/portfolio-chat/internal/model"
)

// assistantUpstream adapts the concrete assistant client to the Upstream
// interface.
type assistantUpstream struct {
	client *assistant.Client
}

// NewAssistantUpstream wraps an assistant client for the relay service.
func NewAssistantUpstream(client *assistant.Client) Upstream {
	return &assistantUpstream{client: client}
}

func (a *assistantUpstream) CreateThread(ctx context.Context, messages []model.ChatMessage) (string, error) {
	return a.client.CreateThread(ctx, messages)
}

func (a *assistantUpstream) StreamRun(ctx context.Context, threadID, assistantID string) (EventStream, error) {
	stream, err := a.client.StreamRun(ctx, threadID, assistantID)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func (a *assistantUpstream) CreateAssistant(ctx context.Context) (string, error) {
	return a.client.CreateAssistant(ctx)
}

func (a *assistantUpstream) DeleteAssistant(ctx context.Context, id string) error {
	return a.client.DeleteAssistant(ctx, id)
}
