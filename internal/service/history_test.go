package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tommylisiak/portfolio-chat/internal/model"
	"github.com/tommylisiak/portfolio-chat/internal/store"
	"github.com/tommylisiak/portfolio-chat/pkg/logger"
)

func TestHistoryAppendCreatesConversation(t *testing.T) {
	svc := NewHistoryService(store.NewMemoryStore(), logger.NewNop())
	ctx := context.Background()

	msg, err := svc.Append(ctx, "v1", model.RoleUser, "hello")
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)

	conv, err := svc.Load(ctx, "v1")
	require.NoError(t, err)
	require.NotNil(t, conv)
	require.Len(t, conv.Messages, 1)
	require.Equal(t, model.RoleUser, conv.Messages[0].Role)
}

func TestHistoryAppendReusesLatestConversation(t *testing.T) {
	svc := NewHistoryService(store.NewMemoryStore(), logger.NewNop())
	ctx := context.Background()

	_, err := svc.Append(ctx, "v1", model.RoleUser, "question")
	require.NoError(t, err)
	_, err = svc.Append(ctx, "v1", model.RoleAssistant, "answer")
	require.NoError(t, err)

	conv, err := svc.Load(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	require.Equal(t, "question", conv.Messages[0].Content)
	require.Equal(t, "answer", conv.Messages[1].Content)
}

func TestHistoryLoadUnknownVisitorIsNil(t *testing.T) {
	svc := NewHistoryService(store.NewMemoryStore(), logger.NewNop())

	conv, err := svc.Load(context.Background(), "nobody")
	require.NoError(t, err)
	require.Nil(t, conv)
}

func TestHistoryClear(t *testing.T) {
	svc := NewHistoryService(store.NewMemoryStore(), logger.NewNop())
	ctx := context.Background()

	_, err := svc.Append(ctx, "v1", model.RoleUser, "hello")
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, "v1"))
	conv, err := svc.Load(ctx, "v1")
	require.NoError(t, err)
	require.Nil(t, conv)

	// Clearing twice is fine.
	require.NoError(t, svc.Clear(ctx, "v1"))
}
