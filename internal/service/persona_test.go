package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tommylisiak/portfolio-chat/internal/llm"
	"github.com/tommylisiak/portfolio-chat/pkg/logger"
)

// fakeLLM records the last request and plays back a canned reply.
type fakeLLM struct {
	lastReq *llm.CompletionRequest
	reply   string
}

func (f *fakeLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.lastReq = req
	return &llm.CompletionResponse{Content: f.reply}, nil
}

func (f *fakeLLM) CompleteStream(ctx context.Context, req *llm.CompletionRequest, callback llm.StreamCallback) (*llm.CompletionResponse, error) {
	f.lastReq = req
	for i, tok := range strings.SplitAfter(f.reply, " ") {
		if err := callback(tok, i); err != nil {
			return nil, err
		}
	}
	return &llm.CompletionResponse{Content: f.reply}, nil
}

func (f *fakeLLM) Name() string { return "fake" }

func TestPersonaAnswer(t *testing.T) {
	client := &fakeLLM{reply: "I lead product at Scout."}
	svc := NewPersonaService(client, logger.NewNop())

	got, err := svc.Answer(context.Background(), "What do you do?")
	require.NoError(t, err)
	require.Equal(t, "I lead product at Scout.", got)

	require.Len(t, client.lastReq.Messages, 2)
	require.Equal(t, "system", client.lastReq.Messages[0].Role)
	require.Contains(t, client.lastReq.Messages[0].Content, "Tommy Lisiak")
	require.Equal(t, "What do you do?", client.lastReq.Messages[1].Content)
	require.Equal(t, 300, client.lastReq.MaxTokens)
}

func TestPersonaAnswerEmptyMessage(t *testing.T) {
	client := &fakeLLM{reply: "unused"}
	svc := NewPersonaService(client, logger.NewNop())

	_, err := svc.Answer(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyMessage)
	require.Nil(t, client.lastReq)
}

func TestPersonaAnswerNoProvider(t *testing.T) {
	svc := NewPersonaService(nil, logger.NewNop())

	_, err := svc.Answer(context.Background(), "hello")
	require.Error(t, err)
}

func TestPersonaAnswerStream(t *testing.T) {
	client := &fakeLLM{reply: "Grant matching at Scout."}
	svc := NewPersonaService(client, logger.NewNop())

	var tokens []string
	got, err := svc.AnswerStream(context.Background(), "What does Scout do?", func(token string, index int) error {
		tokens = append(tokens, token)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "Grant matching at Scout.", got)
	require.Equal(t, "Grant matching at Scout.", strings.Join(tokens, ""))
	require.True(t, client.lastReq.Stream)
}
