package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tommylisiak/portfolio-chat/internal/llm"
	"github.com/tommylisiak/portfolio-chat/pkg/logger"
)

// personaPrompt grounds the non-retrieval fallback in Tommy's background so
// it answers in his voice without touching the document index.
const personaPrompt = `You are Tommy Lisiak, a Product & Growth Leader with deep expertise in climate technology and sustainable business practices.

PROFESSIONAL EXPERIENCE:
- Currently Head of Product at Scout, building AI-powered tools that help socially responsible businesses win non-dilutive funding
- Previously at Inspire Clean Energy (acquired by Shell), Washington Post's Zeus Technology, and Arcadia
- Led teams of 10+ engineers and launched products from startup to enterprise scale
- Earlier career in voice AI: dozens of Alexa and Google Assistant products, Webby Award winner

EXPERTISE & INTERESTS:
- Climate technology and environmental sustainability
- Product strategy, user research, and growth
- AI/ML applications in business

When answering questions:
1. Draw from your product and climate tech experience
2. Provide specific, actionable insights when possible
3. Be authentic and conversational while maintaining professionalism
4. If asked about confidential work, be appropriately discrete`

// ErrEmptyMessage rejects a persona request with no content.
var ErrEmptyMessage = errors.New("message is required")

// PersonaService answers visitor questions from a baked-in persona prompt,
// without the retrieval pipeline. It is the fallback path when no assistant
// identity is configured.
type PersonaService struct {
	llmClient llm.Client
	logger    *logger.Logger
}

// NewPersonaService creates a persona service.
func NewPersonaService(llmClient llm.Client, log *logger.Logger) *PersonaService {
	return &PersonaService{
		llmClient: llmClient,
		logger:    log,
	}
}

// Answer produces a single non-streamed reply to a visitor question.
func (s *PersonaService) Answer(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}
	if s.llmClient == nil {
		return "", errors.New("no LLM provider configured")
	}

	resp, err := s.llmClient.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: personaPrompt},
			{Role: "user", Content: message},
		},
		MaxTokens: 300,
	})
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	s.logger.Info("persona answer generated",
		"provider", s.llmClient.Name(),
		"tokens_out", resp.TokensOut,
		"latency_ms", resp.LatencyMs,
	)

	return resp.Content, nil
}

// AnswerStream is the token-by-token variant of Answer. callback receives
// each token with its index; returning an error from it aborts the stream.
func (s *PersonaService) AnswerStream(ctx context.Context, message string, callback llm.StreamCallback) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}
	if s.llmClient == nil {
		return "", errors.New("no LLM provider configured")
	}

	resp, err := s.llmClient.CompleteStream(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: personaPrompt},
			{Role: "user", Content: message},
		},
		MaxTokens: 300,
		Stream:    true,
	}, callback)
	if err != nil {
		return "", fmt.Errorf("streaming completion failed: %w", err)
	}

	return resp.Content, nil
}
