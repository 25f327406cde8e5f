// Package service provides business logic for the portfolio chat.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tommylisiak/portfolio-chat/internal/model"
	"github.com/tommylisiak/portfolio-chat/internal/ratelimit"
	"github.com/tommylisiak/portfolio-chat/pkg/logger"
	"github.com/tommylisiak/portfolio-chat/pkg/metrics"
)

// Validation errors, surfaced pre-stream with specific messages.
var (
	ErrTooManyMessages = errors.New("too many messages")
	ErrMessageTooLong  = errors.New("message too long")
	ErrInvalidMessage  = errors.New("invalid message format")
)

// RateLimitedError rejects a request that exceeded its window quota.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return "rate limit exceeded"
}

// EventStream iterates normalized events pulled from the upstream run.
type EventStream interface {
	Next() bool
	Event() model.StreamEvent
	Err() error
	Close() error
}

// Upstream is the upstream orchestration surface the relay depends on.
type Upstream interface {
	CreateThread(ctx context.Context, messages []model.ChatMessage) (string, error)
	StreamRun(ctx context.Context, threadID, assistantID string) (EventStream, error)
	CreateAssistant(ctx context.Context) (string, error)
	DeleteAssistant(ctx context.Context, id string) error
}

// EventCallback receives each normalized event for forwarding downstream.
// Returning an error aborts the relay.
type EventCallback func(ev model.StreamEvent) error

// Limits are the request validation ceilings.
type Limits struct {
	MaxPayloadSize   int64
	MaxMessages      int
	MaxMessageLength int
}

// RelayConfig configures the relay service.
type RelayConfig struct {
	Limits      Limits
	AssistantID string
	// Mode selects the upstream identity: "persistent" reuses AssistantID,
	// "ephemeral" provisions one per request and deletes it afterwards.
	Mode    string
	Timeout time.Duration
}

// RelayService is the trust boundary between the public client and the
// upstream assistant: it validates, rate-limits, orchestrates the run, and
// re-streams normalized events.
type RelayService struct {
	upstream Upstream
	limiter  ratelimit.Limiter
	cfg      RelayConfig
	logger   *logger.Logger
}

// NewRelayService creates a relay service.
func NewRelayService(upstream Upstream, limiter ratelimit.Limiter, cfg RelayConfig, log *logger.Logger) *RelayService {
	return &RelayService{
		upstream: upstream,
		limiter:  limiter,
		cfg:      cfg,
		logger:   log,
	}
}

// Limits exposes the configured validation ceilings.
func (s *RelayService) Limits() Limits {
	return s.cfg.Limits
}

// Validate checks the request against the configured ceilings. It never
// touches the upstream.
func (s *RelayService) Validate(req *model.ChatRequest) error {
	if req == nil || req.Messages == nil {
		return ErrInvalidMessage
	}
	if len(req.Messages) > s.cfg.Limits.MaxMessages {
		return fmt.Errorf("%w: maximum allowed: %d", ErrTooManyMessages, s.cfg.Limits.MaxMessages)
	}
	for _, msg := range req.Messages {
		if msg.Role != model.RoleUser && msg.Role != model.RoleAssistant {
			return ErrInvalidMessage
		}
		if len(msg.Content) > s.cfg.Limits.MaxMessageLength {
			return fmt.Errorf("%w: maximum allowed: %d characters", ErrMessageTooLong, s.cfg.Limits.MaxMessageLength)
		}
	}
	return nil
}

// Relay runs the full request pipeline: validate, rate-limit, thread-create,
// run-start, stream-relay. It returns an error only before any event has been
// emitted; once streaming has begun, failures are delivered in-band as a
// single error event and Relay returns nil.
func (s *RelayService) Relay(ctx context.Context, req *model.ChatRequest, clientKey string, emit EventCallback) error {
	start := time.Now()

	if err := s.Validate(req); err != nil {
		return err
	}

	res, err := s.limiter.Check(ctx, clientKey)
	if err != nil {
		// A broken limiter backend fails open; protection is best-effort.
		s.logger.Warn("rate limiter check failed", "error", err)
	} else if !res.Allowed {
		metrics.RateLimitRejectionsTotal.Inc()
		return &RateLimitedError{RetryAfter: res.RetryAfter}
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	assistantID := s.cfg.AssistantID
	if s.cfg.Mode == "ephemeral" {
		id, err := s.upstream.CreateAssistant(ctx)
		if err != nil {
			metrics.RecordRelay(s.cfg.Mode, "failed", time.Since(start).Seconds())
			return fmt.Errorf("upstream error: %w", err)
		}
		assistantID = id
		defer s.cleanupAssistant(id)
	}

	threadID, err := s.upstream.CreateThread(ctx, req.Messages)
	if err != nil {
		metrics.RecordRelay(s.cfg.Mode, "failed", time.Since(start).Seconds())
		return fmt.Errorf("upstream error: %w", err)
	}

	stream, err := s.upstream.StreamRun(ctx, threadID, assistantID)
	if err != nil {
		metrics.RecordRelay(s.cfg.Mode, "failed", time.Since(start).Seconds())
		return fmt.Errorf("upstream error: %w", err)
	}
	defer stream.Close()

	status := "completed"
	terminal := false

	for stream.Next() {
		ev := stream.Event()
		if ev.Type == model.StreamContent {
			metrics.RelayChunksTotal.Inc()
		}
		if err := emit(ev); err != nil {
			// Downstream went away; nothing left to deliver to.
			s.logger.Info("client disconnected mid-stream", "error", err)
			metrics.RecordRelay(s.cfg.Mode, "aborted", time.Since(start).Seconds())
			return nil
		}
		if ev.Type == model.StreamDone || ev.Type == model.StreamError {
			terminal = true
			if ev.Type == model.StreamError {
				status = "failed"
			}
			break
		}
	}

	if !terminal {
		// The upstream ended without a terminal frame. Headers are already
		// committed, so the failure channel is in-band.
		if err := stream.Err(); err != nil {
			s.logger.Error("upstream stream error", "error", err)
			status = "failed"
			_ = emit(model.StreamEvent{Type: model.StreamError, Err: "Assistant run failed"})
		} else {
			_ = emit(model.StreamEvent{Type: model.StreamDone})
		}
	}

	metrics.RecordRelay(s.cfg.Mode, status, time.Since(start).Seconds())
	return nil
}

// cleanupAssistant deletes an ephemeral assistant after the stream ends.
// Best-effort: it runs on a fresh deadline and only logs failures.
func (s *RelayService) cleanupAssistant(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.upstream.DeleteAssistant(ctx, id); err != nil {
		s.logger.Warn("failed to delete ephemeral assistant", "assistant_id", id, "error", err)
	}
}
