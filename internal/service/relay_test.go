package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tommylisiak/portfolio-chat/internal/model"
	"github.com/tommylisiak/portfolio-chat/internal/ratelimit"
	"github.com/tommylisiak/portfolio-chat/pkg/logger"
)

type fakeStream struct {
	events []model.StreamEvent
	pos    int
	err    error
	closed bool
}

func (s *fakeStream) Next() bool {
	if s.pos >= len(s.events) {
		return false
	}
	s.pos++
	return true
}

func (s *fakeStream) Event() model.StreamEvent { return s.events[s.pos-1] }
func (s *fakeStream) Err() error               { return s.err }
func (s *fakeStream) Close() error             { s.closed = true; return nil }

type fakeUpstream struct {
	threadCalls    int
	runCalls       int
	createdAssist  int
	deletedAssist  []string
	runAssistantID string

	threadErr error
	runErr    error
	stream    *fakeStream
}

func (u *fakeUpstream) CreateThread(_ context.Context, _ []model.ChatMessage) (string, error) {
	u.threadCalls++
	if u.threadErr != nil {
		return "", u.threadErr
	}
	return "thread_123", nil
}

func (u *fakeUpstream) StreamRun(_ context.Context, _, assistantID string) (EventStream, error) {
	u.runCalls++
	u.runAssistantID = assistantID
	if u.runErr != nil {
		return nil, u.runErr
	}
	return u.stream, nil
}

func (u *fakeUpstream) CreateAssistant(_ context.Context) (string, error) {
	u.createdAssist++
	return "asst_ephemeral", nil
}

func (u *fakeUpstream) DeleteAssistant(_ context.Context, id string) error {
	u.deletedAssist = append(u.deletedAssist, id)
	return nil
}

func defaultConfig() RelayConfig {
	return RelayConfig{
		Limits: Limits{
			MaxPayloadSize:   100000,
			MaxMessages:      20,
			MaxMessageLength: 4000,
		},
		AssistantID: "asst_persistent",
		Mode:        "persistent",
		Timeout:     time.Minute,
	}
}

func newRelay(u *fakeUpstream, cfg RelayConfig) *RelayService {
	return NewRelayService(u, ratelimit.NewMemoryLimiter(100, time.Minute), cfg, logger.NewNop())
}

func userMessages(contents ...string) *model.ChatRequest {
	req := &model.ChatRequest{Messages: []model.ChatMessage{}}
	for _, c := range contents {
		req.Messages = append(req.Messages, model.ChatMessage{Role: model.RoleUser, Content: c})
	}
	return req
}

func TestRelayHappyPath(t *testing.T) {
	upstream := &fakeUpstream{stream: &fakeStream{events: []model.StreamEvent{
		{Type: model.StreamContent, Content: "I led"},
		{Type: model.StreamContent, Content: " product at Scout,"},
		{Type: model.StreamContent, Content: " an AI-powered grant platform."},
		{Type: model.StreamDone},
	}}}
	relay := newRelay(upstream, defaultConfig())

	var got []model.StreamEvent
	err := relay.Relay(context.Background(), userMessages("What did you build at Scout?"), "1.2.3.4",
		func(ev model.StreamEvent) error {
			got = append(got, ev)
			return nil
		})

	require.NoError(t, err)
	require.Len(t, got, 4)

	var content strings.Builder
	for _, ev := range got[:3] {
		content.WriteString(ev.Content)
	}
	require.Equal(t, "I led product at Scout, an AI-powered grant platform.", content.String())
	require.Equal(t, model.StreamDone, got[3].Type)
	require.Equal(t, 1, upstream.threadCalls)
	require.Equal(t, 1, upstream.runCalls)
	require.Equal(t, "asst_persistent", upstream.runAssistantID)
	require.True(t, upstream.stream.closed)
}

func TestRelayTooManyMessagesRejectedBeforeUpstream(t *testing.T) {
	upstream := &fakeUpstream{}
	relay := newRelay(upstream, defaultConfig())

	contents := make([]string, 21)
	for i := range contents {
		contents[i] = "hi"
	}

	err := relay.Relay(context.Background(), userMessages(contents...), "k", func(model.StreamEvent) error {
		t.Fatal("no events expected")
		return nil
	})

	require.ErrorIs(t, err, ErrTooManyMessages)
	require.Zero(t, upstream.threadCalls)
	require.Zero(t, upstream.runCalls)
}

func TestRelayMessageTooLongRejected(t *testing.T) {
	upstream := &fakeUpstream{}
	relay := newRelay(upstream, defaultConfig())

	err := relay.Relay(context.Background(), userMessages(strings.Repeat("a", 4001)), "k", nil)

	require.ErrorIs(t, err, ErrMessageTooLong)
	require.Zero(t, upstream.threadCalls)
}

func TestRelayInvalidRoleRejected(t *testing.T) {
	upstream := &fakeUpstream{}
	relay := newRelay(upstream, defaultConfig())

	req := &model.ChatRequest{Messages: []model.ChatMessage{{Role: "system", Content: "x"}}}
	err := relay.Relay(context.Background(), req, "k", nil)

	require.ErrorIs(t, err, ErrInvalidMessage)
	require.Zero(t, upstream.threadCalls)
}

func TestRelayRateLimited(t *testing.T) {
	upstream := &fakeUpstream{stream: &fakeStream{events: []model.StreamEvent{{Type: model.StreamDone}}}}
	cfg := defaultConfig()
	relay := NewRelayService(upstream, ratelimit.NewMemoryLimiter(1, time.Minute), cfg, logger.NewNop())

	require.NoError(t, relay.Relay(context.Background(), userMessages("one"), "key", func(model.StreamEvent) error { return nil }))

	upstream.stream = &fakeStream{events: []model.StreamEvent{{Type: model.StreamDone}}}
	err := relay.Relay(context.Background(), userMessages("two"), "key", nil)

	var rle *RateLimitedError
	require.ErrorAs(t, err, &rle)
	require.Greater(t, rle.RetryAfter, time.Duration(0))
	require.LessOrEqual(t, rle.RetryAfter, time.Minute)
	require.Equal(t, 1, upstream.threadCalls)
}

func TestRelayThreadCreateFailurePreStream(t *testing.T) {
	upstream := &fakeUpstream{threadErr: errors.New("upstream down")}
	relay := newRelay(upstream, defaultConfig())

	emitted := 0
	err := relay.Relay(context.Background(), userMessages("hi"), "k", func(model.StreamEvent) error {
		emitted++
		return nil
	})

	require.Error(t, err)
	require.Zero(t, emitted)
	require.Zero(t, upstream.runCalls)
}

func TestRelayRunStartFailurePreStream(t *testing.T) {
	upstream := &fakeUpstream{runErr: errors.New("run rejected")}
	relay := newRelay(upstream, defaultConfig())

	emitted := 0
	err := relay.Relay(context.Background(), userMessages("hi"), "k", func(model.StreamEvent) error {
		emitted++
		return nil
	})

	require.Error(t, err)
	require.Zero(t, emitted)
}

func TestRelayUpstreamFailureInBand(t *testing.T) {
	upstream := &fakeUpstream{stream: &fakeStream{events: []model.StreamEvent{
		{Type: model.StreamContent, Content: "partial"},
		{Type: model.StreamError, Err: "Assistant run failed"},
	}}}
	relay := newRelay(upstream, defaultConfig())

	var got []model.StreamEvent
	err := relay.Relay(context.Background(), userMessages("hi"), "k", func(ev model.StreamEvent) error {
		got = append(got, ev)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, model.StreamError, got[1].Type)
}

func TestRelayStreamEndWithoutTerminalEmitsDone(t *testing.T) {
	upstream := &fakeUpstream{stream: &fakeStream{events: []model.StreamEvent{
		{Type: model.StreamContent, Content: "hello"},
	}}}
	relay := newRelay(upstream, defaultConfig())

	var got []model.StreamEvent
	err := relay.Relay(context.Background(), userMessages("hi"), "k", func(ev model.StreamEvent) error {
		got = append(got, ev)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, model.StreamDone, got[1].Type)
}

func TestRelayTransportErrorMidStreamEmitsErrorFrame(t *testing.T) {
	upstream := &fakeUpstream{stream: &fakeStream{
		events: []model.StreamEvent{{Type: model.StreamContent, Content: "hel"}},
		err:    errors.New("connection reset"),
	}}
	relay := newRelay(upstream, defaultConfig())

	var got []model.StreamEvent
	err := relay.Relay(context.Background(), userMessages("hi"), "k", func(ev model.StreamEvent) error {
		got = append(got, ev)
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, model.StreamError, got[len(got)-1].Type)
}

func TestRelayEphemeralModeProvisionsAndDeletes(t *testing.T) {
	upstream := &fakeUpstream{stream: &fakeStream{events: []model.StreamEvent{{Type: model.StreamDone}}}}
	cfg := defaultConfig()
	cfg.Mode = "ephemeral"
	relay := newRelay(upstream, cfg)

	err := relay.Relay(context.Background(), userMessages("hi"), "k", func(model.StreamEvent) error { return nil })

	require.NoError(t, err)
	require.Equal(t, 1, upstream.createdAssist)
	require.Equal(t, []string{"asst_ephemeral"}, upstream.deletedAssist)
	require.Equal(t, "asst_ephemeral", upstream.runAssistantID)
}

func TestRelayClientDisconnectStopsRelay(t *testing.T) {
	upstream := &fakeUpstream{stream: &fakeStream{events: []model.StreamEvent{
		{Type: model.StreamContent, Content: "a"},
		{Type: model.StreamContent, Content: "b"},
		{Type: model.StreamDone},
	}}}
	relay := newRelay(upstream, defaultConfig())

	calls := 0
	err := relay.Relay(context.Background(), userMessages("hi"), "k", func(model.StreamEvent) error {
		calls++
		return errors.New("broken pipe")
	})

	require.NoError(t, err)
	require.Equal(t, 1, calls)
}
