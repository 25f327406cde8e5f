package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tommylisiak/portfolio-chat/internal/model"
	"github.com/tommylisiak/portfolio-chat/pkg/logger"
)

const welcome = "Hi! Ask me anything about Tommy."

func relayStub(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func streamingRelay(t *testing.T, gotRequests *[]model.ChatRequest, frames ...string) *httptest.Server {
	return relayStub(t, func(w http.ResponseWriter, r *http.Request) {
		var req model.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if gotRequests != nil {
			*gotRequests = append(*gotRequests, req)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, frame := range frames {
			fmt.Fprintf(w, "data: %s\n\n", frame)
		}
	})
}

func newController(t *testing.T, endpoint string) *Controller {
	c := New(Options{
		Endpoint:       endpoint,
		WelcomeMessage: welcome,
		Storage:        NewMemoryStorage(),
		Logger:         logger.NewNop(),
	})
	require.NoError(t, c.Initialize(context.Background()))
	return c
}

func TestInitializeSeedsWelcome(t *testing.T) {
	c := newController(t, "http://unused")

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, model.WelcomeMessageID, msgs[0].ID)
	require.Equal(t, model.RoleAssistant, msgs[0].Role)
	require.Equal(t, welcome, msgs[0].Content)
}

func TestInitializeRestoresStoredHistory(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Save([]model.Message{
		{ID: "user-1", Role: model.RoleUser, Content: "hello"},
		{ID: "assistant-1", Role: model.RoleAssistant, Content: "hi"},
	}))

	c := New(Options{
		Endpoint:       "http://unused",
		WelcomeMessage: welcome,
		Storage:        storage,
		Logger:         logger.NewNop(),
	})
	require.NoError(t, c.Initialize(context.Background()))

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "hello", msgs[0].Content)
}

func TestSendMessageEmptyIsNoOp(t *testing.T) {
	c := newController(t, "http://unused")

	require.NoError(t, c.SendMessage(context.Background(), ""))
	require.NoError(t, c.SendMessage(context.Background(), "   \t\n"))

	require.Len(t, c.Messages(), 1)
}

func TestSendMessageWhilePendingIsNoOp(t *testing.T) {
	c := newController(t, "http://unused")
	c.pending = true

	require.NoError(t, c.SendMessage(context.Background(), "hi"))
	require.Len(t, c.Messages(), 1)
}

func TestSendMessageEndToEnd(t *testing.T) {
	var requests []model.ChatRequest
	server := streamingRelay(t, &requests,
		`{"content":"I led"}`,
		`{"content":" product at Scout,"}`,
		`{"content":" an AI-powered grant platform."}`,
		"[DONE]",
	)

	c := newController(t, server.URL)
	require.NoError(t, c.SendMessage(context.Background(), "What did you build at Scout?"))

	msgs := c.Messages()
	require.Len(t, msgs, 3) // welcome + user + assistant
	require.Equal(t, model.RoleUser, msgs[1].Role)
	require.Equal(t, "What did you build at Scout?", msgs[1].Content)
	require.Equal(t, model.RoleAssistant, msgs[2].Role)
	require.Equal(t, "I led product at Scout, an AI-powered grant platform.", msgs[2].Content)
	require.Empty(t, c.Err())
	require.False(t, c.Pending())

	// The synthetic welcome never goes upstream.
	require.Len(t, requests, 1)
	require.Len(t, requests[0].Messages, 1)
	require.Equal(t, "What did you build at Scout?", requests[0].Messages[0].Content)
}

func TestSendMessageTrimsInput(t *testing.T) {
	var requests []model.ChatRequest
	server := streamingRelay(t, &requests, `{"content":"ok"}`, "[DONE]")

	c := newController(t, server.URL)
	require.NoError(t, c.SendMessage(context.Background(), "  hello  "))

	require.Equal(t, "hello", requests[0].Messages[0].Content)
}

func TestSendMessageHTTPErrorLeavesNoAssistantBubble(t *testing.T) {
	server := relayStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"Unknown error occurred"}`)
	})

	c := newController(t, server.URL)
	err := c.SendMessage(context.Background(), "hi")

	require.Error(t, err)
	msgs := c.Messages()
	require.Len(t, msgs, 2) // welcome + user, no assistant
	require.Equal(t, model.RoleUser, msgs[1].Role)
	require.Equal(t, genericSendError, c.Err())
	require.False(t, c.Pending())
}

func TestSendMessageInBandErrorDropsPartialAssistant(t *testing.T) {
	server := streamingRelay(t, nil,
		`{"content":"partial answer"}`,
		`{"error":"Assistant run failed"}`,
	)

	c := newController(t, server.URL)
	err := c.SendMessage(context.Background(), "hi")

	require.Error(t, err)
	msgs := c.Messages()
	require.Len(t, msgs, 2)
	for _, m := range msgs[1:] {
		require.NotEqual(t, model.RoleAssistant, m.Role)
	}
	require.NotEmpty(t, c.Err())
}

func TestSendMessageSkipsGarbledFrames(t *testing.T) {
	server := streamingRelay(t, nil,
		`{not json`,
		`{"content":"fine"}`,
		"[DONE]",
	)

	c := newController(t, server.URL)
	require.NoError(t, c.SendMessage(context.Background(), "hi"))

	msgs := c.Messages()
	require.Equal(t, "fine", msgs[2].Content)
}

func TestSendMessageErrorThenRecovery(t *testing.T) {
	failing := true
	server := relayStub(t, func(w http.ResponseWriter, r *http.Request) {
		if failing {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"content\":\"recovered\"}\n\ndata: [DONE]\n\n")
	})

	c := newController(t, server.URL)

	require.Error(t, c.SendMessage(context.Background(), "first"))
	require.NotEmpty(t, c.Err())

	failing = false
	require.NoError(t, c.SendMessage(context.Background(), "second"))
	require.Empty(t, c.Err())

	msgs := c.Messages()
	require.Equal(t, "recovered", msgs[len(msgs)-1].Content)
}

func TestClearHistoryIsIdempotent(t *testing.T) {
	server := streamingRelay(t, nil, `{"content":"answer"}`, "[DONE]")
	c := newController(t, server.URL)
	require.NoError(t, c.SendMessage(context.Background(), "hi"))
	require.Len(t, c.Messages(), 3)

	require.NoError(t, c.ClearHistory(context.Background()))
	first := c.Messages()
	require.Len(t, first, 1)
	require.Equal(t, model.WelcomeMessageID, first[0].ID)

	require.NoError(t, c.ClearHistory(context.Background()))
	second := c.Messages()
	require.Len(t, second, 1)
	require.Equal(t, model.WelcomeMessageID, second[0].ID)
}

func TestSendMessageCancelledContext(t *testing.T) {
	server := streamingRelay(t, nil, `{"content":"never seen"}`, "[DONE]")
	c := newController(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.SendMessage(ctx, "hi")
	require.Error(t, err)

	msgs := c.Messages()
	require.Len(t, msgs, 2) // welcome + user
	require.False(t, c.Pending())
}

type recordingRemote struct {
	appended []model.Role
	cleared  int
}

func (r *recordingRemote) Append(_ context.Context, role model.Role, _ string) error {
	r.appended = append(r.appended, role)
	return nil
}

func (r *recordingRemote) Clear(_ context.Context) error {
	r.cleared++
	return nil
}

func TestSendMessageMirrorsFinalizedMessages(t *testing.T) {
	server := streamingRelay(t, nil, `{"content":"answer"}`, "[DONE]")
	remote := &recordingRemote{}

	c := New(Options{
		Endpoint:       server.URL,
		WelcomeMessage: welcome,
		Storage:        NewMemoryStorage(),
		Remote:         remote,
		Logger:         logger.NewNop(),
	})
	require.NoError(t, c.Initialize(context.Background()))
	require.NoError(t, c.SendMessage(context.Background(), "hi"))

	require.Equal(t, []model.Role{model.RoleUser, model.RoleAssistant}, remote.appended)

	require.NoError(t, c.ClearHistory(context.Background()))
	require.Equal(t, 1, remote.cleared)
}
