package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/tommylisiak/portfolio-chat/internal/middleware"
	"github.com/tommylisiak/portfolio-chat/internal/model"
	"github.com/tommylisiak/portfolio-chat/internal/service"
	"github.com/tommylisiak/portfolio-chat/pkg/logger"
	"github.com/tommylisiak/portfolio-chat/pkg/metrics"
)

// ChatHandler exposes the streaming chat relay endpoint.
type ChatHandler struct {
	relay  *service.RelayService
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(relay *service.RelayService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		relay:  relay,
		logger: log,
	}
}

// sseSink writes normalized events as SSE frames. Headers are committed
// lazily on the first frame so pre-stream failures can still use a JSON
// status response.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (s *sseSink) emit(ev model.StreamEvent) error {
	if !s.started {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}

	var err error
	switch ev.Type {
	case model.StreamContent:
		err = s.writeFrame(model.ContentFrame{Content: ev.Content})
	case model.StreamError:
		err = s.writeFrame(model.ErrorFrame{Error: ev.Err})
	case model.StreamDone:
		_, err = fmt.Fprintf(s.w, "data: %s\n\n", model.DoneSentinel)
	}
	if err != nil {
		return err
	}

	s.flusher.Flush()
	return nil
}

func (s *sseSink) writeFrame(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(s.w, "data: %s\n\n", data)
	return err
}

// Chat handles POST /api/v1/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if max := h.relay.Limits().MaxPayloadSize; r.ContentLength > max {
		writeError(w, http.StatusRequestEntityTooLarge, "Request payload too large")
		return
	}

	var req model.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.relay.Limits().MaxPayloadSize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid message format")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	sink := &sseSink{w: w, flusher: flusher}
	err := h.relay.Relay(ctx, &req, middleware.ClientKey(r), sink.emit)
	if err == nil {
		return
	}

	if sink.started {
		// Headers are committed; the relay already used the in-band channel.
		return
	}

	var rle *service.RateLimitedError
	switch {
	case errors.As(err, &rle):
		seconds := int(math.Ceil(rle.RetryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	case errors.Is(err, service.ErrTooManyMessages),
		errors.Is(err, service.ErrMessageTooLong),
		errors.Is(err, service.ErrInvalidMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("chat relay failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Unknown error occurred")
	}
}
