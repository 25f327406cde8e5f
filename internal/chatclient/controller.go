// Package chatclient implements the conversation controller: it owns the
// visible message list, sends user input to the relay, and accumulates the
// streamed assistant reply.
package chatclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tommylisiak/portfolio-chat/internal/model"
	"github.com/tommylisiak/portfolio-chat/pkg/logger"
)

// genericSendError is the user-facing message for any transport or protocol
// failure during a send.
const genericSendError = "Failed to send message"

// Options configures a Controller.
type Options struct {
	// Endpoint is the relay's chat URL.
	Endpoint string
	// WelcomeMessage seeds an empty conversation. Never sent upstream.
	WelcomeMessage string
	// Storage persists the conversation locally. Optional.
	Storage Storage
	// Remote mirrors finalized messages durably. Optional, best-effort.
	Remote Remote
	// OnToken is invoked for each content fragment as it arrives. Optional.
	OnToken func(token string)

	HTTPClient *http.Client
	Logger     *logger.Logger
}

// Controller owns one conversation. It is single-writer: methods must be
// called from one goroutine, matching the user-driven event model.
type Controller struct {
	opts     Options
	http     *http.Client
	logger   *logger.Logger
	messages []model.Message
	pending  bool
	lastErr  string
}

// New creates a controller. Call Initialize before sending.
func New(opts Options) *Controller {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	log := opts.Logger
	if log == nil {
		log = logger.Global()
	}
	return &Controller{
		opts:   opts,
		http:   httpClient,
		logger: log,
	}
}

// Initialize restores the conversation from local storage, seeding the
// welcome message when no history exists.
func (c *Controller) Initialize(ctx context.Context) error {
	if c.opts.Storage != nil {
		stored, err := c.opts.Storage.Load()
		if err != nil {
			c.logger.Warn("failed to load stored history", "error", err)
		}
		if len(stored) > 0 {
			c.messages = stored
			return nil
		}
	}

	c.seedWelcome()
	return nil
}

// Messages returns the current conversation.
func (c *Controller) Messages() []model.Message {
	return c.messages
}

// Pending reports whether a send is in flight.
func (c *Controller) Pending() bool {
	return c.pending
}

// Err returns the user-visible error from the last send, empty if none.
func (c *Controller) Err() string {
	return c.lastErr
}

// SendMessage sends user input and streams the assistant reply into the
// conversation. Empty input and sends while another is in flight are no-ops.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" || c.pending {
		return nil
	}

	c.pending = true
	defer func() { c.pending = false }()
	c.lastErr = ""

	userMsg := model.Message{
		ID:        "user-" + uuid.New().String(),
		Role:      model.RoleUser,
		Content:   text,
		CreatedAt: time.Now(),
	}
	c.messages = append(c.messages, userMsg)
	c.persistLocal()
	c.mirror(ctx, userMsg)

	if err := c.streamReply(ctx); err != nil {
		c.lastErr = genericSendError
		c.logger.Warn("send failed", "error", err)
		return err
	}
	return nil
}

// streamReply performs the request/stream cycle for the most recent user
// message. On any failure the in-progress assistant message is discarded so
// no blank bubble remains.
func (c *Controller) streamReply(ctx context.Context) error {
	outbound := c.outboundHistory()

	body, err := json.Marshal(model.ChatRequest{Messages: outbound})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed: %d", resp.StatusCode)
	}

	// Insert the assistant message empty so a front-end can show a "thinking"
	// affordance until the first fragment lands.
	assistantMsg := model.Message{
		ID:        "assistant-" + uuid.New().String(),
		Role:      model.RoleAssistant,
		CreatedAt: time.Now(),
	}
	c.messages = append(c.messages, assistantMsg)
	idx := len(c.messages) - 1

	if err := c.consumeStream(ctx, resp, idx); err != nil {
		// Drop the in-progress assistant message entirely.
		c.messages = append(c.messages[:idx], c.messages[idx+1:]...)
		c.persistLocal()
		return err
	}

	c.persistLocal()
	c.mirror(ctx, c.messages[idx])
	return nil
}

func (c *Controller) consumeStream(ctx context.Context, resp *http.Response, idx int) error {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		if data == model.DoneSentinel {
			return nil
		}

		var frame struct {
			Content string `json:"content"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			// Garbled frame, skip it.
			continue
		}

		if frame.Error != "" {
			return errors.New(frame.Error)
		}
		if frame.Content != "" {
			// Content grows monotonically while the stream is open.
			c.messages[idx].Content += frame.Content
			if c.opts.OnToken != nil {
				c.opts.OnToken(frame.Content)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	// Stream closed without a terminal frame; accept what arrived.
	return nil
}

// ClearHistory discards local and durable history and reseeds the welcome
// message. Safe to call repeatedly.
func (c *Controller) ClearHistory(ctx context.Context) error {
	if c.opts.Storage != nil {
		if err := c.opts.Storage.Clear(); err != nil {
			c.logger.Warn("failed to clear local history", "error", err)
		}
	}
	if c.opts.Remote != nil {
		if err := c.opts.Remote.Clear(ctx); err != nil {
			c.logger.Warn("failed to clear durable history", "error", err)
		}
	}

	c.lastErr = ""
	c.seedWelcome()
	return nil
}

func (c *Controller) seedWelcome() {
	c.messages = nil
	if c.opts.WelcomeMessage != "" {
		c.messages = []model.Message{{
			ID:        model.WelcomeMessageID,
			Role:      model.RoleAssistant,
			Content:   c.opts.WelcomeMessage,
			CreatedAt: time.Now(),
		}}
	}
}

// outboundHistory maps the conversation to wire form, excluding the
// synthetic welcome message.
func (c *Controller) outboundHistory() []model.ChatMessage {
	out := make([]model.ChatMessage, 0, len(c.messages))
	for _, m := range c.messages {
		if m.ID == model.WelcomeMessageID {
			continue
		}
		out = append(out, model.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func (c *Controller) persistLocal() {
	if c.opts.Storage == nil {
		return
	}
	if err := c.opts.Storage.Save(c.messages); err != nil {
		c.logger.Warn("failed to persist history", "error", err)
	}
}

func (c *Controller) mirror(ctx context.Context, msg model.Message) {
	if c.opts.Remote == nil {
		return
	}
	if err := c.opts.Remote.Append(ctx, msg.Role, msg.Content); err != nil {
		c.logger.Warn("failed to mirror message", "error", err, "role", msg.Role)
	}
}
