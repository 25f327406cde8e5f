// Package assistant provides the upstream Assistants API client: thread
// creation, streaming retrieval runs, and ephemeral assistant provisioning.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tommylisiak/portfolio-chat/internal/model"
	"github.com/tommylisiak/portfolio-chat/pkg/logger"
	"github.com/tommylisiak/portfolio-chat/pkg/metrics"
)

// Instruction appended at run time to push the model toward the indexed
// documents. Advisory only: the upstream may still answer without searching.
const retrievalInstruction = "IMPORTANT: You MUST use the file_search tool to answer this question. " +
	"Search your documents first before responding. Do not guess or make up information."

// Config holds upstream connection settings.
type Config struct {
	APIKey        string
	BaseURL       string
	AssistantID   string
	VectorStoreID string
	Model         string
}

// Client talks to the Assistants API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *logger.Logger
}

// NewClient creates an upstream client.
func NewClient(cfg Config, log *logger.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: log,
	}
}

type threadResponse struct {
	ID string `json:"id"`
}

// CreateThread submits the full message history as a new upstream thread and
// returns its ID. Failures are not retried.
func (c *Client) CreateThread(ctx context.Context, messages []model.ChatMessage) (string, error) {
	body := map[string]interface{}{
		"messages": messages,
	}

	var thread threadResponse
	if err := c.postJSON(ctx, "/threads", body, &thread); err != nil {
		metrics.RecordUpstreamCall("thread_create", "error")
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	metrics.RecordUpstreamCall("thread_create", "success")

	c.logger.Info("thread created", "thread_id", thread.ID)
	return thread.ID, nil
}

// StreamRun launches a streaming run of assistantID against threadID and
// returns an iterator over the upstream event frames.
func (c *Client) StreamRun(ctx context.Context, threadID, assistantID string) (*RunStream, error) {
	body := map[string]interface{}{
		"assistant_id":            assistantID,
		"stream":                  true,
		"additional_instructions": retrievalInstruction,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/threads/"+threadID+"/runs", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build run request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordUpstreamCall("run_start", "error")
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		metrics.RecordUpstreamCall("run_start", "error")
		return nil, fmt.Errorf("failed to create run: status %d: %s", resp.StatusCode, detail)
	}
	metrics.RecordUpstreamCall("run_start", "success")

	c.logger.Info("run started", "thread_id", threadID, "assistant_id", assistantID)
	return newRunStream(resp.Body, c.logger), nil
}

type assistantResponse struct {
	ID string `json:"id"`
}

// CreateAssistant provisions a per-request assistant bound to the configured
// vector store. Used only in ephemeral mode.
func (c *Client) CreateAssistant(ctx context.Context) (string, error) {
	body := map[string]interface{}{
		"model":        c.cfg.Model,
		"name":         "portfolio-chat-ephemeral",
		"instructions": "You answer visitor questions about Tommy using the indexed documents.",
		"tools": []map[string]string{
			{"type": "file_search"},
		},
	}
	if c.cfg.VectorStoreID != "" {
		body["tool_resources"] = map[string]interface{}{
			"file_search": map[string]interface{}{
				"vector_store_ids": []string{c.cfg.VectorStoreID},
			},
		}
	}

	var a assistantResponse
	if err := c.postJSON(ctx, "/assistants", body, &a); err != nil {
		metrics.RecordUpstreamCall("assistant_create", "error")
		return "", fmt.Errorf("failed to create assistant: %w", err)
	}
	metrics.RecordUpstreamCall("assistant_create", "success")

	return a.ID, nil
}

// DeleteAssistant removes an ephemeral assistant. Best-effort.
func (c *Client) DeleteAssistant(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.cfg.BaseURL+"/assistants/"+id, nil)
	if err != nil {
		return fmt.Errorf("failed to build delete request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordUpstreamCall("assistant_delete", "error")
		return fmt.Errorf("failed to delete assistant: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		metrics.RecordUpstreamCall("assistant_delete", "error")
		return fmt.Errorf("failed to delete assistant: status %d", resp.StatusCode)
	}
	metrics.RecordUpstreamCall("assistant_delete", "success")
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, detail)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", "assistants=v2")
}
