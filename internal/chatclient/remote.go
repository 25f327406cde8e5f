package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tommylisiak/portfolio-chat/internal/model"
)

// Remote mirrors finalized messages to the durable history store. All calls
// are best-effort from the controller's point of view.
type Remote interface {
	Append(ctx context.Context, role model.Role, content string) error
	Clear(ctx context.Context) error
}

// HTTPRemote talks to the relay's history endpoints.
type HTTPRemote struct {
	baseURL   string
	visitorID string
	http      *http.Client
}

// NewHTTPRemote creates a remote against baseURL (e.g. http://host/api/v1),
// identifying as visitorID.
func NewHTTPRemote(baseURL, visitorID string, client *http.Client) *HTTPRemote {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRemote{
		baseURL:   baseURL,
		visitorID: visitorID,
		http:      client,
	}
}

// Append mirrors one finalized message.
func (r *HTTPRemote) Append(ctx context.Context, role model.Role, content string) error {
	body, err := json.Marshal(model.AppendMessageRequest{Role: role, Content: content})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/history/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Visitor-ID", r.visitorID)

	resp, err := r.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("append failed: status %d", resp.StatusCode)
	}
	return nil
}

// Clear deletes the visitor's durable history.
func (r *HTTPRemote) Clear(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, r.baseURL+"/history", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-Visitor-ID", r.visitorID)

	resp, err := r.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("clear failed: status %d", resp.StatusCode)
	}
	return nil
}
