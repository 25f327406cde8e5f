package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// WelcomeMessageID marks the synthetic greeting seeded by the client. It is
// never sent upstream.
const WelcomeMessageID = "welcome"

// Message represents a conversation message.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessage is the wire form of a message sent to the relay.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the relay request body.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// PersonaRequest is the non-retrieval persona completion request body.
type PersonaRequest struct {
	Message string `json:"message"`
}

// PersonaResponse is the persona completion response body.
type PersonaResponse struct {
	Response string `json:"response"`
}

// AppendMessageRequest mirrors a finalized message to the durable store.
type AppendMessageRequest struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
