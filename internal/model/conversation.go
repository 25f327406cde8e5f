// Package model defines data structures for the portfolio chat.
package model

import (
	"time"
)

// Conversation represents one visitor's message history.
type Conversation struct {
	ID           string    `json:"id"`
	VisitorID    string    `json:"visitor_id"`
	Messages     []Message `json:"messages"`
	LastActivity time.Time `json:"last_activity"`
}

// HistoryResponse is returned when loading a visitor's latest conversation.
type HistoryResponse struct {
	Conversation *Conversation `json:"conversation"`
}
