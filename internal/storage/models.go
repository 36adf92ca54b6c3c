package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a conversation does not exist or has expired.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when a user touches a conversation they do not own.
var ErrForbidden = errors.New("forbidden")

// Message is one entry in a conversation. Messages are append-only and
// ordered by insertion.
type Message struct {
	Role      string      `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
	Meta      MessageMeta `json:"meta"`
}

// MessageMeta carries per-message pipeline diagnostics.
type MessageMeta struct {
	QueryType        string `json:"queryType,omitempty"`
	QueryLevel       string `json:"queryLevel,omitempty"`
	ProcessingTimeMs int64  `json:"processingTimeMs,omitempty"`
}

// Conversation is a per-user chat session. Message history is bounded and
// the whole conversation expires after a TTL of inactivity.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
