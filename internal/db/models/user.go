package models

import "time"

// User is a chat user and the translation API key they registered
type User struct {
	ID        int64     `json:"id"`
	APIKey    string    `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MessageKind distinguishes plain replies from file deliveries
type MessageKind string

const (
	MessageText     MessageKind = "text"
	MessageDocument MessageKind = "document"
)

// OutboxMessage is a reply waiting to be delivered to a chat user
type OutboxMessage struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	Kind      MessageKind `json:"kind"`
	Text      string      `json:"text"`                // message body or document caption
	FileName  string      `json:"file_name,omitempty"` // for documents
	JobID     string      `json:"job_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
