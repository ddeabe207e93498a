package models

import "time"

// Message is a single direct message. Messages are append-only: once written
// they are never edited or deleted, and CreatedAt is assigned by the database
// clock at insert time so a message is never visible without a durable
// timestamp.
type Message struct {
	ID              int       `db:"id" json:"id"`
	ConversationKey string    `db:"conversation_key" json:"conversation_key"`
	SenderID        string    `db:"sender_id" json:"sender_id"`
	Text            string    `db:"text" json:"text"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// ChatEvent is broadcast through websockets to everyone viewing a
// conversation.
type ChatEvent struct {
	Type     string     `json:"type"` // "message", "read" or "presence"
	Message  *Message   `json:"message,omitempty"`
	UserID   string     `json:"user_id,omitempty"`
	LastRead *time.Time `json:"last_read,omitempty"`
	Online   *bool      `json:"online,omitempty"`
}
