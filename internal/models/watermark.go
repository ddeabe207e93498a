package models

import "time"

// Watermark records how far a user has read in one conversation. Each
// participant owns exactly one watermark per conversation and only ever
// writes their own; the peer reads it to decide whether a sent message has
// been seen.
type Watermark struct {
	OwnerID         string    `db:"owner_id" json:"owner_id"`
	ConversationKey string    `db:"conversation_key" json:"conversation_key"`
	LastRead        time.Time `db:"last_read" json:"last_read"`
}
