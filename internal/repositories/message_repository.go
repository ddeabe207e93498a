package repositories

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"skillverse/internal/models"
)

var ErrEmptyMessage = errors.New("message text is empty")

// MessageRepository defines interactions for direct messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, conversationKey, senderID, text string) (models.Message, error)
	ListMessages(ctx context.Context, conversationKey string) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage appends a message to a conversation. The timestamp comes from
// the database clock, so the row is never visible without one.
func (r *MessageRepo) CreateMessage(ctx context.Context, conversationKey, senderID, text string) (models.Message, error) {
	if text == "" {
		return models.Message{}, ErrEmptyMessage
	}
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (conversation_key, sender_id, text) VALUES ($1, $2, $3)
        RETURNING id, conversation_key, sender_id, text, created_at`, conversationKey, senderID, text).
		Scan(&msg.ID, &msg.ConversationKey, &msg.SenderID, &msg.Text, &msg.CreatedAt)
	return msg, err
}

// ListMessages returns the full conversation ordered ascending by timestamp.
func (r *MessageRepo) ListMessages(ctx context.Context, conversationKey string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, conversation_key, sender_id, text, created_at
        FROM messages WHERE conversation_key=$1 ORDER BY created_at ASC, id ASC`, conversationKey)
	return msgs, err
}
