package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// WatermarkRepository stores per-user, per-conversation read positions.
type WatermarkRepository interface {
	Touch(ctx context.Context, ownerID, conversationKey string) (time.Time, error)
	Get(ctx context.Context, ownerID, conversationKey string) (*time.Time, error)
}

// WatermarkRepo is a sqlx implementation of WatermarkRepository.
type WatermarkRepo struct {
	db *sqlx.DB
}

// NewWatermarkRepo constructs a WatermarkRepo.
func NewWatermarkRepo(db *sqlx.DB) *WatermarkRepo {
	return &WatermarkRepo{db: db}
}

// Touch advances the owner's watermark to the current database time. The
// upsert merges into the existing row, so concurrent touches from several
// clients of the same user race to last-write-wins, which is fine: only the
// owner's own unread computation depends on the value.
func (r *WatermarkRepo) Touch(ctx context.Context, ownerID, conversationKey string) (time.Time, error) {
	var lastRead time.Time
	err := r.db.QueryRowxContext(ctx, `INSERT INTO watermarks (owner_id, conversation_key, last_read) VALUES ($1, $2, NOW())
        ON CONFLICT (owner_id, conversation_key) DO UPDATE SET last_read = NOW()
        RETURNING last_read`, ownerID, conversationKey).Scan(&lastRead)
	return lastRead, err
}

// Get returns the owner's watermark for a conversation, or nil when the
// conversation has never been read.
func (r *WatermarkRepo) Get(ctx context.Context, ownerID, conversationKey string) (*time.Time, error) {
	var lastRead time.Time
	err := r.db.GetContext(ctx, &lastRead, `SELECT last_read FROM watermarks WHERE owner_id=$1 AND conversation_key=$2`, ownerID, conversationKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lastRead, nil
}
