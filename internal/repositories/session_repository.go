package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"skillverse/internal/models"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionNotPending = errors.New("session is not pending")
)

// SessionRepository abstracts scheduled-session persistence.
type SessionRepository interface {
	CreateSession(ctx context.Context, session models.Session) (models.Session, error)
	GetSession(ctx context.Context, sessionID string) (models.Session, error)
	ListSessionsForUser(ctx context.Context, userID string) ([]models.Session, error)
	RespondToSession(ctx context.Context, sessionID, status string) error
	DeleteSessionsEndedBefore(ctx context.Context, userID string, cutoff time.Time) (int, error)
}

// SessionRepo is a sqlx implementation of SessionRepository.
type SessionRepo struct {
	db *sqlx.DB
}

// NewSessionRepo constructs a SessionRepo.
func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// end_at is nullable in the table; a zero EndAt maps to NULL on write and
// back to the zero time on read, so COALESCE(end_at, start_at) stays the
// single source of truth for the effective end.
const sessionColumns = `id, host_id, guest_id, topic, start_at,
    COALESCE(end_at, '0001-01-01T00:00:00Z'::timestamptz) AS end_at, status, created_at`

// CreateSession stores a new pending session.
func (r *SessionRepo) CreateSession(ctx context.Context, session models.Session) (models.Session, error) {
	var endAt *time.Time
	if !session.EndAt.IsZero() {
		endAt = &session.EndAt
	}
	var stored models.Session
	err := r.db.QueryRowxContext(ctx, `INSERT INTO sessions (id, host_id, guest_id, topic, start_at, end_at, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING `+sessionColumns, session.ID, session.HostID, session.GuestID, session.Topic, session.StartAt, endAt, session.Status).
		StructScan(&stored)
	return stored, err
}

// GetSession fetches a session by id.
func (r *SessionRepo) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	var session models.Session
	err := r.db.GetContext(ctx, &session, `SELECT `+sessionColumns+` FROM sessions WHERE id=$1`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrSessionNotFound
	}
	return session, err
}

// ListSessionsForUser returns every session hosted by or offered to the user,
// most recent first.
func (r *SessionRepo) ListSessionsForUser(ctx context.Context, userID string) ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.SelectContext(ctx, &sessions, `SELECT `+sessionColumns+` FROM sessions
        WHERE host_id=$1 OR guest_id=$1
        ORDER BY COALESCE(end_at, start_at) DESC`, userID)
	return sessions, err
}

// RespondToSession performs the one-shot pending transition. The WHERE guard
// keeps accepted/rejected sessions immutable even under concurrent responses.
func (r *SessionRepo) RespondToSession(ctx context.Context, sessionID, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET status=$2 WHERE id=$1 AND status=$3`,
		sessionID, status, models.SessionPending)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrSessionNotPending
	}
	return nil
}

// DeleteSessionsEndedBefore removes the user's sessions whose effective end
// is strictly before the cutoff. A session ending exactly at the cutoff is
// retained. Reviews go with the session via ON DELETE CASCADE.
func (r *SessionRepo) DeleteSessionsEndedBefore(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions
        WHERE (host_id=$1 OR guest_id=$1) AND COALESCE(end_at, start_at) < $2`, userID, cutoff)
	if err != nil {
		return 0, err
	}
	count, err := res.RowsAffected()
	return int(count), err
}
