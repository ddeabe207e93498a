package models

import "time"

// Session status values. A session starts pending and the guest moves it
// exactly once to accepted or rejected; there is no path back to pending.
const (
	SessionPending  = "pending"
	SessionAccepted = "accepted"
	SessionRejected = "rejected"
)

// Session is a scheduled meeting between a host and a guest.
type Session struct {
	ID        string    `db:"id" json:"id"`
	HostID    string    `db:"host_id" json:"host_id"`
	GuestID   string    `db:"guest_id" json:"guest_id"`
	Topic     string    `db:"topic" json:"topic"`
	StartAt   time.Time `db:"start_at" json:"start_at"`
	EndAt     time.Time `db:"end_at" json:"end_at"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// EffectiveEnd is the instant used for ordering and expiry: the end time when
// set, otherwise the start time.
func (s Session) EffectiveEnd() time.Time {
	if !s.EndAt.IsZero() {
		return s.EndAt
	}
	return s.StartAt
}

// Involves reports whether the user participates in the session.
func (s Session) Involves(userID string) bool {
	return s.HostID == userID || s.GuestID == userID
}

// ValidSessionStatus reports whether the value is a known session status.
func ValidSessionStatus(status string) bool {
	switch status {
	case SessionPending, SessionAccepted, SessionRejected:
		return true
	}
	return false
}
