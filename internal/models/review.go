package models

import "time"

// Review is a 1-5 rating left under a session by one of its participants.
type Review struct {
	ID         int       `db:"id" json:"id"`
	SessionID  string    `db:"session_id" json:"session_id"`
	ReviewerID string    `db:"reviewer_id" json:"reviewer_id"`
	Rating     int       `db:"rating" json:"rating"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
