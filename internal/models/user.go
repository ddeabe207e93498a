package models

import "time"

// Roles a profile can take in a skill exchange.
const (
	RoleTeacher = "Teacher"
	RoleLearner = "Learner"
	RoleBoth    = "Both"
)

// User is a Skillverse profile. Skills and Learning are free-text,
// comma-separated lists as entered by the user; matching works on raw
// substrings and never normalizes them. Online and LastActive are owned by
// the presence tracker, everything else by the profile owner.
type User struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	PhotoURL     string    `db:"photo_url" json:"photo_url"`
	Skills       string    `db:"skills" json:"skills"`
	Learning     string    `db:"learning" json:"learning"`
	Bio          string    `db:"bio" json:"bio"`
	Role         string    `db:"role" json:"role"`
	Online       bool      `db:"online" json:"online"`
	LastActive   time.Time `db:"last_active" json:"last_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// PublicProfile strips fields the owner would not want other users to see.
type PublicProfile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PhotoURL   string    `json:"photo_url"`
	Skills     string    `json:"skills"`
	Learning   string    `json:"learning"`
	Bio        string    `json:"bio"`
	Role       string    `json:"role"`
	Online     bool      `json:"online"`
	LastActive time.Time `json:"last_active"`
}

// Public converts a User to its shareable view.
func (u User) Public() PublicProfile {
	return PublicProfile{
		ID:         u.ID,
		Name:       u.Name,
		PhotoURL:   u.PhotoURL,
		Skills:     u.Skills,
		Learning:   u.Learning,
		Bio:        u.Bio,
		Role:       u.Role,
		Online:     u.Online,
		LastActive: u.LastActive,
	}
}
