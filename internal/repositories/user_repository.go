package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"skillverse/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// UserRepository abstracts profile persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, userID string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, userID, skills, learning, bio string) error
	UpdatePhotoURL(ctx context.Context, userID, photoURL string) error
	SetPresence(ctx context.Context, userID string, online bool) error
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, name, email, password_hash, photo_url, skills, learning, bio, role, online, last_active, created_at`

// CreateUser inserts a new profile.
func (r *UserRepo) CreateUser(ctx context.Context, user models.User) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (id, name, email, password_hash, photo_url, skills, learning, bio, role)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.PhotoURL, user.Skills, user.Learning, user.Bio, user.Role)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

// GetUser fetches a profile by id.
func (r *UserRepo) GetUser(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetUserByEmail fetches a profile by email.
func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// ListUsers returns every profile. Matching and chat rows are computed
// client-side over the full set, which is fine at this scale.
func (r *UserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	return users, err
}

// UpdateProfile updates the owner-editable fields.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID, skills, learning, bio string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET skills=$2, learning=$3, bio=$4 WHERE id=$1`, userID, skills, learning, bio)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePhotoURL stores the avatar URL after a successful upload.
func (r *UserRepo) UpdatePhotoURL(ctx context.Context, userID, photoURL string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET photo_url=$2 WHERE id=$1`, userID, photoURL)
	return err
}

// SetPresence flips the online flag and stamps last_active with the database
// clock. Called by the presence tracker on every online/offline transition.
func (r *UserRepo) SetPresence(ctx context.Context, userID string, online bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET online=$2, last_active=NOW() WHERE id=$1`, userID, online)
	return err
}
