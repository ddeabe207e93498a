package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"skillverse/internal/models"
)

// ReviewRepository stores session reviews.
type ReviewRepository interface {
	CreateReview(ctx context.Context, sessionID, reviewerID string, rating int) (models.Review, error)
	ListReviewsForSessions(ctx context.Context, sessionIDs []string) ([]models.Review, error)
}

// ReviewRepo is a sqlx implementation of ReviewRepository.
type ReviewRepo struct {
	db *sqlx.DB
}

// NewReviewRepo constructs a ReviewRepo.
func NewReviewRepo(db *sqlx.DB) *ReviewRepo {
	return &ReviewRepo{db: db}
}

// CreateReview attaches a rating to a session.
func (r *ReviewRepo) CreateReview(ctx context.Context, sessionID, reviewerID string, rating int) (models.Review, error) {
	var review models.Review
	err := r.db.QueryRowxContext(ctx, `INSERT INTO reviews (session_id, reviewer_id, rating) VALUES ($1, $2, $3)
        RETURNING id, session_id, reviewer_id, rating, created_at`, sessionID, reviewerID, rating).
		StructScan(&review)
	return review, err
}

// ListReviewsForSessions returns the reviews of every listed session.
func (r *ReviewRepo) ListReviewsForSessions(ctx context.Context, sessionIDs []string) ([]models.Review, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, session_id, reviewer_id, rating, created_at FROM reviews WHERE session_id IN (?)`, sessionIDs)
	if err != nil {
		return nil, err
	}
	var reviews []models.Review
	err = r.db.SelectContext(ctx, &reviews, r.db.Rebind(query), args...)
	return reviews, err
}
