package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"skillverse/internal/models"
	"skillverse/internal/repositories"
	"skillverse/internal/storage"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	var list []models.User
	if val := args.Get(0); val != nil {
		list = val.([]models.User)
	}
	return list, args.Error(1)
}

func (m *UserRepositoryMock) UpdateProfile(ctx context.Context, userID, skills, learning, bio string) error {
	args := m.Called(ctx, userID, skills, learning, bio)
	return args.Error(0)
}

func (m *UserRepositoryMock) UpdatePhotoURL(ctx context.Context, userID, photoURL string) error {
	args := m.Called(ctx, userID, photoURL)
	return args.Error(0)
}

func (m *UserRepositoryMock) SetPresence(ctx context.Context, userID string, online bool) error {
	args := m.Called(ctx, userID, online)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, conversationKey, senderID, text string) (models.Message, error) {
	args := m.Called(ctx, conversationKey, senderID, text)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, conversationKey string) ([]models.Message, error) {
	args := m.Called(ctx, conversationKey)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

type WatermarkRepositoryMock struct {
	mock.Mock
}

func (m *WatermarkRepositoryMock) Touch(ctx context.Context, ownerID, conversationKey string) (time.Time, error) {
	args := m.Called(ctx, ownerID, conversationKey)
	var ts time.Time
	if val := args.Get(0); val != nil {
		ts = val.(time.Time)
	}
	return ts, args.Error(1)
}

func (m *WatermarkRepositoryMock) Get(ctx context.Context, ownerID, conversationKey string) (*time.Time, error) {
	args := m.Called(ctx, ownerID, conversationKey)
	var ts *time.Time
	if val := args.Get(0); val != nil {
		ts = val.(*time.Time)
	}
	return ts, args.Error(1)
}

type SessionRepositoryMock struct {
	mock.Mock
}

func (m *SessionRepositoryMock) CreateSession(ctx context.Context, session models.Session) (models.Session, error) {
	args := m.Called(ctx, session)
	var out models.Session
	if val := args.Get(0); val != nil {
		out = val.(models.Session)
	}
	return out, args.Error(1)
}

func (m *SessionRepositoryMock) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	args := m.Called(ctx, sessionID)
	var out models.Session
	if val := args.Get(0); val != nil {
		out = val.(models.Session)
	}
	return out, args.Error(1)
}

func (m *SessionRepositoryMock) ListSessionsForUser(ctx context.Context, userID string) ([]models.Session, error) {
	args := m.Called(ctx, userID)
	var list []models.Session
	if val := args.Get(0); val != nil {
		list = val.([]models.Session)
	}
	return list, args.Error(1)
}

func (m *SessionRepositoryMock) RespondToSession(ctx context.Context, sessionID, status string) error {
	args := m.Called(ctx, sessionID, status)
	return args.Error(0)
}

func (m *SessionRepositoryMock) DeleteSessionsEndedBefore(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	args := m.Called(ctx, userID, cutoff)
	return args.Int(0), args.Error(1)
}

type ReviewRepositoryMock struct {
	mock.Mock
}

func (m *ReviewRepositoryMock) CreateReview(ctx context.Context, sessionID, reviewerID string, rating int) (models.Review, error) {
	args := m.Called(ctx, sessionID, reviewerID, rating)
	var out models.Review
	if val := args.Get(0); val != nil {
		out = val.(models.Review)
	}
	return out, args.Error(1)
}

func (m *ReviewRepositoryMock) ListReviewsForSessions(ctx context.Context, sessionIDs []string) ([]models.Review, error) {
	args := m.Called(ctx, sessionIDs)
	var list []models.Review
	if val := args.Get(0); val != nil {
		list = val.([]models.Review)
	}
	return list, args.Error(1)
}

type BlobStoreMock struct {
	mock.Mock
}

func (m *BlobStoreMock) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	args := m.Called(ctx, key, contentType, body)
	return args.String(0), args.Error(1)
}

var (
	_ repositories.UserRepository      = (*UserRepositoryMock)(nil)
	_ repositories.MessageRepository   = (*MessageRepositoryMock)(nil)
	_ repositories.WatermarkRepository = (*WatermarkRepositoryMock)(nil)
	_ repositories.SessionRepository   = (*SessionRepositoryMock)(nil)
	_ repositories.ReviewRepository    = (*ReviewRepositoryMock)(nil)
	_ storage.BlobStore                = (*BlobStoreMock)(nil)
)
