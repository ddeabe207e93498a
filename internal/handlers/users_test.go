package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"skillverse/internal/mocks"
	"skillverse/internal/models"
	"skillverse/internal/presence"
	"skillverse/internal/repositories"
	"skillverse/internal/storage"
)

type userHandlerMocks struct {
	users      *mocks.UserRepositoryMock
	messages   *mocks.MessageRepositoryMock
	watermarks *mocks.WatermarkRepositoryMock
	sessions   *mocks.SessionRepositoryMock
	reviews    *mocks.ReviewRepositoryMock
	blobs      *mocks.BlobStoreMock
}

func newUserHandler(blobs storage.BlobStore, m *userHandlerMocks) *UserHandler {
	tracker := presence.NewTracker(m.users, nil)
	return NewUserHandler(m.users, m.messages, m.watermarks, m.sessions, m.reviews, tracker, blobs, nil)
}

func setupUserRouter(handler *UserHandler, viewerID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", viewerID)
		c.Next()
	})
	r.GET("/users/me", handler.Me)
	r.PUT("/users/me", handler.UpdateMe)
	r.POST("/users/me/avatar", handler.UploadAvatar)
	r.GET("/users/me/stats", handler.Stats)
	r.GET("/users/:user_id", handler.GetUser)
	r.GET("/matches", handler.Matches)
	return r
}

func newUserHandlerMocks() *userHandlerMocks {
	return &userHandlerMocks{
		users:      new(mocks.UserRepositoryMock),
		messages:   new(mocks.MessageRepositoryMock),
		watermarks: new(mocks.WatermarkRepositoryMock),
		sessions:   new(mocks.SessionRepositoryMock),
		reviews:    new(mocks.ReviewRepositoryMock),
		blobs:      new(mocks.BlobStoreMock),
	}
}

func TestMatchesCaseInsensitiveSubstring(t *testing.T) {
	m := newUserHandlerMocks()
	handler := newUserHandler(m.blobs, m)
	router := setupUserRouter(handler, testAlice)

	m.users.On("GetUser", mock.Anything, testAlice).
		Return(models.User{ID: testAlice, Learning: "python"}, nil).Once()
	m.users.On("ListUsers", mock.Anything).Return([]models.User{
		{ID: testAlice, Learning: "python"},
		{ID: testBob, Name: "Bob", Skills: "Python, Guitar", LastActive: time.Now()},
		{ID: testCara, Name: "Cara", Skills: "Guitar"},
	}, nil).Once()
	m.messages.On("ListMessages", mock.Anything, models.ConversationKey(testAlice, testBob)).
		Return([]models.Message(nil), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/matches", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Matches []struct {
			ID     string `json:"id"`
			Online bool   `json:"online"`
		} `json:"matches"`
		Summary struct {
			Total      int   `json:"total"`
			NewLast24h int   `json:"new_last_24h"`
			Activity   []int `json:"activity"`
		} `json:"summary"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, testBob, resp.Matches[0].ID)
	assert.True(t, resp.Matches[0].Online)
	assert.Equal(t, 1, resp.Summary.Total)
	assert.Equal(t, 1, resp.Summary.NewLast24h)
	assert.Len(t, resp.Summary.Activity, 7)
}

func TestMatchesIncludesUnreadBadge(t *testing.T) {
	m := newUserHandlerMocks()
	handler := newUserHandler(m.blobs, m)
	router := setupUserRouter(handler, testAlice)

	key := models.ConversationKey(testAlice, testBob)
	m.users.On("GetUser", mock.Anything, testAlice).
		Return(models.User{ID: testAlice, Learning: "guitar"}, nil).Once()
	m.users.On("ListUsers", mock.Anything).Return([]models.User{
		{ID: testBob, Name: "Bob", Skills: "Guitar"},
	}, nil).Once()
	m.messages.On("ListMessages", mock.Anything, key).Return([]models.Message{
		{ID: 1, ConversationKey: key, SenderID: testBob, Text: "hi", CreatedAt: time.Now()},
	}, nil).Once()
	m.watermarks.On("Get", mock.Anything, testAlice, key).Return((*time.Time)(nil), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/matches", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Matches []struct {
			Unread int `json:"unread"`
		} `json:"matches"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, 1, resp.Matches[0].Unread)
}

func TestGetUserWithRating(t *testing.T) {
	m := newUserHandlerMocks()
	handler := newUserHandler(m.blobs, m)
	router := setupUserRouter(handler, testAlice)

	m.users.On("GetUser", mock.Anything, testBob).
		Return(models.User{ID: testBob, Name: "Bob", Online: true}, nil).Once()
	m.sessions.On("ListSessionsForUser", mock.Anything, testBob).Return([]models.Session{
		{ID: "s1", HostID: testBob, GuestID: testAlice, Status: models.SessionAccepted},
	}, nil).Once()
	m.reviews.On("ListReviewsForSessions", mock.Anything, []string{"s1"}).Return([]models.Review{
		{SessionID: "s1", ReviewerID: testAlice, Rating: 4},
		{SessionID: "s1", ReviewerID: testBob, Rating: 5}, // self review excluded
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/users/"+testBob, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Rating struct {
			Average float64 `json:"average"`
			Count   int     `json:"count"`
		} `json:"rating"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Rating.Count)
	assert.InDelta(t, 4.0, resp.Rating.Average, 0.001)
}

func TestGetUserNotFound(t *testing.T) {
	m := newUserHandlerMocks()
	handler := newUserHandler(m.blobs, m)
	router := setupUserRouter(handler, testAlice)

	m.users.On("GetUser", mock.Anything, testBob).
		Return(models.User{}, repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/users/"+testBob, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateMe(t *testing.T) {
	m := newUserHandlerMocks()
	handler := newUserHandler(m.blobs, m)
	router := setupUserRouter(handler, testAlice)

	m.users.On("UpdateProfile", mock.Anything, testAlice, "Guitar", "Spanish", "hi").Return(nil).Once()
	m.users.On("GetUser", mock.Anything, testAlice).
		Return(models.User{ID: testAlice, Skills: "Guitar", Learning: "Spanish", Bio: "hi"}, nil).Once()

	body := bytes.NewBufferString(`{"skills":"Guitar","learning":"Spanish","bio":"hi"}`)
	req := httptest.NewRequest(http.MethodPut, "/users/me", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	m.users.AssertExpectations(t)
}

func TestUploadAvatar(t *testing.T) {
	m := newUserHandlerMocks()
	handler := newUserHandler(m.blobs, m)
	router := setupUserRouter(handler, testAlice)

	m.blobs.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
		return len(key) > 0
	}), mock.Anything, mock.Anything).Return("https://cdn.example.com/avatars/a.png", nil).Once()
	m.users.On("UpdatePhotoURL", mock.Anything, testAlice, "https://cdn.example.com/avatars/a.png").Return(nil).Once()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("photo", "face.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("not really a png"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/users/me/avatar", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	m.blobs.AssertExpectations(t)
	m.users.AssertExpectations(t)
}

func TestUploadAvatarStoreFailure(t *testing.T) {
	m := newUserHandlerMocks()
	handler := newUserHandler(m.blobs, m)
	router := setupUserRouter(handler, testAlice)

	m.blobs.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", assert.AnError).Once()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("photo", "face.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/users/me/avatar", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestStats(t *testing.T) {
	m := newUserHandlerMocks()
	handler := newUserHandler(m.blobs, m)
	router := setupUserRouter(handler, testAlice)

	m.sessions.On("ListSessionsForUser", mock.Anything, testAlice).Return([]models.Session{
		{ID: "s1", HostID: testAlice, GuestID: testBob, Topic: "Guitar", Status: models.SessionAccepted},
		{ID: "s2", HostID: testBob, GuestID: testAlice, Topic: "Piano", Status: models.SessionAccepted},
		{ID: "s3", HostID: testAlice, GuestID: testBob, Topic: "Guitar", Status: models.SessionPending},
	}, nil).Once()
	m.reviews.On("ListReviewsForSessions", mock.Anything, []string{"s1", "s2", "s3"}).Return([]models.Review{
		{SessionID: "s1", ReviewerID: testBob, Rating: 5},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/users/me/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Rating struct {
			Average float64 `json:"average"`
			Count   int     `json:"count"`
		} `json:"rating"`
		SessionsByStatus map[string]int `json:"sessions_by_status"`
		TaughtByTopic    map[string]int `json:"taught_by_topic"`
		LearnedByTopic   map[string]int `json:"learned_by_topic"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Rating.Count)
	assert.Equal(t, map[string]int{"accepted": 2, "pending": 1}, resp.SessionsByStatus)
	assert.Equal(t, map[string]int{"Guitar": 1}, resp.TaughtByTopic)
	assert.Equal(t, map[string]int{"Piano": 1}, resp.LearnedByTopic)
}
