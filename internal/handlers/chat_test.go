package handlers

import (
	"bytes"
	"encoding/json"
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
	"skillverse/internal/repositories"
	"skillverse/internal/ws"
)

const (
	testAlice = "0b54a98f-1f4a-4c4f-9c9c-111111111111"
	testBob   = "8d2f66a1-5b3e-4d2a-8a0d-222222222222"
	testCara  = "f1e2d3c4-0a9b-4c7d-b6e5-333333333333"
)

func setupChatRouter(handler *ChatHandler, viewerID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", viewerID)
		c.Next()
	})
	r.GET("/chats", handler.ListChats)
	r.GET("/chats/:peer_id/messages", handler.GetMessages)
	r.POST("/chats/:peer_id/messages", handler.PostMessage)
	r.POST("/chats/:peer_id/read", handler.MarkRead)
	return r
}

func TestListChatsBuildsInbox(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	watermarkRepo := new(mocks.WatermarkRepositoryMock)
	handler := NewChatHandler(userRepo, messageRepo, watermarkRepo, ws.NewHub())
	router := setupChatRouter(handler, testAlice)

	key := models.ConversationKey(testAlice, testBob)
	msgs := []models.Message{
		{ID: 1, ConversationKey: key, SenderID: testBob, Text: "hi", CreatedAt: time.Now()},
	}

	userRepo.On("ListUsers", mock.Anything).Return([]models.User{
		{ID: testAlice, Name: "Alice"},
		{ID: testBob, Name: "Bob"},
		{ID: testCara, Name: "Cara"},
	}, nil).Once()
	messageRepo.On("ListMessages", mock.Anything, key).Return(msgs, nil).Once()
	messageRepo.On("ListMessages", mock.Anything, models.ConversationKey(testAlice, testCara)).Return([]models.Message(nil), nil).Once()
	watermarkRepo.On("Get", mock.Anything, testAlice, key).Return((*time.Time)(nil), nil).Once()
	watermarkRepo.On("Get", mock.Anything, testBob, key).Return((*time.Time)(nil), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Chats []struct {
			PeerID string `json:"peer_id"`
			Unread int    `json:"unread"`
		} `json:"chats"`
		TotalUnread int `json:"total_unread"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Chats, 1)
	assert.Equal(t, testBob, resp.Chats[0].PeerID)
	assert.Equal(t, 1, resp.Chats[0].Unread)
	assert.Equal(t, 1, resp.TotalUnread)

	userRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
	watermarkRepo.AssertExpectations(t)
}

func TestGetMessagesTouchesWatermark(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	watermarkRepo := new(mocks.WatermarkRepositoryMock)
	handler := NewChatHandler(userRepo, messageRepo, watermarkRepo, ws.NewHub())
	router := setupChatRouter(handler, testAlice)

	key := models.ConversationKey(testAlice, testBob)
	touched := time.Now()

	userRepo.On("GetUser", mock.Anything, testBob).Return(models.User{ID: testBob}, nil).Once()
	messageRepo.On("ListMessages", mock.Anything, key).Return([]models.Message{
		{ID: 1, ConversationKey: key, SenderID: testBob, Text: "hi", CreatedAt: touched.Add(-time.Minute)},
	}, nil).Once()
	watermarkRepo.On("Touch", mock.Anything, testAlice, key).Return(touched, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/"+testBob+"/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []models.Message `json:"messages"`
		LastRead *time.Time       `json:"last_read"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 1)
	require.NotNil(t, resp.LastRead)

	watermarkRepo.AssertExpectations(t)
}

func TestGetMessagesTouchFailureStillReturnsMessages(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	watermarkRepo := new(mocks.WatermarkRepositoryMock)
	handler := NewChatHandler(userRepo, messageRepo, watermarkRepo, ws.NewHub())
	router := setupChatRouter(handler, testAlice)

	key := models.ConversationKey(testAlice, testBob)
	userRepo.On("GetUser", mock.Anything, testBob).Return(models.User{ID: testBob}, nil).Once()
	messageRepo.On("ListMessages", mock.Anything, key).Return([]models.Message{}, nil).Once()
	watermarkRepo.On("Touch", mock.Anything, testAlice, key).Return(time.Time{}, assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/"+testBob+"/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPostMessageSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewChatHandler(userRepo, messageRepo, new(mocks.WatermarkRepositoryMock), ws.NewHub())
	router := setupChatRouter(handler, testAlice)

	key := models.ConversationKey(testAlice, testBob)
	userRepo.On("GetUser", mock.Anything, testBob).Return(models.User{ID: testBob}, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, key, testAlice, "hello").
		Return(models.Message{ID: 1, ConversationKey: key, SenderID: testAlice, Text: "hello", CreatedAt: time.Now()}, nil).Once()

	body := bytes.NewBufferString(`{"text":"  hello  "}`)
	req := httptest.NewRequest(http.MethodPost, "/chats/"+testBob+"/messages", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestPostMessageEmptyTextDroppedSilently(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewChatHandler(userRepo, messageRepo, new(mocks.WatermarkRepositoryMock), ws.NewHub())
	router := setupChatRouter(handler, testAlice)

	body := bytes.NewBufferString(`{"text":"   "}`)
	req := httptest.NewRequest(http.MethodPost, "/chats/"+testBob+"/messages", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	messageRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPostMessageUnknownPeer(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewChatHandler(userRepo, new(mocks.MessageRepositoryMock), new(mocks.WatermarkRepositoryMock), ws.NewHub())
	router := setupChatRouter(handler, testAlice)

	userRepo.On("GetUser", mock.Anything, testBob).Return(models.User{}, repositories.ErrUserNotFound).Once()

	body := bytes.NewBufferString(`{"text":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/chats/"+testBob+"/messages", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkRead(t *testing.T) {
	watermarkRepo := new(mocks.WatermarkRepositoryMock)
	handler := NewChatHandler(new(mocks.UserRepositoryMock), new(mocks.MessageRepositoryMock), watermarkRepo, ws.NewHub())
	router := setupChatRouter(handler, testAlice)

	key := models.ConversationKey(testAlice, testBob)
	watermarkRepo.On("Touch", mock.Anything, testAlice, key).Return(time.Now(), nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/"+testBob+"/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	watermarkRepo.AssertExpectations(t)
}

func TestMarkReadTouchFailureSwallowed(t *testing.T) {
	watermarkRepo := new(mocks.WatermarkRepositoryMock)
	handler := NewChatHandler(new(mocks.UserRepositoryMock), new(mocks.MessageRepositoryMock), watermarkRepo, ws.NewHub())
	router := setupChatRouter(handler, testAlice)

	key := models.ConversationKey(testAlice, testBob)
	watermarkRepo.On("Touch", mock.Anything, testAlice, key).Return(time.Time{}, assert.AnError).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/"+testBob+"/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
}
