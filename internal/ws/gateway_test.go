package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alumni-chat-service/internal/auth"
	"alumni-chat-service/internal/mocks"
	"alumni-chat-service/internal/models"
	"alumni-chat-service/internal/repositories"
)

func setupGatewayRouter(gateway *Gateway) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", gateway.Handle)
	return r
}

func TestGatewayRejectsMissingToken(t *testing.T) {
	hub := NewHub()
	tokens := auth.NewTokenManager("secret", time.Hour)
	gateway := NewGateway(hub, tokens, new(mocks.UserDirectoryMock), new(mocks.ConversationRepositoryMock))
	router := setupGatewayRouter(gateway)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, hub.userRooms)
}

func TestGatewayRejectsExpiredToken(t *testing.T) {
	hub := NewHub()
	tokens := auth.NewTokenManager("secret", -time.Minute)
	gateway := NewGateway(hub, tokens, new(mocks.UserDirectoryMock), new(mocks.ConversationRepositoryMock))
	router := setupGatewayRouter(gateway)

	token, err := tokens.Generate(primitive.NewObjectID().Hex(), "ana", "mit")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// an expired token must be rejected before any room join happens
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, hub.userRooms)
}

func TestGatewayRejectsUnknownUser(t *testing.T) {
	hub := NewHub()
	tokens := auth.NewTokenManager("secret", time.Hour)
	users := new(mocks.UserDirectoryMock)
	gateway := NewGateway(hub, tokens, users, new(mocks.ConversationRepositoryMock))
	router := setupGatewayRouter(gateway)

	userID := primitive.NewObjectID()
	token, err := tokens.Generate(userID.Hex(), "ana", "mit")
	require.NoError(t, err)

	users.On("Get", mock.Anything, userID).Return(models.UserProfile{}, repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, hub.userRooms)
	users.AssertExpectations(t)
}

func TestGatewayRejectsTokenWithWrongSecret(t *testing.T) {
	hub := NewHub()
	tokens := auth.NewTokenManager("secret", time.Hour)
	gateway := NewGateway(hub, tokens, new(mocks.UserDirectoryMock), new(mocks.ConversationRepositoryMock))
	router := setupGatewayRouter(gateway)

	forged := auth.NewTokenManager("other-secret", time.Hour)
	token, err := forged.Generate(primitive.NewObjectID().Hex(), "ana", "mit")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, hub.userRooms)
}

func TestGatewayRelaysTypingToParticipants(t *testing.T) {
	hub := NewHub()
	tokens := auth.NewTokenManager("secret", time.Hour)
	users := new(mocks.UserDirectoryMock)
	convs := new(mocks.ConversationRepositoryMock)
	gateway := NewGateway(hub, tokens, users, convs)
	router := setupGatewayRouter(gateway)

	srv := httptest.NewServer(router)
	defer srv.Close()

	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	conv := models.Conversation{
		ID:           primitive.NewObjectID(),
		Participants: []primitive.ObjectID{alice, bob},
		Type:         models.ConversationDirect,
	}

	users.On("Get", mock.Anything, alice).Return(models.UserProfile{ID: alice, Name: "Alice", College: "mit"}, nil)
	users.On("Get", mock.Anything, bob).Return(models.UserProfile{ID: bob, Name: "Bob", College: "mit"}, nil)
	users.On("UpdatePresence", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	convs.On("Get", mock.Anything, conv.ID).Return(conv, nil)

	dial := func(userID primitive.ObjectID, name string) *websocket.Conn {
		token, err := tokens.Generate(userID.Hex(), name, "mit")
		require.NoError(t, err)
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		return conn
	}

	aliceConn := dial(alice, "Alice")
	defer aliceConn.Close()
	bobConn := dial(bob, "Bob")
	defer bobConn.Close()

	// wait for both sessions to land in their rooms
	require.Eventually(t, func() bool {
		return hub.IsOnline(alice.Hex()) && hub.IsOnline(bob.Hex())
	}, 2*time.Second, 10*time.Millisecond)

	frame := `{"event":"typing_start","data":{"conversation_id":"` + conv.ID.Hex() + `"}}`
	require.NoError(t, aliceConn.WriteMessage(websocket.TextMessage, []byte(frame)))

	bobConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := bobConn.ReadMessage()
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal(raw, &event))
	require.Equal(t, EventUserTyping, event.Event)

	data, ok := event.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, alice.Hex(), data["user_id"])
	require.Equal(t, "Alice", data["user_name"])
}

func TestGatewayReportsUnknownEventToSenderOnly(t *testing.T) {
	hub := NewHub()
	tokens := auth.NewTokenManager("secret", time.Hour)
	users := new(mocks.UserDirectoryMock)
	gateway := NewGateway(hub, tokens, users, new(mocks.ConversationRepositoryMock))
	router := setupGatewayRouter(gateway)

	srv := httptest.NewServer(router)
	defer srv.Close()

	userID := primitive.NewObjectID()
	users.On("Get", mock.Anything, userID).Return(models.UserProfile{ID: userID, Name: "Ana"}, nil)
	users.On("UpdatePresence", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	token, err := tokens.Generate(userID.Hex(), "Ana", "")
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.IsOnline(userID.Hex()) }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"dance"}`)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal(raw, &event))
	require.Equal(t, EventError, event.Event)
}
